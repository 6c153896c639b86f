package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/handicappin/handicappin/internal/golf"
	"github.com/handicappin/handicappin/internal/queue"
)

// POST /admin/courses/{courseID}/approve
// Approves the course, its tees and pending rounds, and queues the affected
// players for recalculation.
func ApproveCourseHandler(store golf.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(r, "courseID")
		if !ok {
			http.Error(w, "bad course id", http.StatusBadRequest)
			return
		}
		users, err := store.ApproveCourse(r.Context(), id)
		if err != nil {
			storeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"course_id": id, "queued_users": len(users)})
	}
}

// POST /admin/users/{userID}/recalculate
func RecalculateUserHandler(store golf.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")
		if _, err := store.GetProfile(r.Context(), userID); err != nil {
			storeError(w, r, err)
			return
		}
		if err := store.Enqueue(r.Context(), userID, golf.EventManual); err != nil {
			storeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

// POST /admin/queue/retry  moves failed jobs back to pending
func RetryFailedJobsHandler(store golf.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := store.RetryFailedJobs(r.Context())
		if err != nil {
			storeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"requeued": n})
	}
}

// BatchRunner runs one queue batch. *queue.Processor satisfies it.
type BatchRunner interface {
	RunOnce(ctx context.Context) (queue.Summary, error)
}

// POST /admin/queue/run  processes one batch now
func RunQueueHandler(runner BatchRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sum, err := runner.RunOnce(r.Context())
		if err != nil {
			storeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sum)
	}
}
