package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	authmw "github.com/handicappin/handicappin/internal/auth/middleware"
	"github.com/handicappin/handicappin/internal/golf"
	"github.com/handicappin/handicappin/internal/handicap"
	"github.com/handicappin/handicappin/internal/rbac"
)

// POST /courses  { "name": "...", "city": "...", "country": "...", "website": "..." }
// Courses added by players wait for admin approval; admin courses are approved
// straight away.
func CreateCourseHandler(store golf.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name    string `json:"name"`
			City    string `json:"city"`
			Country string `json:"country"`
			Website string `json:"website"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Name) == "" {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		status := handicap.ApprovalPending
		if rbac.RoleFromContext(r.Context()) == rbac.RoleAdmin {
			status = handicap.ApprovalApproved
		}
		c, err := store.PutCourse(r.Context(), golf.Course{
			Name:           strings.TrimSpace(req.Name),
			City:           strings.TrimSpace(req.City),
			Country:        strings.TrimSpace(req.Country),
			Website:        strings.TrimSpace(req.Website),
			ApprovalStatus: status,
			CreatedBy:      authmw.SubjectFromContext(r.Context()),
		})
		if err != nil {
			storeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, c)
	}
}

// GET /courses?q=&limit=&offset=
func ListCoursesHandler(store golf.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		opts := golf.ListOpts{Q: strings.TrimSpace(q.Get("q")), Limit: 50}
		if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
			opts.Limit = min(v, 100)
		}
		if v, err := strconv.Atoi(q.Get("offset")); err == nil && v >= 0 {
			opts.Offset = v
		}
		courses, err := store.ListCourses(r.Context(), opts)
		if err != nil {
			storeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, courses)
	}
}

// GET /courses/{courseID}  (tees included)
func GetCourseHandler(store golf.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(r, "courseID")
		if !ok {
			http.Error(w, "bad course id", http.StatusBadRequest)
			return
		}
		c, err := store.GetCourse(r.Context(), id)
		if err != nil {
			storeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

// POST /courses/{courseID}/tees  golf.Tee with 9 or 18 holes
func CreateTeeHandler(store golf.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID, ok := idParam(r, "courseID")
		if !ok {
			http.Error(w, "bad course id", http.StatusBadRequest)
			return
		}
		var t golf.Tee
		if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := validateTee(t); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		t.ID = 0
		t.CourseID = courseID
		t.ApprovalStatus = ""
		saved, err := store.PutTee(r.Context(), t)
		if err != nil {
			storeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, saved)
	}
}

// GET /courses/{courseID}/tees
func ListTeesHandler(store golf.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID, ok := idParam(r, "courseID")
		if !ok {
			http.Error(w, "bad course id", http.StatusBadRequest)
			return
		}
		tees, err := store.ListTees(r.Context(), courseID)
		if err != nil {
			storeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, tees)
	}
}

// GET /tees/{teeID}  (holes included)
func GetTeeHandler(store golf.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(r, "teeID")
		if !ok {
			http.Error(w, "bad tee id", http.StatusBadRequest)
			return
		}
		t, err := store.GetTee(r.Context(), id)
		if err != nil {
			storeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}
