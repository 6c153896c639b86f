package golf

import (
	"context"
	"errors"

	"github.com/handicappin/handicappin/internal/recalc"
)

var (
	ErrNotFound         = errors.New("golf: not found")
	ErrEmailTaken       = errors.New("golf: email already registered")
	ErrInvalidScorecard = errors.New("golf: invalid scorecard")
	ErrInvalidTee       = errors.New("golf: invalid tee")
)

type Store interface {
	CreateProfile(ctx context.Context, p Profile) error
	GetProfile(ctx context.Context, id string) (Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (Profile, error)
	UpdateEmail(ctx context.Context, id, email string) error
	UpdatePassword(ctx context.Context, id, hash string) error
	UpdateHandicapIndex(ctx context.Context, id string, index float64) error
	DeleteProfile(ctx context.Context, id string) error

	PutCourse(ctx context.Context, c Course) (Course, error)
	GetCourse(ctx context.Context, id int64) (Course, error)
	ListCourses(ctx context.Context, opts ListOpts) ([]Course, error)
	ApproveCourse(ctx context.Context, id int64) ([]string, error)

	PutTee(ctx context.Context, t Tee) (Tee, error)
	GetTee(ctx context.Context, id int64) (Tee, error)
	ListTees(ctx context.Context, courseID int64) ([]Tee, error)

	CreateRound(ctx context.Context, sc Scorecard) (Round, error)
	GetRound(ctx context.Context, userID string, id int64) (Round, error)
	ListRounds(ctx context.Context, userID string) ([]Round, error)
	DeleteRound(ctx context.Context, userID string, id int64) error
	CountRounds(ctx context.Context, userID string) (int, error)

	Enqueue(ctx context.Context, userID, eventType string) error
	PendingJobs(ctx context.Context, limit int) ([]QueueJob, error)
	RecordJobFailure(ctx context.Context, job QueueJob, attempts int, status, msg string) error
	LoadHistory(ctx context.Context, userID string) (float64, []recalc.Round, error)
	SaveRecalculation(ctx context.Context, job QueueJob, res recalc.Result) error
	ResetHandicap(ctx context.Context, job QueueJob) error
	RetryFailedJobs(ctx context.Context) (int, error)
}
