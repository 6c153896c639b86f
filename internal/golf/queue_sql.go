package golf

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/handicappin/handicappin/internal/db"
	"github.com/handicappin/handicappin/internal/handicap"
	"github.com/handicappin/handicappin/internal/recalc"
)

// enqueue upserts the user's queue entry. A user has at most one entry; a new
// event resets it to pending and bumps its version so an in-flight run does
// not remove it.
func (s *SQLStore) enqueue(ctx context.Context, ex execer, userID, eventType string) error {
	now := s.now().Unix()
	_, err := ex.ExecContext(ctx, `INSERT INTO handicap_calculation_queue (user_id,event_type,status,attempts,version,created_at,updated_at)
		VALUES ($1,$2,$3,0,1,$4,$4)
		ON CONFLICT (user_id) DO UPDATE SET event_type=EXCLUDED.event_type, status=EXCLUDED.status, attempts=0,
			error_message=NULL, version=handicap_calculation_queue.version+1, updated_at=EXCLUDED.updated_at`,
		userID, eventType, JobPending, now)
	return err
}

func (s *SQLStore) Enqueue(ctx context.Context, userID, eventType string) error {
	return s.enqueue(ctx, s.db, userID, eventType)
}

// PendingJobs returns up to limit pending jobs, oldest first.
func (s *SQLStore) PendingJobs(ctx context.Context, limit int) ([]QueueJob, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,user_id,event_type,status,attempts,COALESCE(error_message,''),version,created_at
		FROM handicap_calculation_queue WHERE status=$1 ORDER BY created_at, id LIMIT $2`, JobPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []QueueJob
	for rows.Next() {
		var j QueueJob
		var created int64
		if err := rows.Scan(&j.ID, &j.UserID, &j.EventType, &j.Status, &j.Attempts, &j.ErrorMessage, &j.Version, &created); err != nil {
			return nil, err
		}
		j.CreatedAt = fromUnix(created)
		out = append(out, j)
	}
	return out, rows.Err()
}

// RecordJobFailure stores the outcome of a failed run. A job enqueued again
// since it was fetched has a newer version and is left pending.
func (s *SQLStore) RecordJobFailure(ctx context.Context, job QueueJob, attempts int, status, msg string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE handicap_calculation_queue SET attempts=$1, status=$2, error_message=$3, updated_at=$4
		WHERE id=$5 AND version=$6`,
		attempts, status, msg, s.now().Unix(), job.ID, job.Version)
	return err
}

// RetryFailedJobs moves failed jobs back to pending with a fresh attempt count.
func (s *SQLStore) RetryFailedJobs(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE handicap_calculation_queue SET status=$1, attempts=0, updated_at=$2 WHERE status=$3`,
		JobPending, s.now().Unix(), JobFailed)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// LoadHistory returns the user's initial index and approved rounds in tee-time
// order with their tees and scored holes.
func (s *SQLStore) LoadHistory(ctx context.Context, userID string) (float64, []recalc.Round, error) {
	var initial float64
	err := s.db.QueryRowContext(ctx, `SELECT initial_handicap_index FROM profile WHERE id=$1`, userID).Scan(&initial)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil, fmt.Errorf("profile %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return 0, nil, err
	}

	tees := map[int64]*handicap.Tee{}
	rows, err := s.db.QueryContext(ctx, `SELECT `+teeCols+` FROM tee
		WHERE id IN (SELECT tee_id FROM round WHERE user_id=$1 AND approval_status=$2)`, userID, handicap.ApprovalApproved)
	if err != nil {
		return 0, nil, err
	}
	for rows.Next() {
		t, err := scanTee(rows)
		if err != nil {
			rows.Close()
			return 0, nil, err
		}
		tees[t.ID] = &t.Tee
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, nil, err
	}

	rows, err = s.db.QueryContext(ctx, `SELECT r.id, r.tee_time, r.tee_id, r.approval_status, h.hole_number, h.par, h.hcp, s.strokes
		FROM round r
		LEFT JOIN score s ON s.round_id = r.id
		LEFT JOIN hole h ON h.id = s.hole_id
		WHERE r.user_id=$1 AND r.approval_status=$2
		ORDER BY r.tee_time, r.id, h.hole_number`, userID, handicap.ApprovalApproved)
	if err != nil {
		return 0, nil, err
	}
	defer rows.Close()

	var out []recalc.Round
	for rows.Next() {
		var (
			id, teeTime, teeID int64
			status             string
			num, par, hcp, str sql.NullInt64
		)
		if err := rows.Scan(&id, &teeTime, &teeID, &status, &num, &par, &hcp, &str); err != nil {
			return 0, nil, err
		}
		if len(out) == 0 || out[len(out)-1].ID != id {
			out = append(out, recalc.Round{
				ID:             id,
				UserID:         userID,
				TeeTime:        fromUnix(teeTime),
				ApprovalStatus: status,
				Tee:            tees[teeID],
			})
		}
		if num.Valid {
			last := &out[len(out)-1]
			last.Holes = append(last.Holes, handicap.Hole{
				Number:  int(num.Int64),
				Par:     int(par.Int64),
				HCP:     int(hcp.Int64),
				Strokes: int(str.Int64),
			})
		}
	}
	return initial, out, rows.Err()
}

// SaveRecalculation writes the derived round values and the new index, then
// removes the job unless it was re-queued meanwhile.
func (s *SQLStore) SaveRecalculation(ctx context.Context, job QueueJob, res recalc.Result) error {
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		for _, pr := range res.Rounds {
			_, err := tx.ExecContext(ctx, `UPDATE round SET existing_handicap_index=$1, updated_handicap_index=$2,
				score_differential=$3, exceptional_score_adjustment=$4, adjusted_gross_score=$5,
				adjusted_played_score=$6, course_handicap=$7
				WHERE id=$8 AND user_id=$9`,
				pr.ExistingHandicapIndex, pr.UpdatedHandicapIndex, pr.FinalDifferential, pr.ESROffset,
				pr.AdjustedGrossScore, pr.AdjustedPlayedScore, pr.CourseHandicap, pr.ID, job.UserID)
			if err != nil {
				return fmt.Errorf("update round %d: %w", pr.ID, err)
			}
		}
		if err := expectOne(tx.ExecContext(ctx, `UPDATE profile SET handicap_index=$1 WHERE id=$2`, res.HandicapIndex, job.UserID)); err != nil {
			return err
		}
		return s.finishJob(ctx, tx, job)
	})
}

// ResetHandicap sets the maximum index for a user with no approved rounds.
func (s *SQLStore) ResetHandicap(ctx context.Context, job QueueJob) error {
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := expectOne(tx.ExecContext(ctx, `UPDATE profile SET handicap_index=$1 WHERE id=$2`,
			handicap.MaxHandicapIndex, job.UserID)); err != nil {
			return err
		}
		return s.finishJob(ctx, tx, job)
	})
}

func (s *SQLStore) finishJob(ctx context.Context, tx *sql.Tx, job QueueJob) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM handicap_calculation_queue WHERE id=$1 AND version=$2`, job.ID, job.Version)
	return err
}
