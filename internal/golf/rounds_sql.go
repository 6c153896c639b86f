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

// CreateRound stores a scorecard and queues a recalculation for its owner.
// The round is approved only when both the course and the tee are.
func (s *SQLStore) CreateRound(ctx context.Context, sc Scorecard) (Round, error) {
	if len(sc.Scores) == 0 {
		return Round{}, fmt.Errorf("%w: no scores", ErrInvalidScorecard)
	}
	r := Round{
		UserID:   sc.UserID,
		CourseID: sc.CourseID,
		TeeID:    sc.TeeID,
		TeeTime:  fromUnix(sc.TeeTime.Unix()),
		Notes:    sc.Notes,
	}

	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var (
			courseStatus, teeStatus string
			tee                     handicap.Tee
		)
		err := tx.QueryRowContext(ctx, `SELECT c.approval_status, t.approval_status,
			t.course_rating_front9, t.slope_rating_front9, t.out_par,
			t.course_rating_back9, t.slope_rating_back9, t.in_par
			FROM tee t JOIN course c ON c.id = t.course_id
			WHERE t.id=$1 AND c.id=$2`, sc.TeeID, sc.CourseID).Scan(&courseStatus, &teeStatus,
			&tee.CourseRatingFront9, &tee.SlopeRatingFront9, &tee.OutPar,
			&tee.CourseRatingBack9, &tee.SlopeRatingBack9, &tee.InPar)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: tee %d is not on course %d", ErrInvalidScorecard, sc.TeeID, sc.CourseID)
		}
		if err != nil {
			return err
		}
		r.ApprovalStatus = handicap.ApprovalPending
		if courseStatus == handicap.ApprovalApproved && teeStatus == handicap.ApprovalApproved {
			r.ApprovalStatus = handicap.ApprovalApproved
		}

		holes := map[int]Hole{}
		rows, err := tx.QueryContext(ctx, `SELECT id,hole_number,par,hcp FROM hole WHERE tee_id=$1`, sc.TeeID)
		if err != nil {
			return err
		}
		for rows.Next() {
			var h Hole
			if err := rows.Scan(&h.ID, &h.Number, &h.Par, &h.HCP); err != nil {
				rows.Close()
				return err
			}
			holes[h.Number] = h
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		seen := map[int]bool{}
		for _, in := range sc.Scores {
			h, ok := holes[in.HoleNumber]
			if !ok || seen[in.HoleNumber] {
				return fmt.Errorf("%w: hole %d", ErrInvalidScorecard, in.HoleNumber)
			}
			seen[in.HoleNumber] = true
			r.TotalStrokes += in.Strokes
			r.Scores = append(r.Scores, Score{HoleID: h.ID, HoleNumber: h.Number, Par: h.Par, HCP: h.HCP, Strokes: in.Strokes})
		}
		if len(r.Scores) == 9 && !recalc.NineFor(tee, r.holes()).Complete() {
			return fmt.Errorf("%w: tee %d has no rating for this nine", ErrInvalidScorecard, sc.TeeID)
		}

		r.CreatedAt = fromUnix(s.now().Unix())
		err = tx.QueryRowContext(ctx, `INSERT INTO round (user_id,course_id,tee_id,tee_time,notes,approval_status,total_strokes,created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
			r.UserID, r.CourseID, r.TeeID, r.TeeTime.Unix(), r.Notes, r.ApprovalStatus, r.TotalStrokes, r.CreatedAt.Unix()).Scan(&r.ID)
		if err != nil {
			return err
		}
		for i := range r.Scores {
			sco := &r.Scores[i]
			sco.RoundID = r.ID
			if err := tx.QueryRowContext(ctx, `INSERT INTO score (round_id,hole_id,strokes) VALUES ($1,$2,$3) RETURNING id`,
				r.ID, sco.HoleID, sco.Strokes).Scan(&sco.ID); err != nil {
				return err
			}
		}
		return s.enqueue(ctx, tx, r.UserID, EventRoundCreated)
	})
	if err != nil {
		return Round{}, err
	}
	return r, nil
}

const roundCols = `r.id,r.user_id,r.course_id,c.name,r.tee_id,r.tee_time,r.notes,r.approval_status,r.total_strokes,
	r.existing_handicap_index,r.updated_handicap_index,r.score_differential,r.exceptional_score_adjustment,
	r.adjusted_gross_score,r.adjusted_played_score,r.course_handicap,r.created_at`

func scanRound(row interface{ Scan(...any) error }) (Round, error) {
	var r Round
	var teeTime, created int64
	err := row.Scan(&r.ID, &r.UserID, &r.CourseID, &r.CourseName, &r.TeeID, &teeTime, &r.Notes, &r.ApprovalStatus, &r.TotalStrokes,
		&r.ExistingHandicapIndex, &r.UpdatedHandicapIndex, &r.ScoreDifferential, &r.ExceptionalScoreAdjustment,
		&r.AdjustedGrossScore, &r.AdjustedPlayedScore, &r.CourseHandicap, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Round{}, ErrNotFound
	}
	if err != nil {
		return Round{}, err
	}
	r.TeeTime = fromUnix(teeTime)
	r.CreatedAt = fromUnix(created)
	return r, nil
}

func (s *SQLStore) GetRound(ctx context.Context, userID string, id int64) (Round, error) {
	r, err := scanRound(s.db.QueryRowContext(ctx, `SELECT `+roundCols+`
		FROM round r JOIN course c ON c.id = r.course_id WHERE r.id=$1 AND r.user_id=$2`, id, userID))
	if err != nil {
		return Round{}, err
	}
	scores, err := s.scores(ctx, `s.round_id=$1`, id)
	if err != nil {
		return Round{}, err
	}
	r.Scores = scores[id]
	return r, nil
}

// ListRounds returns the user's rounds, most recent first, with their scores.
func (s *SQLStore) ListRounds(ctx context.Context, userID string) ([]Round, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+roundCols+`
		FROM round r JOIN course c ON c.id = r.course_id
		WHERE r.user_id=$1 ORDER BY r.tee_time DESC, r.id DESC`, userID)
	if err != nil {
		return nil, err
	}
	out := []Round{}
	for rows.Next() {
		r, err := scanRound(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	scores, err := s.scores(ctx, `r.user_id=$1`, userID)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Scores = scores[out[i].ID]
	}
	return out, nil
}

// scores loads scores joined with their holes, grouped by round.
func (s *SQLStore) scores(ctx context.Context, where string, arg any) (map[int64][]Score, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT s.id,s.round_id,s.hole_id,h.hole_number,h.par,h.hcp,s.strokes,s.hcp_strokes
		FROM score s JOIN hole h ON h.id = s.hole_id JOIN round r ON r.id = s.round_id
		WHERE `+where+` ORDER BY s.round_id, h.hole_number`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[int64][]Score{}
	for rows.Next() {
		var sc Score
		if err := rows.Scan(&sc.ID, &sc.RoundID, &sc.HoleID, &sc.HoleNumber, &sc.Par, &sc.HCP, &sc.Strokes, &sc.HcpStrokes); err != nil {
			return nil, err
		}
		out[sc.RoundID] = append(out[sc.RoundID], sc)
	}
	return out, rows.Err()
}

func (s *SQLStore) DeleteRound(ctx context.Context, userID string, id int64) error {
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM score WHERE round_id IN (SELECT id FROM round WHERE id=$1 AND user_id=$2)`, id, userID); err != nil {
			return err
		}
		if err := expectOne(tx.ExecContext(ctx, `DELETE FROM round WHERE id=$1 AND user_id=$2`, id, userID)); err != nil {
			return err
		}
		return s.enqueue(ctx, tx, userID, EventRoundDeleted)
	})
}

func (s *SQLStore) CountRounds(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM round WHERE user_id=$1`, userID).Scan(&n)
	return n, err
}

func (r Round) holes() []handicap.Hole {
	out := make([]handicap.Hole, len(r.Scores))
	for i, s := range r.Scores {
		out[i] = handicap.Hole{Number: s.HoleNumber, Par: s.Par, HCP: s.HCP, Strokes: s.Strokes}
	}
	return out
}
