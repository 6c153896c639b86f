package golf

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/handicappin/handicappin/internal/db"
	"github.com/handicappin/handicappin/internal/handicap"
)

// SQLStore implements Store on sqlite or postgres. Queries use $n
// placeholders, which both drivers accept.
type SQLStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLStore(d *sql.DB) *SQLStore {
	return &SQLStore{db: d, now: time.Now}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func fromUnix(n int64) time.Time { return time.Unix(n, 0).UTC() }

func normalizeEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }

/* ------------------------------- profiles -------------------------------- */

const profileCols = `id,email,name,password_hash,role,handicap_index,initial_handicap_index,
	plan_selected,subscription_status,current_period_end,cancel_at_period_end,billing_version,created_at`

func scanProfile(row interface{ Scan(...any) error }) (Profile, error) {
	var (
		p         Profile
		periodEnd sql.NullInt64
		cancel    int
		created   int64
	)
	err := row.Scan(&p.ID, &p.Email, &p.Name, &p.PasswordHash, &p.Role, &p.HandicapIndex, &p.InitialHandicapIndex,
		&p.Plan, &p.SubscriptionStatus, &periodEnd, &cancel, &p.BillingVersion, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		return Profile{}, err
	}
	if periodEnd.Valid {
		t := fromUnix(periodEnd.Int64)
		p.CurrentPeriodEnd = &t
	}
	p.CancelAtPeriodEnd = cancel != 0
	p.CreatedAt = fromUnix(created)
	return p, nil
}

func (s *SQLStore) CreateProfile(ctx context.Context, p Profile) error {
	p.Email = normalizeEmail(p.Email)
	if _, err := s.GetProfileByEmail(ctx, p.Email); err == nil {
		return ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	if p.Role == "" {
		p.Role = RoleUser
	}
	if p.Plan == "" {
		p.Plan = "free"
	}
	p.InitialHandicapIndex = min(p.InitialHandicapIndex, handicap.MaxHandicapIndex)
	_, err := s.db.ExecContext(ctx, `INSERT INTO profile
		(id,email,name,password_hash,role,handicap_index,initial_handicap_index,plan_selected,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		p.ID, p.Email, p.Name, p.PasswordHash, p.Role, p.InitialHandicapIndex, p.InitialHandicapIndex, p.Plan, s.now().Unix())
	return err
}

func (s *SQLStore) GetProfile(ctx context.Context, id string) (Profile, error) {
	return scanProfile(s.db.QueryRowContext(ctx, `SELECT `+profileCols+` FROM profile WHERE id=$1`, id))
}

func (s *SQLStore) GetProfileByEmail(ctx context.Context, email string) (Profile, error) {
	return scanProfile(s.db.QueryRowContext(ctx, `SELECT `+profileCols+` FROM profile WHERE email=$1`, normalizeEmail(email)))
}

func (s *SQLStore) UpdateEmail(ctx context.Context, id, email string) error {
	email = normalizeEmail(email)
	if other, err := s.GetProfileByEmail(ctx, email); err == nil && other.ID != id {
		return ErrEmailTaken
	}
	return expectOne(s.db.ExecContext(ctx, `UPDATE profile SET email=$1 WHERE id=$2`, email, id))
}

func (s *SQLStore) UpdatePassword(ctx context.Context, id, hash string) error {
	return expectOne(s.db.ExecContext(ctx, `UPDATE profile SET password_hash=$1 WHERE id=$2`, hash, id))
}

func (s *SQLStore) UpdateHandicapIndex(ctx context.Context, id string, index float64) error {
	return expectOne(s.db.ExecContext(ctx, `UPDATE profile SET handicap_index=$1 WHERE id=$2`, index, id))
}

// DeleteProfile removes the profile with its rounds, scores, queue entries
// and pending codes.
func (s *SQLStore) DeleteProfile(ctx context.Context, id string) error {
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		stmts := []string{
			`DELETE FROM score WHERE round_id IN (SELECT id FROM round WHERE user_id=$1)`,
			`DELETE FROM round WHERE user_id=$1`,
			`DELETE FROM handicap_calculation_queue WHERE user_id=$1`,
			`DELETE FROM otp_codes WHERE user_id=$1`,
			`DELETE FROM stripe_customers WHERE user_id=$1`,
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q, id); err != nil {
				return err
			}
		}
		return expectOne(tx.ExecContext(ctx, `DELETE FROM profile WHERE id=$1`, id))
	})
}

func expectOne(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

/* -------------------------------- courses -------------------------------- */

func (s *SQLStore) PutCourse(ctx context.Context, c Course) (Course, error) {
	if strings.TrimSpace(c.Name) == "" {
		return Course{}, errors.New("golf: course name required")
	}
	if c.ApprovalStatus == "" {
		c.ApprovalStatus = handicap.ApprovalPending
	}
	c.CreatedAt = fromUnix(s.now().Unix())
	err := s.db.QueryRowContext(ctx, `INSERT INTO course (name,city,country,website,approval_status,created_by,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
		c.Name, c.City, c.Country, c.Website, c.ApprovalStatus, c.CreatedBy, c.CreatedAt.Unix()).Scan(&c.ID)
	if err != nil {
		return Course{}, err
	}
	return c, nil
}

const courseCols = `id,name,city,country,website,approval_status,created_by,created_at`

func scanCourse(row interface{ Scan(...any) error }) (Course, error) {
	var c Course
	var created int64
	if err := row.Scan(&c.ID, &c.Name, &c.City, &c.Country, &c.Website, &c.ApprovalStatus, &c.CreatedBy, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Course{}, ErrNotFound
		}
		return Course{}, err
	}
	c.CreatedAt = fromUnix(created)
	return c, nil
}

// GetCourse returns the course with its tees. Holes are not loaded.
func (s *SQLStore) GetCourse(ctx context.Context, id int64) (Course, error) {
	c, err := scanCourse(s.db.QueryRowContext(ctx, `SELECT `+courseCols+` FROM course WHERE id=$1`, id))
	if err != nil {
		return Course{}, err
	}
	c.Tees, err = s.ListTees(ctx, id)
	return c, err
}

func (s *SQLStore) ListCourses(ctx context.Context, opts ListOpts) ([]Course, error) {
	limit := opts.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	offset := max(0, opts.Offset)
	pattern := "%" + strings.ToLower(strings.TrimSpace(opts.Q)) + "%"

	rows, err := s.db.QueryContext(ctx, `SELECT `+courseCols+` FROM course
		WHERE LOWER(name) LIKE $1 OR LOWER(city) LIKE $1
		ORDER BY name, id LIMIT $2 OFFSET $3`, pattern, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Course{}
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ApproveCourse approves the course, its tees and the pending rounds played
// on it. Owners of those rounds are queued for recalculation and returned.
func (s *SQLStore) ApproveCourse(ctx context.Context, id int64) ([]string, error) {
	var users []string
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := expectOne(tx.ExecContext(ctx, `UPDATE course SET approval_status=$1 WHERE id=$2`, handicap.ApprovalApproved, id)); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE tee SET approval_status=$1 WHERE course_id=$2`, handicap.ApprovalApproved, id); err != nil {
			return err
		}

		rows, err := tx.QueryContext(ctx, `SELECT DISTINCT user_id FROM round WHERE course_id=$1 AND approval_status=$2 ORDER BY user_id`,
			id, handicap.ApprovalPending)
		if err != nil {
			return err
		}
		for rows.Next() {
			var u string
			if err := rows.Scan(&u); err != nil {
				rows.Close()
				return err
			}
			users = append(users, u)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `UPDATE round SET approval_status=$1 WHERE course_id=$2 AND approval_status=$3`,
			handicap.ApprovalApproved, id, handicap.ApprovalPending); err != nil {
			return err
		}
		for _, u := range users {
			if err := s.enqueue(ctx, tx, u, EventCourseApproved); err != nil {
				return err
			}
		}
		return nil
	})
	return users, err
}

/* ---------------------------------- tees --------------------------------- */

// PutTee stores a tee with its 9 or 18 holes. Missing pars are derived from
// the holes.
func (s *SQLStore) PutTee(ctx context.Context, t Tee) (Tee, error) {
	if n := len(t.Holes); n != 9 && n != 18 {
		return Tee{}, fmt.Errorf("%w: %d holes", ErrInvalidTee, n)
	}
	seen := map[int]bool{}
	out, in := 0, 0
	for _, h := range t.Holes {
		if h.Number < 1 || h.Number > 18 || seen[h.Number] {
			return Tee{}, fmt.Errorf("%w: bad hole number %d", ErrInvalidTee, h.Number)
		}
		seen[h.Number] = true
		if h.Number <= 9 {
			out += h.Par
		} else {
			in += h.Par
		}
	}
	if t.OutPar == 0 {
		t.OutPar = out
	}
	if t.InPar == 0 {
		t.InPar = in
	}
	if t.TotalPar == 0 {
		t.TotalPar = t.OutPar + t.InPar
	}
	if t.Gender == "" {
		t.Gender = "mens"
	}

	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var course string
		if err := tx.QueryRowContext(ctx, `SELECT approval_status FROM course WHERE id=$1`, t.CourseID).Scan(&course); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		if t.ApprovalStatus == "" {
			t.ApprovalStatus = course
		}

		err := tx.QueryRowContext(ctx, `INSERT INTO tee (course_id,name,gender,course_rating_18,slope_rating_18,
			course_rating_front9,slope_rating_front9,course_rating_back9,slope_rating_back9,
			out_par,in_par,total_par,total_distance,approval_status)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14) RETURNING id`,
			t.CourseID, t.Name, t.Gender, t.CourseRating18, t.SlopeRating18,
			t.CourseRatingFront9, t.SlopeRatingFront9, t.CourseRatingBack9, t.SlopeRatingBack9,
			t.OutPar, t.InPar, t.TotalPar, t.TotalDistance, t.ApprovalStatus).Scan(&t.ID)
		if err != nil {
			return err
		}
		for i := range t.Holes {
			h := &t.Holes[i]
			h.TeeID = t.ID
			if err := tx.QueryRowContext(ctx, `INSERT INTO hole (tee_id,hole_number,par,hcp,distance)
				VALUES ($1,$2,$3,$4,$5) RETURNING id`, t.ID, h.Number, h.Par, h.HCP, h.Distance).Scan(&h.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Tee{}, err
	}
	return t, nil
}

const teeCols = `id,course_id,name,gender,course_rating_18,slope_rating_18,course_rating_front9,slope_rating_front9,
	course_rating_back9,slope_rating_back9,out_par,in_par,total_par,total_distance,approval_status`

func scanTee(row interface{ Scan(...any) error }) (Tee, error) {
	var t Tee
	err := row.Scan(&t.ID, &t.CourseID, &t.Name, &t.Gender, &t.CourseRating18, &t.SlopeRating18,
		&t.CourseRatingFront9, &t.SlopeRatingFront9, &t.CourseRatingBack9, &t.SlopeRatingBack9,
		&t.OutPar, &t.InPar, &t.TotalPar, &t.TotalDistance, &t.ApprovalStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return Tee{}, ErrNotFound
	}
	return t, err
}

// GetTee returns the tee with its holes in hole order.
func (s *SQLStore) GetTee(ctx context.Context, id int64) (Tee, error) {
	t, err := scanTee(s.db.QueryRowContext(ctx, `SELECT `+teeCols+` FROM tee WHERE id=$1`, id))
	if err != nil {
		return Tee{}, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id,tee_id,hole_number,par,hcp,distance FROM hole WHERE tee_id=$1 ORDER BY hole_number`, id)
	if err != nil {
		return Tee{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var h Hole
		if err := rows.Scan(&h.ID, &h.TeeID, &h.Number, &h.Par, &h.HCP, &h.Distance); err != nil {
			return Tee{}, err
		}
		t.Holes = append(t.Holes, h)
	}
	return t, rows.Err()
}

func (s *SQLStore) ListTees(ctx context.Context, courseID int64) ([]Tee, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+teeCols+` FROM tee WHERE course_id=$1 ORDER BY id`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Tee{}
	for rows.Next() {
		t, err := scanTee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
