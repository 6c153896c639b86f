package otp

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/rs/zerolog"

	"github.com/handicappin/handicappin/internal/mail"
)

const (
	CodeLength  = 6
	Expiry      = 15 * time.Minute
	MaxAttempts = 5
)

// Resend is the minimum gap between two codes for the same purpose.
const Resend = 2 * time.Minute

const (
	PurposeEmailChange     = "email_change"
	PurposeAccountDeletion = "account_deletion"
)

var (
	ErrNotFound        = errors.New("otp: no pending code")
	ErrExpired         = errors.New("otp: code expired")
	ErrTooManyAttempts = errors.New("otp: too many attempts")
	ErrInvalidCode     = errors.New("otp: invalid code")
	ErrTooSoon         = errors.New("otp: code requested too recently")
)

// Generate returns a uniformly random 6-digit code.
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", CodeLength, n.Int64()), nil
}

func Hash(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// Format renders a code as "123-456" for mail bodies.
func Format(code string) string {
	if len(code) != CodeLength {
		return code
	}
	return code[:3] + "-" + code[3:]
}

// Service stores one pending code per (user, purpose) in otp_codes.
type Service struct {
	db     *sql.DB
	sender mail.Sender
	log    zerolog.Logger
	now    func() time.Time
	gen    func() (string, error)
}

func NewService(db *sql.DB, sender mail.Sender, log zerolog.Logger) *Service {
	return &Service{
		db:     db,
		sender: sender,
		log:    log.With().Str("component", "otp").Logger(),
		now:    time.Now,
		gen:    Generate,
	}
}

// Issue stores a fresh code and mails it to email. For email_change the
// new address is kept as the pending value returned by Verify.
func (s *Service) Issue(ctx context.Context, userID, purpose, email string) error {
	now := s.now()
	var created int64
	err := s.db.QueryRowContext(ctx, `SELECT created_at FROM otp_codes WHERE user_id=$1 AND purpose=$2`,
		userID, purpose).Scan(&created)
	switch {
	case err == nil:
		if now.Sub(time.Unix(created, 0)) < Resend {
			return ErrTooSoon
		}
	case !errors.Is(err, sql.ErrNoRows):
		return err
	}

	code, err := s.gen()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	pending := ""
	if purpose == PurposeEmailChange {
		pending = email
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO otp_codes (user_id,purpose,code_hash,pending_value,attempts,expires_at,created_at)
		VALUES ($1,$2,$3,$4,0,$5,$6)
		ON CONFLICT (user_id,purpose) DO UPDATE SET code_hash=EXCLUDED.code_hash, pending_value=EXCLUDED.pending_value,
		  attempts=0, expires_at=EXCLUDED.expires_at, created_at=EXCLUDED.created_at`,
		userID, purpose, Hash(code), pending, now.Add(Expiry).Unix(), now.Unix())
	if err != nil {
		return fmt.Errorf("store code: %w", err)
	}

	msg := mail.Message{
		To:      email,
		Subject: subjects[purpose],
		Body: fmt.Sprintf("Your Handicappin verification code is %s.\n\nIt expires in %d minutes. If you did not request this, ignore this email.",
			Format(code), int(Expiry.Minutes())),
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		_ = s.Cancel(ctx, userID, purpose)
		return fmt.Errorf("send code: %w", err)
	}
	s.log.Info().Str("user_id", userID).Str("purpose", purpose).Msg("code issued")
	return nil
}

var subjects = map[string]string{
	PurposeEmailChange:     "Confirm your new email address",
	PurposeAccountDeletion: "Confirm account deletion",
}

// Verify consumes the code and returns the pending value. Each call takes an
// attempt in the same statement that reads the code, so concurrent guesses
// cannot exceed MaxAttempts.
func (s *Service) Verify(ctx context.Context, userID, purpose, code string) (string, error) {
	var (
		hash, pending string
		attempts      int
		expires       int64
	)
	err := s.db.QueryRowContext(ctx, `UPDATE otp_codes SET attempts=attempts+1
		WHERE user_id=$1 AND purpose=$2 AND attempts<$3
		RETURNING code_hash,pending_value,attempts,expires_at`,
		userID, purpose, MaxAttempts).Scan(&hash, &pending, &attempts, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return "", s.exhausted(ctx, userID, purpose)
	}
	if err != nil {
		return "", err
	}
	if !s.now().Before(time.Unix(expires, 0)) {
		_ = s.Cancel(ctx, userID, purpose)
		return "", ErrExpired
	}
	if subtle.ConstantTimeCompare([]byte(Hash(code)), []byte(hash)) != 1 {
		s.log.Warn().Str("user_id", userID).Str("purpose", purpose).Int("attempts", attempts).Msg("invalid code")
		return "", ErrInvalidCode
	}
	if err := s.Cancel(ctx, userID, purpose); err != nil {
		return "", err
	}
	return pending, nil
}

// exhausted explains why Verify found no code with attempts left.
func (s *Service) exhausted(ctx context.Context, userID, purpose string) error {
	var expires int64
	err := s.db.QueryRowContext(ctx, `SELECT expires_at FROM otp_codes WHERE user_id=$1 AND purpose=$2`,
		userID, purpose).Scan(&expires)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case err != nil:
		return err
	case !s.now().Before(time.Unix(expires, 0)):
		_ = s.Cancel(ctx, userID, purpose)
		return ErrExpired
	default:
		return ErrTooManyAttempts
	}
}

// Cancel drops any pending code.
func (s *Service) Cancel(ctx context.Context, userID, purpose string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM otp_codes WHERE user_id=$1 AND purpose=$2`, userID, purpose)
	return err
}

// Pending returns the pending value if a live code exists.
func (s *Service) Pending(ctx context.Context, userID, purpose string) (string, bool, error) {
	var (
		pending string
		expires int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT pending_value,expires_at FROM otp_codes WHERE user_id=$1 AND purpose=$2`,
		userID, purpose).Scan(&pending, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return pending, s.now().Before(time.Unix(expires, 0)), nil
}
