package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	authmw "github.com/handicappin/handicappin/internal/auth/middleware"
	"github.com/handicappin/handicappin/internal/golf"
	"github.com/handicappin/handicappin/internal/otp"
	"github.com/handicappin/handicappin/internal/storage"
)

const bcryptCost = 12

type changePasswordReq struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// PUT /account/password
func ChangePasswordHandler(store golf.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := authmw.SubjectFromContext(ctx)

		var req changePasswordReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if len(req.NewPassword) < 8 {
			http.Error(w, "password must be at least 8 characters", http.StatusBadRequest)
			return
		}
		p, err := store.GetProfile(ctx, userID)
		if err != nil {
			storeError(w, r, err)
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(req.OldPassword)) != nil {
			http.Error(w, "incorrect old password", http.StatusForbidden)
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcryptCost)
		if err != nil {
			storeError(w, r, err)
			return
		}
		if err := store.UpdatePassword(ctx, userID, string(hash)); err != nil {
			storeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// otpError maps verification failures onto status codes.
func otpError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, otp.ErrNotFound):
		http.Error(w, "no pending verification", http.StatusNotFound)
	case errors.Is(err, otp.ErrExpired):
		http.Error(w, "code expired, request a new one", http.StatusGone)
	case errors.Is(err, otp.ErrInvalidCode):
		http.Error(w, "invalid code", http.StatusBadRequest)
	case errors.Is(err, otp.ErrTooManyAttempts), errors.Is(err, otp.ErrTooSoon):
		http.Error(w, err.Error(), http.StatusTooManyRequests)
	default:
		storeError(w, r, err)
	}
}

// digits drops separators so "123-456" and "123 456" verify like "123456".
func digits(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

func decodeCode(r *http.Request) (string, bool) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", false
	}
	code := digits(req.Code)
	return code, len(code) == otp.CodeLength
}

// POST /account/email-change  { "new_email": "..." }
// Sends a code to the new address.
func RequestEmailChangeHandler(store golf.Store, codes *otp.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := authmw.SubjectFromContext(ctx)

		var req struct {
			NewEmail string `json:"new_email"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		email := strings.ToLower(strings.TrimSpace(req.NewEmail))
		if _, err := mail.ParseAddress(email); err != nil {
			http.Error(w, "invalid email", http.StatusBadRequest)
			return
		}
		p, err := store.GetProfile(ctx, userID)
		if err != nil {
			storeError(w, r, err)
			return
		}
		if p.Email == email {
			http.Error(w, "new email matches the current one", http.StatusBadRequest)
			return
		}
		if _, err := store.GetProfileByEmail(ctx, email); err == nil {
			http.Error(w, "email already registered", http.StatusConflict)
			return
		} else if !errors.Is(err, golf.ErrNotFound) {
			storeError(w, r, err)
			return
		}
		if err := codes.Issue(ctx, userID, otp.PurposeEmailChange, email); err != nil {
			otpError(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"pending_email": email, "expires_in": int(otp.Expiry.Seconds())})
	}
}

// POST /account/email-change/verify  { "code": "123456" }
func VerifyEmailChangeHandler(store golf.Store, codes *otp.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := authmw.SubjectFromContext(ctx)
		code, ok := decodeCode(r)
		if !ok {
			http.Error(w, "a 6-digit code is required", http.StatusBadRequest)
			return
		}
		email, err := codes.Verify(ctx, userID, otp.PurposeEmailChange, code)
		if err != nil {
			otpError(w, r, err)
			return
		}
		if err := store.UpdateEmail(ctx, userID, email); err != nil {
			storeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"email": email})
	}
}

// GET /account/email-change
func PendingEmailChangeHandler(codes *otp.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email, live, err := codes.Pending(r.Context(), authmw.SubjectFromContext(r.Context()), otp.PurposeEmailChange)
		if err != nil {
			storeError(w, r, err)
			return
		}
		if !live {
			email = ""
		}
		writeJSON(w, http.StatusOK, map[string]any{"pending": live, "pending_email": email})
	}
}

// DELETE /account/email-change
func CancelEmailChangeHandler(codes *otp.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := codes.Cancel(r.Context(), authmw.SubjectFromContext(r.Context()), otp.PurposeEmailChange); err != nil {
			storeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// POST /account/delete  sends a confirmation code to the account email
func RequestDeletionHandler(store golf.Store, codes *otp.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := authmw.SubjectFromContext(ctx)
		p, err := store.GetProfile(ctx, userID)
		if err != nil {
			storeError(w, r, err)
			return
		}
		if err := codes.Issue(ctx, userID, otp.PurposeAccountDeletion, p.Email); err != nil {
			otpError(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"expires_in": int(otp.Expiry.Seconds())})
	}
}

// POST /account/delete/verify  { "code": "123456" }
// The account is archived to blob storage before it is removed.
func VerifyDeletionHandler(store golf.Store, codes *otp.Service, blobs storage.BlobStore, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := authmw.SubjectFromContext(ctx)
		code, ok := decodeCode(r)
		if !ok {
			http.Error(w, "a 6-digit code is required", http.StatusBadRequest)
			return
		}
		if _, err := codes.Verify(ctx, userID, otp.PurposeAccountDeletion, code); err != nil {
			otpError(w, r, err)
			return
		}
		key, err := exportAccount(r, store, blobs, userID, now())
		if err != nil {
			storeError(w, r, err)
			return
		}
		url, err := blobs.SignedURL(ctx, key)
		if err != nil {
			storeError(w, r, err)
			return
		}
		if err := store.DeleteProfile(ctx, userID); err != nil {
			storeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": true, "export_key": key, "export_url": url})
	}
}

// GET /account/export  archives the account and returns a short-lived link
func ExportHandler(store golf.Store, blobs storage.BlobStore, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := authmw.SubjectFromContext(r.Context())
		key, err := exportAccount(r, store, blobs, userID, now())
		if err != nil {
			storeError(w, r, err)
			return
		}
		url, err := blobs.SignedURL(r.Context(), key)
		if err != nil {
			storeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"key": key, "url": url})
	}
}

type accountArchive struct {
	ExportedAt time.Time    `json:"exported_at"`
	Profile    golf.Profile `json:"profile"`
	Rounds     []golf.Round `json:"rounds"`
}

// exportAccount writes exports/{userID}/{unix}.json and returns its key.
func exportAccount(r *http.Request, store golf.Store, blobs storage.BlobStore, userID string, at time.Time) (string, error) {
	ctx := r.Context()
	p, err := store.GetProfile(ctx, userID)
	if err != nil {
		return "", err
	}
	rounds, err := store.ListRounds(ctx, userID)
	if err != nil {
		return "", err
	}
	b, err := json.MarshalIndent(accountArchive{ExportedAt: at.UTC(), Profile: p, Rounds: rounds}, "", "  ")
	if err != nil {
		return "", err
	}
	return blobs.Put(ctx, fmt.Sprintf("exports/%s/%d.json", userID, at.Unix()), bytes.NewReader(b))
}
