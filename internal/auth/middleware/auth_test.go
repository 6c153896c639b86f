package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handicappin/handicappin/internal/golf"
	"github.com/handicappin/handicappin/internal/rbac"
)

type memAccounts struct {
	byEmail map[string]golf.Profile
}

func newMemAccounts() *memAccounts { return &memAccounts{byEmail: map[string]golf.Profile{}} }

func (m *memAccounts) CreateProfile(_ context.Context, p golf.Profile) error {
	if _, ok := m.byEmail[p.Email]; ok {
		return golf.ErrEmailTaken
	}
	m.byEmail[p.Email] = p
	return nil
}

func (m *memAccounts) GetProfileByEmail(_ context.Context, email string) (golf.Profile, error) {
	p, ok := m.byEmail[strings.ToLower(email)]
	if !ok {
		return golf.Profile{}, golf.ErrNotFound
	}
	return p, nil
}

func (m *memAccounts) GetProfile(_ context.Context, id string) (golf.Profile, error) {
	for _, p := range m.byEmail {
		if p.ID == id {
			return p, nil
		}
	}
	return golf.Profile{}, golf.ErrNotFound
}

func post(h http.Handler, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
	return rec
}

func TestIssueAndParse(t *testing.T) {
	a := NewAuthService("s3cret")
	tok, err := a.IssueJWT("u1", golf.RoleUser, rbac.PlanPremium)
	require.NoError(t, err)

	c, err := a.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", c.Sub)
	assert.Equal(t, rbac.PlanPremium, c.Plan)

	_, err = NewAuthService("other").Parse(tok)
	assert.Error(t, err)

	a.now = func() time.Time { return time.Now().Add(9 * time.Hour) }
	_, err = a.Parse(tok)
	assert.Error(t, err, "expired")
}

func TestSignupAndLogin(t *testing.T) {
	a := NewAuthService("s3cret")
	store := newMemAccounts()
	signup := SignupHandler(a, store, []string{"boss@example.com"})
	login := LoginHandler(a, store)

	rec := post(signup, `{"email":" Jo@Example.com ","password":"correct horse","name":"Jo","initial_handicap_index":18.2}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out tokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.NotEmpty(t, out.AccessToken)
	assert.Equal(t, rbac.PlanFree, out.Plan)

	p := store.byEmail["jo@example.com"]
	assert.Equal(t, 18.2, p.InitialHandicapIndex)
	assert.Equal(t, golf.RoleUser, p.Role)
	assert.NotEqual(t, "correct horse", p.PasswordHash)

	assert.Equal(t, http.StatusConflict, post(signup, `{"email":"jo@example.com","password":"correct horse"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(signup, `{"email":"nope","password":"correct horse"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(signup, `{"email":"a@b.co","password":"short"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(signup, `{"email":"a@b.co","password":"long enough","initial_handicap_index":60}`).Code)

	rec = post(signup, `{"email":"boss@example.com","password":"correct horse"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, golf.RoleAdmin, store.byEmail["boss@example.com"].Role)

	assert.Equal(t, http.StatusOK, post(login, `{"email":"JO@example.com","password":"correct horse"}`).Code)
	assert.Equal(t, http.StatusUnauthorized, post(login, `{"email":"jo@example.com","password":"wrong"}`).Code)
	assert.Equal(t, http.StatusUnauthorized, post(login, `{"email":"who@example.com","password":"x"}`).Code)
}

func TestJWTMiddlewareAndAttachPlan(t *testing.T) {
	a := NewAuthService("s3cret")
	store := newMemAccounts()
	store.byEmail["jo@example.com"] = golf.Profile{ID: "u1", Email: "jo@example.com", Role: golf.RoleUser,
		Plan: rbac.PlanUnlimited, SubscriptionStatus: "active"}

	var gotSub, gotRole string
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSub = SubjectFromContext(r.Context())
		gotRole = rbac.RoleFromContext(r.Context())
	})
	h := JWTMiddleware(a)(AttachPlanFromDB(store)(final))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	tok, err := a.IssueJWT("u1", golf.RoleUser, rbac.PlanFree)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", gotSub)
	assert.Equal(t, rbac.PlanUnlimited, gotRole, "profile row wins over the token")

	ghost, err := a.IssueJWT("ghost", golf.RoleUser, rbac.PlanFree)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+ghost)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
