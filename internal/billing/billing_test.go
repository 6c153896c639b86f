package billing_test

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/handicappin/handicappin/internal/billing"
	"github.com/handicappin/handicappin/internal/db"
	"github.com/handicappin/handicappin/internal/golf"
)

var prices = map[string]string{
	"price_premium":   "premium",
	"price_unlimited": "unlimited",
	"price_lifetime":  "lifetime",
}

type env struct {
	db    *sql.DB
	store *golf.SQLStore
	svc   *billing.Service
}

func setup(t *testing.T) env {
	t.Helper()
	d, err := db.Open(context.Background(), db.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	store := golf.NewSQLStore(d)
	require.NoError(t, store.CreateProfile(context.Background(), golf.Profile{
		ID: "u1", Email: "u1@example.com", PasswordHash: "x", InitialHandicapIndex: 54,
	}))
	return env{db: d, store: store, svc: billing.NewService(d, prices, zerolog.Nop())}
}

func event(id string, typ stripe.EventType, obj string) stripe.Event {
	return stripe.Event{ID: id, Type: typ, Data: &stripe.EventData{Raw: []byte(obj)}}
}

func subscription(user, customer, price, status string) string {
	return fmt.Sprintf(`{"id":"sub_1","object":"subscription","customer":%q,"status":%q,
		"current_period_end":1767225600,"cancel_at_period_end":true,
		"metadata":{"supabase_user_id":%q},
		"items":{"object":"list","data":[{"id":"si_1","price":{"id":%q}}]}}`, customer, status, user, price)
}

func (e env) profile(t *testing.T) golf.Profile {
	t.Helper()
	p, err := e.store.GetProfile(context.Background(), "u1")
	require.NoError(t, err)
	return p
}

func (e env) link(t *testing.T) {
	t.Helper()
	_, err := e.svc.Handle(context.Background(), event("evt_link", stripe.EventTypeCheckoutSessionCompleted,
		`{"id":"cs_1","mode":"subscription","client_reference_id":"u1","customer":"cus_1"}`))
	require.NoError(t, err)
}

func TestCheckout_LifetimePayment(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	ev := event("evt_1", stripe.EventTypeCheckoutSessionCompleted,
		`{"id":"cs_1","mode":"payment","client_reference_id":"u1","customer":"cus_1"}`)

	dup, err := e.svc.Handle(ctx, ev)
	require.NoError(t, err)
	assert.False(t, dup)

	p := e.profile(t)
	assert.Equal(t, "lifetime", p.Plan)
	assert.Equal(t, "active", p.SubscriptionStatus)
	assert.Equal(t, 1, p.BillingVersion)

	var owner string
	require.NoError(t, e.db.QueryRow(`SELECT user_id FROM stripe_customers WHERE stripe_customer_id='cus_1'`).Scan(&owner))
	assert.Equal(t, "u1", owner)

	dup, err = e.svc.Handle(ctx, ev)
	require.NoError(t, err)
	assert.True(t, dup)
	assert.Equal(t, 1, e.profile(t).BillingVersion)
}

func TestCheckout_MetadataFallbackAndSkip(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	_, err := e.svc.Handle(ctx, event("evt_1", stripe.EventTypeCheckoutSessionCompleted,
		`{"id":"cs_1","mode":"subscription","customer":"cus_9"}`))
	require.NoError(t, err)
	var n int
	require.NoError(t, e.db.QueryRow(`SELECT COUNT(*) FROM stripe_customers`).Scan(&n))
	assert.Zero(t, n)

	_, err = e.svc.Handle(ctx, event("evt_2", stripe.EventTypeCheckoutSessionCompleted,
		`{"id":"cs_2","mode":"subscription","customer":"cus_9","metadata":{"supabase_user_id":"u1"}}`))
	require.NoError(t, err)
	require.NoError(t, e.db.QueryRow(`SELECT COUNT(*) FROM stripe_customers`).Scan(&n))
	assert.Equal(t, 1, n)
	assert.Equal(t, "free", e.profile(t).Plan)
}

func TestSubscription_Lifecycle(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	e.link(t)

	_, err := e.svc.Handle(ctx, event("evt_2", stripe.EventTypeCustomerSubscriptionCreated,
		subscription("u1", "cus_1", "price_unlimited", "active")))
	require.NoError(t, err)
	p := e.profile(t)
	assert.Equal(t, "unlimited", p.Plan)
	assert.Equal(t, "active", p.SubscriptionStatus)
	assert.True(t, p.CancelAtPeriodEnd)
	require.NotNil(t, p.CurrentPeriodEnd)
	assert.Equal(t, int64(1767225600), p.CurrentPeriodEnd.Unix())
	assert.Equal(t, 1, p.BillingVersion)

	_, err = e.svc.Handle(ctx, event("evt_3", stripe.EventTypeInvoicePaymentFailed,
		`{"id":"in_1","customer":"cus_1","subscription":"sub_1"}`))
	require.NoError(t, err)
	assert.Equal(t, "past_due", e.profile(t).SubscriptionStatus)

	_, err = e.svc.Handle(ctx, event("evt_4", stripe.EventTypeCustomerSubscriptionDeleted,
		subscription("u1", "cus_1", "price_unlimited", "canceled")))
	require.NoError(t, err)
	p = e.profile(t)
	assert.Equal(t, "free", p.Plan)
	assert.Equal(t, "canceled", p.SubscriptionStatus)
	assert.Nil(t, p.CurrentPeriodEnd)
	assert.False(t, p.CancelAtPeriodEnd)
	assert.Equal(t, 3, p.BillingVersion)
}

func TestSubscription_OwnershipFailureIsRetried(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	log := billing.NewEventLog(e.db)
	ev := event("evt_sub", stripe.EventTypeCustomerSubscriptionUpdated,
		subscription("u1", "cus_1", "price_premium", "active"))

	_, err := e.svc.Handle(ctx, ev)
	require.ErrorIs(t, err, billing.ErrCustomerMismatch)
	_, err = e.svc.Handle(ctx, ev)
	require.ErrorIs(t, err, billing.ErrCustomerMismatch)

	rec, ok, err := log.Lookup(ctx, "evt_sub")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, billing.EventFailed, rec.Status)
	assert.Equal(t, 2, rec.RetryCount)
	assert.Equal(t, "u1", rec.UserID)
	assert.Equal(t, "free", e.profile(t).Plan)

	e.link(t)
	dup, err := e.svc.Handle(ctx, ev)
	require.NoError(t, err)
	assert.False(t, dup)
	rec, _, err = log.Lookup(ctx, "evt_sub")
	require.NoError(t, err)
	assert.Equal(t, billing.EventSuccess, rec.Status)
	assert.Empty(t, rec.ErrorMessage)
	assert.Equal(t, "premium", e.profile(t).Plan)
}

func TestSubscription_SkipsForeignAndRejectsUnknownPrice(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	e.link(t)

	_, err := e.svc.Handle(ctx, event("evt_a", stripe.EventTypeCustomerSubscriptionCreated,
		subscription("", "cus_1", "price_premium", "active")))
	require.NoError(t, err)
	assert.Equal(t, "free", e.profile(t).Plan)

	_, err = e.svc.Handle(ctx, event("evt_b", stripe.EventTypeCustomerSubscriptionCreated,
		subscription("u1", "cus_1", "price_other", "active")))
	require.ErrorIs(t, err, billing.ErrUnknownPrice)
}

func TestSubscription_LifetimeUntouched(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	_, err := e.svc.Handle(ctx, event("evt_1", stripe.EventTypeCheckoutSessionCompleted,
		`{"id":"cs_1","mode":"payment","client_reference_id":"u1","customer":"cus_1"}`))
	require.NoError(t, err)

	_, err = e.svc.Handle(ctx, event("evt_2", stripe.EventTypeCustomerSubscriptionDeleted,
		subscription("u1", "cus_1", "price_premium", "canceled")))
	require.NoError(t, err)
	assert.Equal(t, "lifetime", e.profile(t).Plan)
}

func TestChargeRefunded_RevokesLifetime(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	_, err := e.svc.Handle(ctx, event("evt_1", stripe.EventTypeCheckoutSessionCompleted,
		`{"id":"cs_1","mode":"payment","client_reference_id":"u1","customer":"cus_1"}`))
	require.NoError(t, err)

	_, err = e.svc.Handle(ctx, event("evt_2", stripe.EventTypeChargeRefunded,
		`{"id":"ch_1","customer":"cus_1","amount":14900,"amount_refunded":5000,"refunded":false}`))
	require.NoError(t, err)
	assert.Equal(t, "lifetime", e.profile(t).Plan)

	_, err = e.svc.Handle(ctx, event("evt_3", stripe.EventTypeChargeRefunded,
		`{"id":"ch_1","customer":"cus_1","amount":14900,"amount_refunded":14900,"refunded":true}`))
	require.NoError(t, err)
	assert.Equal(t, "free", e.profile(t).Plan)
}

func TestUnknownEventRecorded(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	_, err := e.svc.Handle(ctx, event("evt_x", "customer.created", `{"id":"cus_1"}`))
	require.NoError(t, err)
	rec, ok, err := billing.NewEventLog(e.db).Lookup(ctx, "evt_x")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, billing.EventSuccess, rec.Status)
}

func TestWebhookHandler(t *testing.T) {
	e := setup(t)
	const secret = "whsec_test"
	h := billing.WebhookHandler(e.svc, secret)
	payload := []byte(`{"id":"evt_http","object":"event","api_version":"2020-08-27","type":"checkout.session.completed",
		"data":{"object":{"id":"cs_1","mode":"payment","client_reference_id":"u1","customer":"cus_1"}}}`)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: payload, Secret: secret, Timestamp: time.Now(),
	})
	req := httptest.NewRequest(http.MethodPost, "/billing/webhook", strings.NewReader(string(payload)))
	req.Header.Set("Stripe-Signature", signed.Header)
	rec := httptest.NewRecorder()
	h(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"received":true`)
	assert.Equal(t, "lifetime", e.profile(t).Plan)

	req = httptest.NewRequest(http.MethodPost, "/billing/webhook", strings.NewReader(string(payload)))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	rec = httptest.NewRecorder()
	h(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookHandler_NoSecretRefusesEverything(t *testing.T) {
	e := setup(t)
	h := billing.WebhookHandler(e.svc, "")
	payload := []byte(`{"id":"evt_forged","object":"event","api_version":"2020-08-27","type":"checkout.session.completed",
		"data":{"object":{"id":"cs_1","mode":"payment","client_reference_id":"u1","customer":"cus_1"}}}`)

	// signed with the empty secret the handler was given
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Timestamp: time.Now()})
	req := httptest.NewRequest(http.MethodPost, "/billing/webhook", strings.NewReader(string(payload)))
	req.Header.Set("Stripe-Signature", signed.Header)
	rec := httptest.NewRecorder()
	h(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "free", e.profile(t).Plan)
	_, seen, err := billing.NewEventLog(e.db).Lookup(context.Background(), "evt_forged")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestAccess(t *testing.T) {
	end := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	a := billing.Access(golf.Profile{Role: "user", Plan: "free"}, 10, 25)
	assert.Equal(t, "free", a.Plan)
	assert.True(t, a.HasAccess)
	assert.False(t, a.HasPremiumAccess)
	require.NotNil(t, a.RemainingRounds)
	assert.Equal(t, 15, *a.RemainingRounds)

	a = billing.Access(golf.Profile{Role: "user", Plan: "free"}, 40, 25)
	assert.Equal(t, 0, *a.RemainingRounds)

	a = billing.Access(golf.Profile{Role: "user", Plan: "premium", SubscriptionStatus: "active", CurrentPeriodEnd: &end}, 3, 25)
	assert.True(t, a.HasPremiumAccess)
	assert.False(t, a.HasUnlimitedRounds)
	assert.Equal(t, 22, *a.RemainingRounds)
	assert.Equal(t, &end, a.CurrentPeriodEnd)

	a = billing.Access(golf.Profile{Role: "user", Plan: "unlimited", SubscriptionStatus: "trialing"}, 300, 25)
	assert.True(t, a.HasUnlimitedRounds)
	assert.Nil(t, a.RemainingRounds)

	a = billing.Access(golf.Profile{Role: "user", Plan: "unlimited", SubscriptionStatus: "past_due", CurrentPeriodEnd: &end}, 3, 25)
	assert.Equal(t, "free", a.Plan)
	assert.Equal(t, "past_due", a.Status)
	assert.Nil(t, a.CurrentPeriodEnd)

	a = billing.Access(golf.Profile{Role: "user", Plan: "lifetime"}, 300, 25)
	assert.True(t, a.IsLifetime)
	assert.True(t, a.HasUnlimitedRounds)

	a = billing.Access(golf.Profile{Role: "admin", Plan: "free"}, 300, 25)
	assert.True(t, a.HasUnlimitedRounds)
	assert.Nil(t, a.RemainingRounds)
}
