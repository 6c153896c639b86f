package billing

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v76"

	"github.com/handicappin/handicappin/internal/rbac"
)

// UserMetadataKey is the metadata field checkout attaches to subscriptions.
const UserMetadataKey = "supabase_user_id"

var (
	ErrCustomerMismatch = errors.New("billing: stripe customer does not belong to user")
	ErrUnknownPrice     = errors.New("billing: unknown price")
	ErrUnknownUser      = errors.New("billing: unknown user")
)

type handlerFunc func(ctx context.Context, raw json.RawMessage) (userID string, err error)

// Service applies verified Stripe events to profile billing state.
type Service struct {
	db       *sql.DB
	events   *EventLog
	prices   map[string]string
	log      zerolog.Logger
	handlers map[stripe.EventType]handlerFunc
}

func NewService(db *sql.DB, prices map[string]string, log zerolog.Logger) *Service {
	s := &Service{
		db:     db,
		events: NewEventLog(db),
		prices: prices,
		log:    log.With().Str("component", "billing").Logger(),
	}
	s.handlers = map[stripe.EventType]handlerFunc{
		stripe.EventTypeCheckoutSessionCompleted:    s.checkoutCompleted,
		stripe.EventTypeCustomerSubscriptionCreated: s.subscriptionChanged,
		stripe.EventTypeCustomerSubscriptionUpdated: s.subscriptionChanged,
		stripe.EventTypeCustomerSubscriptionDeleted: s.subscriptionDeleted,
		stripe.EventTypeInvoicePaymentFailed:        s.invoicePaymentFailed,
		stripe.EventTypeChargeRefunded:              s.chargeRefunded,
	}
	return s
}

// Handle processes ev at most once. It reports duplicate=true when the
// event already succeeded. A failed run is recorded and may be redelivered.
func (s *Service) Handle(ctx context.Context, ev stripe.Event) (duplicate bool, err error) {
	prev, seen, err := s.events.Lookup(ctx, ev.ID)
	if err != nil {
		return false, fmt.Errorf("lookup event: %w", err)
	}
	if seen && prev.Status == EventSuccess {
		s.log.Debug().Str("event_id", ev.ID).Msg("duplicate webhook")
		return true, nil
	}

	var userID string
	if h, ok := s.handlers[ev.Type]; ok {
		var raw json.RawMessage
		if ev.Data != nil {
			raw = ev.Data.Raw
		}
		userID, err = h(ctx, raw)
	} else {
		s.log.Debug().Str("type", string(ev.Type)).Msg("ignoring webhook")
	}

	if err != nil {
		s.log.Error().Err(err).Str("event_id", ev.ID).Str("type", string(ev.Type)).Msg("webhook failed")
		if rerr := s.events.MarkFailed(ctx, ev.ID, string(ev.Type), userID, err.Error()); rerr != nil {
			s.log.Error().Err(rerr).Msg("record failed webhook")
		}
		return false, err
	}
	if err := s.events.MarkSuccess(ctx, ev.ID, string(ev.Type), userID); err != nil {
		// processed already; only bookkeeping is lost
		s.log.Error().Err(err).Str("event_id", ev.ID).Msg("record webhook")
	}
	return false, nil
}

/* -------------------------------- handlers -------------------------------- */

func (s *Service) checkoutCompleted(ctx context.Context, raw json.RawMessage) (string, error) {
	var cs stripe.CheckoutSession
	if err := json.Unmarshal(raw, &cs); err != nil {
		return "", fmt.Errorf("decode checkout session: %w", err)
	}
	userID := cs.ClientReferenceID
	if userID == "" {
		userID = cs.Metadata[UserMetadataKey]
	}
	if userID == "" {
		s.log.Info().Str("session", cs.ID).Msg("checkout without user reference, skipping")
		return "", nil
	}
	if cs.Customer == nil || cs.Customer.ID == "" {
		return userID, fmt.Errorf("checkout %s: missing customer", cs.ID)
	}
	if err := s.linkCustomer(ctx, userID, cs.Customer.ID); err != nil {
		return userID, err
	}
	if cs.Mode != stripe.CheckoutSessionModePayment {
		// subscription state arrives with customer.subscription.*
		return userID, nil
	}
	return userID, s.updateProfile(ctx, userID, `plan_selected=$1, subscription_status=$2,
		current_period_end=NULL, cancel_at_period_end=0`, rbac.PlanLifetime, string(stripe.SubscriptionStatusActive))
}

func (s *Service) subscriptionChanged(ctx context.Context, raw json.RawMessage) (string, error) {
	var sub stripe.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return "", fmt.Errorf("decode subscription: %w", err)
	}
	userID := sub.Metadata[UserMetadataKey]
	if userID == "" {
		s.log.Info().Str("subscription", sub.ID).Msg("subscription without user metadata, skipping")
		return "", nil
	}
	if sub.Customer == nil || sub.Customer.ID == "" {
		return userID, fmt.Errorf("subscription %s: missing customer", sub.ID)
	}
	if err := s.verifyOwnership(ctx, sub.Customer.ID, userID); err != nil {
		return userID, err
	}
	if sub.Items == nil || len(sub.Items.Data) == 0 || sub.Items.Data[0].Price == nil {
		return userID, fmt.Errorf("subscription %s: no price: %w", sub.ID, ErrUnknownPrice)
	}
	priceID := sub.Items.Data[0].Price.ID
	plan, ok := s.prices[priceID]
	if !ok {
		return userID, fmt.Errorf("subscription %s price %s: %w", sub.ID, priceID, ErrUnknownPrice)
	}
	var periodEnd any
	if sub.CurrentPeriodEnd > 0 {
		periodEnd = sub.CurrentPeriodEnd
	}
	cancel := 0
	if sub.CancelAtPeriodEnd {
		cancel = 1
	}
	return userID, s.updateSubscriber(ctx, userID, `plan_selected=$1, subscription_status=$2,
		current_period_end=$3, cancel_at_period_end=$4`, plan, string(sub.Status), periodEnd, cancel)
}

func (s *Service) subscriptionDeleted(ctx context.Context, raw json.RawMessage) (string, error) {
	var sub stripe.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return "", fmt.Errorf("decode subscription: %w", err)
	}
	userID := sub.Metadata[UserMetadataKey]
	if userID == "" {
		s.log.Info().Str("subscription", sub.ID).Msg("subscription without user metadata, skipping")
		return "", nil
	}
	if sub.Customer != nil && sub.Customer.ID != "" {
		if err := s.verifyOwnership(ctx, sub.Customer.ID, userID); err != nil {
			return userID, err
		}
	}
	return userID, s.updateSubscriber(ctx, userID, `plan_selected=$1, subscription_status=$2,
		current_period_end=NULL, cancel_at_period_end=0`, rbac.PlanFree, string(stripe.SubscriptionStatusCanceled))
}

func (s *Service) invoicePaymentFailed(ctx context.Context, raw json.RawMessage) (string, error) {
	var inv stripe.Invoice
	if err := json.Unmarshal(raw, &inv); err != nil {
		return "", fmt.Errorf("decode invoice: %w", err)
	}
	if inv.Subscription == nil || inv.Customer == nil {
		s.log.Info().Str("invoice", inv.ID).Msg("invoice without subscription, skipping")
		return "", nil
	}
	userID, err := s.customerOwner(ctx, inv.Customer.ID)
	if err != nil {
		return "", err
	}
	if userID == "" {
		s.log.Info().Str("invoice", inv.ID).Msg("invoice for unknown customer, skipping")
		return "", nil
	}
	return userID, s.updateSubscriber(ctx, userID, `subscription_status=$1`,
		string(stripe.SubscriptionStatusPastDue))
}

// chargeRefunded revokes a lifetime plan on a full refund.
func (s *Service) chargeRefunded(ctx context.Context, raw json.RawMessage) (string, error) {
	var ch stripe.Charge
	if err := json.Unmarshal(raw, &ch); err != nil {
		return "", fmt.Errorf("decode charge: %w", err)
	}
	if ch.Customer == nil || !ch.Refunded || ch.AmountRefunded < ch.Amount {
		return "", nil
	}
	userID, err := s.customerOwner(ctx, ch.Customer.ID)
	if err != nil || userID == "" {
		return userID, err
	}
	_, err = s.db.ExecContext(ctx, `UPDATE profile SET plan_selected=$1, subscription_status=$2,
		billing_version=billing_version+1 WHERE id=$3 AND plan_selected=$4`,
		rbac.PlanFree, "refunded", userID, rbac.PlanLifetime)
	if err == nil {
		s.log.Warn().Str("user_id", userID).Str("charge", ch.ID).Msg("lifetime plan refunded")
	}
	return userID, err
}

/* --------------------------------- storage -------------------------------- */

// linkCustomer records the user's Stripe customer. A customer already
// linked to someone else is rejected.
func (s *Service) linkCustomer(ctx context.Context, userID, customerID string) error {
	owner, err := s.customerOwner(ctx, customerID)
	if err != nil {
		return err
	}
	if owner != "" {
		if owner != userID {
			return fmt.Errorf("customer %s: %w", customerID, ErrCustomerMismatch)
		}
		return nil
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO stripe_customers (user_id,stripe_customer_id) VALUES ($1,$2)
		ON CONFLICT (user_id) DO UPDATE SET stripe_customer_id=EXCLUDED.stripe_customer_id`, userID, customerID)
	return err
}

func (s *Service) customerOwner(ctx context.Context, customerID string) (string, error) {
	var userID string
	err := s.db.QueryRowContext(ctx, `SELECT user_id FROM stripe_customers WHERE stripe_customer_id=$1`, customerID).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return userID, err
}

func (s *Service) verifyOwnership(ctx context.Context, customerID, userID string) error {
	owner, err := s.customerOwner(ctx, customerID)
	if err != nil {
		return err
	}
	if owner != userID {
		s.log.Error().Str("customer", customerID).Str("claimed_user", userID).Str("actual_user", owner).
			Msg("customer ownership mismatch")
		return fmt.Errorf("customer %s: %w", customerID, ErrCustomerMismatch)
	}
	return nil
}

// updateSubscriber is updateProfile for subscription events; lifetime
// members are left alone.
func (s *Service) updateSubscriber(ctx context.Context, userID, set string, args ...any) error {
	var plan string
	err := s.db.QueryRowContext(ctx, `SELECT plan_selected FROM profile WHERE id=$1`, userID).Scan(&plan)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("user %s: %w", userID, ErrUnknownUser)
	}
	if err != nil {
		return err
	}
	if plan == rbac.PlanLifetime {
		s.log.Info().Str("user_id", userID).Msg("lifetime member, ignoring subscription change")
		return nil
	}
	return s.updateProfile(ctx, userID, set, args...)
}

// updateProfile applies set (with $1..$n bound to args) and bumps
// billing_version. The user ID is bound last.
func (s *Service) updateProfile(ctx context.Context, userID, set string, args ...any) error {
	q := fmt.Sprintf(`UPDATE profile SET %s, billing_version=billing_version+1 WHERE id=$%d`, set, len(args)+1)
	res, err := s.db.ExecContext(ctx, q, append(args, userID)...)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %s: %w", userID, ErrUnknownUser)
	}
	s.log.Info().Str("user_id", userID).Msg("billing state updated")
	return nil
}
