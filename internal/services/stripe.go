package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"launchpad_go_backend/internal/models"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v79"
	portalsession "github.com/stripe/stripe-go/v79/billingportal/session"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/customer"
	"github.com/stripe/stripe-go/v79/webhook"
)

var (
	ErrUnknownPlan       = errors.New("unknown plan")
	ErrNoBillingCustomer = errors.New("user has no billing customer")
)

type StripeOptions struct {
	SecretKey     string
	WebhookSecret string
	FrontendURL   string
	// PriceIDs maps each paid plan to its recurring Stripe price.
	PriceIDs map[models.PlanTier]string
}

type StripeService struct {
	webhookSecret string
	frontendURL   string
	priceIDs      map[models.PlanTier]string
	users         BillingUserStore
}

func NewStripeService(opts StripeOptions, users BillingUserStore) *StripeService {
	stripe.Key = opts.SecretKey
	prices := make(map[models.PlanTier]string, len(opts.PriceIDs))
	for plan, id := range opts.PriceIDs {
		if id != "" {
			prices[plan] = id
		}
	}
	return &StripeService{
		webhookSecret: opts.WebhookSecret,
		frontendURL:   opts.FrontendURL,
		priceIDs:      prices,
		users:         users,
	}
}

// CreateCheckoutSession starts a subscription checkout and returns its URL and id.
func (s *StripeService) CreateCheckoutSession(ctx context.Context, user *models.User, plan models.PlanTier) (string, string, error) {
	priceID, ok := s.priceIDs[plan]
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrUnknownPlan, plan)
	}

	customerID, err := s.getOrCreateCustomer(ctx, user)
	if err != nil {
		return "", "", err
	}

	params := &stripe.CheckoutSessionParams{
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer: stripe.String(customerID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(s.frontendURL + "/billing/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:         stripe.String(s.frontendURL + "/billing/cancel"),
		ClientReferenceID: stripe.String(user.ID),
		Metadata: map[string]string{
			"user_id": user.ID,
			"plan":    string(plan),
		},
	}
	params.Context = ctx

	sess, err := session.New(params)
	if err != nil {
		return "", "", fmt.Errorf("failed to create checkout session: %w", err)
	}
	return sess.URL, sess.ID, nil
}

func (s *StripeService) CreatePortalSession(ctx context.Context, user *models.User) (string, error) {
	if user.BillingCustomerID == nil || *user.BillingCustomerID == "" {
		return "", ErrNoBillingCustomer
	}
	params := &stripe.BillingPortalSessionParams{
		Customer:  user.BillingCustomerID,
		ReturnURL: stripe.String(s.frontendURL + "/billing"),
	}
	params.Context = ctx

	sess, err := portalsession.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create billing portal session: %w", err)
	}
	return sess.URL, nil
}

// ConstructEvent verifies the Stripe-Signature header against the webhook secret.
func (s *StripeService) ConstructEvent(payload []byte, signatureHeader string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(payload, signatureHeader, s.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}

// HandleEvent applies a verified event to the user's plan. Unhandled types are ignored.
func (s *StripeService) HandleEvent(ctx context.Context, event stripe.Event) error {
	logger := zerolog.Ctx(ctx).With().Str("event_id", event.ID).Str("event_type", string(event.Type)).Logger()
	if event.Data == nil {
		return errors.New("event has no data")
	}

	switch string(event.Type) {
	case "checkout.session.completed":
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			return fmt.Errorf("failed to parse checkout session: %w", err)
		}
		return s.applyCheckout(ctx, &cs)

	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("failed to parse subscription: %w", err)
		}
		if sub.Customer == nil || sub.Customer.ID == "" {
			return errors.New("subscription has no customer")
		}
		user, err := s.users.GetByBillingCustomer(ctx, sub.Customer.ID)
		if errors.Is(err, ErrUserNotFound) {
			logger.Warn().Str("customer_id", sub.Customer.ID).Msg("No user for billing customer, ignoring event")
			return nil
		}
		if err != nil {
			return err
		}

		plan := models.PlanFree
		if string(event.Type) != "customer.subscription.deleted" &&
			(sub.Status == stripe.SubscriptionStatusActive || sub.Status == stripe.SubscriptionStatusTrialing) {
			var ok bool
			plan, ok = s.planForSubscription(&sub)
			if !ok {
				logger.Warn().Str("subscription_id", sub.ID).Msg("Subscription price matches no plan, ignoring event")
				return nil
			}
		}
		logger.Info().Str("user_id", user.ID).Str("plan", string(plan)).Msg("Updating plan from subscription")
		return s.users.SetPlan(ctx, user.ID, plan)

	default:
		logger.Debug().Msg("Ignoring unhandled billing event")
		return nil
	}
}

func (s *StripeService) applyCheckout(ctx context.Context, cs *stripe.CheckoutSession) error {
	userID := cs.ClientReferenceID
	if userID == "" {
		userID = cs.Metadata["user_id"]
	}
	if userID == "" {
		return errors.New("checkout session has no user reference")
	}

	if cs.Customer != nil && cs.Customer.ID != "" {
		if err := s.users.SetBillingCustomer(ctx, userID, cs.Customer.ID); err != nil {
			return err
		}
	}

	plan := models.PlanTier(cs.Metadata["plan"])
	if !plan.Valid() || plan == models.PlanFree {
		return fmt.Errorf("%w: %q", ErrUnknownPlan, plan)
	}
	zerolog.Ctx(ctx).Info().Str("user_id", userID).Str("plan", string(plan)).Msg("Checkout completed")
	return s.users.SetPlan(ctx, userID, plan)
}

func (s *StripeService) planForSubscription(sub *stripe.Subscription) (models.PlanTier, bool) {
	if sub.Items == nil || len(sub.Items.Data) == 0 || sub.Items.Data[0].Price == nil {
		return "", false
	}
	return s.planForPrice(sub.Items.Data[0].Price.ID)
}

func (s *StripeService) planForPrice(priceID string) (models.PlanTier, bool) {
	for plan, id := range s.priceIDs {
		if id == priceID {
			return plan, true
		}
	}
	return "", false
}

func (s *StripeService) getOrCreateCustomer(ctx context.Context, user *models.User) (string, error) {
	if user.BillingCustomerID != nil && *user.BillingCustomerID != "" {
		return *user.BillingCustomerID, nil
	}

	params := &stripe.CustomerParams{
		Email: user.Email,
		Name:  user.DisplayName,
		Metadata: map[string]string{
			"user_id": user.ID,
		},
	}
	params.Context = ctx

	cust, err := customer.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create Stripe customer: %w", err)
	}
	if err := s.users.SetBillingCustomer(ctx, user.ID, cust.ID); err != nil {
		return "", err
	}
	return cust.ID, nil
}
