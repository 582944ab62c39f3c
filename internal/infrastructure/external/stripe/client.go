package stripe

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/customer"
	"github.com/stripe/stripe-go/v82/paymentmethod"
	"github.com/stripe/stripe-go/v82/subscription"
	"go.uber.org/zap"

	domainErrors "github.com/bivex/billing-recon/internal/domain/errors"
	"github.com/bivex/billing-recon/internal/domain/gateway"
	"github.com/bivex/billing-recon/internal/infrastructure/config"
	"github.com/bivex/billing-recon/internal/infrastructure/logging"
)

// Client implements gateway.PaymentGateway against the Stripe API
type Client struct {
	cfg    config.GatewayConfig
	logger *zap.Logger
}

// NewClient creates a Stripe gateway client and sets the package-level API key
func NewClient(cfg config.GatewayConfig) (*Client, error) {
	if cfg.StripeAPIKey == "" {
		return nil, fmt.Errorf("stripe api key is required")
	}
	stripe.Key = cfg.StripeAPIKey

	return &Client{
		cfg:    cfg,
		logger: logging.WithComponent("stripe_client"),
	}, nil
}

// GetPaymentMethod retrieves instrument details by gateway identifier
func (c *Client) GetPaymentMethod(ctx context.Context, methodID string) (*gateway.Instrument, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	params := &stripe.PaymentMethodParams{}
	params.Context = ctx

	pm, err := paymentmethod.Get(methodID, params)
	if err != nil {
		return nil, c.wrapError("get_payment_method", err)
	}

	inst := &gateway.Instrument{
		ID:   pm.ID,
		Type: string(pm.Type),
	}
	if pm.Customer != nil {
		inst.CustomerID = pm.Customer.ID
	}
	if pm.Card != nil {
		inst.Brand = string(pm.Card.Brand)
		inst.Last4 = pm.Card.Last4
		inst.ExpMonth = int(pm.Card.ExpMonth)
		inst.ExpYear = int(pm.Card.ExpYear)
	}
	return inst, nil
}

// SetDefaultPaymentMethod updates the customer's default instrument for
// invoice collection
func (c *Client) SetDefaultPaymentMethod(ctx context.Context, customerID, methodID string) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	params := &stripe.CustomerParams{
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(methodID),
		},
	}
	params.Context = ctx

	if _, err := customer.Update(customerID, params); err != nil {
		return c.wrapError("set_default_payment_method", err)
	}

	c.logger.Info("updated default payment method",
		zap.String("customer_id", customerID),
		zap.String("payment_method_id", methodID))
	return nil
}

// PauseSubscription voids collection on a subscription. Stripe treats setting
// pause_collection on an already-paused subscription as a no-op, which keeps
// this call safe under webhook replays.
func (c *Client) PauseSubscription(ctx context.Context, subscriptionID string, metadata map[string]string) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	params := &stripe.SubscriptionParams{
		PauseCollection: &stripe.SubscriptionPauseCollectionParams{
			Behavior: stripe.String(string(stripe.SubscriptionPauseCollectionBehaviorVoid)),
		},
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	if _, err := subscription.Update(subscriptionID, params); err != nil {
		return c.wrapError("pause_subscription", err)
	}

	c.logger.Info("paused subscription collection",
		zap.String("subscription_id", subscriptionID))
	return nil
}

// ResumeSubscription clears pause_collection so invoicing restarts on the
// next cycle. Resuming a running subscription is a no-op.
func (c *Client) ResumeSubscription(ctx context.Context, subscriptionID string) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	// Unsetting a nested object requires the empty-string form of the field.
	params.AddExtra("pause_collection", "")

	if _, err := subscription.Update(subscriptionID, params); err != nil {
		return c.wrapError("resume_subscription", err)
	}

	c.logger.Info("resumed subscription collection",
		zap.String("subscription_id", subscriptionID))
	return nil
}

func (c *Client) wrapError(operation string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeResourceMissing {
		switch operation {
		case "get_payment_method":
			return fmt.Errorf("%s: %w", operation, domainErrors.ErrPaymentMethodNotFound)
		case "pause_subscription", "resume_subscription":
			return fmt.Errorf("%s: %w", operation, domainErrors.ErrSubscriptionNotFound)
		}
	}
	return &domainErrors.GatewayError{Operation: operation, Err: err}
}
