package clients

import (
	"context"
	"errors"
	"eventhub/entity"
	"fmt"
	"math"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
)

var (
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrIntentNotFound     = errors.New("payment intent not found")
	ErrAmountOutOfRange   = errors.New("amount out of range for payment intent")
)

type StripeConfig struct {
	SecretKey string
	// APIURL overrides the Stripe API base URL.
	APIURL            string
	MaxNetworkRetries int64
	HTTPClient        *http.Client
}

type StripeGateway struct {
	intents paymentintent.Client
}

func NewStripeGateway(cfg StripeConfig) StripeGateway {
	backendConfig := &stripe.BackendConfig{
		HTTPClient:        cfg.HTTPClient,
		LeveledLogger:     logrus.WithField("component", "stripe"),
		MaxNetworkRetries: stripe.Int64(cfg.MaxNetworkRetries),
	}
	if cfg.APIURL != "" {
		backendConfig.URL = stripe.String(cfg.APIURL)
	}

	return StripeGateway{
		intents: paymentintent.Client{
			B:   stripe.GetBackendWithConfig(stripe.APIBackend, backendConfig),
			Key: cfg.SecretKey,
		},
	}
}

// CreateIntent creates a card payment intent for amount, given in major units.
func (g StripeGateway) CreateIntent(
	ctx context.Context,
	amount decimal.Decimal,
	currency string,
	metadata map[string]string,
) (entity.PaymentIntent, error) {
	minor, err := toMinorUnits(amount)
	if err != nil {
		return entity.PaymentIntent{}, err
	}

	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(minor),
		Currency:           stripe.String(currency),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := g.intents.New(params)
	if err != nil {
		return entity.PaymentIntent{}, fmt.Errorf("creating payment intent: %w", classifyStripeError(err))
	}

	return toPaymentIntent(pi), nil
}

func (g StripeGateway) GetIntent(ctx context.Context, intentID string) (entity.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := g.intents.Get(intentID, params)
	if err != nil {
		return entity.PaymentIntent{}, fmt.Errorf("getting payment intent %s: %w", intentID, classifyStripeError(err))
	}

	return toPaymentIntent(pi), nil
}

func classifyStripeError(err error) error {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return errors.Join(ErrGatewayUnavailable, err)
	}

	switch {
	case stripeErr.Code == stripe.ErrorCodeResourceMissing:
		return errors.Join(ErrIntentNotFound, err)
	case stripeErr.HTTPStatusCode == http.StatusTooManyRequests,
		stripeErr.HTTPStatusCode >= http.StatusInternalServerError:
		return errors.Join(ErrGatewayUnavailable, err)
	default:
		return err
	}
}

func toPaymentIntent(pi *stripe.PaymentIntent) entity.PaymentIntent {
	amount := pi.AmountReceived
	if amount == 0 {
		amount = pi.Amount
	}

	var method string
	if len(pi.PaymentMethodTypes) > 0 {
		method = pi.PaymentMethodTypes[0]
	}

	return entity.PaymentIntent{
		ID:            pi.ID,
		ClientSecret:  pi.ClientSecret,
		Status:        string(pi.Status),
		Amount:        fromMinorUnits(amount),
		Currency:      string(pi.Currency),
		PaymentMethod: method,
		Metadata:      pi.Metadata,
	}
}

var (
	maxMinorUnits = decimal.NewFromInt(math.MaxInt64)
	minMinorUnits = decimal.NewFromInt(math.MinInt64)
)

func toMinorUnits(amount decimal.Decimal) (int64, error) {
	minor := amount.Shift(2).Round(0)
	if minor.GreaterThan(maxMinorUnits) || minor.LessThan(minMinorUnits) {
		return 0, fmt.Errorf("%w: %s", ErrAmountOutOfRange, amount)
	}
	return minor.IntPart(), nil
}

func fromMinorUnits(amount int64) decimal.Decimal {
	return decimal.New(amount, -2)
}
