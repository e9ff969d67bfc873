// Package payment creates checkout sessions with the external payment
// processor. The engine only needs the session URL back; everything else
// about the payment lifecycle is the processor's problem.
package payment

import (
	"context"
	"fmt"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
)

// Product is one line item of a checkout request. Price is in whole
// currency units; Stripe wants centavos, so it is multiplied by 100.
type Product struct {
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int64  `json:"quantity"`
}

// Provider creates a payment session and returns its URL.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, products []Product) (string, error)
}

// StripeProvider implements Provider with Stripe Checkout.
type StripeProvider struct {
	frontEndURL string
}

// NewStripeProvider configures the global Stripe client and returns a
// provider. Success and cancel URLs point at the front end's
// payment-confirmation page.
func NewStripeProvider(apiKey, frontEndURL string) *StripeProvider {
	stripe.Key = apiKey
	return &StripeProvider{frontEndURL: frontEndURL}
}

// CreateCheckoutSession creates a one-off payment session in BRL.
func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, products []Product) (string, error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(products))
	for _, product := range products {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(string(stripe.CurrencyBRL)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(product.Name),
				},
				UnitAmount: stripe.Int64(product.Price * 100),
			},
			Quantity: stripe.Int64(product.Quantity),
		})
	}

	params := &stripe.CheckoutSessionParams{
		LineItems:  lineItems,
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(p.frontEndURL + "/payment-confirmation"),
		CancelURL:  stripe.String(p.frontEndURL + "/payment-confirmation?canceled=true"),
	}
	params.Context = ctx

	s, err := session.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return s.URL, nil
}
