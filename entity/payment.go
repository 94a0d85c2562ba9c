package entity

import "github.com/shopspring/decimal"

const IntentStatusSucceeded = "succeeded"

// PaymentIntent is the gateway's view of a charge. Amount is in major units.
type PaymentIntent struct {
	ID            string
	ClientSecret  string
	Status        string
	Amount        decimal.Decimal
	Currency      string
	PaymentMethod string
	Metadata      map[string]string
}

func (p PaymentIntent) Succeeded() bool {
	return p.Status == IntentStatusSucceeded
}
