package entity

import "github.com/shopspring/decimal"

type Money struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

func NewMoney(amount decimal.Decimal, currency string) Money {
	return Money{
		Amount:   amount.StringFixed(2),
		Currency: currency,
	}
}
