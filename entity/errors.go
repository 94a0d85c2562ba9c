package entity

import "errors"

var (
	ErrEventNotFound        = errors.New("event not found")
	ErrTicketTypeNotFound   = errors.New("ticket type not found")
	ErrInsufficientCapacity = errors.New("insufficient capacity")
	ErrOrderNotFound        = errors.New("order not found")
	ErrOrderAlreadyExists   = errors.New("order already exists for transaction")
	ErrIntentConsumed       = errors.New("payment intent already used")
)
