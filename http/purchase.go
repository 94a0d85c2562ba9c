package http

import (
	"encoding/json"
	"eventhub/purchase"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

type lineItemRequest struct {
	TicketID string `json:"ticketId"`
	Quantity int    `json:"quantity"`
}

type purchaseRequest struct {
	EventID   string            `json:"eventId"`
	LineItems []lineItemRequest `json:"lineItems"`
}

type purchaseResponse struct {
	IntentHandle string      `json:"intentHandle"`
	IntentID     string      `json:"intentId"`
	TotalAmount  json.Number `json:"totalAmount"`
	Currency     string      `json:"currency"`
}

type confirmRequest struct {
	IntentID       string            `json:"intentId"`
	EventID        string            `json:"eventId"`
	LineItems      []lineItemRequest `json:"lineItems"`
	BillingDetails struct {
		Email string `json:"email"`
	} `json:"billingDetails"`
}

type cancelLineItemRequest struct {
	LineItemIndex *int `json:"lineItemIndex"`
}

func toLineItemInputs(items []lineItemRequest) []purchase.LineItemInput {
	inputs := make([]purchase.LineItemInput, 0, len(items))
	for _, item := range items {
		inputs = append(inputs, purchase.LineItemInput{
			TicketTypeID: item.TicketID,
			Quantity:     item.Quantity,
		})
	}
	return inputs
}

func bindError(err error) error {
	return &echo.HTTPError{
		Code:     http.StatusBadRequest,
		Message:  "Invalid request body.",
		Internal: fmt.Errorf("failed to bind request: %w", err),
	}
}

func (h handler) PurchaseTickets(c echo.Context) error {
	var request purchaseRequest
	if err := c.Bind(&request); err != nil {
		return bindError(err)
	}

	quote, err := h.purchases.Quote(c.Request().Context(), identity(c), purchase.QuoteInput{
		EventID:   request.EventID,
		LineItems: toLineItemInputs(request.LineItems),
	})
	if err != nil {
		return purchaseError(err)
	}

	return c.JSON(http.StatusOK, purchaseResponse{
		IntentHandle: quote.IntentHandle,
		IntentID:     quote.IntentID,
		TotalAmount:  json.Number(quote.TotalAmount.StringFixed(2)),
		Currency:     quote.Currency,
	})
}

func (h handler) ConfirmPurchase(c echo.Context) error {
	var request confirmRequest
	if err := c.Bind(&request); err != nil {
		return bindError(err)
	}

	res, err := h.purchases.Confirm(c.Request().Context(), identity(c), purchase.ConfirmInput{
		IntentID:     request.IntentID,
		EventID:      request.EventID,
		LineItems:    toLineItemInputs(request.LineItems),
		BillingEmail: request.BillingDetails.Email,
	})
	if err != nil {
		return purchaseError(err)
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}

	return c.JSON(status, res.Order)
}

func (h handler) ListOrders(c echo.Context) error {
	orders, err := h.purchases.ListOrders(c.Request().Context(), identity(c))
	if err != nil {
		return purchaseError(err)
	}

	return c.JSON(http.StatusOK, orders)
}

func (h handler) CancelLineItem(c echo.Context) error {
	var request cancelLineItemRequest
	if err := c.Bind(&request); err != nil {
		return bindError(err)
	}
	if request.LineItemIndex == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Line item index is required.")
	}

	res, err := h.purchases.CancelLineItem(c.Request().Context(), identity(c), c.Param("orderId"), *request.LineItemIndex)
	if err != nil {
		return purchaseError(err)
	}

	msg := "Line item canceled."
	if res.OrderDeleted {
		msg = "Line item canceled. Order removed as it has no remaining items."
	}

	return c.JSON(http.StatusOK, messageResponse{Msg: msg})
}
