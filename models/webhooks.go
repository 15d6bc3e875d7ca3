package models

import "encoding/json"

// PersonName carries the first/last name pair nested in Shopify payloads.
type PersonName struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// CheckoutWebhook is the inbound checkout create/update payload. Shopify
// sends ids as numbers and prices as strings, so both are kept loose here
// and normalized by the lifecycle service.
type CheckoutWebhook struct {
	ID                   json.Number `json:"id"`
	Email                string      `json:"email"`
	TotalPrice           string      `json:"total_price"`
	Currency             string      `json:"currency"`
	AbandonedCheckoutURL string      `json:"abandoned_checkout_url"`
	Customer             *PersonName `json:"customer,omitempty"`
	BillingAddress       *PersonName `json:"billing_address,omitempty"`
}

// OrderWebhook is the inbound order creation payload.
type OrderWebhook struct {
	ID         json.Number `json:"id"`
	Email      string      `json:"email"`
	TotalPrice string      `json:"total_price"`
	Currency   string      `json:"currency"`
}

// CustomerWebhook is the inbound customer creation payload.
type CustomerWebhook struct {
	ID        json.Number `json:"id"`
	Email     string      `json:"email"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
}
