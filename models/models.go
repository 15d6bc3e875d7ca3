package models

import (
	"time"

	"github.com/google/uuid"
)

// Checkout status constants.
const (
	CheckoutStatusPending   = "pending"
	CheckoutStatusAbandoned = "abandoned"
	CheckoutStatusConverted = "converted"
)

// DefaultCurrency is used when a webhook omits the currency code.
const DefaultCurrency = "USD"

// Checkout is a storefront checkout tracked for abandonment recovery.
//
// Status only ever moves pending→abandoned or pending→converted; both are
// terminal. CampaignSentAt is the dispatch gate: nil until a campaign call
// reaches a terminal outcome for this checkout, then never cleared outside
// an admin reset.
type Checkout struct {
	ID             uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CheckoutID     string     `gorm:"type:varchar(128);uniqueIndex;not null" json:"checkout_id"`
	Email          string     `gorm:"type:varchar(256);index" json:"email"`
	FirstName      string     `gorm:"type:varchar(128)" json:"first_name"`
	LastName       string     `gorm:"type:varchar(128)" json:"last_name"`
	RecoveryURL    string     `gorm:"type:varchar(1024)" json:"recovery_url"`
	CartValue      float64    `json:"cart_value"`
	Currency       string     `gorm:"type:varchar(8)" json:"currency"`
	Status         string     `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	OrderID        *string    `gorm:"type:varchar(128)" json:"order_id,omitempty"`
	CampaignSentAt *time.Time `json:"campaign_sent_at,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// Order is a placed storefront order. Upsert semantics tolerate webhook
// redelivery: total/email/currency are overwritten, CampaignSentAt is not.
type Order struct {
	ID             uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID        string     `gorm:"type:varchar(128);uniqueIndex;not null" json:"order_id"`
	Email          string     `gorm:"type:varchar(256);index" json:"email"`
	TotalPrice     float64    `json:"total_price"`
	Currency       string     `gorm:"type:varchar(8)" json:"currency"`
	CampaignSentAt *time.Time `json:"campaign_sent_at,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// Customer is a storefront customer record.
type Customer struct {
	ID             uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CustomerID     string     `gorm:"type:varchar(128);uniqueIndex;not null" json:"customer_id"`
	Email          string     `gorm:"type:varchar(256);index" json:"email"`
	FirstName      string     `gorm:"type:varchar(128)" json:"first_name"`
	LastName       string     `gorm:"type:varchar(128)" json:"last_name"`
	CampaignSentAt *time.Time `json:"campaign_sent_at,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
