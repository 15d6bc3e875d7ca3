package repository

import (
	"context"
	"time"

	"github.com/CyberAli-eng/LaCleoOmnia-auto/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CheckoutRepository defines data-access operations for checkouts.
//
// MarkConverted and MarkCampaignSent are conditional writes: they carry the
// status / gate predicate into the UPDATE itself so concurrent webhook and
// scanner triggers cannot both win.
type CheckoutRepository interface {
	Upsert(ctx context.Context, checkout *models.Checkout) error
	FindByCheckoutID(ctx context.Context, checkoutID string) (*models.Checkout, error)
	FindFirstByEmail(ctx context.Context, email string) (*models.Checkout, error)
	FindAbandonmentCandidates(ctx context.Context, cutoff time.Time) ([]models.Checkout, error)
	FindLatest(ctx context.Context, limit int) ([]models.Checkout, error)
	MarkConverted(ctx context.Context, email, orderID string) (int64, error)
	MarkAbandoned(ctx context.Context, checkoutID string) error
	MarkCampaignSent(ctx context.Context, checkoutID string, sentAt time.Time) error
	RequeueAbandoned(ctx context.Context) (int64, error)
	DeleteAll(ctx context.Context) error
}

// GormCheckoutRepository implements CheckoutRepository using GORM.
type GormCheckoutRepository struct {
	db *gorm.DB
}

// NewGormCheckoutRepository creates a new GormCheckoutRepository.
func NewGormCheckoutRepository(db *gorm.DB) CheckoutRepository {
	return &GormCheckoutRepository{db: db}
}

// Upsert creates the checkout or, when the checkout id already exists,
// overwrites its mutable fields. Status is forced back to pending on every
// call: a storefront edit to an existing checkout restarts its lifecycle.
func (r *GormCheckoutRepository) Upsert(ctx context.Context, checkout *models.Checkout) error {
	checkout.Status = models.CheckoutStatusPending
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "checkout_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"email", "first_name", "last_name", "recovery_url",
			"cart_value", "currency", "status", "updated_at",
		}),
	}).Create(checkout).Error
}

func (r *GormCheckoutRepository) FindByCheckoutID(ctx context.Context, checkoutID string) (*models.Checkout, error) {
	var c models.Checkout
	if err := r.db.WithContext(ctx).
		Where("checkout_id = ?", checkoutID).
		First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// FindFirstByEmail returns the most recent checkout for the given email.
// Correlation by email is best-effort: multiple checkouts may share one.
func (r *GormCheckoutRepository) FindFirstByEmail(ctx context.Context, email string) (*models.Checkout, error) {
	var c models.Checkout
	if err := r.db.WithContext(ctx).
		Where("email = ?", email).
		Order("created_at DESC").
		First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// FindAbandonmentCandidates returns pending checkouts created before the
// cutoff, plus abandoned checkouts whose campaign never reached a terminal
// outcome (those retry on the next tick). The result is a candidate set
// only; callers must re-read each row before acting.
func (r *GormCheckoutRepository) FindAbandonmentCandidates(ctx context.Context, cutoff time.Time) ([]models.Checkout, error) {
	var checkouts []models.Checkout
	if err := r.db.WithContext(ctx).
		Where("(status = ? AND created_at < ?) OR (status = ? AND campaign_sent_at IS NULL)",
			models.CheckoutStatusPending, cutoff, models.CheckoutStatusAbandoned).
		Find(&checkouts).Error; err != nil {
		return nil, err
	}
	return checkouts, nil
}

func (r *GormCheckoutRepository) FindLatest(ctx context.Context, limit int) ([]models.Checkout, error) {
	var checkouts []models.Checkout
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&checkouts).Error; err != nil {
		return nil, err
	}
	return checkouts, nil
}

// MarkConverted transitions every pending checkout for the email to
// converted, stamping the order id. Rows no longer pending are untouched,
// which is what keeps a concurrent abandonment scan from clobbering a
// conversion (and vice versa).
func (r *GormCheckoutRepository) MarkConverted(ctx context.Context, email, orderID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Checkout{}).
		Where("email = ? AND status = ?", email, models.CheckoutStatusPending).
		Updates(map[string]interface{}{
			"status":   models.CheckoutStatusConverted,
			"order_id": orderID,
		})
	return res.RowsAffected, res.Error
}

func (r *GormCheckoutRepository) MarkAbandoned(ctx context.Context, checkoutID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Checkout{}).
		Where("checkout_id = ?", checkoutID).
		Update("status", models.CheckoutStatusAbandoned).Error
}

// MarkCampaignSent stamps the dispatch gate. The IS NULL predicate makes the
// stamp first-writer-wins under concurrent triggers.
func (r *GormCheckoutRepository) MarkCampaignSent(ctx context.Context, checkoutID string, sentAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Checkout{}).
		Where("checkout_id = ? AND campaign_sent_at IS NULL", checkoutID).
		Update("campaign_sent_at", sentAt).Error
}

// RequeueAbandoned flips every abandoned checkout back to pending and clears
// its gate so the scanner picks it up again. Admin-only escape hatch.
func (r *GormCheckoutRepository) RequeueAbandoned(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Checkout{}).
		Where("status = ?", models.CheckoutStatusAbandoned).
		Updates(map[string]interface{}{
			"status":           models.CheckoutStatusPending,
			"campaign_sent_at": nil,
		})
	return res.RowsAffected, res.Error
}

func (r *GormCheckoutRepository) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Where("1 = 1").
		Delete(&models.Checkout{}).Error
}
