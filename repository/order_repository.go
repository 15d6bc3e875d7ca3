package repository

import (
	"context"
	"time"

	"github.com/CyberAli-eng/LaCleoOmnia-auto/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderRepository defines data-access operations for orders.
type OrderRepository interface {
	Upsert(ctx context.Context, order *models.Order) error
	FindByOrderID(ctx context.Context, orderID string) (*models.Order, error)
	FindLatest(ctx context.Context, limit int) ([]models.Order, error)
	MarkCampaignSent(ctx context.Context, orderID string, sentAt time.Time) error
	DeleteAll(ctx context.Context) error
}

// GormOrderRepository implements OrderRepository using GORM.
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository.
func NewGormOrderRepository(db *gorm.DB) OrderRepository {
	return &GormOrderRepository{db: db}
}

// Upsert creates the order or, on webhook redelivery, corrects
// email/total/currency. The dispatch gate is never part of the update set.
func (r *GormOrderRepository) Upsert(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "order_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"email", "total_price", "currency", "updated_at",
		}),
	}).Create(order).Error
}

func (r *GormOrderRepository) FindByOrderID(ctx context.Context, orderID string) (*models.Order, error) {
	var o models.Order
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *GormOrderRepository) FindLatest(ctx context.Context, limit int) ([]models.Order, error) {
	var orders []models.Order
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *GormOrderRepository) MarkCampaignSent(ctx context.Context, orderID string, sentAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("order_id = ? AND campaign_sent_at IS NULL", orderID).
		Update("campaign_sent_at", sentAt).Error
}

func (r *GormOrderRepository) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Where("1 = 1").
		Delete(&models.Order{}).Error
}
