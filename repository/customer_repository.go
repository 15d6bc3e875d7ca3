package repository

import (
	"context"
	"time"

	"github.com/CyberAli-eng/LaCleoOmnia-auto/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CustomerRepository defines data-access operations for customers.
type CustomerRepository interface {
	Upsert(ctx context.Context, customer *models.Customer) error
	FindByCustomerID(ctx context.Context, customerID string) (*models.Customer, error)
	FindLatest(ctx context.Context, limit int) ([]models.Customer, error)
	MarkCampaignSent(ctx context.Context, customerID string, sentAt time.Time) error
	DeleteAll(ctx context.Context) error
}

// GormCustomerRepository implements CustomerRepository using GORM.
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewGormCustomerRepository creates a new GormCustomerRepository.
func NewGormCustomerRepository(db *gorm.DB) CustomerRepository {
	return &GormCustomerRepository{db: db}
}

func (r *GormCustomerRepository) Upsert(ctx context.Context, customer *models.Customer) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "customer_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"email", "first_name", "last_name", "updated_at",
		}),
	}).Create(customer).Error
}

func (r *GormCustomerRepository) FindByCustomerID(ctx context.Context, customerID string) (*models.Customer, error) {
	var c models.Customer
	if err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *GormCustomerRepository) FindLatest(ctx context.Context, limit int) ([]models.Customer, error) {
	var customers []models.Customer
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}

func (r *GormCustomerRepository) MarkCampaignSent(ctx context.Context, customerID string, sentAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Customer{}).
		Where("customer_id = ? AND campaign_sent_at IS NULL", customerID).
		Update("campaign_sent_at", sentAt).Error
}

func (r *GormCustomerRepository) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Where("1 = 1").
		Delete(&models.Customer{}).Error
}
