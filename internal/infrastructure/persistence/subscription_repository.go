package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/threatalytics/backend/internal/domain/billing"
	"github.com/threatalytics/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SubscriptionModel is the GORM model for subscriptions
type SubscriptionModel struct {
	ID                   uuid.UUID  `gorm:"type:uuid;primaryKey"`
	TenantID             uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex"`
	StripeSubscriptionID string     `gorm:"type:varchar(255);not null;uniqueIndex"`
	StripeCustomerID     string     `gorm:"type:varchar(255);index"`
	PlanID               string     `gorm:"type:varchar(50);not null"`
	State                string     `gorm:"type:varchar(30);not null"`
	CurrentPeriodEnd     *time.Time `gorm:""`
	CancelAtPeriodEnd    bool       `gorm:"not null;default:false"`
	LastEventAt          time.Time  `gorm:"not null"`
	Version              int        `gorm:"not null;default:1"`
	CreatedAt            time.Time  `gorm:"autoCreateTime"`
	UpdatedAt            time.Time  `gorm:"autoUpdateTime"`
}

// TableName returns the table name for the model
func (SubscriptionModel) TableName() string {
	return "subscriptions"
}

// ToEntity converts the model to a domain entity
func (m *SubscriptionModel) ToEntity() *billing.Subscription {
	return &billing.Subscription{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		TenantID:             m.TenantID,
		StripeSubscriptionID: m.StripeSubscriptionID,
		StripeCustomerID:     m.StripeCustomerID,
		PlanID:               m.PlanID,
		State:                billing.SubscriptionState(m.State),
		CurrentPeriodEnd:     m.CurrentPeriodEnd,
		CancelAtPeriodEnd:    m.CancelAtPeriodEnd,
		LastEventAt:          m.LastEventAt,
	}
}

// SubscriptionModelFromEntity creates a model from a domain entity
func SubscriptionModelFromEntity(e *billing.Subscription) *SubscriptionModel {
	return &SubscriptionModel{
		ID:                   e.ID,
		TenantID:             e.TenantID,
		StripeSubscriptionID: e.StripeSubscriptionID,
		StripeCustomerID:     e.StripeCustomerID,
		PlanID:               e.PlanID,
		State:                string(e.State),
		CurrentPeriodEnd:     e.CurrentPeriodEnd,
		CancelAtPeriodEnd:    e.CancelAtPeriodEnd,
		LastEventAt:          e.LastEventAt,
		Version:              e.Version,
		CreatedAt:            e.CreatedAt,
		UpdatedAt:            e.UpdatedAt,
	}
}

// SubscriptionRepository implements billing.SubscriptionRepository on GORM
type SubscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Save upserts a subscription keyed by the provider subscription ID
func (r *SubscriptionRepository) Save(ctx context.Context, sub *billing.Subscription) error {
	model := SubscriptionModelFromEntity(sub)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "stripe_subscription_id"}},
			UpdateAll: true,
		}).
		Create(model).Error
}

// FindByTenantID loads a tenant's subscription
func (r *SubscriptionRepository) FindByTenantID(ctx context.Context, tenantID uuid.UUID) (*billing.Subscription, error) {
	var model SubscriptionModel
	err := r.db.WithContext(ctx).First(&model, "tenant_id = ?", tenantID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToEntity(), nil
}

// FindByStripeSubscriptionID loads a subscription by its provider ID
func (r *SubscriptionRepository) FindByStripeSubscriptionID(ctx context.Context, stripeSubscriptionID string) (*billing.Subscription, error) {
	var model SubscriptionModel
	err := r.db.WithContext(ctx).
		First(&model, "stripe_subscription_id = ?", stripeSubscriptionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToEntity(), nil
}

// CountByState counts subscriptions in the given state
func (r *SubscriptionRepository) CountByState(ctx context.Context, state billing.SubscriptionState) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&SubscriptionModel{}).
		Where("state = ?", string(state)).
		Count(&count).Error
	return count, err
}

var _ billing.SubscriptionRepository = (*SubscriptionRepository)(nil)
