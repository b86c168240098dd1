package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/threatalytics/backend/internal/domain/identity"
	"github.com/threatalytics/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TenantModel is the GORM model for tenants
type TenantModel struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Email              string     `gorm:"type:varchar(255);uniqueIndex;not null"`
	Name               string     `gorm:"type:varchar(255)"`
	PasswordHash       string     `gorm:"type:varchar(255);not null"`
	Role               string     `gorm:"type:varchar(20);not null;default:'member'"`
	PlanID             string     `gorm:"type:varchar(50);not null;default:'free'"`
	StripeCustomerID   string     `gorm:"type:varchar(255);index"`
	SubscriptionStatus string     `gorm:"type:varchar(30);not null;default:'none'"`
	EmailVerified      bool       `gorm:"not null;default:false"`
	LastLoginAt        *time.Time `gorm:""`
	Version            int        `gorm:"not null;default:1"`
	CreatedAt          time.Time  `gorm:"autoCreateTime"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime"`
}

// TableName returns the table name for the model
func (TenantModel) TableName() string {
	return "tenants"
}

// ToEntity converts the model to a domain entity
func (m *TenantModel) ToEntity() *identity.Tenant {
	return &identity.Tenant{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		Email:              m.Email,
		Name:               m.Name,
		PasswordHash:       m.PasswordHash,
		Role:               identity.Role(m.Role),
		PlanID:             m.PlanID,
		StripeCustomerID:   m.StripeCustomerID,
		SubscriptionStatus: identity.SubscriptionStatus(m.SubscriptionStatus),
		EmailVerified:      m.EmailVerified,
		LastLoginAt:        m.LastLoginAt,
	}
}

// TenantModelFromEntity creates a model from a domain entity
func TenantModelFromEntity(e *identity.Tenant) *TenantModel {
	return &TenantModel{
		ID:                 e.ID,
		Email:              e.Email,
		Name:               e.Name,
		PasswordHash:       e.PasswordHash,
		Role:               string(e.Role),
		PlanID:             e.PlanID,
		StripeCustomerID:   e.StripeCustomerID,
		SubscriptionStatus: string(e.SubscriptionStatus),
		EmailVerified:      e.EmailVerified,
		LastLoginAt:        e.LastLoginAt,
		Version:            e.Version,
		CreatedAt:          e.CreatedAt,
		UpdatedAt:          e.UpdatedAt,
	}
}

// TenantRepository implements identity.TenantRepository on GORM
type TenantRepository struct {
	db *gorm.DB
}

// NewTenantRepository creates a new tenant repository
func NewTenantRepository(db *gorm.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

// Save upserts a tenant
func (r *TenantRepository) Save(ctx context.Context, tenant *identity.Tenant) error {
	model := TenantModelFromEntity(tenant)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(model).Error
}

// FindByID loads a tenant by its ID
func (r *TenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Tenant, error) {
	var model TenantModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToEntity(), nil
}

// FindByEmail loads a tenant by email (case-insensitive)
func (r *TenantRepository) FindByEmail(ctx context.Context, email string) (*identity.Tenant, error) {
	var model TenantModel
	err := r.db.WithContext(ctx).
		First(&model, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToEntity(), nil
}

// FindByStripeCustomerID loads a tenant by its payment-provider customer ref
func (r *TenantRepository) FindByStripeCustomerID(ctx context.Context, customerID string) (*identity.Tenant, error) {
	var model TenantModel
	err := r.db.WithContext(ctx).
		First(&model, "stripe_customer_id = ?", customerID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToEntity(), nil
}

// List returns tenants matching the filter with a total count
func (r *TenantRepository) List(ctx context.Context, filter identity.TenantListFilter) ([]*identity.Tenant, int64, error) {
	query := r.db.WithContext(ctx).Model(&TenantModel{})

	if filter.PlanID != "" {
		query = query.Where("plan_id = ?", filter.PlanID)
	}
	if filter.SubscriptionStatus != "" {
		query = query.Where("subscription_status = ?", string(filter.SubscriptionStatus))
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("lower(email) LIKE ? OR lower(name) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var models []TenantModel
	if err := query.Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, 0, err
	}

	tenants := make([]*identity.Tenant, len(models))
	for i := range models {
		tenants[i] = models[i].ToEntity()
	}
	return tenants, total, nil
}

// ListCreatedSince returns the newest tenants created after the given time
func (r *TenantRepository) ListCreatedSince(ctx context.Context, since time.Time, limit int) ([]*identity.Tenant, error) {
	var models []TenantModel
	err := r.db.WithContext(ctx).
		Where("created_at >= ?", since).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	tenants := make([]*identity.Tenant, len(models))
	for i := range models {
		tenants[i] = models[i].ToEntity()
	}
	return tenants, nil
}

// Count returns the total number of tenants
func (r *TenantRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&TenantModel{}).Count(&count).Error
	return count, err
}

// CountBySubscriptionStatus counts tenants with the given status
func (r *TenantRepository) CountBySubscriptionStatus(ctx context.Context, status identity.SubscriptionStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&TenantModel{}).
		Where("subscription_status = ?", string(status)).
		Count(&count).Error
	return count, err
}

// Delete removes a tenant (explicit admin action only)
func (r *TenantRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&TenantModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ identity.TenantRepository = (*TenantRepository)(nil)
