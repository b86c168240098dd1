package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/threatalytics/backend/internal/domain/billing"
	"github.com/threatalytics/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// PaymentRecordModel is the GORM model for payment records
type PaymentRecordModel struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	StripeInvoiceID string          `gorm:"type:varchar(255);index"`
	Amount          decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Currency        string          `gorm:"type:varchar(3);not null"`
	PaidAt          time.Time       `gorm:"not null;index"`
	CreatedAt       time.Time       `gorm:"autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime"`
}

// TableName returns the table name for the model
func (PaymentRecordModel) TableName() string {
	return "payment_records"
}

// ToEntity converts the model to a domain entity
func (m *PaymentRecordModel) ToEntity() *billing.PaymentRecord {
	return &billing.PaymentRecord{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		TenantID:        m.TenantID,
		StripeInvoiceID: m.StripeInvoiceID,
		Amount:          m.Amount,
		Currency:        m.Currency,
		PaidAt:          m.PaidAt,
	}
}

// PaymentRecordModelFromEntity creates a model from a domain entity
func PaymentRecordModelFromEntity(e *billing.PaymentRecord) *PaymentRecordModel {
	return &PaymentRecordModel{
		ID:              e.ID,
		TenantID:        e.TenantID,
		StripeInvoiceID: e.StripeInvoiceID,
		Amount:          e.Amount,
		Currency:        e.Currency,
		PaidAt:          e.PaidAt,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

// PaymentRecordRepository implements billing.PaymentRecordRepository on GORM
type PaymentRecordRepository struct {
	db *gorm.DB
}

// NewPaymentRecordRepository creates a new payment record repository
func NewPaymentRecordRepository(db *gorm.DB) *PaymentRecordRepository {
	return &PaymentRecordRepository{db: db}
}

// Save appends a payment record
func (r *PaymentRecordRepository) Save(ctx context.Context, record *billing.PaymentRecord) error {
	model := PaymentRecordModelFromEntity(record)
	return r.db.WithContext(ctx).Create(model).Error
}

// SumPaidSince totals payments made at or after since
func (r *PaymentRecordRepository) SumPaidSince(ctx context.Context, since time.Time) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.db.WithContext(ctx).Model(&PaymentRecordModel{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("paid_at >= ?", since).
		Scan(&sum).Error
	if err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

// ListByTenant returns a tenant's most recent payments
func (r *PaymentRecordRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]*billing.PaymentRecord, error) {
	var models []PaymentRecordModel
	query := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("paid_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	records := make([]*billing.PaymentRecord, len(models))
	for i := range models {
		records[i] = models[i].ToEntity()
	}
	return records, nil
}

var _ billing.PaymentRecordRepository = (*PaymentRecordRepository)(nil)
