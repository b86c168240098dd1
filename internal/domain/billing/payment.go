package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/threatalytics/backend/internal/domain/shared"
)

// PaymentRecord is an append-only record of a paid invoice. Appended by the
// webhook reconciler on invoice.payment_succeeded; it does not by itself
// change subscription state.
type PaymentRecord struct {
	shared.BaseEntity
	TenantID        uuid.UUID
	StripeInvoiceID string
	Amount          decimal.Decimal
	Currency        string
	PaidAt          time.Time
}

// NewPaymentRecord creates a payment record from an invoice event
func NewPaymentRecord(tenantID uuid.UUID, stripeInvoiceID string, amount decimal.Decimal, currency string, paidAt time.Time) (*PaymentRecord, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if amount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount cannot be negative")
	}

	return &PaymentRecord{
		BaseEntity:      shared.NewBaseEntity(),
		TenantID:        tenantID,
		StripeInvoiceID: stripeInvoiceID,
		Amount:          amount,
		Currency:        currency,
		PaidAt:          paidAt,
	}, nil
}

// PaymentRecordRepository persists payment records
type PaymentRecordRepository interface {
	Save(ctx context.Context, record *PaymentRecord) error
	SumPaidSince(ctx context.Context, since time.Time) (decimal.Decimal, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]*PaymentRecord, error)
}
