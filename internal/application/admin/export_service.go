package admin

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/threatalytics/backend/internal/domain/billing"
	"github.com/threatalytics/backend/internal/domain/identity"
	"go.uber.org/zap"
)

// ExportService produces CSV extracts for operators
type ExportService struct {
	tenantRepo  identity.TenantRepository
	usageRepo   billing.UsageRecordRepository
	paymentRepo billing.PaymentRecordRepository
	logger      *zap.Logger
}

// NewExportService creates a new ExportService
func NewExportService(tenantRepo identity.TenantRepository, usageRepo billing.UsageRecordRepository, paymentRepo billing.PaymentRecordRepository, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		tenantRepo:  tenantRepo,
		usageRepo:   usageRepo,
		paymentRepo: paymentRepo,
		logger:      logger,
	}
}

// exportPageSize bounds each repository page during an export
const exportPageSize = 500

// Tenants exports all tenants as CSV
func (s *ExportService) Tenants(ctx context.Context) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"id", "email", "name", "plan", "subscription_status", "created_at"}); err != nil {
		return nil, err
	}

	for offset := 0; ; offset += exportPageSize {
		tenants, _, err := s.tenantRepo.List(ctx, identity.TenantListFilter{
			Limit:  exportPageSize,
			Offset: offset,
		})
		if err != nil {
			return nil, err
		}
		for _, t := range tenants {
			if err := w.Write([]string{
				t.ID.String(),
				t.Email,
				t.Name,
				t.PlanID,
				string(t.SubscriptionStatus),
				t.CreatedAt.UTC().Format(time.RFC3339),
			}); err != nil {
				return nil, err
			}
		}
		if len(tenants) < exportPageSize {
			break
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}

// TenantUsage exports one tenant's usage records for the trailing window
func (s *ExportService) TenantUsage(ctx context.Context, tenantID uuid.UUID, since time.Time) ([]byte, error) {
	records, err := s.usageRepo.ListByTenant(ctx, tenantID, since, 10000)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"recorded_at", "endpoint", "quantity", "ip_address"}); err != nil {
		return nil, err
	}
	for _, r := range records {
		if err := w.Write([]string{
			r.RecordedAt.UTC().Format(time.RFC3339),
			r.Endpoint,
			strconv.FormatInt(r.Quantity, 10),
			r.IPAddress,
		}); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}

// TenantPayments exports one tenant's payment history
func (s *ExportService) TenantPayments(ctx context.Context, tenantID uuid.UUID) ([]byte, error) {
	payments, err := s.paymentRepo.ListByTenant(ctx, tenantID, 1000)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"paid_at", "amount", "currency", "stripe_invoice_id"}); err != nil {
		return nil, err
	}
	for _, p := range payments {
		if err := w.Write([]string{
			p.PaidAt.UTC().Format(time.RFC3339),
			p.Amount.String(),
			p.Currency,
			p.StripeInvoiceID,
		}); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}
