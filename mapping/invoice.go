package mapping

import "time"

// Invoice is the internal billing record used as input to the
// payment-date model.
type Invoice struct {
	ID                 string
	ClientID           string
	Amount             float64
	Currency           string
	IssuedAt           time.Time
	DueAt              time.Time
	LineItemCount      int
	ClientPaymentScore float64 // 0..1 historical on-time ratio, 0 when unknown
}

const defaultCurrency = "USD"

// InvoiceMapper maps Invoice records to the invoice-payment model.
type InvoiceMapper struct{}

// NewInvoiceMapper creates the mapper for the invoice-payment model.
func NewInvoiceMapper() *InvoiceMapper { return &InvoiceMapper{} }

var _ Mapper = (*InvoiceMapper)(nil)

// Model returns ModelInvoicePayment.
func (m *InvoiceMapper) Model() ModelType { return ModelInvoicePayment }

// ValidateInternal checks an Invoice record.
func (m *InvoiceMapper) ValidateInternal(record any) MappingResult {
	inv, ok := record.(Invoice)
	if !ok {
		return MappingResult{Errors: []string{"record is not a mapping.Invoice"}}.finalize()
	}

	var r MappingResult
	if inv.ID == "" {
		r.Errors = append(r.Errors, "invoice id is required")
	}
	if inv.ClientID == "" {
		r.Errors = append(r.Errors, "client id is required")
	}
	if inv.Amount < 0 {
		r.Errors = append(r.Errors, "amount is negative")
	}
	if inv.Currency == "" {
		r.Warnings = append(r.Warnings, "currency missing, defaulting to USD")
	}
	if inv.DueAt.IsZero() {
		r.Warnings = append(r.Warnings, "due date missing, terms feature omitted")
	}
	if inv.ClientPaymentScore == 0 {
		r.Warnings = append(r.Warnings, "client payment history unknown")
	}
	return r.finalize()
}

// ToExternal builds the wire request for an Invoice.
func (m *InvoiceMapper) ToExternal(record any, opts Options) (ExternalRequest, error) {
	inv, ok := record.(Invoice)
	if !ok {
		return ExternalRequest{}, wrongType(m.Model(), record)
	}
	validation := m.ValidateInternal(inv)
	if !validation.IsValid {
		return ExternalRequest{}, &ValidationError{Model: m.Model(), Result: validation}
	}

	currency := inv.Currency
	if currency == "" {
		currency = defaultCurrency
	}

	features := map[string]any{
		"invoice_id":           inv.ID,
		"client_id":            inv.ClientID,
		"amount":               inv.Amount,
		"currency":             currency,
		"line_item_count":      inv.LineItemCount,
		"client_payment_score": inv.ClientPaymentScore,
	}
	if !inv.IssuedAt.IsZero() && !inv.DueAt.IsZero() {
		features["terms_days"] = inv.DueAt.Sub(inv.IssuedAt).Hours() / 24
	}

	return ExternalRequest{
		Model:    m.Model().String(),
		TenantID: opts.TenantID,
		Features: features,
	}, nil
}

// ValidateExternal checks the remote response for this model.
func (m *InvoiceMapper) ValidateExternal(resp ExternalResponse) MappingResult {
	return validateExternal(m.Model(), resp)
}

// FromExternal normalizes the remote response into days-to-payment.
func (m *InvoiceMapper) FromExternal(resp ExternalResponse, opts Options) (InternalResult, error) {
	validation := m.ValidateExternal(resp)
	if !validation.IsValid {
		return InternalResult{}, &ValidationError{Model: m.Model(), Result: validation}
	}
	return normalize(m.Model(), resp, "days", validation), nil
}

// CacheKey derives the time-bucketed key from the invoice identity.
func (m *InvoiceMapper) CacheKey(record any, opts Options) (string, error) {
	inv, ok := record.(Invoice)
	if !ok {
		return "", wrongType(m.Model(), record)
	}
	return buildKey(m.Model(), opts, map[string]any{
		"invoice_id": inv.ID,
		"client_id":  inv.ClientID,
		"amount":     inv.Amount,
	})
}
