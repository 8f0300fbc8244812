package mapping

import "time"

// Budget is the internal project-budget record used as input to the
// end-of-period utilization forecast model.
type Budget struct {
	ID          string
	ClientID    string
	PeriodStart time.Time
	PeriodEnd   time.Time
	Allocated   float64
	SpentToDate float64
	Currency    string
	// ByCategory breaks SpentToDate down per expense category; optional.
	ByCategory map[string]float64
}

// BudgetMapper maps Budget records to the budget-forecast model.
type BudgetMapper struct{}

// NewBudgetMapper creates the mapper for the budget-forecast model.
func NewBudgetMapper() *BudgetMapper { return &BudgetMapper{} }

var _ Mapper = (*BudgetMapper)(nil)

// Model returns ModelBudgetForecast.
func (m *BudgetMapper) Model() ModelType { return ModelBudgetForecast }

// ValidateInternal checks a Budget record.
func (m *BudgetMapper) ValidateInternal(record any) MappingResult {
	b, ok := record.(Budget)
	if !ok {
		return MappingResult{Errors: []string{"record is not a mapping.Budget"}}.finalize()
	}

	var r MappingResult
	if b.ID == "" {
		r.Errors = append(r.Errors, "budget id is required")
	}
	if b.ClientID == "" {
		r.Errors = append(r.Errors, "client id is required")
	}
	if b.Allocated <= 0 {
		r.Errors = append(r.Errors, "allocated amount must be positive")
	}
	if b.SpentToDate < 0 {
		r.Errors = append(r.Errors, "spent-to-date is negative")
	}
	if b.PeriodStart.IsZero() || b.PeriodEnd.IsZero() {
		r.Warnings = append(r.Warnings, "budget period incomplete, elapsed-fraction feature omitted")
	} else if !b.PeriodEnd.After(b.PeriodStart) {
		r.Errors = append(r.Errors, "period end is not after period start")
	}
	if b.Currency == "" {
		r.Warnings = append(r.Warnings, "currency missing, defaulting to USD")
	}
	if len(b.ByCategory) == 0 {
		r.Warnings = append(r.Warnings, "category breakdown missing")
	}
	return r.finalize()
}

// ToExternal builds the wire request for a Budget.
func (m *BudgetMapper) ToExternal(record any, opts Options) (ExternalRequest, error) {
	b, ok := record.(Budget)
	if !ok {
		return ExternalRequest{}, wrongType(m.Model(), record)
	}
	validation := m.ValidateInternal(b)
	if !validation.IsValid {
		return ExternalRequest{}, &ValidationError{Model: m.Model(), Result: validation}
	}

	currency := b.Currency
	if currency == "" {
		currency = defaultCurrency
	}

	features := map[string]any{
		"budget_id":      b.ID,
		"client_id":      b.ClientID,
		"allocated":      b.Allocated,
		"spent_to_date":  b.SpentToDate,
		"currency":       currency,
		"spent_fraction": b.SpentToDate / b.Allocated,
	}
	if !b.PeriodStart.IsZero() && b.PeriodEnd.After(b.PeriodStart) {
		total := b.PeriodEnd.Sub(b.PeriodStart)
		elapsed := time.Since(b.PeriodStart)
		frac := elapsed.Seconds() / total.Seconds()
		if frac < 0 {
			frac = 0
		}
		if frac > 1 {
			frac = 1
		}
		features["elapsed_fraction"] = frac
	}
	if len(b.ByCategory) > 0 {
		features["category_breakdown"] = b.ByCategory
	}

	return ExternalRequest{
		Model:    m.Model().String(),
		TenantID: opts.TenantID,
		Features: features,
	}, nil
}

// ValidateExternal checks the remote response for this model. The
// forecast is a utilization fraction and may exceed 1 on projected
// overruns, but never drops below 0.
func (m *BudgetMapper) ValidateExternal(resp ExternalResponse) MappingResult {
	r := validateExternal(m.Model(), resp)
	if resp.Prediction != nil && *resp.Prediction < 0 {
		r.Errors = append(r.Errors, "utilization forecast is negative")
		r = r.finalize()
	}
	return r
}

// FromExternal normalizes the remote response into a utilization
// fraction of allocation.
func (m *BudgetMapper) FromExternal(resp ExternalResponse, opts Options) (InternalResult, error) {
	validation := m.ValidateExternal(resp)
	if !validation.IsValid {
		return InternalResult{}, &ValidationError{Model: m.Model(), Result: validation}
	}
	return normalize(m.Model(), resp, "fraction", validation), nil
}

// CacheKey derives the time-bucketed key from the budget identity and
// current spend.
func (m *BudgetMapper) CacheKey(record any, opts Options) (string, error) {
	b, ok := record.(Budget)
	if !ok {
		return "", wrongType(m.Model(), record)
	}
	return buildKey(m.Model(), opts, map[string]any{
		"budget_id":     b.ID,
		"client_id":     b.ClientID,
		"allocated":     b.Allocated,
		"spent_to_date": b.SpentToDate,
	})
}
