package mapping

import (
	"fmt"
	"strings"

	"github.com/mspops/predictgate/resilience"
)

// ModelType identifies a prediction model and its mapper.
type ModelType int

const (
	// ModelTicketResolution predicts ticket resolution time in hours.
	ModelTicketResolution ModelType = iota
	// ModelInvoicePayment predicts days until an invoice is paid.
	ModelInvoicePayment
	// ModelBudgetForecast predicts end-of-period budget utilization.
	ModelBudgetForecast
)

// String returns the wire name of the model type.
func (m ModelType) String() string {
	switch m {
	case ModelTicketResolution:
		return "ticket-resolution"
	case ModelInvoicePayment:
		return "invoice-payment"
	case ModelBudgetForecast:
		return "budget-forecast"
	default:
		return "unknown"
	}
}

// ModelTypes returns all known model types.
func ModelTypes() []ModelType {
	return []ModelType{ModelTicketResolution, ModelInvoicePayment, ModelBudgetForecast}
}

// DataQuality grades how complete a record was for mapping purposes.
type DataQuality string

const (
	QualityExcellent DataQuality = "excellent"
	QualityGood      DataQuality = "good"
	QualityPoor      DataQuality = "poor"
)

// MappingResult is produced by every mapper's validation step, consumed
// before a request is sent and after a response is received.
type MappingResult struct {
	IsValid     bool        `json:"is_valid"`
	Errors      []string    `json:"errors,omitempty"`
	Warnings    []string    `json:"warnings,omitempty"`
	DataQuality DataQuality `json:"data_quality"`
}

// finalize derives IsValid and DataQuality from the collected errors and
// warnings. Missing optional fields degrade quality, never validity.
func (r MappingResult) finalize() MappingResult {
	r.IsValid = len(r.Errors) == 0
	switch {
	case !r.IsValid || len(r.Warnings) > 3:
		r.DataQuality = QualityPoor
	case len(r.Warnings) > 0:
		r.DataQuality = QualityGood
	default:
		r.DataQuality = QualityExcellent
	}
	return r
}

// ValidationError is returned when a required identifying field is absent
// or a record has the wrong type. It is never retryable and never falls
// back: it is a caller bug that must fail loud.
type ValidationError struct {
	Model  ModelType
	Result MappingResult
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("mapping: %s: %s", e.Model, strings.Join(e.Result.Errors, "; "))
}

// ResilienceClass classifies mapping failures as non-retryable.
func (e *ValidationError) ResilienceClass() resilience.Class {
	return resilience.ClassMapping
}

// Options tunes a single mapping call.
type Options struct {
	// TenantID scopes the cache key per tenant.
	TenantID string

	// BucketHours sets the cache-key time bucket width.
	// Default: 6
	BucketHours int
}

// Mapper transforms between internal domain records and the external
// prediction service schema for one model type.
//
// Contract:
// - ToExternal never fails on missing optional fields; it substitutes the
//   documented defaults and surfaces the degradation through
//   ValidateInternal warnings. It fails only when a required identifying
//   field is absent.
// - FromExternal defensively defaults every optional external field, so a
//   partially populated remote response still yields a complete result.
// - CacheKey is deterministic and time-bucketed.
type Mapper interface {
	Model() ModelType
	ToExternal(record any, opts Options) (ExternalRequest, error)
	FromExternal(resp ExternalResponse, opts Options) (InternalResult, error)
	ValidateInternal(record any) MappingResult
	ValidateExternal(resp ExternalResponse) MappingResult
	CacheKey(record any, opts Options) (string, error)
}

// Registry resolves the mapper for a model type.
type Registry struct {
	mappers map[ModelType]Mapper
}

// NewRegistry creates an empty mapper registry.
func NewRegistry() *Registry {
	return &Registry{mappers: make(map[ModelType]Mapper)}
}

// DefaultRegistry returns a registry with all known mappers installed.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewTicketMapper())
	r.Register(NewInvoiceMapper())
	r.Register(NewBudgetMapper())
	return r
}

// Register installs a mapper, replacing any previous one for its model.
func (r *Registry) Register(m Mapper) {
	r.mappers[m.Model()] = m
}

// Lookup returns the mapper for the model type.
func (r *Registry) Lookup(model ModelType) (Mapper, error) {
	m, ok := r.mappers[model]
	if !ok {
		return nil, fmt.Errorf("mapping: no mapper registered for model %q", model)
	}
	return m, nil
}

// wrongType builds the ValidationError for a mis-typed record.
func wrongType(model ModelType, record any) error {
	return &ValidationError{
		Model: model,
		Result: MappingResult{
			Errors: []string{fmt.Sprintf("unexpected record type %T", record)},
		}.finalize(),
	}
}
