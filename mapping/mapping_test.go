package mapping

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mspops/predictgate/resilience"
)

func floatPtr(f float64) *float64 { return &f }

func fullTicket() Ticket {
	return Ticket{
		ID:          "T-100",
		ClientID:    "C-7",
		Title:       "VPN down",
		Priority:    "high",
		Category:    "network",
		CreatedAt:   time.Now().Add(-3 * time.Hour),
		Description: "Site-to-site VPN dropping every 20 minutes",
	}
}

func TestTicketToExternal_Defaults(t *testing.T) {
	m := NewTicketMapper()
	req, err := m.ToExternal(Ticket{ID: "T-1", ClientID: "C-1"}, Options{TenantID: "acme"})
	if err != nil {
		t.Fatalf("ToExternal() error = %v", err)
	}

	if req.Model != "ticket-resolution" {
		t.Errorf("Model = %q, want ticket-resolution", req.Model)
	}
	if req.TenantID != "acme" {
		t.Errorf("TenantID = %q, want acme", req.TenantID)
	}
	if got := req.Features["priority"]; got != "medium" {
		t.Errorf("priority = %v, want medium default", got)
	}
	if got := req.Features["category"]; got != "general" {
		t.Errorf("category = %v, want general default", got)
	}
	if _, ok := req.Features["age_hours"]; ok {
		t.Error("age_hours present despite zero CreatedAt")
	}
}

func TestTicketToExternal_MissingIdentityFailsLoud(t *testing.T) {
	m := NewTicketMapper()
	_, err := m.ToExternal(Ticket{ClientID: "C-1"}, Options{})

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
	if verr.Result.IsValid {
		t.Error("Result.IsValid = true, want false")
	}
	if verr.Result.DataQuality != QualityPoor {
		t.Errorf("DataQuality = %q, want poor", verr.Result.DataQuality)
	}
	if resilience.Classify(err) != resilience.ClassMapping {
		t.Errorf("Classify = %v, want ClassMapping", resilience.Classify(err))
	}
	if resilience.Retryable(err) {
		t.Error("Retryable(ValidationError) = true, want false")
	}
}

func TestTicketValidateInternal_WarningsDegradeQuality(t *testing.T) {
	m := NewTicketMapper()

	if got := m.ValidateInternal(fullTicket()); got.DataQuality != QualityExcellent {
		t.Errorf("full record quality = %q, want excellent", got.DataQuality)
	}

	sparse := m.ValidateInternal(Ticket{ID: "T-1", ClientID: "C-1", Priority: "low", Category: "billing"})
	if !sparse.IsValid {
		t.Fatalf("sparse record invalid: %v", sparse.Errors)
	}
	if sparse.DataQuality != QualityGood {
		t.Errorf("sparse record quality = %q, want good (warnings: %v)", sparse.DataQuality, sparse.Warnings)
	}

	bare := m.ValidateInternal(Ticket{ID: "T-1", ClientID: "C-1"})
	if bare.DataQuality != QualityPoor {
		t.Errorf("bare record quality = %q, want poor (warnings: %v)", bare.DataQuality, bare.Warnings)
	}
}

func TestTicketFromExternal_DefaultsOptionalFields(t *testing.T) {
	m := NewTicketMapper()
	res, err := m.FromExternal(ExternalResponse{Prediction: floatPtr(12.5)}, Options{})
	if err != nil {
		t.Fatalf("FromExternal() error = %v", err)
	}

	if res.Value != 12.5 {
		t.Errorf("Value = %f, want 12.5", res.Value)
	}
	if res.Unit != "hours" {
		t.Errorf("Unit = %q, want hours default", res.Unit)
	}
	if res.Confidence != 0.5 {
		t.Errorf("Confidence = %f, want 0.5 default", res.Confidence)
	}
	if res.ModelVersion != "unknown" {
		t.Errorf("ModelVersion = %q, want unknown default", res.ModelVersion)
	}
	if res.GeneratedAt.IsZero() {
		t.Error("GeneratedAt is zero, want receive time")
	}
	if res.Quality == QualityExcellent {
		t.Error("Quality = excellent, want degraded for defaulted fields")
	}
}

func TestTicketFromExternal_MissingPrediction(t *testing.T) {
	m := NewTicketMapper()
	_, err := m.FromExternal(ExternalResponse{Unit: "hours"}, Options{})

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
}

func TestTicketFromExternal_Factors(t *testing.T) {
	m := NewTicketMapper()
	resp := ExternalResponse{
		Model:        "ticket-resolution",
		Prediction:   floatPtr(8),
		Unit:         "hours",
		Confidence:   floatPtr(0.91),
		ModelVersion: "2026.08.1",
		GeneratedAt:  time.Now(),
		Factors: []Factor{
			{Name: "priority", Weight: 0.4},
			{Name: "backlog_depth", Weight: 0.3},
		},
	}
	res, err := m.FromExternal(resp, Options{})
	if err != nil {
		t.Fatalf("FromExternal() error = %v", err)
	}
	if len(res.Drivers) != 2 || res.Drivers[0] != "priority" {
		t.Errorf("Drivers = %v, want factor names in order", res.Drivers)
	}
	if res.Quality != QualityExcellent {
		t.Errorf("Quality = %q, want excellent for complete response", res.Quality)
	}
}

func TestInvoiceRoundTrip(t *testing.T) {
	m := NewInvoiceMapper()
	inv := Invoice{
		ID:                 "INV-2201",
		ClientID:           "C-7",
		Amount:             1899.50,
		Currency:           "EUR",
		IssuedAt:           time.Now().Add(-48 * time.Hour),
		DueAt:              time.Now().Add(28 * 24 * time.Hour),
		LineItemCount:      4,
		ClientPaymentScore: 0.82,
	}

	req, err := m.ToExternal(inv, Options{})
	if err != nil {
		t.Fatalf("ToExternal() error = %v", err)
	}
	terms, ok := req.Features["terms_days"].(float64)
	if !ok || terms < 29 || terms > 31 {
		t.Errorf("terms_days = %v, want ~30", req.Features["terms_days"])
	}

	res, err := m.FromExternal(ExternalResponse{
		Model:      "invoice-payment",
		Prediction: floatPtr(21),
		Confidence: floatPtr(0.7),
	}, Options{})
	if err != nil {
		t.Fatalf("FromExternal() error = %v", err)
	}
	if res.Unit != "days" {
		t.Errorf("Unit = %q, want days default", res.Unit)
	}
	if res.Model != ModelInvoicePayment {
		t.Errorf("Model = %v, want ModelInvoicePayment", res.Model)
	}
}

func TestInvoiceValidateExternal_ModelMismatch(t *testing.T) {
	m := NewInvoiceMapper()
	r := m.ValidateExternal(ExternalResponse{Model: "ticket-resolution", Prediction: floatPtr(3)})
	if r.IsValid {
		t.Error("IsValid = true for mismatched model, want false")
	}
}

func TestBudgetToExternal_Features(t *testing.T) {
	m := NewBudgetMapper()
	b := Budget{
		ID:          "B-9",
		ClientID:    "C-2",
		PeriodStart: time.Now().Add(-15 * 24 * time.Hour),
		PeriodEnd:   time.Now().Add(15 * 24 * time.Hour),
		Allocated:   50000,
		SpentToDate: 30000,
		Currency:    "USD",
		ByCategory:  map[string]float64{"labor": 22000, "hardware": 8000},
	}

	req, err := m.ToExternal(b, Options{})
	if err != nil {
		t.Fatalf("ToExternal() error = %v", err)
	}
	if got := req.Features["spent_fraction"]; got != 0.6 {
		t.Errorf("spent_fraction = %v, want 0.6", got)
	}
	frac, ok := req.Features["elapsed_fraction"].(float64)
	if !ok || frac < 0.45 || frac > 0.55 {
		t.Errorf("elapsed_fraction = %v, want ~0.5", req.Features["elapsed_fraction"])
	}
}

func TestBudgetValidate_Errors(t *testing.T) {
	m := NewBudgetMapper()

	r := m.ValidateInternal(Budget{ID: "B-1", ClientID: "C-1", Allocated: 0})
	if r.IsValid {
		t.Error("zero allocation accepted, want error")
	}

	if _, err := m.ToExternal(Budget{ID: "B-1"}, Options{}); err == nil {
		t.Error("ToExternal() error = nil for missing client id, want ValidationError")
	}

	// Overrun forecasts above 1.0 are legitimate.
	if r := m.ValidateExternal(ExternalResponse{Prediction: floatPtr(1.3)}); !r.IsValid {
		t.Errorf("forecast 1.3 rejected: %v", r.Errors)
	}
	if r := m.ValidateExternal(ExternalResponse{Prediction: floatPtr(-0.1)}); r.IsValid {
		t.Error("negative forecast accepted, want error")
	}
}

func TestCacheKey_DeterministicAndScoped(t *testing.T) {
	m := NewTicketMapper()
	tk := fullTicket()

	k1, err := m.CacheKey(tk, Options{TenantID: "acme"})
	if err != nil {
		t.Fatalf("CacheKey() error = %v", err)
	}
	k2, err := m.CacheKey(tk, Options{TenantID: "acme"})
	if err != nil {
		t.Fatalf("CacheKey() error = %v", err)
	}
	if k1 != k2 {
		t.Errorf("keys differ for identical input: %q vs %q", k1, k2)
	}
	if !strings.HasPrefix(k1, "predict:ticket-resolution:acme:") {
		t.Errorf("key = %q, want predict:ticket-resolution:acme: prefix", k1)
	}

	other, err := m.CacheKey(tk, Options{TenantID: "globex"})
	if err != nil {
		t.Fatalf("CacheKey() error = %v", err)
	}
	if other == k1 {
		t.Error("keys collide across tenants")
	}

	tk.ReopenCount++
	changed, err := m.CacheKey(tk, Options{TenantID: "acme"})
	if err != nil {
		t.Fatalf("CacheKey() error = %v", err)
	}
	if changed == k1 {
		t.Error("key unchanged after prediction-relevant field changed")
	}
}

func TestCanonicalize_MapOrderIndependent(t *testing.T) {
	a, err := canonicalize(map[string]any{"b": 2, "a": 1, "c": []any{"x", map[string]any{"k": true}}})
	if err != nil {
		t.Fatalf("canonicalize() error = %v", err)
	}
	want := `{"a":1,"b":2,"c":["x",{"k":true}]}`
	if a != want {
		t.Errorf("canonicalize = %s, want %s", a, want)
	}
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	for _, mt := range ModelTypes() {
		m, err := r.Lookup(mt)
		if err != nil {
			t.Errorf("Lookup(%v) error = %v", mt, err)
			continue
		}
		if m.Model() != mt {
			t.Errorf("Lookup(%v).Model() = %v", mt, m.Model())
		}
	}

	if _, err := NewRegistry().Lookup(ModelTicketResolution); err == nil {
		t.Error("empty registry Lookup() error = nil, want error")
	}
}

func TestWrongRecordType(t *testing.T) {
	m := NewInvoiceMapper()
	if _, err := m.ToExternal(Ticket{ID: "T-1", ClientID: "C-1"}, Options{}); err == nil {
		t.Error("ToExternal(Ticket) on invoice mapper succeeded, want error")
	}
	if _, err := m.CacheKey(42, Options{}); err == nil {
		t.Error("CacheKey(int) succeeded, want error")
	}
}
