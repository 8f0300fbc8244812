package fallback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mspops/predictgate/correlation"
)

// Category identifies one model/operation type with a registered fallback.
// The set of categories is closed: callers use the declared constants and
// verify registration at startup.
type Category string

// Known fallback categories, one per prediction model type.
const (
	CategoryTicketResolution Category = "ticket-resolution"
	CategoryInvoicePayment   Category = "invoice-payment"
	CategoryBudgetForecast   Category = "budget-forecast"
)

// Categories returns all known categories.
func Categories() []Category {
	return []Category{
		CategoryTicketResolution,
		CategoryInvoicePayment,
		CategoryBudgetForecast,
	}
}

// Entry is a degraded-but-usable substitute response served when the real
// call cannot be completed. IsFallback is always true.
type Entry struct {
	Category      Category  `json:"category"`
	Payload       any       `json:"payload"`
	IsFallback    bool      `json:"is_fallback"`
	Reason        string    `json:"reason"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	ServedAt      time.Time `json:"served_at"`
}

// ReasonUnregistered marks entries served for a category that was never
// registered. Absence of a fallback must surface explicitly, never
// silently.
const ReasonUnregistered = "no fallback configured for category"

// ErrUnregistered reports categories with no fallback payload at
// verification time.
type ErrUnregistered struct {
	Missing []Category
}

func (e *ErrUnregistered) Error() string {
	return fmt.Sprintf("fallback: no payload registered for categories %v", e.Missing)
}

// Provider holds a static-but-mutable fallback payload per category.
// Entries are created at startup, may be replaced at runtime (e.g.
// refreshed from a last-known-good response), and are never removed.
type Provider struct {
	mu      sync.RWMutex
	entries map[Category]registered
}

type registered struct {
	payload any
	reason  string
}

// NewProvider creates an empty fallback provider.
func NewProvider() *Provider {
	return &Provider{
		entries: make(map[Category]registered),
	}
}

// Set registers or replaces the fallback payload for a category.
// Idempotent per category.
func (p *Provider) Set(category Category, payload any) {
	p.SetWithReason(category, payload, "service temporarily unavailable, serving fallback")
}

// SetWithReason registers or replaces the fallback payload with a custom
// human-readable reason.
func (p *Provider) SetWithReason(category Category, payload any, reason string) {
	p.mu.Lock()
	p.entries[category] = registered{payload: payload, reason: reason}
	p.mu.Unlock()
}

// Get returns the fallback entry for the category, stamped with the
// correlation id from ctx and the current server time. It never fails: an
// unregistered category yields a generic entry whose reason names the gap
// explicitly.
func (p *Provider) Get(ctx context.Context, category Category) Entry {
	p.mu.RLock()
	reg, ok := p.entries[category]
	p.mu.RUnlock()

	entry := Entry{
		Category:      category,
		IsFallback:    true,
		CorrelationID: correlation.IDFromContext(ctx),
		ServedAt:      time.Now(),
	}

	if !ok {
		entry.Reason = ReasonUnregistered
		entry.Payload = map[string]any{
			"status": "service temporarily unavailable",
		}
		return entry
	}

	entry.Payload = reg.payload
	entry.Reason = reg.reason
	return entry
}

// Registered reports whether the category has a fallback payload.
func (p *Provider) Registered(category Category) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.entries[category]
	return ok
}

// VerifyRegistered checks at startup that every given category has a
// payload. It returns *ErrUnregistered naming the gaps.
func (p *Provider) VerifyRegistered(categories ...Category) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var missing []Category
	for _, c := range categories {
		if _, ok := p.entries[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &ErrUnregistered{Missing: missing}
	}
	return nil
}
