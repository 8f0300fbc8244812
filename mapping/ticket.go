package mapping

import "time"

// Ticket is the internal service-desk ticket record used as input to the
// resolution-time model. ID and ClientID identify the record; everything
// else is optional and defaulted.
type Ticket struct {
	ID            string
	ClientID      string
	Title         string
	Priority      string // low, medium, high, urgent
	Category      string
	CreatedAt     time.Time
	Description   string
	AssigneeCount int
	ReopenCount   int
}

// Defaults for optional ticket fields.
const (
	defaultTicketPriority = "medium"
	defaultTicketCategory = "general"
)

// TicketMapper maps Ticket records to the ticket-resolution model.
type TicketMapper struct{}

// NewTicketMapper creates the mapper for the ticket-resolution model.
func NewTicketMapper() *TicketMapper { return &TicketMapper{} }

var _ Mapper = (*TicketMapper)(nil)

// Model returns ModelTicketResolution.
func (m *TicketMapper) Model() ModelType { return ModelTicketResolution }

// ValidateInternal checks a Ticket record. Missing identity fields are
// errors; missing optional fields are warnings that degrade quality.
func (m *TicketMapper) ValidateInternal(record any) MappingResult {
	t, ok := record.(Ticket)
	if !ok {
		return MappingResult{Errors: []string{"record is not a mapping.Ticket"}}.finalize()
	}

	var r MappingResult
	if t.ID == "" {
		r.Errors = append(r.Errors, "ticket id is required")
	}
	if t.ClientID == "" {
		r.Errors = append(r.Errors, "client id is required")
	}
	if t.Priority == "" {
		r.Warnings = append(r.Warnings, "priority missing, defaulting to medium")
	}
	if t.Category == "" {
		r.Warnings = append(r.Warnings, "category missing, defaulting to general")
	}
	if t.CreatedAt.IsZero() {
		r.Warnings = append(r.Warnings, "creation time missing, age feature omitted")
	}
	if t.Description == "" {
		r.Warnings = append(r.Warnings, "description missing, text features omitted")
	}
	return r.finalize()
}

// ToExternal builds the wire request for a Ticket. It fails only when a
// required identity field is absent.
func (m *TicketMapper) ToExternal(record any, opts Options) (ExternalRequest, error) {
	t, ok := record.(Ticket)
	if !ok {
		return ExternalRequest{}, wrongType(m.Model(), record)
	}
	validation := m.ValidateInternal(t)
	if !validation.IsValid {
		return ExternalRequest{}, &ValidationError{Model: m.Model(), Result: validation}
	}

	priority := t.Priority
	if priority == "" {
		priority = defaultTicketPriority
	}
	category := t.Category
	if category == "" {
		category = defaultTicketCategory
	}

	features := map[string]any{
		"ticket_id":          t.ID,
		"client_id":          t.ClientID,
		"priority":           priority,
		"category":           category,
		"description_length": len(t.Description),
		"assignee_count":     t.AssigneeCount,
		"reopen_count":       t.ReopenCount,
	}
	if !t.CreatedAt.IsZero() {
		features["age_hours"] = time.Since(t.CreatedAt).Hours()
	}

	return ExternalRequest{
		Model:    m.Model().String(),
		TenantID: opts.TenantID,
		Features: features,
	}, nil
}

// ValidateExternal checks the remote response for this model.
func (m *TicketMapper) ValidateExternal(resp ExternalResponse) MappingResult {
	r := validateExternal(m.Model(), resp)
	if resp.Prediction != nil && *resp.Prediction < 0 {
		r.Errors = append(r.Errors, "resolution time prediction is negative")
		r = r.finalize()
	}
	return r
}

// FromExternal normalizes the remote response into hours-to-resolution.
func (m *TicketMapper) FromExternal(resp ExternalResponse, opts Options) (InternalResult, error) {
	validation := m.ValidateExternal(resp)
	if !validation.IsValid {
		return InternalResult{}, &ValidationError{Model: m.Model(), Result: validation}
	}
	return normalize(m.Model(), resp, "hours", validation), nil
}

// CacheKey derives the time-bucketed key from the ticket's identity and
// the inputs that change its prediction.
func (m *TicketMapper) CacheKey(record any, opts Options) (string, error) {
	t, ok := record.(Ticket)
	if !ok {
		return "", wrongType(m.Model(), record)
	}
	return buildKey(m.Model(), opts, map[string]any{
		"ticket_id":    t.ID,
		"client_id":    t.ClientID,
		"priority":     t.Priority,
		"category":     t.Category,
		"reopen_count": t.ReopenCount,
	})
}
