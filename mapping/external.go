package mapping

import "time"

// ExternalRequest is the wire request shape of the prediction service.
// Features carry the model inputs; Parameters carry per-call tuning knobs.
type ExternalRequest struct {
	Model         string         `json:"model"`
	TenantID      string         `json:"tenant_id,omitempty"`
	Features      map[string]any `json:"features"`
	Parameters    map[string]any `json:"parameters,omitempty"`
	CorrelationID string         `json:"correlation_id,omitempty"`
}

// Factor is one contributing driver named by the prediction service.
type Factor struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

// ExternalResponse is the wire response shape of the prediction service.
// Every field other than Prediction is optional on the wire; mappers
// substitute defaults rather than reject partial responses.
type ExternalResponse struct {
	Model        string    `json:"model,omitempty"`
	Prediction   *float64  `json:"prediction"`
	Unit         string    `json:"unit,omitempty"`
	Confidence   *float64  `json:"confidence,omitempty"`
	Factors      []Factor  `json:"factors,omitempty"`
	ModelVersion string    `json:"model_version,omitempty"`
	GeneratedAt  time.Time `json:"generated_at,omitempty"`
}

// InternalResult is the normalized prediction handed back to business
// code, independent of the external wire schema.
type InternalResult struct {
	Model        ModelType   `json:"-"`
	ModelName    string      `json:"model"`
	Value        float64     `json:"value"`
	Unit         string      `json:"unit"`
	Confidence   float64     `json:"confidence"`
	Drivers      []string    `json:"drivers,omitempty"`
	ModelVersion string      `json:"model_version"`
	GeneratedAt  time.Time   `json:"generated_at"`
	Quality      DataQuality `json:"data_quality"`
}

// Defaults substituted by FromExternal when the remote response omits an
// optional field.
const (
	defaultConfidence   = 0.5
	defaultModelVersion = "unknown"
)

// normalize fills InternalResult fields that the external response left
// empty. validation carries the warnings collected by ValidateExternal so
// the result's quality grade reflects how much was defaulted.
func normalize(m ModelType, resp ExternalResponse, defaultUnit string, validation MappingResult) InternalResult {
	res := InternalResult{
		Model:        m,
		ModelName:    m.String(),
		Unit:         resp.Unit,
		ModelVersion: resp.ModelVersion,
		GeneratedAt:  resp.GeneratedAt,
		Quality:      validation.DataQuality,
	}
	if resp.Prediction != nil {
		res.Value = *resp.Prediction
	}
	if resp.Confidence != nil {
		res.Confidence = *resp.Confidence
	} else {
		res.Confidence = defaultConfidence
	}
	if res.Unit == "" {
		res.Unit = defaultUnit
	}
	if res.ModelVersion == "" {
		res.ModelVersion = defaultModelVersion
	}
	if res.GeneratedAt.IsZero() {
		res.GeneratedAt = time.Now().UTC()
	}
	for _, f := range resp.Factors {
		if f.Name != "" {
			res.Drivers = append(res.Drivers, f.Name)
		}
	}
	return res
}

// validateExternal applies the checks shared by all models. A missing
// prediction is an error; everything else only degrades quality.
func validateExternal(m ModelType, resp ExternalResponse) MappingResult {
	var r MappingResult
	if resp.Prediction == nil {
		r.Errors = append(r.Errors, "response missing prediction value")
	}
	if resp.Model != "" && resp.Model != m.String() {
		r.Errors = append(r.Errors, "response model "+resp.Model+" does not match requested "+m.String())
	}
	if resp.Confidence == nil {
		r.Warnings = append(r.Warnings, "confidence missing, defaulting to 0.5")
	} else if *resp.Confidence < 0 || *resp.Confidence > 1 {
		r.Errors = append(r.Errors, "confidence out of [0,1] range")
	}
	if resp.Unit == "" {
		r.Warnings = append(r.Warnings, "unit missing, defaulting")
	}
	if resp.ModelVersion == "" {
		r.Warnings = append(r.Warnings, "model version missing")
	}
	if resp.GeneratedAt.IsZero() {
		r.Warnings = append(r.Warnings, "generation timestamp missing, using receive time")
	}
	return r.finalize()
}
