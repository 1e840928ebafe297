// Package payload applies payload suggestions at injection points inside an
// HTTP request and produces an audit record for every attempt.
package payload

import (
	"time"

	"github.com/0x6d61/sqlistudio/internal/request"
)

// Location identifies where an injection point lives in a request.
type Location string

const (
	LocationURLParameter Location = "url_parameter"
	LocationJSONBody     Location = "json_body"
	LocationFormData     Location = "form_data"
	LocationHeader       Location = "header"
)

// Locations returns every supported location.
func Locations() []Location {
	return []Location{LocationURLParameter, LocationJSONBody, LocationFormData, LocationHeader}
}

// Valid reports whether l is one of the supported locations.
func (l Location) Valid() bool {
	switch l {
	case LocationURLParameter, LocationJSONBody, LocationFormData, LocationHeader:
		return true
	}
	return false
}

// Label returns the human-readable name used in previews.
func (l Location) Label() string {
	switch l {
	case LocationURLParameter:
		return "URL parameter"
	case LocationJSONBody:
		return "JSON parameter"
	case LocationFormData:
		return "Form parameter"
	case LocationHeader:
		return "Header"
	}
	return string(l)
}

// Method is the strategy for combining a payload with an existing value.
type Method string

const (
	MethodReplace Method = "replace"
	MethodAppend  Method = "append"
	MethodPrepend Method = "prepend"
)

// Resolve maps empty or unknown methods to MethodReplace.
func (m Method) Resolve() Method {
	switch m {
	case MethodAppend, MethodPrepend:
		return m
	}
	return MethodReplace
}

// Combine returns the new value for original under method m.
func (m Method) Combine(original, payload string) string {
	switch m.Resolve() {
	case MethodAppend:
		return original + payload
	case MethodPrepend:
		return payload + original
	}
	return payload
}

// RiskLevel is advisory metadata attached to suggestions and points.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Position carries the analysis service's raw description of where a
// point was found. It is informational only.
type Position struct {
	Type           string `json:"type"`
	ParameterName  string `json:"parameter_name,omitempty"`
	ParameterIndex *int   `json:"parameter_index,omitempty"`
	Key            string `json:"key,omitempty"`
	HeaderName     string `json:"header_name,omitempty"`
}

// InjectionPoint identifies one mutable slot inside a request.
type InjectionPoint struct {
	Location Location `json:"location"`

	// Parameter is a query/form field name, a header name, or a dotted
	// JSON path depending on Location.
	Parameter string `json:"parameter"`

	// Value is the value observed when the point was discovered. It is
	// advisory; the engine always reads the current request.
	Value string `json:"value"`

	RiskLevel RiskLevel `json:"risk_level,omitempty"`
	Position  *Position `json:"position,omitempty"`
}

// Suggestion is a candidate payload produced by the analysis service.
// Only Payload and ApplicationMethod affect how it is applied.
type Suggestion struct {
	Payload           string          `json:"payload"`
	ApplicationMethod Method          `json:"application_method,omitempty"`
	Type              string          `json:"type,omitempty"`
	RiskLevel         RiskLevel       `json:"risk_level,omitempty"`
	Description       string          `json:"description,omitempty"`
	ApplicablePoints  []string        `json:"applicable_points,omitempty"`
	TargetParameter   string          `json:"target_parameter,omitempty"`
	InjectionPoint    *InjectionPoint `json:"injection_point,omitempty"`
	ExpectedResult    string          `json:"expected_result,omitempty"`
	Source            string          `json:"source,omitempty"`
}

// Application is the audit record of one apply attempt. It is created once
// per Engine.Apply call and never modified afterwards.
type Application struct {
	ID             string         `json:"id"`
	Suggestion     Suggestion     `json:"payload"`
	InjectionPoint InjectionPoint `json:"injection_point"`
	AppliedAt      time.Time      `json:"applied_at"`
	OriginalValue  string         `json:"original_value"`
	ModifiedValue  string         `json:"modified_value"`
	Success        bool           `json:"success"`
	Error          string         `json:"error,omitempty"`
}

// Result is returned by Engine.Apply. ModifiedRequest is always a value
// independent of the input request; on failure it equals the input.
type Result struct {
	Success         bool                `json:"success"`
	ModifiedRequest request.HTTPRequest `json:"modified_request"`
	Applied         Application         `json:"applied_payload"`
	Preview         string              `json:"preview,omitempty"`
	Error           string              `json:"error,omitempty"`
}
