// Package types provides type definitions for the request/response contract of the
// email generation service.
package types

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Mode selects which job input the composer submits.
type Mode string

const (
	// ModeURL submits a job posting URL.
	ModeURL Mode = "url"
	// ModeDescription submits a pasted job description.
	ModeDescription Mode = "description"
)

// ParseMode converts a string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeURL:
		return ModeURL, nil
	case ModeDescription:
		return ModeDescription, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want %q or %q)", s, ModeURL, ModeDescription)
	}
}

// GenerationRequest is the body of POST /generate-emails.
// The interface is sealed: only URLRequest and DescriptionRequest implement it,
// so a request can never carry both inputs.
type GenerationRequest interface {
	Mode() Mode
	// Value returns the raw input of the active variant.
	Value() string
	isGenerationRequest()
}

// URLRequest asks the service to fetch and analyze a job posting URL.
type URLRequest struct {
	URL string `json:"url"`
}

// Mode implements GenerationRequest.
func (URLRequest) Mode() Mode { return ModeURL }

// Value implements GenerationRequest.
func (r URLRequest) Value() string { return r.URL }

func (URLRequest) isGenerationRequest() {}

// DescriptionRequest asks the service to analyze a pasted job description.
type DescriptionRequest struct {
	JobDescription string `json:"job_description"`
}

// Mode implements GenerationRequest.
func (DescriptionRequest) Mode() Mode { return ModeDescription }

// Value implements GenerationRequest.
func (r DescriptionRequest) Value() string { return r.JobDescription }

func (DescriptionRequest) isGenerationRequest() {}

// NewRequest builds the request variant for mode.
func NewRequest(mode Mode, value string) (GenerationRequest, error) {
	switch mode {
	case ModeURL:
		return URLRequest{URL: value}, nil
	case ModeDescription:
		return DescriptionRequest{JobDescription: value}, nil
	default:
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
}

// MarshalRequest encodes a request as its single-key JSON object.
func MarshalRequest(req GenerationRequest) ([]byte, error) {
	switch r := req.(type) {
	case URLRequest:
		return json.Marshal(r)
	case *URLRequest:
		return json.Marshal(*r)
	case DescriptionRequest:
		return json.Marshal(r)
	case *DescriptionRequest:
		return json.Marshal(*r)
	default:
		return nil, fmt.Errorf("unsupported request type %T", req)
	}
}

// GenerationResponse is the 2xx body of POST /generate-emails.
type GenerationResponse struct {
	Success   bool          `json:"success"`
	TotalJobs int           `json:"total_jobs" validate:"gte=0"`
	Message   string        `json:"message"`
	Emails    []EmailResult `json:"emails" validate:"dive"`
}

// Validate validates the GenerationResponse using the validator.
func (r *GenerationResponse) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// ErrorBody is the error payload returned with non-2xx statuses.
// Detail is usually a string; validation failures carry a list instead.
type ErrorBody struct {
	Detail json.RawMessage `json:"detail"`
}

// DetailMessage returns the detail as text, or "" when it is missing or not a string.
func (b ErrorBody) DetailMessage() string {
	if len(b.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(b.Detail, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// ServiceInfo is returned by GET / on the generation service.
type ServiceInfo struct {
	Message string `json:"message"`
	Version string `json:"version"`
	Usage   string `json:"usage"`
}
