package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// NotSpecified is the sentinel the service uses for absent optional fields.
const NotSpecified = "Not specified"

// Specified reports whether an optional field carries a real value.
func Specified(value string) bool {
	v := strings.TrimSpace(value)
	return v != "" && v != NotSpecified
}

// EmailResult is one generated email plus the job metadata it was derived from.
type EmailResult struct {
	JobTitle         string           `json:"job_title"`
	Location         string           `json:"location,omitempty"`
	ExperienceLevel  string           `json:"experience_level,omitempty"`
	WorkType         string           `json:"work_type,omitempty"`
	JobDescription   string           `json:"job_description,omitempty"`
	RequiredSkills   []string         `json:"required_skills,omitempty"`
	PortfolioMatches PortfolioMatches `json:"portfolio_matches,omitempty"`
	EmailContent     string           `json:"email_content"`
}

// HasLocation reports whether the location is specified.
func (e EmailResult) HasLocation() bool { return Specified(e.Location) }

// HasExperienceLevel reports whether the experience level is specified.
func (e EmailResult) HasExperienceLevel() bool { return Specified(e.ExperienceLevel) }

// HasWorkType reports whether the work type is specified.
func (e EmailResult) HasWorkType() bool { return Specified(e.WorkType) }

// HasJobDescription reports whether a job description is attached.
func (e EmailResult) HasJobDescription() bool { return Specified(e.JobDescription) }

// PortfolioMatches is the list of portfolio links matched to a job.
//
// The service returns these either as plain strings or as vector store metadata
// ({"links": "..."}), sometimes nested one list per queried skill. All shapes are
// flattened into strings.
type PortfolioMatches []string

// UnmarshalJSON implements json.Unmarshaler.
func (m *PortfolioMatches) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = nil
		return nil
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("portfolio_matches: %w", err)
	}
	out := make([]string, 0)
	flattenMatches(raw, &out)
	*m = out
	return nil
}

func flattenMatches(v any, out *[]string) {
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			*out = append(*out, s)
		}
	case []any:
		for _, item := range t {
			flattenMatches(item, out)
		}
	case map[string]any:
		for _, key := range []string{"links", "link", "url"} {
			if s, ok := t[key].(string); ok && strings.TrimSpace(s) != "" {
				*out = append(*out, strings.TrimSpace(s))
				return
			}
		}
	}
}
