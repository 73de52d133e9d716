package catalog

import (
	"strings"

	"github.com/assessment-engine/recommender/internal/search"
)

// Assessment is the canonical catalog schema. Optional fields default to their
// zero value: Duration 0 means the catalog gives no duration, and capability
// flags default to false.
type Assessment struct {
	Name          string `json:"name" yaml:"name" validate:"required,notblank"`
	URL           string `json:"url,omitempty" yaml:"url" validate:"omitempty,url"`
	Description   string `json:"description,omitempty" yaml:"description"`
	TestType      string `json:"test_type,omitempty" yaml:"test_type"`
	Duration      int    `json:"duration_minutes,omitempty" yaml:"duration_minutes" validate:"gte=0"`
	RemoteTesting bool   `json:"remote_testing_support" yaml:"remote_testing_support"`
	AdaptiveIRT   bool   `json:"adaptive_irt_support" yaml:"adaptive_irt_support"`
}

// CombinedText is the text indexed for an assessment.
func (a Assessment) CombinedText() string {
	return strings.TrimSpace(a.Name + " " + a.Description)
}

// Document maps the assessment onto the index schema.
func (a Assessment) Document() search.Document {
	return search.Document{
		Name:          a.Name,
		URL:           a.URL,
		TestType:      a.TestType,
		Duration:      a.Duration,
		RemoteTesting: a.RemoteTesting,
		AdaptiveIRT:   a.AdaptiveIRT,
		Text:          a.CombinedText(),
	}
}

// Rejected records why an input record was left out of the catalog.
type Rejected struct {
	Record int    // 1-based position among data records
	Reason string
}

// Catalog is the validated result of one ingestion. Warnings lists records
// that were kept after an unusable optional link was cleared.
type Catalog struct {
	Assessments []Assessment
	Skipped     []Rejected
	Warnings    []Rejected
}

// Documents returns the assessments as index documents, in catalog order.
func (c *Catalog) Documents() []search.Document {
	docs := make([]search.Document, len(c.Assessments))
	for i, a := range c.Assessments {
		docs[i] = a.Document()
	}
	return docs
}
