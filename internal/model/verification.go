package model

import "time"

// SupportStatus classifies how well a source supports a claim
type SupportStatus string

const (
	StatusSupported          SupportStatus = "supported"
	StatusPartiallySupported SupportStatus = "partially_supported"
	StatusNotSupported       SupportStatus = "not_supported"
)

// Valid reports whether s is one of the known statuses
func (s SupportStatus) Valid() bool {
	switch s {
	case StatusSupported, StatusPartiallySupported, StatusNotSupported:
		return true
	default:
		return false
	}
}

// StatusForConfidence maps a 0-100 confidence score to a status:
// 80 and above is supported, 50 and above partially supported.
func StatusForConfidence(confidence float64) SupportStatus {
	switch {
	case confidence >= 80:
		return StatusSupported
	case confidence >= 50:
		return StatusPartiallySupported
	default:
		return StatusNotSupported
	}
}

// Verdict is the judge's assessment of one claim against one source text
type Verdict struct {
	Confidence      float64       `json:"confidence" yaml:"confidence"`
	SupportStatus   SupportStatus `json:"supportStatus" yaml:"supportStatus"`
	RelevantExcerpt string        `json:"relevantExcerpt" yaml:"relevantExcerpt"`
	Reasoning       string        `json:"reasoning" yaml:"reasoning"`
}

// CitationResult is the verdict for one citation instance
type CitationResult struct {
	ID             int           `json:"id" yaml:"id"`
	WikipediaClaim string        `json:"wikipediaClaim" yaml:"wikipediaClaim"`
	SourceExcerpt  string        `json:"sourceExcerpt" yaml:"sourceExcerpt"`
	Confidence     float64       `json:"confidence" yaml:"confidence"`
	SupportStatus  SupportStatus `json:"supportStatus" yaml:"supportStatus"`
	Reasoning      string        `json:"reasoning" yaml:"reasoning"`
}

// VerifyRequest asks for every use of one footnote to be checked
type VerifyRequest struct {
	ArticleURL string
	// FootnoteID is the string form from the reference catalog.
	FootnoteID string
	// FullMarkup is required for unnamed refs.
	FullMarkup string
	// SourceText skips the automatic source fetch when set.
	SourceText string
	Provider   string
}

// VerifyResponse is the outcome of a verification request
type VerifyResponse struct {
	Results                    []CitationResult `json:"results" yaml:"results"`
	SourceIdentifier           string           `json:"sourceIdentifier" yaml:"sourceIdentifier"`
	SourceURL                  string           `json:"sourceUrl,omitempty" yaml:"sourceUrl,omitempty"`
	SourceFetchedAutomatically bool             `json:"sourceFetchedAutomatically" yaml:"sourceFetchedAutomatically"`
}

// VerificationCheck is one stored verification run
type VerificationCheck struct {
	ID           int64            `json:"id" yaml:"id"`
	WikipediaURL string           `json:"wikipediaUrl" yaml:"wikipediaUrl"`
	RefTagName   string           `json:"refTagName" yaml:"refTagName"`
	SourceText   string           `json:"-" yaml:"-"`
	SourceURL    string           `json:"sourceUrl,omitempty" yaml:"sourceUrl,omitempty"`
	AIProvider   string           `json:"aiProvider" yaml:"aiProvider"`
	CreatedAt    time.Time        `json:"createdAt" yaml:"createdAt"`
	Results      []CitationResult `json:"results,omitempty" yaml:"results,omitempty"`
}
