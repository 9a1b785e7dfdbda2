package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/ppiankov/wikicite/internal/model"
)

// Provider defines the interface for claim judges
type Provider interface {
	// Name returns the provider name
	Name() string

	// Judge decides how well SourceText supports Claim
	Judge(ctx context.Context, req JudgeRequest) (*model.Verdict, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// JudgeRequest contains one claim and the source text it cites
type JudgeRequest struct {
	Claim      string
	SourceText string

	// Model overrides the configured model
	Model string
}

// Judge errors
var (
	ErrNoProvider          = errors.New("no LLM provider configured")
	ErrMissingAPIKey       = errors.New("API key is required")
	ErrInvalidAPIKey       = errors.New("API key is invalid")
	ErrRateLimited         = errors.New("rate limit exceeded")
	ErrUnparseableResponse = errors.New("failed to parse judge response")
	ErrEmptyResponse       = errors.New("empty judge response")
)

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "publicai", "anthropic", "claude", "ollama"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for hosted providers
	APIKey string

	// BaseURL for custom endpoints
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	// Temperature is passed through when positive
	Temperature float64

	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:    "openai",
		Timeout:     60,
		MaxTokens:   defaultMaxTokens,
		Temperature: 0.7,
	}
}

const defaultMaxTokens = 1024

const noExcerpt = "No relevant excerpt found"

// BuildPrompt constructs the verification prompt for one claim
func BuildPrompt(claim, sourceText string) string {
	return fmt.Sprintf(`You are a fact-checking assistant. Your task is to verify if a claim from a Wikipedia article is supported by a source text.

CRITICAL: Distinguish between definitive statements and uncertain/hedged language. Claims stated as facts require sources that make definitive statements, not speculation or tentative assertions.

EXAMPLES:

Claim: "The battle occurred on June 15, 1944"
Source: "The battle took place on June 15, 1944"
Result: confidence: 95, supportStatus: "supported" (definitive match)

Claim: "The treaty was signed in Paris"
Source: "It is believed the treaty was signed in Paris, though some historians dispute this"
Result: confidence: 60, supportStatus: "partially_supported" (uncertainty and dispute)

Claim: "The president resigned on March 3"
Source: "The president remained in office throughout March"
Result: confidence: 5, supportStatus: "not_supported" (contradicts claim)

CLAIM from Wikipedia:
"%s"

SOURCE TEXT:
%s

Analyze whether the source text supports this claim. Provide:
1. A confidence score (0-100) indicating how well the source supports the claim
2. The specific excerpt from the source that is most relevant to the claim
3. Brief reasoning for your confidence score
4. A status: "supported" (80%%+), "partially_supported" (50-79%%), or "not_supported" (<50%%)

Respond ONLY with valid JSON (no markdown code blocks):
{
  "confidence": <number 0-100>,
  "relevantExcerpt": "<exact quote from source>",
  "reasoning": "<brief explanation>",
  "supportStatus": "<supported|partially_supported|not_supported>"
}`, claim, sourceText)
}

type rawVerdict struct {
	Confidence      json.RawMessage `json:"confidence"`
	RelevantExcerpt string          `json:"relevantExcerpt"`
	Reasoning       string          `json:"reasoning"`
	SupportStatus   string          `json:"supportStatus"`
}

// ParseVerdict reads the JSON object embedded in a model response. The
// object may be wrapped in prose or a code fence. Confidence is clamped to
// 0-100; a missing or unknown status is derived from confidence.
func ParseVerdict(text string) (*model.Verdict, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, ErrUnparseableResponse
	}

	var raw rawVerdict
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnparseableResponse, err)
	}

	confidence := clampConfidence(parseConfidence(raw.Confidence))

	status := model.SupportStatus(strings.ToLower(strings.TrimSpace(raw.SupportStatus)))
	if !status.Valid() {
		status = model.StatusForConfidence(confidence)
	}

	excerpt := strings.TrimSpace(raw.RelevantExcerpt)
	if excerpt == "" {
		excerpt = noExcerpt
	}

	return &model.Verdict{
		Confidence:      confidence,
		SupportStatus:   status,
		RelevantExcerpt: excerpt,
		Reasoning:       strings.TrimSpace(raw.Reasoning),
	}, nil
}

// parseConfidence accepts a number or a numeric string such as "85" or "85%"
func parseConfidence(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(s), "%"), 64); err == nil {
			return v
		}
	}
	return 0
}

func clampConfidence(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 100:
		return 100
	default:
		return c
	}
}

// classifyStatus maps well-known API status codes to judge errors
func classifyStatus(provider string, status int, err error) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%s: %w", provider, ErrInvalidAPIKey)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w", provider, ErrRateLimited)
	default:
		return fmt.Errorf("%s API error: %w", provider, err)
	}
}
