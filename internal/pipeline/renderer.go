package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/wikicite/internal/model"
	"github.com/ppiankov/wikicite/internal/wikitext"
)

// Output formats
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

const rule = "═══════════════════════════════════════════════════════════"

// Renderer writes command results in the configured format
type Renderer struct {
	out    io.Writer
	format string
}

// NewRenderer creates a renderer. Unknown formats fall back to table.
func NewRenderer(out io.Writer, format string) *Renderer {
	switch strings.ToLower(format) {
	case FormatJSON, FormatYAML:
		format = strings.ToLower(format)
	default:
		format = FormatTable
	}
	return &Renderer{out: out, format: format}
}

// ValidFormat reports whether format is a known output format
func ValidFormat(format string) bool {
	switch strings.ToLower(format) {
	case FormatTable, FormatJSON, FormatYAML:
		return true
	default:
		return false
	}
}

func (r *Renderer) structured(v any) (bool, error) {
	switch r.format {
	case FormatJSON:
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(r.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, err
		}
		return true, enc.Close()
	default:
		return false, nil
	}
}

// Catalog renders an article's reference catalog
func (r *Renderer) Catalog(c *model.ArticleCatalog) error {
	if ok, err := r.structured(c); ok {
		return err
	}

	fmt.Fprintln(r.out, rule)
	fmt.Fprintf(r.out, "  %s (%d references)\n", c.Article.Title, len(c.References))
	fmt.Fprintln(r.out, rule)

	tw := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tURL\tPREVIEW")
	for _, ref := range c.References {
		url := "-"
		if ref.HasURL {
			url = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", oneLine(ref.ID.String(), 40), ref.Kind, url, oneLine(ref.Preview, 70))
	}
	return tw.Flush()
}

type claimsOutput struct {
	Footnote  string                      `json:"footnote" yaml:"footnote"`
	Instances []wikitext.CitationInstance `json:"instances" yaml:"instances"`
}

// Claims renders the resolved claims of one footnote
func (r *Renderer) Claims(footnote string, instances []wikitext.CitationInstance) error {
	if instances == nil {
		instances = []wikitext.CitationInstance{}
	}
	if ok, err := r.structured(claimsOutput{Footnote: footnote, Instances: instances}); ok {
		return err
	}

	if len(instances) == 0 {
		fmt.Fprintf(r.out, "No claims found for %q\n", footnote)
		return nil
	}
	for i, inst := range instances {
		fmt.Fprintf(r.out, "[%d] %s\n", i+1, inst.Claim)
		if inst.ContextBefore != "" {
			fmt.Fprintf(r.out, "    before: %s\n", oneLine(inst.ContextBefore, 100))
		}
		if inst.ContextAfter != "" {
			fmt.Fprintf(r.out, "    after:  %s\n", oneLine(inst.ContextAfter, 100))
		}
	}
	return nil
}

// Verification renders the verdicts of one verification run
func (r *Renderer) Verification(resp *model.VerifyResponse) error {
	if ok, err := r.structured(resp); ok {
		return err
	}

	fmt.Fprintln(r.out, rule)
	fmt.Fprintf(r.out, "  Verification Results for %q\n", resp.SourceIdentifier)
	fmt.Fprintln(r.out, rule)
	if resp.SourceURL != "" {
		fmt.Fprintf(r.out, "Source: %s", resp.SourceURL)
		if resp.SourceFetchedAutomatically {
			fmt.Fprint(r.out, " (fetched automatically)")
		}
		fmt.Fprintln(r.out)
	}
	if len(resp.Results) == 0 {
		fmt.Fprintf(r.out, "Could not find any citations matching %q in the article.\n", resp.SourceIdentifier)
		return nil
	}

	for _, res := range resp.Results {
		fmt.Fprintln(r.out)
		fmt.Fprintf(r.out, "%s [%d] %s (%.0f%%)\n", statusMark(res.SupportStatus), res.ID, res.SupportStatus, res.Confidence)
		fmt.Fprintf(r.out, "  Claim:     %s\n", res.WikipediaClaim)
		fmt.Fprintf(r.out, "  Excerpt:   %s\n", oneLine(res.SourceExcerpt, 200))
		if res.Reasoning != "" {
			fmt.Fprintf(r.out, "  Reasoning: %s\n", res.Reasoning)
		}
	}
	return nil
}

// History renders stored verification checks
func (r *Renderer) History(checks []model.VerificationCheck) error {
	if checks == nil {
		checks = []model.VerificationCheck{}
	}
	if ok, err := r.structured(checks); ok {
		return err
	}
	if len(checks) == 0 {
		fmt.Fprintln(r.out, "No verification history.")
		return nil
	}

	tw := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tWHEN\tFOOTNOTE\tPROVIDER\tSUPPORTED\tPARTIAL\tNOT")
	for _, c := range checks {
		var sup, part, not int
		for _, res := range c.Results {
			switch res.SupportStatus {
			case model.StatusSupported:
				sup++
			case model.StatusPartiallySupported:
				part++
			default:
				not++
			}
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\t%d\n",
			c.ID, c.CreatedAt.Local().Format("2006-01-02 15:04"), oneLine(c.RefTagName, 40), c.AIProvider, sup, part, not)
	}
	return tw.Flush()
}

// WriteJSONFile writes v as indented JSON, creating parent directories
func WriteJSONFile(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func statusMark(s model.SupportStatus) string {
	switch s {
	case model.StatusSupported:
		return "✓"
	case model.StatusPartiallySupported:
		return "~"
	default:
		return "✗"
	}
}

// oneLine collapses whitespace and truncates to n runes
func oneLine(s string, n int) string {
	s = collapseWhitespace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
