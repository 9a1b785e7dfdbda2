package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ppiankov/wikicite/internal/model"
)

// Cataloger builds the footnote catalog of one article URL
type Cataloger interface {
	Catalog(ctx context.Context, articleURL string) (*model.ArticleCatalog, error)
}

// CatalogJob represents one article to catalog
type CatalogJob struct {
	Index     int
	URL       string
	Cataloger Cataloger
	Limiter   *Limiter
}

// Execute executes the catalog job
func (j *CatalogJob) Execute(ctx context.Context) Result {
	if j.Limiter != nil {
		if err := j.Limiter.Wait(ctx, j.URL); err != nil {
			return &CatalogResult{Index: j.Index, URL: j.URL, Error: fmt.Errorf("rate limit: %w", err)}
		}
	}

	catalog, err := j.Cataloger.Catalog(ctx, j.URL)
	if err != nil {
		return &CatalogResult{Index: j.Index, URL: j.URL, Error: err}
	}
	return &CatalogResult{Index: j.Index, URL: j.URL, Catalog: catalog}
}

// CatalogResult represents the result of a catalog job
type CatalogResult struct {
	Index   int
	URL     string
	Catalog *model.ArticleCatalog
	Error   error
}

// GetError returns the error from the catalog result
func (r *CatalogResult) GetError() error {
	return r.Error
}

// BatchProcessor catalogs multiple articles concurrently
type BatchProcessor struct {
	cataloger   Cataloger
	concurrency int
	limiter     *Limiter
}

// NewBatchProcessor creates a new batch processor. A non-positive
// requestsPerSecond disables per-host rate limiting.
func NewBatchProcessor(cataloger Cataloger, concurrency int, requestsPerSecond float64, burst int) *BatchProcessor {
	b := &BatchProcessor{
		cataloger:   cataloger,
		concurrency: concurrency,
	}
	if requestsPerSecond > 0 {
		b.limiter = NewLimiter(requestsPerSecond, burst)
	}
	return b
}

// ProcessURLs catalogs the URLs concurrently. Results follow input order.
func (b *BatchProcessor) ProcessURLs(ctx context.Context, urls []string) []*CatalogResult {
	if len(urls) == 0 {
		return []*CatalogResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for i, url := range urls {
		pool.Submit(&CatalogJob{
			Index:     i,
			URL:       url,
			Cataloger: b.cataloger,
			Limiter:   b.limiter,
		})
	}

	results := pool.Wait()

	catalogResults := make([]*CatalogResult, 0, len(results))
	for _, result := range results {
		catalogResults = append(catalogResults, result.(*CatalogResult))
	}
	sort.Slice(catalogResults, func(i, j int) bool {
		return catalogResults[i].Index < catalogResults[j].Index
	})

	return catalogResults
}

// ProcessFile reads URLs from a file and catalogs them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*CatalogResult, error) {
	urls, err := ReadURLsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read URLs: %w", err)
	}

	return b.ProcessURLs(ctx, urls), nil
}

// ReadURLsFromFile reads URLs from a file (one per line)
func ReadURLsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var urls []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			urls = append(urls, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return urls, nil
}
