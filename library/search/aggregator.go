// Package search aggregates IIIF content search responses into snippets.
package search

import (
	"context"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"

	"github.com/Laisky/tamerlane/library/iiif"
	appLog "github.com/Laisky/tamerlane/library/log"
	"github.com/Laisky/tamerlane/library/resource"
)

// DefaultMaxPages bounds pagination when no limit is configured.
const DefaultMaxPages = 10

// Fetcher retrieves a IIIF document and reports its declared kind.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*resource.Resource, error)
}

// AggregatorOption customises an Aggregator during construction.
type AggregatorOption func(*Aggregator)

// WithLogger overrides the fallback logger used when no contextual logger is available.
func WithLogger(logger logSDK.Logger) AggregatorOption {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithMaxPages limits how many pages one search may fetch. Values below 1 are ignored.
func WithMaxPages(pages int) AggregatorOption {
	return func(a *Aggregator) {
		if pages > 0 {
			a.maxPages = pages
		}
	}
}

// Aggregator follows the pages of a content search response and collects its text matches.
type Aggregator struct {
	fetcher  Fetcher
	maxPages int
	logger   logSDK.Logger
}

// NewAggregator constructs an Aggregator reading pages through fetcher.
func NewAggregator(fetcher Fetcher, opts ...AggregatorOption) (*Aggregator, error) {
	if fetcher == nil {
		return nil, errors.New("search aggregator requires a fetcher")
	}

	a := &Aggregator{
		fetcher:  fetcher,
		maxPages: DefaultMaxPages,
		logger:   appLog.Logger.Named("search_aggregator"),
	}
	for _, opt := range opts {
		opt(a)
	}

	return a, nil
}

// MaxPages returns the page limit of one search.
func (a *Aggregator) MaxPages() int {
	return a.maxPages
}

// SearchAnnotations fetches the search response at url and every following page, up to
// the page limit, and returns their snippets in page then item order.
//
// A page whose declared type is not AnnotationPage aborts the search with a
// *resource.ResourceError. Reaching the page limit is not an error.
func (a *Aggregator) SearchAnnotations(ctx context.Context, url string) ([]Snippet, error) {
	logger := appLog.FromContext(ctx, a.logger, "search_aggregator").
		With(zap.String("url", url))

	var (
		snippets []Snippet
		pages    int
		next     = url
	)
	for next != "" && pages < a.maxPages {
		pageURL := next
		res, err := a.fetcher.Fetch(ctx, pageURL)
		pages++
		if err != nil {
			return nil, errors.WithStack(err)
		}
		if res == nil || res.Kind != iiif.KindAnnotationPage {
			return nil, resource.NewResourceError(pageURL)
		}

		page, err := iiif.ParseAnnotationPage(res.Data)
		if err != nil {
			return nil, errors.Wrapf(err, "parse annotation page %q", pageURL)
		}

		found := pageSnippets(page)
		snippets = append(snippets, found...)
		next = page.Next()

		logger.Debug("fetched search page",
			zap.String("page", pageURL),
			zap.Int("page_no", pages),
			zap.Int("snippets", len(found)),
		)
	}

	logger.Info("search completed",
		zap.Int("pages", pages),
		zap.Int("snippets", len(snippets)),
		zap.Bool("truncated", next != ""),
	)
	return snippets, nil
}

// Autocomplete fetches the completions at url, an autocomplete service endpoint with its query.
// A response whose declared type is not a term page yields a *resource.ResourceError.
func (a *Aggregator) Autocomplete(ctx context.Context, url string) ([]iiif.Term, error) {
	logger := appLog.FromContext(ctx, a.logger, "search_aggregator").
		With(zap.String("url", url))

	res, err := a.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if res == nil || res.Kind != iiif.KindTermPage {
		return nil, resource.NewResourceError(url)
	}

	terms, err := iiif.ParseTermPage(res.Data)
	if err != nil {
		return nil, errors.Wrapf(err, "parse term page %q", url)
	}

	logger.Debug("autocomplete", zap.Int("terms", len(terms)))
	return terms, nil
}

// pageSnippets walks the top-level entries of a page and, for each entry,
// the nested match annotations that belong to it.
func pageSnippets(page *iiif.AnnotationPage) []Snippet {
	entries := page.Items()
	nested := page.NestedPages()
	bySource := groupBySource(nested)
	partOf := page.PartOf()

	var snippets []Snippet
	for idx, entry := range entries {
		for _, item := range matchesFor(entry, idx, nested, bySource) {
			quote, ok := item.TextQuote()
			if !ok {
				continue
			}

			annotationID := item.TargetSource()
			if annotationID == "" {
				annotationID = entry.TargetID()
			}
			language := quote.Language
			if language == "" {
				language = item.Language()
			}

			snippets = append(snippets, Snippet{
				ID:           item.ID(),
				AnnotationID: annotationID,
				Motivation:   item.Motivation(),
				Prefix:       quote.Prefix,
				Exact:        quote.Exact,
				Suffix:       quote.Suffix,
				CanvasTarget: entry.TargetID(),
				PartOf:       partOf,
				Language:     language,
			})
		}
	}

	return snippets
}

// groupBySource indexes nested match annotations by the entry they point at.
// It returns nil when no nested annotation declares a source.
func groupBySource(nested []*iiif.AnnotationPage) map[string][]iiif.Annotation {
	var grouped map[string][]iiif.Annotation
	for _, sub := range nested {
		for _, item := range sub.Items() {
			src := item.TargetSource()
			if src == "" {
				continue
			}
			if grouped == nil {
				grouped = map[string][]iiif.Annotation{}
			}
			grouped[src] = append(grouped[src], item)
		}
	}

	return grouped
}

// matchesFor returns the nested annotations of entry: those whose target source is the
// entry id, or, for responses that do not link matches by source, the nested page at the
// entry's position.
func matchesFor(entry iiif.Annotation, idx int,
	nested []*iiif.AnnotationPage, bySource map[string][]iiif.Annotation) []iiif.Annotation {
	if bySource != nil {
		return bySource[entry.ID()]
	}
	if idx < len(nested) {
		return nested[idx].Items()
	}

	return nil
}
