package cmd

import (
	"github.com/Laisky/errors/v2"

	"github.com/Laisky/tamerlane/internal/viewer"
	"github.com/Laisky/tamerlane/library/config"
	"github.com/Laisky/tamerlane/library/log"
	"github.com/Laisky/tamerlane/library/resource"
	"github.com/Laisky/tamerlane/library/search"
)

// newFetcher builds the IIIF fetcher from the loaded settings.
func newFetcher() (*resource.Fetcher, error) {
	fetcher, err := resource.NewFetcher(
		resource.WithTimeout(config.HTTPTimeout()),
		resource.WithUserAgent(config.UserAgent()),
		resource.WithLogger(log.Logger.Named("resource_fetcher")),
	)
	if err != nil {
		return nil, errors.Wrap(err, "new resource fetcher")
	}

	return fetcher, nil
}

// newAggregator builds a search aggregator on top of fetcher.
func newAggregator(fetcher search.Fetcher) (*search.Aggregator, error) {
	agg, err := search.NewAggregator(fetcher,
		search.WithMaxPages(config.MaxSearchPages()),
		search.WithLogger(log.Logger.Named("search_aggregator")),
	)
	if err != nil {
		return nil, errors.Wrap(err, "new search aggregator")
	}

	return agg, nil
}

// newSession wires a viewer store with its fetcher, loader and aggregator.
func newSession() (*viewer.Store, error) {
	fetcher, err := newFetcher()
	if err != nil {
		return nil, err
	}

	loader, err := resource.NewLoader(fetcher, log.Logger.Named("manifest_loader"))
	if err != nil {
		return nil, errors.Wrap(err, "new manifest loader")
	}

	agg, err := newAggregator(fetcher)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	store, err := viewer.NewStore(agg, loader,
		viewer.WithLanguages(config.Languages()),
		viewer.WithLogger(log.Logger.Named("viewer")),
	)
	if err != nil {
		return nil, errors.Wrap(err, "new viewer store")
	}

	return store, nil
}
