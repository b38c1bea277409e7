package resource

import (
	"context"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"

	"github.com/Laisky/tamerlane/library/iiif"
	"github.com/Laisky/tamerlane/library/log"
)

// ResourceFetcher is the fetch capability the loader depends on.
type ResourceFetcher interface {
	Fetch(ctx context.Context, url string) (*Resource, error)
}

// Parsed is the outcome of loading a IIIF content URL.
type Parsed struct {
	// FirstManifest is the manifest itself, or the first member of a collection.
	FirstManifest *iiif.Manifest
	// Collection is nil when the URL pointed at a single manifest.
	Collection     *iiif.Collection
	ManifestURLs   []string
	TotalManifests int
}

// Loader turns IIIF content URLs into parsed manifests and collections.
type Loader struct {
	fetcher ResourceFetcher
	logger  logSDK.Logger
}

// NewLoader constructs a Loader on top of fetcher.
func NewLoader(fetcher ResourceFetcher, logger logSDK.Logger) (*Loader, error) {
	if fetcher == nil {
		return nil, errors.New("resource fetcher cannot be nil")
	}
	if logger == nil {
		logger = log.Logger.Named("resource_loader")
	}

	return &Loader{fetcher: fetcher, logger: logger}, nil
}

// ParseResource loads url. A manifest yields a single-entry manifest list;
// a collection yields its member manifest URLs with the first member loaded.
func (l *Loader) ParseResource(ctx context.Context, url string) (*Parsed, error) {
	res, err := l.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	switch res.Kind {
	case iiif.KindManifest:
		manifest, err := iiif.ParseManifest(res.Data)
		if err != nil {
			return nil, errors.Wrapf(err, "parse manifest %q", url)
		}

		return &Parsed{
			FirstManifest:  manifest,
			ManifestURLs:   []string{url},
			TotalManifests: 1,
		}, nil
	case iiif.KindCollection:
		collection, err := iiif.ParseCollection(res.Data)
		if err != nil {
			return nil, errors.Wrapf(err, "parse collection %q", url)
		}
		if len(collection.ManifestURLs) == 0 {
			return nil, errors.Errorf("collection %q has no manifests", url)
		}

		first, err := l.loadManifest(ctx, collection.ManifestURLs[0])
		if err != nil {
			return nil, errors.Wrap(err, "load first manifest of collection")
		}

		l.logger.Debug("loaded collection",
			zap.String("url", url),
			zap.Int("manifests", len(collection.ManifestURLs)))
		return &Parsed{
			FirstManifest:  first,
			Collection:     collection,
			ManifestURLs:   append([]string(nil), collection.ManifestURLs...),
			TotalManifests: len(collection.ManifestURLs),
		}, nil
	default:
		l.logger.Warn("unexpected resource kind",
			zap.String("url", url),
			zap.String("kind", string(res.Kind)))
		return nil, NewResourceError(url)
	}
}

func (l *Loader) loadManifest(ctx context.Context, url string) (*iiif.Manifest, error) {
	res, err := l.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if res.Kind != iiif.KindManifest {
		return nil, NewResourceError(url)
	}

	manifest, err := iiif.ParseManifest(res.Data)
	if err != nil {
		return nil, errors.Wrapf(err, "parse manifest %q", url)
	}

	return manifest, nil
}
