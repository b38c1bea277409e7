package viewer

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/google/uuid"

	"github.com/Laisky/tamerlane/library/iiif"
	"github.com/Laisky/tamerlane/library/langs"
	"github.com/Laisky/tamerlane/library/log"
	"github.com/Laisky/tamerlane/library/resource"
	"github.com/Laisky/tamerlane/library/search"
)

var (
	ErrManifestIndexOutOfRange = errors.New("manifest index out of range")
	ErrSearchResultNotFound    = errors.New("search result not found")
	ErrUnknownPanelTab         = errors.New("unknown panel tab")
	ErrCanvasIndexOutOfRange   = errors.New("canvas index out of range")
)

// Searcher runs content search and autocomplete requests against fully built query URLs.
type Searcher interface {
	SearchAnnotations(ctx context.Context, url string) ([]search.Snippet, error)
	Autocomplete(ctx context.Context, url string) ([]iiif.Term, error)
}

// ManifestLoader resolves a manifest or collection URL.
type ManifestLoader interface {
	ParseResource(ctx context.Context, url string) (*resource.Parsed, error)
}

// Option customises a Store during construction.
type Option func(*Store)

// WithLogger overrides the fallback logger used when no contextual logger is available.
func WithLogger(logger logSDK.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLanguages sets the language table used to name languages and as the
// fallback when the current manifest declares none.
func WithLanguages(available []langs.Language) Option {
	return func(s *Store) {
		if len(available) > 0 {
			s.languages = slices.Clone(available)
		}
	}
}

// Store owns the state of one session. All mutation goes through its methods
// and the lock is released before calling the searcher or the loader, so
// readers may observe intermediate states such as Searching with old results.
type Store struct {
	searcher  Searcher
	loader    ManifestLoader
	logger    logSDK.Logger
	languages []langs.Language

	mu    sync.RWMutex
	state State
}

// NewStore constructs a Store with an empty baseline state.
func NewStore(searcher Searcher, loader ManifestLoader, opts ...Option) (*Store, error) {
	if searcher == nil {
		return nil, errors.New("viewer store requires a searcher")
	}
	if loader == nil {
		return nil, errors.New("viewer store requires a manifest loader")
	}

	s := &Store{
		searcher:  searcher,
		loader:    loader,
		logger:    log.Logger.Named("viewer"),
		languages: langs.Defaults,
		state:     initialState(uuid.NewString()),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state.clone()
}

// SetContentURL records the content URL being viewed.
func (s *Store) SetContentURL(url string) {
	s.mu.Lock()
	s.state.ContentURL = url
	s.mu.Unlock()
}

// HandleManifestUpdate folds a newly loaded manifest, and the collection it came
// from if any, into the state.
//
// The search and autocomplete services of the collection take precedence over
// those of the manifest.
func (s *Store) HandleManifestUpdate(manifest *iiif.Manifest, manifestURLs []string,
	totalManifests int, collection *iiif.Collection) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.applyManifestUpdate(manifest, manifestURLs, totalManifests, collection)
}

func (s *Store) applyManifestUpdate(manifest *iiif.Manifest, manifestURLs []string,
	totalManifests int, collection *iiif.Collection) {
	st := &s.state
	st.CurrentManifest = manifest
	st.ManifestURLs = slices.Clone(manifestURLs)
	if st.ManifestURLs == nil {
		st.ManifestURLs = []string{}
	}
	st.TotalManifests = totalManifests
	st.CurrentCollection = collection
	st.ManifestMetadata = manifestMetadata(manifest)
	st.TotalCanvases = canvasCount(manifest)

	var manifestSearch iiif.SearchServices
	if manifest != nil {
		manifestSearch = manifest.Search
	}
	st.CollectionMetadata = Metadata{}
	st.SearchURL = manifestSearch.Service
	st.AutocompleteURL = manifestSearch.Autocomplete
	if collection != nil {
		st.CollectionMetadata = Metadata{Label: collection.Info.Name}
		if collection.Search.Service != "" {
			st.SearchURL = collection.Search.Service
		}
		if collection.Search.Autocomplete != "" {
			st.AutocompleteURL = collection.Search.Autocomplete
		}
	}
}

func canvasCount(manifest *iiif.Manifest) int {
	if manifest == nil {
		return 0
	}
	return len(manifest.Canvases)
}

func manifestMetadata(manifest *iiif.Manifest) Metadata {
	if manifest == nil {
		return Metadata{}
	}
	return Metadata{Label: manifest.Info.Name}
}

// LoadContent loads the manifest or collection at url and resets navigation and search.
func (s *Store) LoadContent(ctx context.Context, url string) error {
	logger := s.loggerFrom(ctx).With(zap.String("content_url", url))
	s.SetContentURL(url)

	parsed, err := s.loader.ParseResource(ctx, url)
	if err == nil && parsed.FirstManifest == nil {
		err = errors.Errorf("no manifest found at %q", url)
	}
	if err != nil {
		logger.Error("load iiif content", zap.Error(err))
		s.mu.Lock()
		s.state.Error = MsgContentLoadFailed
		s.mu.Unlock()
		return errors.Wrapf(err, "load content %q", url)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyManifestUpdate(parsed.FirstManifest, parsed.ManifestURLs, parsed.TotalManifests, parsed.Collection)
	s.state.SelectedManifestIndex = 0
	s.state.SearchResults = []search.Snippet{}
	s.state.SelectedSearchResultID = ""
	s.state.SelectedCanvasID = ""
	s.state.SelectedCanvasIndex = 0
	s.state.Error = ""

	logger.Info("loaded iiif content",
		zap.Int("manifests", parsed.TotalManifests),
		zap.Bool("collection", parsed.Collection != nil),
		zap.String("search_url", s.state.SearchURL))
	return nil
}

// FetchManifestByIndex loads the manifest at index of the current manifest list.
// The collection, its search service and the search results are kept.
func (s *Store) FetchManifestByIndex(ctx context.Context, index int) error {
	s.mu.RLock()
	urls := s.state.ManifestURLs
	s.mu.RUnlock()
	if index < 0 || index >= len(urls) {
		return errors.Wrapf(ErrManifestIndexOutOfRange, "index %d of %d", index, len(urls))
	}

	manifestURL := urls[index]
	logger := s.loggerFrom(ctx).With(zap.Int("index", index), zap.String("manifest_url", manifestURL))

	parsed, err := s.loader.ParseResource(ctx, manifestURL)
	if err == nil && parsed.FirstManifest == nil {
		err = errors.Errorf("no manifest found at %q", manifestURL)
	}
	if err != nil {
		logger.Error("fetch manifest", zap.Error(err))
		s.mu.Lock()
		s.state.Error = MsgManifestLoadFailed
		s.mu.Unlock()
		return errors.Wrapf(err, "fetch manifest %d", index)
	}

	s.mu.Lock()
	s.state.CurrentManifest = parsed.FirstManifest
	s.state.SelectedManifestIndex = index
	s.state.ManifestMetadata = manifestMetadata(parsed.FirstManifest)
	s.state.TotalCanvases = canvasCount(parsed.FirstManifest)
	s.state.SelectedCanvasID = ""
	s.state.SelectedCanvasIndex = 0
	s.state.Error = ""
	s.mu.Unlock()

	logger.Debug("fetched manifest")
	return nil
}

// NextManifest moves to the following manifest. It does nothing on the last one.
func (s *Store) NextManifest(ctx context.Context) error {
	s.mu.RLock()
	next := s.state.SelectedManifestIndex + 1
	total := len(s.state.ManifestURLs)
	s.mu.RUnlock()

	if next >= total {
		return nil
	}
	return s.FetchManifestByIndex(ctx, next)
}

// PreviousManifest moves to the preceding manifest. It does nothing on the first one.
func (s *Store) PreviousManifest(ctx context.Context) error {
	s.mu.RLock()
	prev := s.state.SelectedManifestIndex - 1
	s.mu.RUnlock()

	if prev < 0 {
		return nil
	}
	return s.FetchManifestByIndex(ctx, prev)
}

// HandleSearch runs query against the current search service and replaces the results.
// It does nothing when no search service is known. Failures are reported through
// State.Error and leave the results empty.
func (s *Store) HandleSearch(ctx context.Context, query string) {
	s.mu.Lock()
	searchURL := s.state.SearchURL
	if searchURL == "" {
		s.mu.Unlock()
		return
	}
	s.state.Searching = true
	s.mu.Unlock()

	queryURL := search.BuildQueryURL(searchURL, query)
	logger := s.loggerFrom(ctx).With(zap.String("query_url", queryURL))

	results, err := s.searcher.SearchAnnotations(ctx, queryURL)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Searching = false
	if err != nil {
		logger.Error("search annotations", zap.Error(err))
		s.state.Error = MsgSearchFailed
		s.state.SearchResults = []search.Snippet{}
		return
	}

	if results == nil {
		results = []search.Snippet{}
	}
	s.state.SearchResults = results
	s.state.SelectedSearchResultID = ""
	s.state.ActivePanelTab = PanelSearchResults
	s.state.Error = ""
	logger.Info("search done", zap.Int("results", len(results)))
}

// SelectSearchResult marks the result with snippetID as selected and focuses its canvas.
// When the result belongs to another manifest of the collection, that manifest is loaded first.
func (s *Store) SelectSearchResult(ctx context.Context, snippetID string) error {
	s.mu.RLock()
	idx := slices.IndexFunc(s.state.SearchResults, func(sn search.Snippet) bool {
		return sn.ID == snippetID
	})
	var (
		snippet      search.Snippet
		manifestIdx  = -1
		currentIndex = s.state.SelectedManifestIndex
	)
	if idx >= 0 {
		snippet = s.state.SearchResults[idx]
		if snippet.PartOf != "" && s.state.CurrentCollection != nil {
			manifestIdx = slices.Index(s.state.ManifestURLs, snippet.PartOf)
		}
	}
	s.mu.RUnlock()

	if idx < 0 {
		return errors.Wrapf(ErrSearchResultNotFound, "id %q", snippetID)
	}

	if manifestIdx >= 0 && manifestIdx != currentIndex {
		if err := s.FetchManifestByIndex(ctx, manifestIdx); err != nil {
			return errors.Wrap(err, "open manifest of search result")
		}
	}

	selected := snippet.AnnotationID
	if selected == "" {
		selected = snippet.ID
	}

	s.mu.Lock()
	s.state.SelectedSearchResultID = selected
	s.state.SelectedCanvasID = snippet.CanvasTarget
	if canvasIdx := canvasIndexOf(s.state.CurrentManifest, snippet.CanvasTarget); canvasIdx >= 0 {
		s.state.SelectedCanvasIndex = canvasIdx
	}
	s.mu.Unlock()
	return nil
}

// canvasIndexOf returns the position of the canvas target points at, or -1.
// Targets may carry a media fragment such as `#xywh=0,0,10,10`.
func canvasIndexOf(manifest *iiif.Manifest, target string) int {
	if manifest == nil || target == "" {
		return -1
	}
	if i := strings.IndexByte(target, '#'); i >= 0 {
		target = target[:i]
	}

	return slices.IndexFunc(manifest.Canvases, func(c iiif.Canvas) bool {
		return c.ID == target
	})
}

// SelectCanvas focuses the canvas at index of the current manifest.
func (s *Store) SelectCanvas(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	manifest := s.state.CurrentManifest
	if manifest == nil || index < 0 || index >= len(manifest.Canvases) {
		return errors.Wrapf(ErrCanvasIndexOutOfRange, "index %d of %d", index, canvasCount(manifest))
	}

	s.state.SelectedCanvasIndex = index
	s.state.SelectedCanvasID = manifest.Canvases[index].ID
	return nil
}

// NextCanvas moves to the following canvas. It does nothing on the last one.
func (s *Store) NextCanvas() {
	s.mu.RLock()
	next := s.state.SelectedCanvasIndex + 1
	s.mu.RUnlock()

	_ = s.SelectCanvas(next)
}

// PreviousCanvas moves to the preceding canvas. It does nothing on the first one.
func (s *Store) PreviousCanvas() {
	s.mu.RLock()
	prev := s.state.SelectedCanvasIndex - 1
	s.mu.RUnlock()

	_ = s.SelectCanvas(prev)
}

// ResetCanvasIndex goes back to the first canvas and drops the canvas selection.
func (s *Store) ResetCanvasIndex() {
	s.mu.Lock()
	s.state.SelectedCanvasIndex = 0
	s.state.SelectedCanvasID = ""
	s.mu.Unlock()
}

// Autocomplete returns the completions of prefix offered by the current autocomplete service.
// It returns nothing when no autocomplete service is known.
func (s *Store) Autocomplete(ctx context.Context, prefix string) ([]iiif.Term, error) {
	s.mu.RLock()
	autocompleteURL := s.state.AutocompleteURL
	s.mu.RUnlock()
	if autocompleteURL == "" || strings.TrimSpace(prefix) == "" {
		return nil, nil
	}

	terms, err := s.searcher.Autocomplete(ctx, search.BuildQueryURL(autocompleteURL, prefix))
	if err != nil {
		s.loggerFrom(ctx).Warn("autocomplete", zap.Error(err), zap.String("prefix", prefix))
		return nil, errors.Wrap(err, "autocomplete")
	}

	return terms, nil
}

// SetActivePanelTab switches the side panel.
func (s *Store) SetActivePanelTab(tab PanelTab) error {
	if !tab.Valid() {
		return errors.Wrapf(ErrUnknownPanelTab, "%q", tab)
	}

	s.mu.Lock()
	s.state.ActivePanelTab = tab
	s.mu.Unlock()
	return nil
}

// SetSelectedLanguage sets the language used to filter search results. An empty code clears the filter.
func (s *Store) SetSelectedLanguage(code string) {
	s.mu.Lock()
	s.state.SelectedLanguage = code
	s.mu.Unlock()
}

// CycleLanguage selects the language after the current one and returns it.
func (s *Store) CycleLanguage() langs.Language {
	available := s.AvailableLanguages()

	s.mu.Lock()
	defer s.mu.Unlock()
	next := langs.Next(available, s.state.SelectedLanguage)
	s.state.SelectedLanguage = next.Code
	return next
}

// AvailableLanguages lists the languages of the current manifest's annotations,
// or the configured languages when it declares none.
func (s *Store) AvailableLanguages() []langs.Language {
	s.mu.RLock()
	manifest := s.state.CurrentManifest
	s.mu.RUnlock()

	if manifest != nil {
		if found := langs.ExtractFromAnnotations(manifest.Annotations, s.languages); len(found) > 0 {
			return found
		}
	}

	return slices.Clone(s.languages)
}

// VisibleSearchResults returns the search results matching the selected language.
func (s *Store) VisibleSearchResults() []search.Snippet {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return search.FilterByLanguage(slices.Clone(s.state.SearchResults), s.state.SelectedLanguage)
}

func (s *Store) loggerFrom(ctx context.Context) logSDK.Logger {
	return log.FromContext(ctx, s.logger, "viewer").
		With(zap.String("session", s.state.SessionID))
}
