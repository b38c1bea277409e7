package viewer

import (
	"context"
	"testing"

	"github.com/Laisky/errors/v2"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/Laisky/tamerlane/library/iiif"
	"github.com/Laisky/tamerlane/library/langs"
	"github.com/Laisky/tamerlane/library/resource"
	"github.com/Laisky/tamerlane/library/search"
)

type fakeSearcher struct {
	results []search.Snippet
	terms   []iiif.Term
	err     error
	calls   []string
}

func (f *fakeSearcher) Autocomplete(_ context.Context, url string) ([]iiif.Term, error) {
	f.calls = append(f.calls, url)
	if f.err != nil {
		return nil, f.err
	}
	return f.terms, nil
}

func (f *fakeSearcher) SearchAnnotations(_ context.Context, url string) ([]search.Snippet, error) {
	f.calls = append(f.calls, url)
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

type fakeLoader struct {
	parsed map[string]*resource.Parsed
	err    error
	calls  []string
}

func (f *fakeLoader) ParseResource(_ context.Context, url string) (*resource.Parsed, error) {
	f.calls = append(f.calls, url)
	if f.err != nil {
		return nil, f.err
	}
	parsed, ok := f.parsed[url]
	if !ok {
		return nil, errors.Errorf("unexpected url %q", url)
	}
	return parsed, nil
}

func manifest(id, name, searchService string) *iiif.Manifest {
	return &iiif.Manifest{
		ID:     id,
		Info:   iiif.Info{Name: name},
		Search: iiif.SearchServices{Service: searchService},
	}
}

func collection(name, searchService string, urls ...string) *iiif.Collection {
	return &iiif.Collection{
		ID:           "https://example.com/collection.json",
		Info:         iiif.Info{Name: name},
		ManifestURLs: urls,
		Search:       iiif.SearchServices{Service: searchService, Autocomplete: searchService + "/autocomplete"},
	}
}

func newTestStore(t *testing.T, searcher *fakeSearcher, loader *fakeLoader, opts ...Option) *Store {
	t.Helper()
	if searcher == nil {
		searcher = &fakeSearcher{}
	}
	if loader == nil {
		loader = &fakeLoader{}
	}

	store, err := NewStore(searcher, loader, opts...)
	require.NoError(t, err)
	return store
}

func TestNewStoreInitialState(t *testing.T) {
	store := newTestStore(t, nil, nil)
	st := store.Snapshot()

	require.NotEmpty(t, st.SessionID)
	require.Empty(t, st.ContentURL)
	require.Nil(t, st.CurrentManifest)
	require.Nil(t, st.CurrentCollection)
	require.NotNil(t, st.ManifestURLs)
	require.Empty(t, st.ManifestURLs)
	require.Zero(t, st.TotalManifests)
	require.NotNil(t, st.SearchResults)
	require.Empty(t, st.SearchResults)
	require.Equal(t, PanelAnnotations, st.ActivePanelTab)
	require.Empty(t, st.Error)

	_, err := NewStore(nil, &fakeLoader{})
	require.Error(t, err)
	_, err = NewStore(&fakeSearcher{}, nil)
	require.Error(t, err)
}

func TestSetContentURL(t *testing.T) {
	store := newTestStore(t, nil, nil)
	store.SetContentURL("https://example.com/manifest.json")
	require.Equal(t, "https://example.com/manifest.json", store.Snapshot().ContentURL)
}

func TestHandleManifestUpdateSingleManifest(t *testing.T) {
	store := newTestStore(t, nil, nil)
	m := manifest("m1", "Test Manifest", "manifest-search")

	store.HandleManifestUpdate(m, []string{"url1"}, 1, nil)

	st := store.Snapshot()
	require.Same(t, m, st.CurrentManifest)
	require.Equal(t, []string{"url1"}, st.ManifestURLs)
	require.Equal(t, 1, st.TotalManifests)
	require.Nil(t, st.CurrentCollection)
	require.Equal(t, "Test Manifest", st.ManifestMetadata.Label)
	require.Empty(t, st.CollectionMetadata.Label)
	require.Equal(t, "manifest-search", st.SearchURL)
}

func TestHandleManifestUpdateCollectionSearchTakesPrecedence(t *testing.T) {
	store := newTestStore(t, nil, nil)
	m := manifest("m1", "First Manifest", "manifest-search")
	m.Search.Autocomplete = "manifest-autocomplete"
	c := collection("Test Collection", "collection-search", "url1", "url2")

	store.HandleManifestUpdate(m, []string{"url1", "url2"}, 2, c)

	st := store.Snapshot()
	require.Same(t, c, st.CurrentCollection)
	require.Equal(t, 2, st.TotalManifests)
	require.Equal(t, "First Manifest", st.ManifestMetadata.Label)
	require.Equal(t, "Test Collection", st.CollectionMetadata.Label)
	require.Equal(t, "collection-search", st.SearchURL)
	require.Equal(t, "collection-search/autocomplete", st.AutocompleteURL)
}

func TestHandleManifestUpdateCollectionWithoutSearch(t *testing.T) {
	store := newTestStore(t, nil, nil)
	store.HandleManifestUpdate(manifest("m1", "M", "manifest-search"), []string{"url1"}, 1, collection("C", ""))

	require.Equal(t, "manifest-search", store.Snapshot().SearchURL)
}

func TestFetchManifestByIndexPreservesCollection(t *testing.T) {
	second := manifest("url2", "Manifest 2", "manifest2-search")
	loader := &fakeLoader{parsed: map[string]*resource.Parsed{
		"url2": {FirstManifest: second, ManifestURLs: []string{"url2"}, TotalManifests: 1},
	}}
	store := newTestStore(t, nil, loader)
	c := collection("My Collection", "collection-search", "url1", "url2")
	store.HandleManifestUpdate(manifest("url1", "Manifest 1", ""), []string{"url1", "url2"}, 2, c)
	store.state.SearchResults = []search.Snippet{{ID: "r1", Exact: "x"}}

	require.NoError(t, store.FetchManifestByIndex(context.Background(), 1))

	st := store.Snapshot()
	require.Equal(t, []string{"url2"}, loader.calls)
	require.Equal(t, 1, st.SelectedManifestIndex)
	require.Same(t, second, st.CurrentManifest)
	require.Equal(t, "Manifest 2", st.ManifestMetadata.Label)
	require.Same(t, c, st.CurrentCollection)
	require.Equal(t, "collection-search", st.SearchURL)
	require.Equal(t, []string{"url1", "url2"}, st.ManifestURLs)
	require.Len(t, st.SearchResults, 1)
}

func TestFetchManifestByIndexOutOfRange(t *testing.T) {
	loader := &fakeLoader{}
	store := newTestStore(t, nil, loader)
	store.HandleManifestUpdate(manifest("url1", "M", ""), []string{"url1"}, 1, nil)
	before := store.Snapshot()

	for _, idx := range []int{-1, 1, 5} {
		err := store.FetchManifestByIndex(context.Background(), idx)
		require.ErrorIs(t, err, ErrManifestIndexOutOfRange)
	}
	require.Empty(t, loader.calls)
	require.Equal(t, before, store.Snapshot())
}

func TestFetchManifestByIndexFailure(t *testing.T) {
	loader := &fakeLoader{err: errors.New("boom")}
	store := newTestStore(t, nil, loader)
	first := manifest("url1", "M", "")
	store.HandleManifestUpdate(first, []string{"url1", "url2"}, 2, nil)

	err := store.FetchManifestByIndex(context.Background(), 1)
	require.ErrorContains(t, err, "boom")

	st := store.Snapshot()
	require.Equal(t, MsgManifestLoadFailed, st.Error)
	require.Same(t, first, st.CurrentManifest)
	require.Zero(t, st.SelectedManifestIndex)
}

func TestHandleSearchSuccess(t *testing.T) {
	results := []search.Snippet{{ID: "res1", Exact: "test"}}
	searcher := &fakeSearcher{results: results}
	store := newTestStore(t, searcher, nil)
	store.state.SearchURL = "https://example.com/search"
	store.state.Error = "stale"

	store.HandleSearch(context.Background(), "test")

	st := store.Snapshot()
	require.Equal(t, []string{"https://example.com/search?q=test"}, searcher.calls)
	require.Equal(t, results, st.SearchResults)
	require.Equal(t, PanelSearchResults, st.ActivePanelTab)
	require.Empty(t, st.Error)
	require.False(t, st.Searching)
}

func TestHandleSearchFailureClearsResults(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("Search failed")}
	store := newTestStore(t, searcher, nil)
	store.state.SearchURL = "https://example.com/search"
	store.state.SearchResults = []search.Snippet{{ID: "old", Exact: "old"}}

	store.HandleSearch(context.Background(), "test")

	st := store.Snapshot()
	require.Equal(t, MsgSearchFailed, st.Error)
	require.NotNil(t, st.SearchResults)
	require.Empty(t, st.SearchResults)
	require.False(t, st.Searching)
}

func TestHandleSearchWithoutServiceIsNoop(t *testing.T) {
	searcher := &fakeSearcher{}
	store := newTestStore(t, searcher, nil)
	before := store.Snapshot()

	store.HandleSearch(context.Background(), "test")

	require.Empty(t, searcher.calls)
	require.Equal(t, before, store.Snapshot())
}

func TestLoadContentCollection(t *testing.T) {
	first := manifest("url1", "First", "manifest-search")
	c := collection("Coll", "collection-search", "url1", "url2")
	loader := &fakeLoader{parsed: map[string]*resource.Parsed{
		"https://example.com/collection.json": {
			FirstManifest:  first,
			Collection:     c,
			ManifestURLs:   []string{"url1", "url2"},
			TotalManifests: 2,
		},
	}}
	store := newTestStore(t, nil, loader)
	store.state.SelectedManifestIndex = 3
	store.state.SearchResults = []search.Snippet{{ID: "old", Exact: "old"}}
	store.state.SelectedSearchResultID = "old"

	require.NoError(t, store.LoadContent(context.Background(), "https://example.com/collection.json"))

	st := store.Snapshot()
	require.Equal(t, "https://example.com/collection.json", st.ContentURL)
	require.Same(t, first, st.CurrentManifest)
	require.Same(t, c, st.CurrentCollection)
	require.Equal(t, 2, st.TotalManifests)
	require.Zero(t, st.SelectedManifestIndex)
	require.Empty(t, st.SearchResults)
	require.Empty(t, st.SelectedSearchResultID)
	require.Equal(t, "collection-search", st.SearchURL)
	require.Equal(t, "Coll", st.CollectionMetadata.Label)
}

func TestLoadContentFailure(t *testing.T) {
	store := newTestStore(t, nil, &fakeLoader{err: resource.NewResourceError("https://example.com/x.json")})

	err := store.LoadContent(context.Background(), "https://example.com/x.json")
	var resErr *resource.ResourceError
	require.ErrorAs(t, err, &resErr)

	st := store.Snapshot()
	require.Equal(t, MsgContentLoadFailed, st.Error)
	require.Equal(t, "https://example.com/x.json", st.ContentURL)
	require.Nil(t, st.CurrentManifest)
}

func TestNextAndPreviousManifest(t *testing.T) {
	loader := &fakeLoader{parsed: map[string]*resource.Parsed{
		"url1": {FirstManifest: manifest("url1", "One", "")},
		"url2": {FirstManifest: manifest("url2", "Two", "")},
	}}
	store := newTestStore(t, nil, loader)
	store.HandleManifestUpdate(manifest("url1", "One", ""), []string{"url1", "url2"}, 2, nil)
	ctx := context.Background()

	require.NoError(t, store.PreviousManifest(ctx))
	require.Empty(t, loader.calls)

	require.NoError(t, store.NextManifest(ctx))
	require.Equal(t, 1, store.Snapshot().SelectedManifestIndex)
	require.Equal(t, "Two", store.Snapshot().ManifestMetadata.Label)

	require.NoError(t, store.NextManifest(ctx))
	require.Equal(t, []string{"url2"}, loader.calls)

	require.NoError(t, store.PreviousManifest(ctx))
	require.Zero(t, store.Snapshot().SelectedManifestIndex)
	require.Equal(t, []string{"url2", "url1"}, loader.calls)
}

func TestSelectSearchResult(t *testing.T) {
	loader := &fakeLoader{parsed: map[string]*resource.Parsed{
		"url2": {FirstManifest: manifest("url2", "Two", "")},
	}}
	store := newTestStore(t, nil, loader)
	store.HandleManifestUpdate(manifest("url1", "One", ""), []string{"url1", "url2"}, 2,
		collection("C", "collection-search", "url1", "url2"))
	store.state.SearchResults = []search.Snippet{
		{ID: "s1", AnnotationID: "anno1", Exact: "a", CanvasTarget: "canvas1", PartOf: "url1"},
		{ID: "s2", Exact: "b", CanvasTarget: "canvas9", PartOf: "url2"},
	}
	ctx := context.Background()

	require.NoError(t, store.SelectSearchResult(ctx, "s1"))
	st := store.Snapshot()
	require.Equal(t, "anno1", st.SelectedSearchResultID)
	require.Equal(t, "canvas1", st.SelectedCanvasID)
	require.Empty(t, loader.calls)

	require.NoError(t, store.SelectSearchResult(ctx, "s2"))
	st = store.Snapshot()
	require.Equal(t, []string{"url2"}, loader.calls)
	require.Equal(t, 1, st.SelectedManifestIndex)
	require.Equal(t, "s2", st.SelectedSearchResultID)
	require.Equal(t, "canvas9", st.SelectedCanvasID)
	require.Len(t, st.SearchResults, 2)

	require.ErrorIs(t, store.SelectSearchResult(ctx, "missing"), ErrSearchResultNotFound)
}

func withCanvases(m *iiif.Manifest, ids ...string) *iiif.Manifest {
	for _, id := range ids {
		m.Canvases = append(m.Canvases, iiif.Canvas{ID: id})
	}
	return m
}

func TestCanvasNavigation(t *testing.T) {
	loader := &fakeLoader{parsed: map[string]*resource.Parsed{
		"url2": {FirstManifest: withCanvases(manifest("url2", "Two", ""), "b1")},
	}}
	store := newTestStore(t, nil, loader)
	store.HandleManifestUpdate(withCanvases(manifest("url1", "One", ""), "a1", "a2", "a3"),
		[]string{"url1", "url2"}, 2, nil)

	st := store.Snapshot()
	require.Equal(t, 3, st.TotalCanvases)
	require.Zero(t, st.SelectedCanvasIndex)

	store.PreviousCanvas()
	require.Zero(t, store.Snapshot().SelectedCanvasIndex)

	store.NextCanvas()
	store.NextCanvas()
	st = store.Snapshot()
	require.Equal(t, 2, st.SelectedCanvasIndex)
	require.Equal(t, "a3", st.SelectedCanvasID)

	store.NextCanvas()
	require.Equal(t, 2, store.Snapshot().SelectedCanvasIndex)

	store.PreviousCanvas()
	st = store.Snapshot()
	require.Equal(t, 1, st.SelectedCanvasIndex)
	require.Equal(t, "a2", st.SelectedCanvasID)

	require.ErrorIs(t, store.SelectCanvas(3), ErrCanvasIndexOutOfRange)
	require.ErrorIs(t, store.SelectCanvas(-1), ErrCanvasIndexOutOfRange)
	require.Equal(t, 1, store.Snapshot().SelectedCanvasIndex)

	store.ResetCanvasIndex()
	st = store.Snapshot()
	require.Zero(t, st.SelectedCanvasIndex)
	require.Empty(t, st.SelectedCanvasID)

	require.NoError(t, store.SelectCanvas(2))
	require.NoError(t, store.FetchManifestByIndex(context.Background(), 1))
	st = store.Snapshot()
	require.Zero(t, st.SelectedCanvasIndex)
	require.Equal(t, 1, st.TotalCanvases)
}

func TestSelectCanvasWithoutManifest(t *testing.T) {
	store := newTestStore(t, nil, nil)
	require.ErrorIs(t, store.SelectCanvas(0), ErrCanvasIndexOutOfRange)
	store.NextCanvas()
	require.Zero(t, store.Snapshot().SelectedCanvasIndex)
}

func TestSelectSearchResultMovesToCanvas(t *testing.T) {
	loader := &fakeLoader{parsed: map[string]*resource.Parsed{
		"url2": {FirstManifest: withCanvases(manifest("url2", "Two", ""), "b1", "b2")},
	}}
	store := newTestStore(t, nil, loader)
	store.HandleManifestUpdate(withCanvases(manifest("url1", "One", ""), "a1", "a2", "a3"),
		[]string{"url1", "url2"}, 2, collection("C", "collection-search", "url1", "url2"))
	store.state.SearchResults = []search.Snippet{
		{ID: "s1", Exact: "a", CanvasTarget: "a3#xywh=10,10,50,20", PartOf: "url1"},
		{ID: "s2", Exact: "b", CanvasTarget: "b2", PartOf: "url2"},
		{ID: "s3", Exact: "c", CanvasTarget: "elsewhere"},
	}
	ctx := context.Background()

	require.NoError(t, store.SelectSearchResult(ctx, "s1"))
	require.Equal(t, 2, store.Snapshot().SelectedCanvasIndex)

	require.NoError(t, store.SelectSearchResult(ctx, "s2"))
	st := store.Snapshot()
	require.Equal(t, 1, st.SelectedManifestIndex)
	require.Equal(t, 1, st.SelectedCanvasIndex)
	require.Equal(t, "b2", st.SelectedCanvasID)

	require.NoError(t, store.SelectSearchResult(ctx, "s3"))
	require.Equal(t, 1, store.Snapshot().SelectedCanvasIndex)
}

func TestAutocomplete(t *testing.T) {
	searcher := &fakeSearcher{terms: []iiif.Term{{Value: "bird", Total: 2}}}
	store := newTestStore(t, searcher, nil)
	ctx := context.Background()

	terms, err := store.Autocomplete(ctx, "bi")
	require.NoError(t, err)
	require.Empty(t, terms)
	require.Empty(t, searcher.calls)

	store.HandleManifestUpdate(manifest("url1", "One", ""), []string{"url1"}, 1,
		collection("C", "https://example.com/search", "url1"))

	terms, err = store.Autocomplete(ctx, "bi")
	require.NoError(t, err)
	require.Equal(t, []iiif.Term{{Value: "bird", Total: 2}}, terms)
	require.Equal(t, []string{"https://example.com/search/autocomplete?q=bi"}, searcher.calls)

	searcher.err = errors.New("upstream down")
	_, err = store.Autocomplete(ctx, "bi")
	require.Error(t, err)
	require.Empty(t, store.Snapshot().Error)
}

func TestSetActivePanelTab(t *testing.T) {
	store := newTestStore(t, nil, nil)

	require.NoError(t, store.SetActivePanelTab(PanelSearchResults))
	require.Equal(t, PanelSearchResults, store.Snapshot().ActivePanelTab)

	require.ErrorIs(t, store.SetActivePanelTab("metadata"), ErrUnknownPanelTab)
	require.Equal(t, PanelSearchResults, store.Snapshot().ActivePanelTab)
}

func TestLanguagesAndFilter(t *testing.T) {
	store := newTestStore(t, nil, nil, WithLanguages([]langs.Language{
		{Code: "en", Name: "English"},
		{Code: "fr", Name: "Français"},
	}))

	// no manifest: configured languages
	require.Equal(t, []string{"en", "fr"}, codes(store.AvailableLanguages()))

	m := manifest("m1", "M", "")
	m.Annotations = []iiif.Annotation{
		iiif.NewAnnotation(gjson.Parse(`{"body": {"value": {"de": ["x"], "fr": ["y"]}}}`)),
	}
	store.HandleManifestUpdate(m, []string{"m1"}, 1, nil)
	available := store.AvailableLanguages()
	require.Equal(t, []string{"de", "fr"}, codes(available))
	require.Equal(t, "Français", available[1].Name)

	require.Equal(t, "de", store.CycleLanguage().Code)
	require.Equal(t, "fr", store.CycleLanguage().Code)
	require.Equal(t, "de", store.CycleLanguage().Code)
	require.Equal(t, "de", store.Snapshot().SelectedLanguage)

	store.state.SearchResults = []search.Snippet{
		{ID: "a", Exact: "a", Language: "de"},
		{ID: "b", Exact: "b", Language: "fr"},
		{ID: "c", Exact: "c"},
	}
	require.Len(t, store.VisibleSearchResults(), 2)

	store.SetSelectedLanguage("")
	require.Len(t, store.VisibleSearchResults(), 3)
}

func TestSnapshotIsACopy(t *testing.T) {
	store := newTestStore(t, nil, nil)
	store.HandleManifestUpdate(manifest("m1", "M", ""), []string{"url1"}, 1, nil)

	st := store.Snapshot()
	st.ManifestURLs[0] = "changed"
	require.Equal(t, "url1", store.Snapshot().ManifestURLs[0])
}

func codes(in []langs.Language) []string {
	out := make([]string, 0, len(in))
	for _, l := range in {
		out = append(out, l.Code)
	}
	return out
}
