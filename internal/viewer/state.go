// Package viewer holds the navigation and search state of one viewing session.
package viewer

import (
	"slices"

	"github.com/Laisky/tamerlane/library/iiif"
	"github.com/Laisky/tamerlane/library/search"
)

// PanelTab names the side panel currently shown.
type PanelTab string

const (
	PanelAnnotations   PanelTab = "annotations"
	PanelSearchResults PanelTab = "searchResults"
)

// Valid reports whether t is a known panel.
func (t PanelTab) Valid() bool {
	switch t {
	case PanelAnnotations, PanelSearchResults:
		return true
	default:
		return false
	}
}

// Fixed messages shown to the user. Failure details only go to the log.
const (
	MsgSearchFailed       = "Search failed. Please try again."
	MsgManifestLoadFailed = "Failed to load manifest. Please try again."
	MsgContentLoadFailed  = "Failed to load IIIF content."
)

// Metadata is the display metadata of a manifest or collection.
type Metadata struct {
	Label string `json:"label"`
}

// State is a point-in-time view of a session.
type State struct {
	SessionID  string `json:"sessionId"`
	ContentURL string `json:"contentUrl"`

	CurrentManifest       *iiif.Manifest   `json:"currentManifest"`
	CurrentCollection     *iiif.Collection `json:"currentCollection"`
	ManifestURLs          []string         `json:"manifestUrls"`
	SelectedManifestIndex int              `json:"selectedManifestIndex"`
	TotalManifests        int              `json:"totalManifests"`
	ManifestMetadata      Metadata         `json:"manifestMetadata"`
	CollectionMetadata    Metadata         `json:"collectionMetadata"`

	SearchURL              string           `json:"searchUrl"`
	AutocompleteURL        string           `json:"autocompleteUrl"`
	SearchResults          []search.Snippet `json:"searchResults"`
	Searching              bool             `json:"searching"`
	SelectedSearchResultID string           `json:"selectedSearchResultId"`
	SelectedCanvasID       string           `json:"selectedCanvasId"`
	SelectedCanvasIndex    int              `json:"selectedCanvasIndex"`
	TotalCanvases          int              `json:"totalCanvases"`
	SelectedLanguage       string           `json:"selectedLanguage"`

	ActivePanelTab PanelTab `json:"activePanelTab"`
	Error          string   `json:"error"`
}

func initialState(sessionID string) State {
	return State{
		SessionID:      sessionID,
		ManifestURLs:   []string{},
		SearchResults:  []search.Snippet{},
		ActivePanelTab: PanelAnnotations,
	}
}

func (s State) clone() State {
	s.ManifestURLs = slices.Clone(s.ManifestURLs)
	s.SearchResults = slices.Clone(s.SearchResults)
	return s
}
