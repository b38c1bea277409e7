package search

import (
	"net/url"
	"strings"
)

// Snippet is a single text match returned by a content search service.
type Snippet struct {
	// ID identifies the matching annotation.
	ID string `json:"id"`
	// AnnotationID identifies the annotation or resource the snippet excerpts.
	AnnotationID string `json:"annotationId,omitempty"`
	Motivation   string `json:"motivation,omitempty"`
	Prefix       string `json:"prefix,omitempty"`
	Exact        string `json:"exact"`
	Suffix       string `json:"suffix,omitempty"`
	// CanvasTarget is the canvas the match is located on.
	CanvasTarget string `json:"canvasTarget"`
	// PartOf is the manifest the result belongs to, set when searching across a collection.
	PartOf   string `json:"partOf,omitempty"`
	Language string `json:"language,omitempty"`
}

// BuildQueryURL appends query to a search service endpoint as the `q` parameter.
func BuildQueryURL(searchURL, query string) string {
	sep := "?"
	if strings.Contains(searchURL, "?") {
		sep = "&"
	}

	return searchURL + sep + "q=" + url.QueryEscape(query)
}

// FilterByLanguage keeps the snippets matching lang.
// An empty lang keeps everything, and snippets without a language are always kept.
func FilterByLanguage(snippets []Snippet, lang string) []Snippet {
	if lang == "" {
		return snippets
	}

	filtered := make([]Snippet, 0, len(snippets))
	for _, s := range snippets {
		if s.Language == "" || s.Language == lang {
			filtered = append(filtered, s)
		}
	}

	return filtered
}
