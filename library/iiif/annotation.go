package iiif

import (
	"strings"

	"github.com/tidwall/gjson"
)

// TextQuote is a text-quote selector: the exact match plus its surrounding context.
type TextQuote struct {
	Prefix   string
	Exact    string
	Suffix   string
	Language string
}

// Annotation wraps a single annotation document.
type Annotation struct {
	raw gjson.Result
}

// NewAnnotation wraps an already decoded annotation.
func NewAnnotation(raw gjson.Result) Annotation {
	return Annotation{raw: raw}
}

// ParseAnnotation decodes a standalone annotation document.
func ParseAnnotation(data []byte) (Annotation, error) {
	root, err := parseDocument(data)
	if err != nil {
		return Annotation{}, err
	}

	return NewAnnotation(root), nil
}

// Raw returns the underlying document.
func (a Annotation) Raw() gjson.Result {
	return a.raw
}

// ID returns the annotation identifier.
func (a Annotation) ID() string {
	return idOf(member(a.raw, "id", "@id"))
}

// Motivation returns the annotation motivation, the first one when several are declared.
func (a Annotation) Motivation() string {
	return stringOf(member(a.raw, "motivation"))
}

func (a Annotation) target() gjson.Result {
	return member(a.raw, "target", "on")
}

// TargetID returns the identifier of the annotation target.
// For specific resources without their own id this is the id of the source.
func (a Annotation) TargetID() string {
	for _, target := range list(a.target()) {
		if target.Type == gjson.String {
			return target.String()
		}
		if id := stringOf(member(target, "id", "@id")); id != "" {
			return id
		}
		if src := idOf(member(target, "source", "full")); src != "" {
			return src
		}
	}

	return ""
}

// TargetSource returns the source of a specific-resource target.
// A plain string target is its own source.
func (a Annotation) TargetSource() string {
	for _, target := range list(a.target()) {
		if target.Type == gjson.String {
			return target.String()
		}
		if src := idOf(member(target, "source", "full")); src != "" {
			return src
		}
	}

	return ""
}

// Selectors lists the selectors declared on the annotation targets.
func (a Annotation) Selectors() []gjson.Result {
	var selectors []gjson.Result
	for _, target := range list(a.target()) {
		selectors = append(selectors, list(member(target, "selector"))...)
	}

	return selectors
}

// TextQuote returns the first text-quote selector of the annotation.
// The boolean is false when there is none or its exact text is empty.
func (a Annotation) TextQuote() (TextQuote, bool) {
	for _, selector := range a.Selectors() {
		name := stringOf(member(selector, "type", "@type"))
		if idx := strings.LastIndex(name, ":"); idx >= 0 {
			name = name[idx+1:]
		}
		if name != "TextQuoteSelector" {
			continue
		}

		quote := TextQuote{
			Prefix:   stringOf(member(selector, "prefix")),
			Exact:    stringOf(member(selector, "exact")),
			Suffix:   stringOf(member(selector, "suffix")),
			Language: stringOf(member(selector, "language")),
		}
		if quote.Exact == "" {
			continue
		}

		return quote, true
	}

	return TextQuote{}, false
}

// Bodies lists the annotation bodies (`body`, or `resource` in version 2).
func (a Annotation) Bodies() []gjson.Result {
	return list(member(a.raw, "body", "resource"))
}

// Label returns the raw label value, usually a language map.
func (a Annotation) Label() gjson.Result {
	return member(a.raw, "label")
}

// Language returns the language declared on the annotation itself or on its first body that has one.
func (a Annotation) Language() string {
	if lang := stringOf(member(a.raw, "language")); lang != "" {
		return lang
	}
	for _, body := range a.Bodies() {
		if lang := stringOf(member(body, "language", "@language")); lang != "" {
			return lang
		}
	}

	return ""
}
