// Package iiif reads IIIF Presentation and Content Search documents.
//
// Documents are kept as gjson values and exposed through small accessors, because
// most IIIF properties may legally be a string, an object or an array of either.
package iiif

import (
	"sort"
	"strings"

	"github.com/Laisky/errors/v2"
	"github.com/tidwall/gjson"
)

// Kind is the declared type of a IIIF resource.
type Kind string

const (
	// KindUnknown is returned for payloads without a declared type
	KindUnknown Kind = ""
	// KindManifest is a single digital object
	KindManifest Kind = "Manifest"
	// KindCollection aggregates manifests
	KindCollection Kind = "Collection"
	// KindAnnotationPage is a page of annotations, also used by search responses
	KindAnnotationPage Kind = "AnnotationPage"
	// KindAnnotation is a single annotation
	KindAnnotation Kind = "Annotation"
	// KindCanvas is a visual surface inside a manifest
	KindCanvas Kind = "Canvas"
	// KindTermPage is an autocomplete response
	KindTermPage Kind = "TermPage"
)

// Classify returns the declared kind of a decoded document.
// Presentation 2 names (`sc:Manifest`, `sc:AnnotationList`, ...) map onto their version 3 kinds.
func Classify(raw gjson.Result) Kind {
	name := strings.TrimSpace(stringOf(member(raw, "type", "@type")))
	if idx := strings.LastIndex(name, ":"); idx >= 0 {
		name = name[idx+1:]
	}

	switch name {
	case "":
		return KindUnknown
	case "AnnotationList":
		return KindAnnotationPage
	case "TermList":
		return KindTermPage
	default:
		return Kind(name)
	}
}

// parseDocument validates data and returns its root, which must be a JSON object.
func parseDocument(data []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, errors.New("invalid json document")
	}

	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return gjson.Result{}, errors.Errorf("expect json object, got %s", root.Type)
	}

	return root, nil
}

// member returns the first present key of an object. Keys are looked up
// through Map so that JSON-LD keys like `@id` are not read as gjson modifiers.
func member(raw gjson.Result, keys ...string) gjson.Result {
	if !raw.IsObject() {
		return gjson.Result{}
	}

	fields := raw.Map()
	for _, key := range keys {
		if v, ok := fields[key]; ok && v.Type != gjson.Null {
			return v
		}
	}

	return gjson.Result{}
}

// list normalises a value that may be a single item or an array into a slice.
func list(raw gjson.Result) []gjson.Result {
	switch {
	case !raw.Exists(), raw.Type == gjson.Null:
		return nil
	case raw.IsArray():
		return raw.Array()
	default:
		return []gjson.Result{raw}
	}
}

// stringOf reads a string, or the first string of an array.
func stringOf(raw gjson.Result) string {
	if raw.IsArray() {
		for _, v := range raw.Array() {
			if v.Type == gjson.String {
				return v.String()
			}
		}
		return ""
	}
	if raw.Type == gjson.String {
		return raw.String()
	}

	return ""
}

// idOf reads the identifier of a reference, which is either the string itself
// or the `id`/`@id` member of an object. Arrays yield their first identifier.
func idOf(raw gjson.Result) string {
	switch {
	case raw.Type == gjson.String:
		return raw.String()
	case raw.IsObject():
		return stringOf(member(raw, "id", "@id"))
	case raw.IsArray():
		for _, v := range raw.Array() {
			if id := idOf(v); id != "" {
				return id
			}
		}
	}

	return ""
}

// DisplayLabel renders a label value as a single string.
//
// It accepts plain strings, version 3 language maps (`{"en": ["..."]}`) and
// version 2 value lists (`[{"@value": "...", "@language": "en"}]`).
// Language maps prefer `none`, then `en`, then the first language in lexical order.
func DisplayLabel(raw gjson.Result) string {
	switch {
	case raw.Type == gjson.String:
		return raw.String()
	case raw.IsArray():
		for _, v := range raw.Array() {
			if text := DisplayLabel(v); text != "" {
				return text
			}
		}
		return ""
	case raw.IsObject():
		if v := member(raw, "@value"); v.Exists() {
			return v.String()
		}

		fields := raw.Map()
		codes := make([]string, 0, len(fields))
		for code := range fields {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		for _, preferred := range []string{"en", "none"} {
			codes = append([]string{preferred}, codes...)
		}

		for _, code := range codes {
			if v, ok := fields[code]; ok {
				if text := joinValues(v); text != "" {
					return text
				}
			}
		}
	}

	return ""
}

func joinValues(raw gjson.Result) string {
	values := list(raw)
	parts := make([]string, 0, len(values))
	for _, v := range values {
		if v.Type == gjson.String && v.String() != "" {
			parts = append(parts, v.String())
		}
	}

	return strings.Join(parts, " ")
}
