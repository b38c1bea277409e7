package iiif

import (
	"github.com/tidwall/gjson"
)

// AnnotationPage wraps an annotation page. Content search responses are annotation pages
// whose `items` are the matched resources and whose `annotations` hold nested pages of
// text-quote annotations pointing back at those items.
type AnnotationPage struct {
	raw gjson.Result
}

// NewAnnotationPage wraps an already decoded annotation page.
func NewAnnotationPage(raw gjson.Result) *AnnotationPage {
	return &AnnotationPage{raw: raw}
}

// ParseAnnotationPage decodes an annotation page document.
func ParseAnnotationPage(data []byte) (*AnnotationPage, error) {
	root, err := parseDocument(data)
	if err != nil {
		return nil, err
	}

	return NewAnnotationPage(root), nil
}

// ID returns the page identifier.
func (p *AnnotationPage) ID() string {
	return idOf(member(p.raw, "id", "@id"))
}

// Items returns the top-level annotations of the page.
func (p *AnnotationPage) Items() []Annotation {
	values := list(member(p.raw, "items", "resources"))
	items := make([]Annotation, 0, len(values))
	for _, v := range values {
		if v.IsObject() {
			items = append(items, NewAnnotation(v))
		}
	}

	return items
}

// NestedPages returns the annotation pages embedded under `annotations`.
func (p *AnnotationPage) NestedPages() []*AnnotationPage {
	values := list(member(p.raw, "annotations"))
	pages := make([]*AnnotationPage, 0, len(values))
	for _, v := range values {
		if v.IsObject() {
			pages = append(pages, NewAnnotationPage(v))
		}
	}

	return pages
}

// Next returns the URL of the following page, or "" on the last page.
func (p *AnnotationPage) Next() string {
	return idOf(member(p.raw, "next"))
}

// PartOf returns the identifier of the resource this page belongs to, if declared.
func (p *AnnotationPage) PartOf() string {
	return idOf(member(p.raw, "partOf"))
}
