package iiif

import (
	"strings"

	"github.com/Laisky/errors/v2"
	"github.com/tidwall/gjson"
)

// Info carries the display properties of a manifest or collection.
type Info struct {
	Name    string `json:"name"`
	Summary string `json:"summary,omitempty"`
}

// SearchServices holds the content search endpoints declared by a resource.
type SearchServices struct {
	Service      string `json:"service,omitempty"`
	Autocomplete string `json:"autocomplete,omitempty"`
}

// Image is a painted image resource.
type Image struct {
	ID       string `json:"id"`
	Format   string `json:"format,omitempty"`
	Width    int64  `json:"width,omitempty"`
	Height   int64  `json:"height,omitempty"`
	CanvasID string `json:"canvasId"`
}

// Canvas is a visual surface of a manifest.
type Canvas struct {
	ID     string  `json:"id"`
	Label  string  `json:"label,omitempty"`
	Width  int64   `json:"width,omitempty"`
	Height int64   `json:"height,omitempty"`
	Images []Image `json:"images,omitempty"`
}

// Manifest is the parsed form of a IIIF manifest.
type Manifest struct {
	ID       string         `json:"id"`
	Info     Info           `json:"info"`
	Canvases []Canvas       `json:"canvases"`
	Images   []Image        `json:"images"`
	Search   SearchServices `json:"search"`
	// Annotations are the annotations embedded in the manifest and its canvases.
	Annotations []Annotation `json:"-"`
}

// Collection is the parsed form of a IIIF collection.
type Collection struct {
	ID           string         `json:"id"`
	Info         Info           `json:"info"`
	ManifestURLs []string       `json:"manifestUrls"`
	Search       SearchServices `json:"search"`
}

// ParseManifest decodes a version 2 or version 3 manifest.
func ParseManifest(data []byte) (*Manifest, error) {
	root, err := parseDocument(data)
	if err != nil {
		return nil, errors.Wrap(err, "parse manifest")
	}
	if kind := Classify(root); kind != KindManifest {
		return nil, errors.Errorf("expect %s, got %q", KindManifest, kind)
	}

	m := &Manifest{
		ID:     idOf(member(root, "id", "@id")),
		Info:   infoOf(root),
		Search: searchServicesOf(root),
	}
	m.Annotations = append(m.Annotations, embeddedAnnotations(root)...)

	canvases := list(member(root, "items"))
	if len(canvases) == 0 {
		// version 2 keeps canvases inside the first sequence
		if seqs := list(member(root, "sequences")); len(seqs) > 0 {
			canvases = list(member(seqs[0], "canvases"))
		}
	}

	for _, raw := range canvases {
		if Classify(raw) != KindCanvas {
			continue
		}

		canvas := Canvas{
			ID:     idOf(member(raw, "id", "@id")),
			Label:  DisplayLabel(member(raw, "label")),
			Width:  member(raw, "width").Int(),
			Height: member(raw, "height").Int(),
		}
		canvas.Images = canvasImages(raw, canvas.ID)
		m.Canvases = append(m.Canvases, canvas)
		m.Images = append(m.Images, canvas.Images...)
		m.Annotations = append(m.Annotations, embeddedAnnotations(raw)...)
	}

	return m, nil
}

// ParseCollection decodes a version 2 or version 3 collection.
// Only directly listed member manifests are collected; nested collections are not expanded.
func ParseCollection(data []byte) (*Collection, error) {
	root, err := parseDocument(data)
	if err != nil {
		return nil, errors.Wrap(err, "parse collection")
	}
	if kind := Classify(root); kind != KindCollection {
		return nil, errors.Errorf("expect %s, got %q", KindCollection, kind)
	}

	c := &Collection{
		ID:     idOf(member(root, "id", "@id")),
		Info:   infoOf(root),
		Search: searchServicesOf(root),
	}

	var members []gjson.Result
	members = append(members, list(member(root, "items"))...)
	members = append(members, list(member(root, "manifests"))...)
	members = append(members, list(member(root, "members"))...)
	seen := map[string]struct{}{}
	for _, raw := range members {
		if Classify(raw) != KindManifest {
			continue
		}

		id := idOf(member(raw, "id", "@id"))
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		c.ManifestURLs = append(c.ManifestURLs, id)
	}

	return c, nil
}

func infoOf(root gjson.Result) Info {
	return Info{
		Name:    DisplayLabel(member(root, "label")),
		Summary: DisplayLabel(member(root, "summary", "description")),
	}
}

// canvasImages collects painted images, from annotation pages (v3) or `images` (v2).
func canvasImages(canvas gjson.Result, canvasID string) []Image {
	var annos []gjson.Result
	for _, page := range list(member(canvas, "items")) {
		annos = append(annos, list(member(page, "items"))...)
	}
	annos = append(annos, list(member(canvas, "images"))...)

	var images []Image
	for _, raw := range annos {
		anno := NewAnnotation(raw)
		if m := anno.Motivation(); m != "" && !strings.HasSuffix(m, "painting") {
			continue
		}

		for _, body := range anno.Bodies() {
			for _, choice := range append([]gjson.Result{body}, list(member(body, "items"))...) {
				id := idOf(member(choice, "id", "@id"))
				if id == "" || member(choice, "items").Exists() {
					continue
				}

				images = append(images, Image{
					ID:       id,
					Format:   stringOf(member(choice, "format")),
					Width:    member(choice, "width").Int(),
					Height:   member(choice, "height").Int(),
					CanvasID: canvasID,
				})
			}
		}
	}

	return images
}

// embeddedAnnotations returns the annotations of embedded (not referenced) pages under `annotations`.
func embeddedAnnotations(raw gjson.Result) []Annotation {
	var annos []Annotation
	for _, page := range list(member(raw, "annotations")) {
		annos = append(annos, NewAnnotationPage(page).Items()...)
	}

	return annos
}

// searchServicesOf finds the content search service and its autocomplete service.
func searchServicesOf(root gjson.Result) SearchServices {
	var found SearchServices
	services := append(list(member(root, "service")), list(member(root, "services"))...)
	for _, svc := range services {
		if !isServiceOf(svc, "SearchService", "search") {
			continue
		}
		if found.Service == "" {
			found.Service = idOf(member(svc, "id", "@id"))
		}

		for _, nested := range list(member(svc, "service")) {
			if found.Autocomplete == "" && isServiceOf(nested, "AutoCompleteService", "autocomplete") {
				found.Autocomplete = idOf(member(nested, "id", "@id"))
			}
		}
	}

	return found
}

// isServiceOf reports whether svc declares a type starting with typePrefix
// or a profile containing profileWord.
func isServiceOf(svc gjson.Result, typePrefix, profileWord string) bool {
	typ := stringOf(member(svc, "type", "@type"))
	if strings.HasPrefix(typ, typePrefix) {
		return true
	}

	profile := strings.ToLower(stringOf(member(svc, "profile")))
	if profileWord == "search" && strings.Contains(profile, "autocomplete") {
		return false
	}

	return strings.Contains(profile, profileWord)
}
