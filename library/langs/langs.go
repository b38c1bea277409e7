// Package langs derives the languages offered by a manifest's annotations.
package langs

import (
	"github.com/tidwall/gjson"

	"github.com/Laisky/tamerlane/library/iiif"
)

// Language is a selectable content language.
type Language struct {
	Code string `json:"code" mapstructure:"code"`
	Name string `json:"name" mapstructure:"name"`
}

// Defaults is the language table used when none is configured.
var Defaults = []Language{
	{Code: "en", Name: "English"},
	{Code: "fr", Name: "Français"},
	{Code: "de", Name: "Deutsch"},
	{Code: "es", Name: "Español"},
	{Code: "it", Name: "Italiano"},
	{Code: "nl", Name: "Nederlands"},
}

// ExtractFromAnnotations collects the language codes used by annotations.
//
// Codes come from language maps in body values, from body `language`
// properties and from label language maps. Each code appears once, in the
// order first seen. Names are looked up in available; unknown codes use the
// code as their name.
func ExtractFromAnnotations(annotations []iiif.Annotation, available []Language) []Language {
	var (
		codes []string
		seen  = map[string]struct{}{}
	)
	add := func(code string) {
		if code == "" {
			return
		}
		if _, ok := seen[code]; ok {
			return
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}

	for _, anno := range annotations {
		for _, body := range anno.Bodies() {
			if !body.IsObject() {
				continue
			}

			fields := body.Map()
			if value := fields["value"]; value.IsObject() {
				forEachKey(value, add)
			}
			if lang := fields["language"]; lang.Type == gjson.String {
				add(lang.String())
			}
		}

		if label := anno.Label(); label.IsObject() {
			forEachKey(label, add)
		}
	}

	names := make(map[string]string, len(available))
	for _, lang := range available {
		names[lang.Code] = lang.Name
	}

	languages := make([]Language, 0, len(codes))
	for _, code := range codes {
		name := names[code]
		if name == "" {
			name = code
		}
		languages = append(languages, Language{Code: code, Name: name})
	}

	return languages
}

// forEachKey visits object keys in document order.
func forEachKey(obj gjson.Result, fn func(string)) {
	obj.ForEach(func(key, _ gjson.Result) bool {
		fn(key.String())
		return true
	})
}

// Next returns the language after current, wrapping around.
// An unknown current yields the first language; an empty list yields the zero Language.
func Next(available []Language, current string) Language {
	if len(available) == 0 {
		return Language{}
	}

	idx := -1
	for i, lang := range available {
		if lang.Code == current {
			idx = i
			break
		}
	}

	return available[(idx+1)%len(available)]
}

// Find returns the language with code.
func Find(available []Language, code string) (Language, bool) {
	for _, lang := range available {
		if lang.Code == code {
			return lang, true
		}
	}

	return Language{}, false
}
