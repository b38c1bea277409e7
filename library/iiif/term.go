package iiif

// Term is a completion suggested by an autocomplete service.
type Term struct {
	Value string `json:"value"`
	// Total is the number of matches of the term, zero when the service does not say.
	Total int64 `json:"total,omitempty"`
	// URL runs a search for the term, when the service provides one.
	URL string `json:"url,omitempty"`
}

// ParseTermPage decodes an autocomplete response. Version 2 pages list `items`
// with `value`/`total`; version 1 lists list `terms` with `match`/`count`.
func ParseTermPage(data []byte) ([]Term, error) {
	root, err := parseDocument(data)
	if err != nil {
		return nil, err
	}

	var terms []Term
	for _, raw := range append(list(member(root, "items")), list(member(root, "terms"))...) {
		value := stringOf(member(raw, "value", "match"))
		if value == "" {
			continue
		}

		terms = append(terms, Term{
			Value: value,
			Total: member(raw, "total", "count").Int(),
			URL:   idOf(member(raw, "service", "url")),
		})
	}

	return terms, nil
}
