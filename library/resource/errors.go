package resource

import "fmt"

// ResourceError reports a fetched payload whose declared type is missing or not the one expected.
// It is terminal for the operation that requested the resource.
type ResourceError struct {
	URL string
}

// NewResourceError returns a ResourceError for url.
func NewResourceError(url string) *ResourceError {
	return &ResourceError{URL: url}
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("Invalid or empty response received from %s", e.URL)
}
