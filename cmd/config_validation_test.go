package cmd

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestValidateStartupConfigWithGetterEmpty verifies empty configuration passes validation.
func TestValidateStartupConfigWithGetterEmpty(t *testing.T) {
	err := validateStartupConfigWithGetter(newMapConfigGetter(map[string]any{}))
	require.NoError(t, err)
}

// TestValidateStartupConfigWithGetterNil verifies a missing getter is rejected.
func TestValidateStartupConfigWithGetterNil(t *testing.T) {
	require.Error(t, validateStartupConfigWithGetter(nil))
}

// TestValidateStartupConfigWithGetterInvalidBoolean verifies invalid boolean configuration fails validation.
func TestValidateStartupConfigWithGetterInvalidBoolean(t *testing.T) {
	cfg := map[string]any{
		"settings": map[string]any{
			"app": map[string]any{
				"show_logo": "sometimes",
			},
		},
	}

	err := validateStartupConfigWithGetter(newMapConfigGetter(cfg))
	require.Error(t, err)
	require.Contains(t, err.Error(), "settings.app.show_logo")
}

// TestValidateStartupConfigWithGetterInvalidLimits verifies non-positive limits fail validation.
func TestValidateStartupConfigWithGetterInvalidLimits(t *testing.T) {
	cfg := map[string]any{
		"settings": map[string]any{
			"search": map[string]any{"max_pages": 0},
			"http": map[string]any{
				"timeout_ms": "fast",
				"user_agent": "  ",
			},
			"page_limits": map[string]any{"manifests": -3},
		},
	}

	err := validateStartupConfigWithGetter(newMapConfigGetter(cfg))
	require.Error(t, err)
	require.Contains(t, err.Error(), "settings.search.max_pages must be >= 1")
	require.Contains(t, err.Error(), "settings.http.timeout_ms must be an integer")
	require.Contains(t, err.Error(), "settings.http.user_agent must not be empty")
	require.Contains(t, err.Error(), "settings.page_limits.manifests must be >= 1")
}

// TestValidateStartupConfigWithGetterInvalidLanguages verifies malformed language tables fail validation.
func TestValidateStartupConfigWithGetterInvalidLanguages(t *testing.T) {
	cfg := map[string]any{
		"settings": map[string]any{
			"languages": []any{
				map[string]any{"code": "en", "name": "English"},
				"fr",
				map[any]any{"code": "en"},
				map[string]any{"name": "Deutsch"},
				map[string]any{"code": "nl", "name": 42},
			},
		},
	}

	err := validateStartupConfigWithGetter(newMapConfigGetter(cfg))
	require.Error(t, err)
	msg := err.Error()
	require.Contains(t, msg, "settings.languages[1] must be an object")
	require.Contains(t, msg, `settings.languages[2].code "en" is duplicated`)
	require.Contains(t, msg, "settings.languages[3].code must be a non-empty string")
	require.Contains(t, msg, "settings.languages[4].name must be a string")
	require.False(t, strings.Contains(msg, "settings.languages[0]"))
}

// TestValidateStartupConfigWithGetterLanguagesNotList verifies a scalar language table fails validation.
func TestValidateStartupConfigWithGetterLanguagesNotList(t *testing.T) {
	cfg := map[string]any{
		"settings": map[string]any{"languages": "en,fr"},
	}

	err := validateStartupConfigWithGetter(newMapConfigGetter(cfg))
	require.ErrorContains(t, err, "settings.languages must be a list")
}

// TestValidateStartupConfigWithGetterFlags verifies listen and content flag validation.
func TestValidateStartupConfigWithGetterFlags(t *testing.T) {
	require.NoError(t, validateStartupConfigWithGetter(newMapConfigGetter(map[string]any{
		"listen":  "localhost:8080",
		"content": "",
	})))

	err := validateStartupConfigWithGetter(newMapConfigGetter(map[string]any{
		"listen":  "http://localhost:8080",
		"content": "not a url",
	}))
	require.Error(t, err)
	require.Contains(t, err.Error(), "listen must be host:port without scheme or path")
	require.Contains(t, err.Error(), "content must be a valid absolute URL")

	err = validateStartupConfigWithGetter(newMapConfigGetter(map[string]any{"listen": "localhost"}))
	require.ErrorContains(t, err, "listen must be host:port")

	err = validateStartupConfigWithGetter(newMapConfigGetter(map[string]any{"listen": ":99999"}))
	require.ErrorContains(t, err, "listen has an invalid port")
}

// TestValidateStartupConfigWithGetterValidConfig verifies valid explicit configuration passes validation.
func TestValidateStartupConfigWithGetterValidConfig(t *testing.T) {
	cfg := map[string]any{
		"listen":  "0.0.0.0:8080",
		"content": "https://example.org/iiif/manifest.json",
		"settings": map[string]any{
			"app": map[string]any{
				"name":      "Reading Room",
				"show_logo": "yes",
			},
			"search":      map[string]any{"max_pages": 5},
			"http":        map[string]any{"timeout_ms": "2500", "user_agent": "reading-room/1.0"},
			"page_limits": map[string]any{"manifests": 20},
			"languages": []any{
				map[string]any{"code": "en", "name": "English"},
				map[any]any{"code": "la"},
			},
		},
	}

	err := validateStartupConfigWithGetter(newMapConfigGetter(cfg))
	require.NoError(t, err)
}

// newMapConfigGetter builds a dotted-path getter for nested map-based test configuration.
// It accepts a nested map and returns a getter function compatible with validateStartupConfigWithGetter.
func newMapConfigGetter(root map[string]any) configGetter {
	return func(key string) any {
		if key == "" {
			return nil
		}

		parts := strings.Split(key, ".")
		var current any = root
		for _, part := range parts {
			nextMap, ok := current.(map[string]any)
			if !ok {
				return nil
			}

			next, exists := nextMap[part]
			if !exists {
				return nil
			}
			current = next
		}

		return current
	}
}
