package cmd

import (
	"fmt"
	"math"
	"net"
	"net/url"
	"strconv"
	"strings"

	errors "github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
)

// configGetter retrieves raw configuration values by dotted key path.
type configGetter func(key string) any

// validateStartupConfig validates startup configuration from the shared config source.
// It returns an error when any configured value is malformed or violates constraints.
func validateStartupConfig() error {
	return validateStartupConfigWithGetter(func(key string) any {
		return gconfig.S.Get(key)
	})
}

// validateStartupConfigWithGetter validates startup configuration via a key-value getter.
// It accepts a value getter and returns nil when all configured values are valid.
func validateStartupConfigWithGetter(get configGetter) error {
	if get == nil {
		return errors.New("config getter is nil")
	}

	validationErrs := make([]string, 0)

	validateAppConfig(get, &validationErrs)
	validateSearchConfig(get, &validationErrs)
	validateHTTPConfig(get, &validationErrs)
	validateLanguagesConfig(get, &validationErrs)
	validateFlagsConfig(get, &validationErrs)

	if len(validationErrs) == 0 {
		return nil
	}

	return errors.Errorf("invalid configuration:\n - %s", strings.Join(validationErrs, "\n - "))
}

// validateAppConfig validates viewer presentation settings.
func validateAppConfig(get configGetter, errs *[]string) {
	validateOptionalStringNonEmpty(get, "settings.app.name", errs)
	validateOptionalBool(get, "settings.app.show_logo", errs)
	validateOptionalIntMin(get, "settings.page_limits.manifests", 1, errs)
}

// validateSearchConfig validates content search pagination settings.
func validateSearchConfig(get configGetter, errs *[]string) {
	validateOptionalIntMin(get, "settings.search.max_pages", 1, errs)
}

// validateHTTPConfig validates the settings of outgoing IIIF requests.
func validateHTTPConfig(get configGetter, errs *[]string) {
	validateOptionalIntMin(get, "settings.http.timeout_ms", 1, errs)
	validateOptionalStringNonEmpty(get, "settings.http.user_agent", errs)
}

// validateLanguagesConfig validates the configured language table.
// Every entry must be an object with a unique non-empty code and an optional string name.
func validateLanguagesConfig(get configGetter, errs *[]string) {
	raw := get("settings.languages")
	if raw == nil {
		return
	}

	entries, ok := raw.([]any)
	if !ok {
		appendValidationError(errs, "settings.languages must be a list")
		return
	}

	seen := map[string]struct{}{}
	for i, entryVal := range entries {
		entry := toStringMap(entryVal)
		if entry == nil {
			appendValidationError(errs, "settings.languages[%d] must be an object", i)
			continue
		}

		code, parseErr := parseStrictString(entry["code"])
		code = strings.TrimSpace(code)
		if parseErr != nil || code == "" {
			appendValidationError(errs, "settings.languages[%d].code must be a non-empty string", i)
			continue
		}
		if _, dup := seen[code]; dup {
			appendValidationError(errs, "settings.languages[%d].code %q is duplicated", i, code)
		}
		seen[code] = struct{}{}

		if nameVal, ok := entry["name"]; ok {
			if _, parseErr := parseStrictString(nameVal); parseErr != nil {
				appendValidationError(errs, "settings.languages[%d].name must be a string", i)
			}
		}
	}
}

// validateFlagsConfig validates command line values that share the configuration namespace.
func validateFlagsConfig(get configGetter, errs *[]string) {
	if raw := get("content"); raw != nil && raw != "" {
		validateOptionalURL(get, "content", errs)
	}
	validateOptionalHostPort(get, "listen", errs)
}

// validateOptionalBool validates an optionally configured boolean key.
// It accepts a getter, the key, and an error collector pointer and appends validation errors.
func validateOptionalBool(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	if _, ok := parseStrictBool(raw); !ok {
		appendValidationError(errs, "%s must be a boolean", key)
	}
}

// validateOptionalIntMin validates an optionally configured integer key with a minimum constraint.
// It accepts a getter, the key, a minimum value, and an error collector pointer and appends validation errors.
func validateOptionalIntMin(get configGetter, key string, min int, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictInt(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be an integer", key)
		return
	}

	if value < min {
		appendValidationError(errs, "%s must be >= %d", key, min)
	}
}

// validateOptionalURL validates an optionally configured absolute URL key.
// It accepts a getter, the key, and an error collector pointer and appends validation errors.
func validateOptionalURL(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictString(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be a string URL", key)
		return
	}

	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		appendValidationError(errs, "%s must not be empty", key)
		return
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		appendValidationError(errs, "%s must be a valid absolute URL", key)
	}
}

// validateOptionalStringNonEmpty validates an optionally configured non-empty string key.
// It accepts a getter, the key, and an error collector pointer and appends validation errors.
func validateOptionalStringNonEmpty(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictString(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be a string", key)
		return
	}

	if strings.TrimSpace(value) == "" {
		appendValidationError(errs, "%s must not be empty", key)
	}
}

// parseStrictBool parses a value as boolean using strict conversion rules.
// It accepts a raw value and returns the parsed boolean and whether parsing succeeded.
func parseStrictBool(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case int:
		return v != 0, true
	case int64:
		return v != 0, true
	case float64:
		if math.Trunc(v) != v {
			return false, false
		}
		return int64(v) != 0, true
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return false, false
		}
		switch strings.ToLower(trimmed) {
		case "true", "1", "yes":
			return true, true
		case "false", "0", "no":
			return false, true
		default:
			return false, false
		}
	default:
		return false, false
	}
}

// parseStrictInt parses a value as a strict integer.
// It accepts a raw value and returns the parsed int and an error when parsing fails.
func parseStrictInt(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if math.Trunc(v) != v {
			return 0, errors.Errorf("%v is not an integer", v)
		}
		return int(v), nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, errors.New("empty integer string")
		}
		parsed, err := strconv.Atoi(trimmed)
		if err != nil {
			return 0, errors.Wrap(err, "atoi")
		}
		return parsed, nil
	default:
		return 0, errors.Errorf("unsupported int type %T", value)
	}
}

// parseStrictString parses a value as a strict string.
// It accepts a raw value and returns the parsed string and an error when parsing fails.
func parseStrictString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", errors.Errorf("unsupported string type %T", value)
	}
}

// validateOptionalHostPort validates an optionally configured `host:port` listen address.
// It accepts a getter, the key, and an error collector pointer and appends validation errors.
func validateOptionalHostPort(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictString(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be a string address", key)
		return
	}

	trimmed := strings.TrimSpace(value)
	if strings.Contains(trimmed, "://") || strings.Contains(trimmed, "/") {
		appendValidationError(errs, "%s must be host:port without scheme or path", key)
		return
	}

	_, port, err := net.SplitHostPort(trimmed)
	if err != nil {
		appendValidationError(errs, "%s must be host:port", key)
		return
	}
	if n, err := strconv.Atoi(port); err != nil || n < 0 || n > 65535 {
		appendValidationError(errs, "%s has an invalid port", key)
	}
}

// toStringMap normalises the map shapes produced by YAML decoding into map[string]any.
// It returns nil when the value is not a map.
func toStringMap(value any) map[string]any {
	switch v := value.(type) {
	case map[string]any:
		return v
	case map[string]string:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[k] = val
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[fmt.Sprint(k)] = val
		}
		return out
	default:
		return nil
	}
}

// appendValidationError appends a formatted validation error to the collector.
// It accepts an error slice pointer, a format string, and format arguments, and has no return value.
func appendValidationError(errs *[]string, format string, args ...any) {
	if errs == nil {
		return
	}
	*errs = append(*errs, fmt.Sprintf(format, args...))
}
