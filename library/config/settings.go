package config

import (
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
	"github.com/Laisky/zap"

	"github.com/Laisky/tamerlane/library/langs"
	"github.com/Laisky/tamerlane/library/log"
)

const (
	KeyAppName           = "settings.app.name"
	KeyShowLogo          = "settings.app.show_logo"
	KeyMaxSearchPages    = "settings.search.max_pages"
	KeyHTTPTimeoutMS     = "settings.http.timeout_ms"
	KeyUserAgent         = "settings.http.user_agent"
	KeyLanguages         = "settings.languages"
	KeyManifestPageLimit = "settings.page_limits.manifests"
)

const (
	DefaultAppName           = "Tamerlane"
	DefaultMaxSearchPages    = 10
	DefaultHTTPTimeout       = 10 * time.Second
	DefaultUserAgent         = "tamerlane-iiif-viewer"
	DefaultManifestPageLimit = 20
)

func defaults() map[string]any {
	return map[string]any{
		KeyAppName:           DefaultAppName,
		KeyShowLogo:          true,
		KeyMaxSearchPages:    DefaultMaxSearchPages,
		KeyHTTPTimeoutMS:     int(DefaultHTTPTimeout / time.Millisecond),
		KeyUserAgent:         DefaultUserAgent,
		KeyManifestPageLimit: DefaultManifestPageLimit,
	}
}

// AppName returns the display name of the viewer.
func AppName() string {
	if name := strings.TrimSpace(gconfig.Shared.GetString(KeyAppName)); name != "" {
		return name
	}
	return DefaultAppName
}

// ShowLogo reports whether the viewer header shows the logo.
func ShowLogo() bool {
	if gconfig.Shared.Get(KeyShowLogo) == nil {
		return true
	}
	return gconfig.Shared.GetBool(KeyShowLogo)
}

// MaxSearchPages returns the number of search result pages fetched per query.
func MaxSearchPages() int {
	if n := gconfig.Shared.GetInt(KeyMaxSearchPages); n > 0 {
		return n
	}
	return DefaultMaxSearchPages
}

// HTTPTimeout returns the timeout applied to each IIIF request.
func HTTPTimeout() time.Duration {
	if ms := gconfig.Shared.GetInt(KeyHTTPTimeoutMS); ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return DefaultHTTPTimeout
}

// UserAgent returns the User-Agent sent with IIIF requests.
func UserAgent() string {
	if ua := strings.TrimSpace(gconfig.Shared.GetString(KeyUserAgent)); ua != "" {
		return ua
	}
	return DefaultUserAgent
}

// ManifestPageLimit returns how many manifests a collection listing shows at once.
func ManifestPageLimit() int {
	if n := gconfig.Shared.GetInt(KeyManifestPageLimit); n > 0 {
		return n
	}
	return DefaultManifestPageLimit
}

// Languages returns the configured language table, or langs.Defaults when
// the key is unset or malformed.
func Languages() []langs.Language {
	if gconfig.Shared.Get(KeyLanguages) == nil {
		return langs.Defaults
	}

	var configured []langs.Language
	if err := gconfig.Shared.UnmarshalKey(KeyLanguages, &configured); err != nil {
		log.Logger.Warn("ignore invalid language configuration", zap.Error(err))
		return langs.Defaults
	}

	parsed, err := NormalizeLanguages(configured)
	if err != nil {
		log.Logger.Warn("ignore invalid language configuration", zap.Error(err))
		return langs.Defaults
	}
	if len(parsed) == 0 {
		return langs.Defaults
	}

	return parsed
}

// NormalizeLanguages trims a decoded language table. Every entry needs a code;
// a missing name falls back to the code.
func NormalizeLanguages(configured []langs.Language) ([]langs.Language, error) {
	out := make([]langs.Language, 0, len(configured))
	for i, lang := range configured {
		code := strings.TrimSpace(lang.Code)
		if code == "" {
			return nil, errors.Errorf("languages[%d].code is required", i)
		}
		name := strings.TrimSpace(lang.Name)
		if name == "" {
			name = code
		}

		out = append(out, langs.Language{Code: code, Name: name})
	}

	return out, nil
}
