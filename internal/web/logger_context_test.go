// Package web tests context-aware logger usage in handlers.
package web

import (
	"net/http"
	"net/http/httptest"
	"testing"

	gmw "github.com/Laisky/gin-middlewares/v7"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/Laisky/tamerlane/internal/viewer"
)

func TestServerAttachesContextLogger(t *testing.T) {
	setupGinTestMode()

	srv, _ := newTestServer(t, nil)
	var hasLogger, hasGinCtx bool
	srv.engine.GET("/test-logger", func(c *gin.Context) {
		logger := gmw.GetLogger(c)
		hasLogger = logger != nil
		_, hasGinCtx = gmw.GetGinCtxFromStdCtx(c)
		if logger != nil {
			logger.Debug("test log message", zap.String("key", "value"))
		}
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test-logger", nil))

	require.Equal(t, http.StatusNoContent, w.Code)
	require.True(t, hasLogger, "Logger should be accessible from context")
	require.True(t, hasGinCtx, "Gin context should be accessible via gmw.GetGinCtxFromStdCtx")
}

func TestWithLoggerOption(t *testing.T) {
	setupGinTestMode()

	custom := logSDK.Shared.Named("test_web_logger")
	store, err := viewer.NewStore(&stubSearcher{}, &stubLoader{})
	require.NoError(t, err)
	srv, err := NewServer(store, WithLogger(custom))
	require.NoError(t, err)
	require.Equal(t, custom, srv.logger)
}
