package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/Laisky/tamerlane/internal/viewer"
	"github.com/Laisky/tamerlane/library/iiif"
	"github.com/Laisky/tamerlane/library/langs"
	"github.com/Laisky/tamerlane/library/search"
)

type errorResponse struct {
	Error string `json:"error"`
}

type contentRequest struct {
	URL string `json:"url" binding:"required"`
}

type panelRequest struct {
	Tab string `json:"tab" binding:"required"`
}

type languageRequest struct {
	Code string `json:"code"`
}

type searchResponse struct {
	Query   string           `json:"query"`
	Results []search.Snippet `json:"results"`
	Total   int              `json:"total"`
	Error   string           `json:"error,omitempty"`
}

type autocompleteResponse struct {
	Query string      `json:"query"`
	Terms []iiif.Term `json:"terms"`
}

type languagesResponse struct {
	Available []langs.Language `json:"available"`
	Selected  string           `json:"selected"`
}

func abortWithError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, errorResponse{Error: msg})
}

func (s *Server) getState(c *gin.Context) {
	c.JSON(http.StatusOK, s.viewer.Snapshot())
}

func (s *Server) loadContent(c *gin.Context) {
	var req contentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	contentURL := strings.TrimSpace(req.URL)
	if contentURL == "" {
		abortWithError(c, http.StatusBadRequest, "url is required")
		return
	}

	if err := s.viewer.LoadContent(c, contentURL); err != nil {
		gmw.GetLogger(c).Warn("load content", zap.Error(err))
		abortWithError(c, http.StatusBadGateway, s.viewer.Snapshot().Error)
		return
	}

	c.JSON(http.StatusOK, s.viewer.Snapshot())
}

// openManifest handles a manifest index as well as the `next` and `previous` steps.
func (s *Server) openManifest(c *gin.Context) {
	var err error
	switch param := c.Param("index"); param {
	case "next":
		err = s.viewer.NextManifest(c)
	case "previous":
		err = s.viewer.PreviousManifest(c)
	default:
		index, parseErr := strconv.Atoi(param)
		if parseErr != nil {
			abortWithError(c, http.StatusBadRequest, "manifest index must be an integer")
			return
		}
		err = s.viewer.FetchManifestByIndex(c, index)
	}

	if err != nil {
		if errors.Is(err, viewer.ErrManifestIndexOutOfRange) {
			abortWithError(c, http.StatusBadRequest, err.Error())
			return
		}

		gmw.GetLogger(c).Warn("open manifest", zap.Error(err))
		abortWithError(c, http.StatusBadGateway, s.viewer.Snapshot().Error)
		return
	}

	c.JSON(http.StatusOK, s.viewer.Snapshot())
}

// openCanvas handles a canvas index as well as the `next`, `previous` and `reset` steps.
func (s *Server) openCanvas(c *gin.Context) {
	switch param := c.Param("index"); param {
	case "next":
		s.viewer.NextCanvas()
	case "previous":
		s.viewer.PreviousCanvas()
	case "reset":
		s.viewer.ResetCanvasIndex()
	default:
		index, err := strconv.Atoi(param)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "canvas index must be an integer")
			return
		}
		if err := s.viewer.SelectCanvas(index); err != nil {
			abortWithError(c, http.StatusBadRequest, err.Error())
			return
		}
	}

	c.JSON(http.StatusOK, s.viewer.Snapshot())
}

func (s *Server) autocomplete(c *gin.Context) {
	prefix := strings.TrimSpace(c.Query("q"))
	if prefix == "" {
		abortWithError(c, http.StatusBadRequest, "q is required")
		return
	}
	if s.viewer.Snapshot().AutocompleteURL == "" {
		abortWithError(c, http.StatusConflict, "current content has no autocomplete service")
		return
	}

	terms, err := s.viewer.Autocomplete(c, prefix)
	if err != nil {
		gmw.GetLogger(c).Warn("autocomplete", zap.Error(err))
		abortWithError(c, http.StatusBadGateway, "autocomplete failed")
		return
	}
	if terms == nil {
		terms = []iiif.Term{}
	}

	c.JSON(http.StatusOK, autocompleteResponse{Query: prefix, Terms: terms})
}

func (s *Server) search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		abortWithError(c, http.StatusBadRequest, "q is required")
		return
	}
	if s.viewer.Snapshot().SearchURL == "" {
		abortWithError(c, http.StatusConflict, "current content has no search service")
		return
	}

	s.viewer.HandleSearch(c, query)

	resp := searchResponse{
		Query:   query,
		Results: s.viewer.VisibleSearchResults(),
	}
	state := s.viewer.Snapshot()
	resp.Total = len(state.SearchResults)
	resp.Error = state.Error

	status := http.StatusOK
	if resp.Error != "" {
		status = http.StatusBadGateway
	}
	c.JSON(status, resp)
}

func (s *Server) selectResult(c *gin.Context) {
	id := c.Param("id")
	if err := s.viewer.SelectSearchResult(c, id); err != nil {
		if errors.Is(err, viewer.ErrSearchResultNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
			return
		}

		gmw.GetLogger(c).Warn("select search result", zap.Error(err))
		abortWithError(c, http.StatusBadGateway, s.viewer.Snapshot().Error)
		return
	}

	c.JSON(http.StatusOK, s.viewer.Snapshot())
}

func (s *Server) setPanel(c *gin.Context) {
	var req panelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.viewer.SetActivePanelTab(viewer.PanelTab(req.Tab)); err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	c.JSON(http.StatusOK, s.viewer.Snapshot())
}

func (s *Server) listLanguages(c *gin.Context) {
	c.JSON(http.StatusOK, languagesResponse{
		Available: s.viewer.AvailableLanguages(),
		Selected:  s.viewer.Snapshot().SelectedLanguage,
	})
}

func (s *Server) setLanguage(c *gin.Context) {
	var req languageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	code := strings.TrimSpace(req.Code)
	if code != "" {
		if _, ok := langs.Find(s.viewer.AvailableLanguages(), code); !ok {
			abortWithError(c, http.StatusBadRequest, "unsupported language "+strconv.Quote(code))
			return
		}
	}
	s.viewer.SetSelectedLanguage(code)

	s.listLanguages(c)
}

func (s *Server) cycleLanguage(c *gin.Context) {
	s.viewer.CycleLanguage()
	s.listLanguages(c)
}
