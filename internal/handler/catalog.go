package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/sakif/sneaker-rotation/internal/catalog"
	"github.com/sakif/sneaker-rotation/internal/model"
)

// CatalogHandler proxies catalog searches. The browser never sees the
// catalog credential; it only talks to this endpoint.
type CatalogHandler struct {
	catalog catalog.Searcher
	logger  *zap.Logger
}

func NewCatalogHandler(searcher catalog.Searcher, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: searcher, logger: logger}
}

// searchResponse always carries a products array, even on failure, so the
// search box can render "no results" next to the message.
type searchResponse struct {
	*ErrorResponse
	Products []model.CatalogProduct `json:"products"`
}

// HandleSearch runs a catalog search.
//
// HTTP: GET /api/catalog/search?query=jordan
//
//	200 {"products": [...]}
//	400 {"error": "validation_error", "message": "Missing query", "products": []}
//	502 {"error": "upstream_error", "message": "...", "products": []}
func (h *CatalogHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.Search(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		status, body := errorResponse(err)
		if status >= http.StatusInternalServerError {
			h.logger.Warn("catalog search failed", zap.Int("status", status), zap.Error(err))
		}
		writeJSON(w, status, searchResponse{ErrorResponse: &body, Products: []model.CatalogProduct{}})
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{Products: products})
}
