// Package handlers implements the HTTP endpoints of the fwlens API.
package handlers

import (
	"errors"
	"net/http"

	"github.com/telhawk-systems/fwlens/analytics"
	"github.com/telhawk-systems/fwlens/api/internal/service"
	"github.com/telhawk-systems/fwlens/common/httputil"
)

// SearchResponse is the body of POST /api/v1/search.
type SearchResponse struct {
	Request analytics.SearchRequest `json:"request"`
	Results []analytics.RawEvent    `json:"results"`
}

// AnalysisHandler serves search and analyze requests.
type AnalysisHandler struct {
	svc *service.AnalysisService
}

// NewAnalysisHandler creates an AnalysisHandler.
func NewAnalysisHandler(svc *service.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{svc: svc}
}

// decodeRequest reads an optional SearchRequest body. An empty body means all
// defaults.
func decodeRequest(w http.ResponseWriter, r *http.Request) (analytics.SearchRequest, bool) {
	var req analytics.SearchRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil && !errors.Is(err, httputil.ErrEmptyBody) {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	return req, true
}

func writeSearchError(w http.ResponseWriter, err error) {
	if errors.Is(err, analytics.ErrSearchFailed) {
		httputil.WriteError(w, http.StatusBadGateway, "search backend unavailable")
		return
	}
	httputil.WriteError(w, http.StatusInternalServerError, "internal error")
}

// Search returns the raw hits for the request.
func (h *AnalysisHandler) Search(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}

	req, events, err := h.svc.Search(r.Context(), req)
	if err != nil {
		writeSearchError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, SearchResponse{Request: req, Results: events})
}

// Analyze runs the full pipeline and returns the report.
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}

	report, err := h.svc.Analyze(r.Context(), req, service.SourceHTTP)
	if err != nil {
		writeSearchError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, report)
}
