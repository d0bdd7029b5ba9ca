package routes

import (
	"net/http"

	"slidepack/logger"
	"slidepack/models"
)

// GetSlidesHandler resolves a presentation page into slide metadata and previews.
func (s *Server) GetSlidesHandler(w http.ResponseWriter, r *http.Request) {
	logger.Debugf("Get slides request: remoteAddr=%s", r.RemoteAddr)

	var req models.GetSlidesRequest
	if err := s.decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.SlideshareURL == "" {
		writeError(w, models.Validationf("slideshareUrl is required"))
		return
	}

	resp, err := s.Locator.Locate(r.Context(), req.SlideshareURL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
