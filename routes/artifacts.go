package routes

import (
	"net/http"
	"time"

	"slidepack/logger"
	"slidepack/models"
)

// ArtifactStatus is a ledger record plus its pending deletion, if any.
type ArtifactStatus struct {
	models.ArtifactRecord
	OnDisk      bool       `json:"on_disk"`
	DeletionDue *time.Time `json:"deletion_due,omitempty"`
}

// ArtifactStatusHandler returns one artifact with ?file=, or all of them.
func (s *Server) ArtifactStatusHandler(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("file")

	due := make(map[string]time.Time)
	for _, t := range s.Scheduler.Pending() {
		due[t.Name] = t.Due
	}
	status := func(rec models.ArtifactRecord) ArtifactStatus {
		st := ArtifactStatus{ArtifactRecord: rec, OnDisk: s.Dirs.Exists(rec.Filename)}
		if d, ok := due[rec.Filename]; ok {
			st.DeletionDue = &d
		}
		return st
	}

	if name != "" {
		rec, err := s.Ledger.GetArtifact(name)
		if err != nil {
			writeError(w, err)
			return
		}
		if rec == nil {
			writeError(w, models.NotFoundf("Artifact %s not found", name))
			return
		}
		writeJSON(w, http.StatusOK, status(*rec))
		return
	}

	records, err := s.Ledger.ListArtifacts()
	if err != nil {
		logger.Errorf("Failed to list artifacts: %v", err)
		writeError(w, err)
		return
	}
	list := make([]ArtifactStatus, 0, len(records))
	for _, rec := range records {
		list = append(list, status(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"artifacts": list,
		"count":     len(list),
	})
}

// FailureListHandler lists recorded generation failures, newest first.
func (s *Server) FailureListHandler(w http.ResponseWriter, r *http.Request) {
	failures, err := s.Ledger.ListFailures()
	if err != nil {
		logger.Errorf("Failed to list failures: %v", err)
		writeError(w, err)
		return
	}
	if failures == nil {
		failures = []models.FailureRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"failures": failures,
		"count":    len(failures),
	})
}
