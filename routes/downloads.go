package routes

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"slidepack/logger"
	"slidepack/models"
	"slidepack/storage"
)

var errFileNotFound = models.NotFoundf("File not found")

// DownloadHandler streams an artifact. The first successful lookup marks the
// artifact served and starts its retention countdown, whether or not the
// client reads the whole body.
func (s *Server) DownloadHandler(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("filename")
	logger.Debugf("Download request: file=%s, remoteAddr=%s", name, r.RemoteAddr)

	path, err := s.Dirs.DownloadPath(name)
	if err != nil {
		writeError(w, errFileNotFound)
		return
	}
	f, err := os.Open(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Errorf("Failed to open %s: %v", path, err)
		}
		writeError(w, errFileNotFound)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		writeError(w, errFileNotFound)
		return
	}

	s.markServed(name)

	w.Header().Set("Content-Type", storage.ContentType(name))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeContent(w, r, name, info.ModTime(), f)
}

func (s *Server) markServed(name string) {
	_, first, err := s.Ledger.MarkServed(name)
	if err != nil {
		logger.Errorf("Failed to mark %s served: %v", name, err)
		return
	}
	if !first {
		return
	}
	s.Scheduler.Schedule(name, s.Config.Retention.Duration, func() error { return s.removeArtifact(name) })
	logger.Infof("Artifact %s served, deleting in %v", name, s.Config.Retention.Duration)
}

// DeleteDownloadHandler removes an artifact right away.
func (s *Server) DeleteDownloadHandler(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("filename")
	logger.Infof("Delete request: file=%s, remoteAddr=%s", name, r.RemoteAddr)

	if !s.Dirs.Exists(name) {
		writeError(w, errFileNotFound)
		return
	}
	s.Scheduler.Cancel(name)
	if err := s.removeArtifact(name); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// removeArtifact deletes the file and records it. Deleting a file that is
// already gone succeeds.
func (s *Server) removeArtifact(name string) error {
	if err := s.Dirs.Remove(name); err != nil {
		return err
	}
	if err := s.Ledger.MarkDeleted(name); err != nil {
		return fmt.Errorf("record deletion of %s: %w", name, err)
	}
	logger.Infof("Deleted artifact %s", name)
	return nil
}

// Reconcile restores deletion schedules after a restart. Records whose file
// vanished are marked deleted. Files without a record and leftover partial
// files are treated as unclaimed.
func (s *Server) Reconcile() error {
	live, err := s.Ledger.ListLive()
	if err != nil {
		return err
	}

	now := time.Now()
	known := make(map[string]bool, len(live))
	for _, rec := range live {
		name := rec.Filename
		known[name] = true
		if !s.Dirs.Exists(name) {
			if err := s.Ledger.MarkDeleted(name); err != nil {
				logger.Errorf("Failed to mark %s deleted: %v", name, err)
			}
			continue
		}

		var due time.Time
		if rec.State == models.ArtifactServed && rec.ServedAt != nil {
			due = rec.ServedAt.Add(s.Config.Retention.Duration)
		} else {
			due = rec.CreatedAt.Add(s.Config.UnclaimedTTL.Duration)
		}
		s.Scheduler.Schedule(name, max(due.Sub(now), 0), func() error { return s.removeArtifact(name) })
	}

	entries, err := os.ReadDir(s.Dirs.Downloads)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || known[name] {
			continue
		}
		if strings.HasPrefix(name, ".partial-") {
			os.Remove(filepath.Join(s.Dirs.Downloads, name))
			continue
		}
		if !storage.ValidName(name) {
			continue
		}
		s.Scheduler.Schedule(name, s.Config.UnclaimedTTL.Duration, func() error { return s.removeArtifact(name) })
	}

	logger.Infof("Reconciled %d artifacts, %d deletions pending", len(live), len(s.Scheduler.Pending()))
	return nil
}
