package routes

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"slidepack/logger"
	"slidepack/models"
	"slidepack/slideurl"
)

// GenerateHandler fetches the selected slides and assembles one artifact.
// The work is detached from the client connection: a dropped client does not
// cancel fetches that are already running.
func (s *Server) GenerateHandler(w http.ResponseWriter, r *http.Request) {
	logger.Debugf("Generate request: remoteAddr=%s", r.RemoteAddr)

	var req models.GenerateRequest
	if err := s.decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	art, err := s.Generate(context.WithoutCancel(r.Context()), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.GenerateResponse{DownloadURL: s.downloadURL(art.Filename)})
}

// Generate runs validation, fetch and assembly for req. Validation fails
// before any network or disk work. Whatever happens, the request's scratch
// directory is gone when Generate returns.
func (s *Server) Generate(ctx context.Context, req *models.GenerateRequest) (*models.Artifact, error) {
	preset, err := req.Validate(slideurl.Lookup)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	art, err := s.build(ctx, req, preset)
	if err != nil {
		if _, storeErr := s.Ledger.StoreFailure(err, req); storeErr != nil {
			logger.Errorf("Failed to store failure record: %v", storeErr)
		}
		return nil, err
	}

	title := req.SlideshowInfo.ImageTitle
	if _, err := s.Ledger.PutArtifact(art, title); err != nil {
		logger.Errorf("Failed to record artifact %s: %v", art.Filename, err)
	}

	name := art.Filename
	s.Scheduler.Schedule(name, s.Config.UnclaimedTTL.Duration, func() error { return s.removeArtifact(name) })
	s.Publisher.Publish(ctx, art.Path)

	logger.Infof("Generated %s (%d slides, %s) in %v", name, art.SlideCount, req.OutputFormat, time.Since(started).Round(time.Millisecond))
	return art, nil
}

func (s *Server) build(ctx context.Context, req *models.GenerateRequest, preset models.ResolutionPreset) (*models.Artifact, error) {
	urls := slideurl.ForSelection(*req.SlideshowInfo, preset, req.SelectedIndices)

	dir, err := s.Dirs.NewRequestDir()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			logger.Errorf("Failed to remove request dir %s: %v", dir, err)
		}
	}()

	images, err := s.Fetcher.FetchAll(ctx, urls, models.RasterFormat(req.OutputFormat), preset.Quality, dir)
	if err != nil {
		return nil, err
	}
	if len(images) != len(req.SelectedIndices) {
		return nil, errors.New("fetched image count does not match selection")
	}

	return s.Assembler.Assemble(ctx, images, req.OutputFormat, req.SlideshowInfo.ImageTitle)
}

func (s *Server) downloadURL(name string) string {
	return s.Config.BaseURL + "/downloads/" + name
}
