// Package assembler combines normalized slide images into one downloadable
// artifact: a zip archive, a multi-page PDF or a PowerPoint deck.
package assembler

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"slidepack/logger"
	"slidepack/models"
)

// Assembler writes artifacts into the downloads directory.
type Assembler struct {
	Dir string
}

// New returns an Assembler writing into dir.
func New(dir string) *Assembler {
	return &Assembler{Dir: dir}
}

type buildFunc func(ctx context.Context, w io.Writer, images []models.FetchedImage, title string) error

// Assemble builds an artifact from images in the given order. Unknown formats
// fail before anything is written; a failed build leaves no file behind.
func (a *Assembler) Assemble(ctx context.Context, images []models.FetchedImage, outputFormat, title string) (*models.Artifact, error) {
	ext, ok := models.ArtifactExtension(outputFormat)
	if !ok {
		return nil, models.InvalidFormat(outputFormat)
	}
	if len(images) == 0 {
		return nil, &models.Error{Kind: models.ErrAssembly, Msg: "no images to assemble"}
	}

	var build buildFunc
	switch ext {
	case "zip":
		build = writeArchive
	case "pdf":
		build = writePDF
	case "pptx":
		build = writeDeck
	}

	started := time.Now()
	name := NewFilename(ext)
	finalPath := filepath.Join(a.Dir, name)

	tmp, err := os.CreateTemp(a.Dir, ".partial-*")
	if err != nil {
		return nil, fmt.Errorf("create artifact: %w", err)
	}

	err = build(ctx, tmp, images, title)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), finalPath)
	}
	if err != nil {
		os.Remove(tmp.Name())
		return nil, &models.Error{Kind: models.ErrAssembly, Msg: fmt.Sprintf("failed to build %s: %v", ext, err)}
	}

	info, err := os.Stat(finalPath)
	if err != nil {
		return nil, fmt.Errorf("stat artifact: %w", err)
	}

	logger.Infof("Assembled %s with %d slides (%d bytes) in %v", name, len(images), info.Size(), time.Since(started).Round(time.Millisecond))
	return &models.Artifact{
		Filename:   name,
		Path:       finalPath,
		Format:     outputFormat,
		SlideCount: len(images),
		Size:       info.Size(),
	}, nil
}

// NewFilename returns a collision-free artifact name with the given extension.
func NewFilename(ext string) string {
	return fmt.Sprintf("slides-%s.%s", uuid.NewString(), ext)
}

// entryName is the name of the image at position pos inside archives and decks.
func entryName(prefix string, pos int, format string) string {
	return fmt.Sprintf("%s-%03d.%s", prefix, pos+1, format)
}
