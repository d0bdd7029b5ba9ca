package assembler

import (
	"context"
	"io"
	"os"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	pdfcpu "github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"slidepack/models"
)

// writePDF creates one page per image. With the full position the page size
// is the image's own pixel size and the image covers the page from the origin.
func writePDF(ctx context.Context, w io.Writer, images []models.FetchedImage, _ string) error {
	readers := make([]io.Reader, 0, len(images))
	for _, img := range images {
		if err := ctx.Err(); err != nil {
			return err
		}
		f, err := os.Open(img.Path)
		if err != nil {
			return err
		}
		defer f.Close()
		readers = append(readers, f)
	}

	imp := pdfcpu.DefaultImportConfig()
	imp.Pos = types.Full

	conf := model.NewDefaultConfiguration()
	return pdfapi.ImportImages(nil, w, readers, imp, conf)
}
