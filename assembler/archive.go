package assembler

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"time"

	"slidepack/models"
)

// writeArchive stores every image as its own entry, in input order.
func writeArchive(ctx context.Context, w io.Writer, images []models.FetchedImage, _ string) error {
	zw := zip.NewWriter(w)
	now := time.Now()

	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return err
		}
		header := &zip.FileHeader{
			Name:     entryName("slide", i, img.Format),
			Method:   zip.Deflate,
			Modified: now,
		}
		entry, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}
		if err := copyFile(entry, img.Path); err != nil {
			return err
		}
	}

	return zw.Close()
}

func copyFile(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}
