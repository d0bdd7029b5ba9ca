package assembler

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slidepack/models"
)

// writeSlides writes n small jpgs; slide i is (i+1)*10 pixels wide.
func writeSlides(t *testing.T, n int) []models.FetchedImage {
	t.Helper()
	dir := t.TempDir()
	images := make([]models.FetchedImage, 0, n)
	for i := 0; i < n; i++ {
		w, h := (i+1)*10, 20
		img := image.NewRGBA(image.Rect(0, 0, w, h))
		for x := 0; x < w; x++ {
			for y := 0; y < h; y++ {
				img.Set(x, y, color.RGBA{B: 180, A: 255})
			}
		}
		path := filepath.Join(dir, entryName("slide", i, "jpg"))
		f, err := os.Create(path)
		require.NoError(t, err)
		require.NoError(t, jpeg.Encode(f, img, nil))
		require.NoError(t, f.Close())
		images = append(images, models.FetchedImage{Position: i, Path: path, Format: "jpg", Width: w, Height: h})
	}
	return images
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestAssembleZipKeepsOrder(t *testing.T) {
	images := writeSlides(t, 3)
	a := New(t.TempDir())

	art, err := a.Assemble(context.Background(), images, models.FormatJPG, "Deck")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(art.Filename, ".zip"))
	assert.Equal(t, 3, art.SlideCount)
	assert.Positive(t, art.Size)

	zr, err := zip.OpenReader(art.Path)
	require.NoError(t, err)
	defer zr.Close()

	require.Len(t, zr.File, 3)
	for i, f := range zr.File {
		assert.Equal(t, entryName("slide", i, "jpg"), f.Name)

		rc, err := f.Open()
		require.NoError(t, err)
		cfg, _, err := image.DecodeConfig(rc)
		rc.Close()
		require.NoError(t, err)
		assert.Equal(t, (i+1)*10, cfg.Width, "entry %d out of order", i)
	}
}

func TestAssemblePDFOnePagePerImage(t *testing.T) {
	images := writeSlides(t, 4)
	a := New(t.TempDir())

	art, err := a.Assemble(context.Background(), images, models.FormatPDF, "Deck")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(art.Filename, ".pdf"))

	pages, err := pdfapi.PageCountFile(art.Path)
	require.NoError(t, err)
	assert.Equal(t, 4, pages)

	// widths differ per slide, so matching sizes also proves page order
	dims, err := pdfapi.PageDimsFile(art.Path)
	require.NoError(t, err)
	require.Len(t, dims, len(images))
	for i, img := range images {
		assert.Equal(t, float64(img.Width), dims[i].Width, "page %d width", i)
		assert.Equal(t, float64(img.Height), dims[i].Height, "page %d height", i)
	}
}

func TestAssembleDeck(t *testing.T) {
	images := writeSlides(t, 2)
	a := New(t.TempDir())

	art, err := a.Assemble(context.Background(), images, models.FormatPPTX, `Q3 <Plan> & "Notes"`)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(art.Filename, ".pptx"))

	zr, err := zip.OpenReader(art.Path)
	require.NoError(t, err)
	defer zr.Close()

	files := map[string]*zip.File{}
	for _, f := range zr.File {
		files[f.Name] = f
	}
	for _, name := range []string{
		"[Content_Types].xml",
		"ppt/presentation.xml",
		"ppt/slides/slide1.xml",
		"ppt/slides/slide2.xml",
		"ppt/slides/_rels/slide2.xml.rels",
		"ppt/media/image-001.jpg",
		"ppt/media/image-002.jpg",
	} {
		assert.Contains(t, files, name)
	}
	assert.NotContains(t, files, "ppt/slides/slide3.xml")

	read := func(name string) string {
		rc, err := files[name].Open()
		require.NoError(t, err)
		defer rc.Close()
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		return string(b)
	}

	// first slide is 10x20, so the deck is twice as tall as it is wide
	assert.Contains(t, read("ppt/presentation.xml"), `<p:sldSz cx="9144000" cy="18288000"/>`)
	assert.Contains(t, read("ppt/slides/_rels/slide2.xml.rels"), `Target="../media/image-002.jpg"`)
	assert.Contains(t, read("docProps/core.xml"), "Q3 &lt;Plan&gt; &amp; &#34;Notes&#34;")

	for i, img := range images {
		name := fmt.Sprintf("ppt/media/image-%03d.jpg", i+1)
		rc, err := files[name].Open()
		require.NoError(t, err)
		cfg, _, err := image.DecodeConfig(rc)
		rc.Close()
		require.NoError(t, err)
		assert.Equal(t, img.Width, cfg.Width, "%s out of order", name)
	}
}

func TestAssembleUnknownFormatWritesNothing(t *testing.T) {
	images := writeSlides(t, 1)
	dir := t.TempDir()
	a := New(dir)

	_, err := a.Assemble(context.Background(), images, "gif", "Deck")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInvalidFormat))
	assert.Empty(t, dirEntries(t, dir))
}

func TestAssembleFailureLeavesNoPartialFile(t *testing.T) {
	images := writeSlides(t, 2)
	images[1].Path = filepath.Join(t.TempDir(), "missing.jpg")
	dir := t.TempDir()
	a := New(dir)

	for _, format := range []string{models.FormatJPG, models.FormatPPTX} {
		_, err := a.Assemble(context.Background(), images, format, "Deck")
		require.Error(t, err)
		assert.True(t, errors.Is(err, models.ErrAssembly))
	}
	assert.Empty(t, dirEntries(t, dir))
}

func TestAssembleRejectsEmptySelection(t *testing.T) {
	a := New(t.TempDir())
	_, err := a.Assemble(context.Background(), nil, models.FormatPDF, "Deck")
	assert.True(t, errors.Is(err, models.ErrAssembly))
}
