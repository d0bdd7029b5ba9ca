package encoder

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"

	// source decoders; slide hosts serve jpeg, with png, gif and webp seen occasionally
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"slidepack/logger"
	"slidepack/models"
)

// EncodeFunc is the function signature for any encoder
type EncodeFunc func(w io.Writer, img image.Image, opts EncodeOptions) error

type EncodeOptions struct {
	Quality   int // 1-100, ignored by lossless encoders
	MaxPixels int // width*height limit checked before decoding; 0 means DefaultMaxPixels
}

// DefaultMaxPixels bounds the decoded size of one slide to about 160MB of RGBA.
const DefaultMaxPixels = 40_000_000

// ErrTooLarge is returned when an image header declares more pixels than allowed.
var ErrTooLarge = errors.New("image dimensions too large")

// Result describes a normalized image
type Result struct {
	Format       string // target format
	SourceFormat string // format detected while decoding
	Width        int
	Height       int
}

// Registry maps format name → encoder function
var Registry = map[string]EncodeFunc{}

// Register adds an encoder for format
func Register(format string, fn EncodeFunc) {
	Registry[format] = fn
	logger.Debugf("encoder [%s] registered", format)
}

// Lookup encoder by format
func Get(format string) (EncodeFunc, bool) {
	fn, ok := Registry[format]
	return fn, ok
}

// Explicit defaults registration
func RegisterDefaults() {
	Register(models.FormatJPG, EncodeJPG)
	Register(models.FormatPNG, EncodePNG)
}

func init() {
	RegisterDefaults()
}

// Normalize decodes r whatever its source format and always re-encodes it into
// format. Even a jpeg going to jpg is re-encoded.
func Normalize(r io.Reader, w io.Writer, format string, opts EncodeOptions) (Result, error) {
	enc, ok := Get(format)
	if !ok {
		return Result{}, models.InvalidFormat(format)
	}

	rs, ok := r.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return Result{}, fmt.Errorf("read image: %w", err)
		}
		rs = bytes.NewReader(data)
	}
	start, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return Result{}, fmt.Errorf("seek image: %w", err)
	}

	cfg, _, err := image.DecodeConfig(rs)
	if err != nil {
		return Result{}, fmt.Errorf("decode image header: %w", err)
	}
	if err := checkDimensions(cfg.Width, cfg.Height, opts.MaxPixels); err != nil {
		return Result{}, err
	}
	if _, err := rs.Seek(start, io.SeekStart); err != nil {
		return Result{}, fmt.Errorf("seek image: %w", err)
	}

	img, source, err := image.Decode(rs)
	if err != nil {
		return Result{}, fmt.Errorf("decode image: %w", err)
	}

	if err := enc(w, img, opts); err != nil {
		return Result{}, fmt.Errorf("encode %s: %w", format, err)
	}

	bounds := img.Bounds()
	return Result{
		Format:       format,
		SourceFormat: source,
		Width:        bounds.Dx(),
		Height:       bounds.Dy(),
	}, nil
}

func checkDimensions(width, height, limit int) error {
	if limit <= 0 {
		limit = DefaultMaxPixels
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid image dimensions %dx%d", width, height)
	}
	if int64(width)*int64(height) > int64(limit) {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrTooLarge, width, height, limit)
	}
	return nil
}
