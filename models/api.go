package models

import "strings"

// Output formats accepted by /api/generate-file.
const (
	FormatJPG  = "jpg"
	FormatPNG  = "png"
	FormatZIP  = "zip"
	FormatPDF  = "pdf"
	FormatPPTX = "pptx"
)

// OutputFormats lists every accepted outputFormat value.
var OutputFormats = []string{FormatJPG, FormatPNG, FormatZIP, FormatPDF, FormatPPTX}

// GetSlidesRequest is the body of POST /api/get-slides.
type GetSlidesRequest struct {
	SlideshareURL string `json:"slideshareUrl"`
}

// GetSlidesResponse is returned by POST /api/get-slides.
type GetSlidesResponse struct {
	TotalSlides        int               `json:"totalSlides"`
	SlideImagesPreview []string          `json:"slideImagesPreview"`
	SlideshowInfo      SlideshowMetadata `json:"slideshowInfo"`
}

// GenerateRequest is the body of POST /api/generate-file.
type GenerateRequest struct {
	SlideshowInfo   *SlideshowMetadata `json:"slideshowInfo"`
	Resolution      string             `json:"resolution"`
	OutputFormat    string             `json:"outputFormat"`
	SelectedIndices []int              `json:"selectedIndices"`
}

// GenerateResponse is returned by POST /api/generate-file.
type GenerateResponse struct {
	DownloadURL string `json:"downloadUrl"`
}

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Validate checks the request before any network or disk I/O happens.
// lookup resolves a resolution key to its preset.
func (r *GenerateRequest) Validate(lookup func(string) (ResolutionPreset, bool)) (ResolutionPreset, error) {
	var missing []string
	if r.SlideshowInfo == nil {
		missing = append(missing, "slideshowInfo")
	}
	if r.Resolution == "" {
		missing = append(missing, "resolution")
	}
	if r.OutputFormat == "" {
		missing = append(missing, "outputFormat")
	}
	if r.SelectedIndices == nil {
		missing = append(missing, "selectedIndices")
	}
	if len(missing) > 0 {
		return ResolutionPreset{}, Validationf("missing required fields: %s", strings.Join(missing, ", "))
	}

	info := r.SlideshowInfo
	if info.Host == "" || info.ImageLocation == "" || info.ImageTitle == "" {
		return ResolutionPreset{}, Validationf("slideshowInfo requires host, imageLocation and imageTitle")
	}
	if len(r.SelectedIndices) == 0 {
		return ResolutionPreset{}, Validationf("no slides selected")
	}

	seen := make(map[int]struct{}, len(r.SelectedIndices))
	for _, idx := range r.SelectedIndices {
		if idx < 0 {
			return ResolutionPreset{}, Validationf("invalid slide index %d", idx)
		}
		if info.TotalSlides > 0 && idx >= info.TotalSlides {
			return ResolutionPreset{}, Validationf("slide index %d out of range (total %d)", idx, info.TotalSlides)
		}
		if _, dup := seen[idx]; dup {
			return ResolutionPreset{}, Validationf("slide index %d selected twice", idx)
		}
		seen[idx] = struct{}{}
	}

	preset, ok := lookup(r.Resolution)
	if !ok {
		return ResolutionPreset{}, Validationf("invalid resolution: %s", r.Resolution)
	}
	if !IsOutputFormat(r.OutputFormat) {
		return ResolutionPreset{}, Validationf("invalid output format: %s", r.OutputFormat)
	}
	return preset, nil
}

// IsOutputFormat reports whether format is an accepted outputFormat value.
func IsOutputFormat(format string) bool {
	for _, f := range OutputFormats {
		if f == format {
			return true
		}
	}
	return false
}

// RasterFormat returns the image format slides are normalized to for an
// output format. Archives of jpg/png keep the requested format, documents use jpg.
func RasterFormat(outputFormat string) string {
	if outputFormat == FormatPNG {
		return FormatPNG
	}
	return FormatJPG
}

// ArtifactExtension maps an output format to the artifact file extension.
// Image formats collapse to an archive.
func ArtifactExtension(outputFormat string) (string, bool) {
	switch outputFormat {
	case FormatJPG, FormatPNG, FormatZIP:
		return "zip", true
	case FormatPDF:
		return "pdf", true
	case FormatPPTX:
		return "pptx", true
	default:
		return "", false
	}
}
