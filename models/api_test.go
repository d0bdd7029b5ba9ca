package models

import (
	"errors"
	"testing"
)

func lookup(key string) (ResolutionPreset, bool) {
	if key == "320" {
		return ResolutionPreset{Quality: 85, Width: 320}, true
	}
	return ResolutionPreset{}, false
}

func validRequest() GenerateRequest {
	return GenerateRequest{
		SlideshowInfo:   &SlideshowMetadata{Host: "H", ImageLocation: "L", ImageTitle: "T", TotalSlides: 4},
		Resolution:      "320",
		OutputFormat:    FormatPDF,
		SelectedIndices: []int{0, 2},
	}
}

func TestValidateAcceptsValidRequest(t *testing.T) {
	req := validRequest()
	preset, err := req.Validate(lookup)
	if err != nil {
		t.Fatalf("Expected valid request, got %v", err)
	}
	if preset.Width != 320 || preset.Quality != 85 {
		t.Errorf("Unexpected preset %+v", preset)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*GenerateRequest)
	}{
		{"missing info", func(r *GenerateRequest) { r.SlideshowInfo = nil }},
		{"missing resolution", func(r *GenerateRequest) { r.Resolution = "" }},
		{"missing format", func(r *GenerateRequest) { r.OutputFormat = "" }},
		{"missing indices", func(r *GenerateRequest) { r.SelectedIndices = nil }},
		{"empty selection", func(r *GenerateRequest) { r.SelectedIndices = []int{} }},
		{"negative index", func(r *GenerateRequest) { r.SelectedIndices = []int{-1} }},
		{"index out of range", func(r *GenerateRequest) { r.SelectedIndices = []int{4} }},
		{"duplicate index", func(r *GenerateRequest) { r.SelectedIndices = []int{1, 1} }},
		{"unknown resolution", func(r *GenerateRequest) { r.Resolution = "999" }},
		{"unknown format", func(r *GenerateRequest) { r.OutputFormat = "gif" }},
		{"empty host", func(r *GenerateRequest) { r.SlideshowInfo.Host = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			_, err := req.Validate(lookup)
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !errors.Is(err, ErrValidation) {
				t.Errorf("Expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestValidateWithoutTotalSlidesSkipsRangeCheck(t *testing.T) {
	req := validRequest()
	req.SlideshowInfo.TotalSlides = 0
	req.SelectedIndices = []int{40}
	if _, err := req.Validate(lookup); err != nil {
		t.Errorf("Expected no range check without totalSlides, got %v", err)
	}
}

func TestArtifactExtension(t *testing.T) {
	cases := map[string]string{"jpg": "zip", "png": "zip", "zip": "zip", "pdf": "pdf", "pptx": "pptx"}
	for format, want := range cases {
		got, ok := ArtifactExtension(format)
		if !ok || got != want {
			t.Errorf("ArtifactExtension(%s) = %s, %v; want %s", format, got, ok, want)
		}
	}
	if _, ok := ArtifactExtension("gif"); ok {
		t.Error("gif should not map to an artifact extension")
	}
	if RasterFormat(FormatPNG) != FormatPNG || RasterFormat(FormatPDF) != FormatJPG {
		t.Error("Unexpected raster format mapping")
	}
}

func TestErrorUnwrap(t *testing.T) {
	err := NotFoundf("missing %s", "thing")
	if !errors.Is(err, ErrNotFound) {
		t.Error("NotFoundf should unwrap to ErrNotFound")
	}
	if err.Error() != "missing thing" {
		t.Errorf("Unexpected message %q", err.Error())
	}
	if !errors.Is(InvalidFormat("gif"), ErrInvalidFormat) {
		t.Error("InvalidFormat should unwrap to ErrInvalidFormat")
	}
}
