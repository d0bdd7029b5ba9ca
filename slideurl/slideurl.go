// Package slideurl builds slide image URLs from slideshow metadata.
package slideurl

import (
	"fmt"
	"sort"
	"strconv"

	"slidepack/models"
)

// PreviewResolution is the preset used for slide thumbnails.
const PreviewResolution = "320"

// Presets maps resolution keys to their width and quality.
var Presets = map[string]models.ResolutionPreset{
	"320":  {Quality: 85, Width: 320},
	"638":  {Quality: 85, Width: 638},
	"2048": {Quality: 75, Width: 2048},
}

// Lookup resolves a resolution key.
func Lookup(key string) (models.ResolutionPreset, bool) {
	p, ok := Presets[key]
	return p, ok
}

// Keys returns the known resolution keys ordered by width.
func Keys() []string {
	keys := make([]string, 0, len(Presets))
	for k := range Presets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		wi, _ := strconv.Atoi(keys[i])
		wj, _ := strconv.Atoi(keys[j])
		return wi < wj
	})
	return keys
}

// Build returns the URL of one slide image. slideNumber is 1-based.
// Inputs are not validated.
func Build(host, imageLocation, imageTitle string, quality, width, slideNumber int) string {
	return fmt.Sprintf("%s/%s/%d/%s-%d-%d.jpg", host, imageLocation, quality, imageTitle, slideNumber, width)
}

// ForSelection builds URLs for 0-based selection indices, keeping selection order.
func ForSelection(meta models.SlideshowMetadata, preset models.ResolutionPreset, indices []int) []string {
	urls := make([]string, len(indices))
	for i, idx := range indices {
		urls[i] = Build(meta.Host, meta.ImageLocation, meta.ImageTitle, preset.Quality, preset.Width, idx+1)
	}
	return urls
}

// Previews builds a thumbnail URL for every slide from 1 to TotalSlides.
func Previews(meta models.SlideshowMetadata) []string {
	preset := Presets[PreviewResolution]
	previews := make([]string, 0, max(meta.TotalSlides, 0))
	for n := 1; n <= meta.TotalSlides; n++ {
		previews = append(previews, Build(meta.Host, meta.ImageLocation, meta.ImageTitle, preset.Quality, preset.Width, n))
	}
	return previews
}
