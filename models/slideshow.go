package models

// SlideshowMetadata describes where a remote presentation keeps its slide images.
type SlideshowMetadata struct {
	Host          string `json:"host"`
	ImageLocation string `json:"imageLocation"`
	ImageTitle    string `json:"imageTitle"`
	TotalSlides   int    `json:"totalSlides"`
}

// ResolutionPreset is a named bundle of target width and re-encode quality.
type ResolutionPreset struct {
	Quality int `json:"quality"`
	Width   int `json:"width"`
}

// FetchedImage is one normalized slide image. Position is the index in the
// user's selection order and decides where the image lands in the artifact.
type FetchedImage struct {
	Position int
	URL      string
	Path     string // normalized bytes inside the request temp dir
	Format   string // jpg or png
	Width    int
	Height   int
}
