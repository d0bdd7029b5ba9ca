// Package locator reads slideshow metadata out of a presentation page.
package locator

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"slidepack/logger"
	"slidepack/models"
	"slidepack/slideurl"
)

// dataScriptID is the id of the script element carrying the page state JSON.
const dataScriptID = "__NEXT_DATA__"

// maxPageBytes bounds how much of the presentation page is read.
const maxPageBytes = 8 << 20

// Locator fetches a presentation page and extracts its slide metadata.
type Locator struct {
	Client    *http.Client
	UserAgent string
	Timeout   time.Duration
}

// New returns a Locator. timeout bounds the single page fetch.
func New(client *http.Client, userAgent string, timeout time.Duration) *Locator {
	if client == nil {
		client = &http.Client{}
	}
	return &Locator{Client: client, UserAgent: userAgent, Timeout: timeout}
}

// pageData mirrors the part of the embedded JSON we read. Absent fields stay zero.
type pageData struct {
	Props struct {
		PageProps struct {
			Slideshow struct {
				TotalSlides int `json:"totalSlides"`
				Slides      struct {
					Host          string `json:"host"`
					ImageLocation string `json:"imageLocation"`
					Title         string `json:"title"`
				} `json:"slides"`
			} `json:"slideshow"`
		} `json:"pageProps"`
	} `json:"props"`
}

// Locate fetches pageURL and returns the slide count, preview URLs and metadata.
func (l *Locator) Locate(ctx context.Context, pageURL string) (*models.GetSlidesResponse, error) {
	pageURL = strings.TrimSpace(pageURL)
	if pageURL == "" {
		return nil, models.Validationf("slideshareUrl is required")
	}

	body, err := l.fetchPage(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, models.Upstreamf("failed to parse page: %v", err)
	}

	raw, ok := findScript(doc, dataScriptID)
	if !ok {
		return nil, models.NotFoundf("Slideshow data not found on page")
	}

	meta, err := ParseMetadata([]byte(raw))
	if err != nil {
		return nil, err
	}

	logger.Infof("Located slideshow %q with %d slides", meta.ImageTitle, meta.TotalSlides)
	return &models.GetSlidesResponse{
		TotalSlides:        meta.TotalSlides,
		SlideImagesPreview: slideurl.Previews(meta),
		SlideshowInfo:      meta,
	}, nil
}

// ParseMetadata extracts slideshow metadata from the embedded page JSON.
func ParseMetadata(raw []byte) (models.SlideshowMetadata, error) {
	var data pageData
	if err := json.Unmarshal(raw, &data); err != nil {
		return models.SlideshowMetadata{}, models.Upstreamf("failed to parse slideshow data: %v", err)
	}

	show := data.Props.PageProps.Slideshow
	return models.SlideshowMetadata{
		Host:          show.Slides.Host,
		ImageLocation: show.Slides.ImageLocation,
		ImageTitle:    show.Slides.Title,
		TotalSlides:   show.TotalSlides,
	}, nil
}

func (l *Locator) fetchPage(ctx context.Context, pageURL string) ([]byte, error) {
	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, models.Upstreamf("invalid slideshareUrl: %v", err)
	}
	if l.UserAgent != "" {
		req.Header.Set("User-Agent", l.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := l.Client.Do(req)
	if err != nil {
		return nil, models.Upstreamf("failed to fetch page: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, models.Upstreamf("page returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, models.Upstreamf("failed to read page: %v", err)
	}
	return body, nil
}

// findScript returns the text of the first <script> with the given id.
func findScript(n *html.Node, id string) (string, bool) {
	if n.Type == html.ElementNode && n.Data == "script" && getAttr(n, "id") == id {
		var sb strings.Builder
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				sb.WriteString(c.Data)
			}
		}
		return sb.String(), true
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if text, ok := findScript(c, id); ok {
			return text, true
		}
	}
	return "", false
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
