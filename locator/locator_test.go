package locator

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slidepack/models"
)

const deckPage = `<!DOCTYPE html>
<html><head><title>Deck</title></head>
<body>
<div id="app"></div>
<script id="__NEXT_DATA__" type="application/json">
{"props":{"pageProps":{"slideshow":{"totalSlides":3,"slides":{"host":"https://image.example.com","imageLocation":"deck-abc","title":"my-deck"}}}}}
</script>
</body></html>`

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLocateExtractsMetadata(t *testing.T) {
	srv := serve(t, http.StatusOK, deckPage)
	l := New(srv.Client(), "test-agent", 5*time.Second)

	res, err := l.Locate(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, 3, res.TotalSlides)
	assert.Equal(t, models.SlideshowMetadata{
		Host:          "https://image.example.com",
		ImageLocation: "deck-abc",
		ImageTitle:    "my-deck",
		TotalSlides:   3,
	}, res.SlideshowInfo)
	assert.Equal(t, []string{
		"https://image.example.com/deck-abc/85/my-deck-1-320.jpg",
		"https://image.example.com/deck-abc/85/my-deck-2-320.jpg",
		"https://image.example.com/deck-abc/85/my-deck-3-320.jpg",
	}, res.SlideImagesPreview)
}

func TestLocateMissingScriptIsNotFound(t *testing.T) {
	srv := serve(t, http.StatusOK, "<html><body><script>var x = 1;</script></body></html>")
	_, err := New(srv.Client(), "", 0).Locate(context.Background(), srv.URL)
	assert.True(t, errors.Is(err, models.ErrNotFound), "got %v", err)
}

func TestLocateBadJSONIsUpstream(t *testing.T) {
	srv := serve(t, http.StatusOK, `<script id="__NEXT_DATA__">{not json</script>`)
	_, err := New(srv.Client(), "", 0).Locate(context.Background(), srv.URL)
	assert.True(t, errors.Is(err, models.ErrUpstream), "got %v", err)
}

func TestLocateHTTPFailureIsUpstream(t *testing.T) {
	srv := serve(t, http.StatusBadGateway, "bad gateway")
	_, err := New(srv.Client(), "", time.Second).Locate(context.Background(), srv.URL)
	assert.True(t, errors.Is(err, models.ErrUpstream), "got %v", err)
}

func TestLocateEmptyURL(t *testing.T) {
	_, err := New(nil, "", 0).Locate(context.Background(), "  ")
	assert.True(t, errors.Is(err, models.ErrValidation), "got %v", err)
}

func TestLocateUnparseableURLIsUpstream(t *testing.T) {
	_, err := New(http.DefaultClient, "", 0).Locate(context.Background(), "http://[::1")
	assert.True(t, errors.Is(err, models.ErrUpstream), "got %v", err)
	assert.False(t, errors.Is(err, models.ErrValidation))
}

func TestParseMetadataDefaultsMissingFields(t *testing.T) {
	meta, err := ParseMetadata([]byte(`{"props":{"pageProps":{}}}`))
	require.NoError(t, err)
	assert.Equal(t, models.SlideshowMetadata{}, meta)
}
