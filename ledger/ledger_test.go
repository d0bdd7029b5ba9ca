package ledger

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slidepack/models"
)

func openTest(t *testing.T) (*Ledger, *time.Time) {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "ledger"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func artifact(name string) *models.Artifact {
	return &models.Artifact{Filename: name, Format: models.FormatPDF, SlideCount: 3, Size: 1024}
}

func TestArtifactLifecycle(t *testing.T) {
	l, now := openTest(t)

	_, err := l.PutArtifact(artifact("a.pdf"), "Deck")
	require.NoError(t, err)

	rec, err := l.GetArtifact("a.pdf")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, models.ArtifactCreated, rec.State)
	assert.Equal(t, "Deck", rec.Title)
	assert.Nil(t, rec.ServedAt)

	*now = now.Add(time.Minute)
	rec, first, err := l.MarkServed("a.pdf")
	require.NoError(t, err)
	assert.True(t, first)
	assert.Equal(t, models.ArtifactServed, rec.State)
	require.NotNil(t, rec.ServedAt)
	assert.Equal(t, *now, *rec.ServedAt)

	_, first, err = l.MarkServed("a.pdf")
	require.NoError(t, err)
	assert.False(t, first, "second serve is not a first serve")

	require.NoError(t, l.MarkDeleted("a.pdf"))
	rec, err = l.GetArtifact("a.pdf")
	require.NoError(t, err)
	assert.Equal(t, models.ArtifactDeleted, rec.State)
	assert.NotNil(t, rec.DeletedAt)
}

func TestGetArtifactMissing(t *testing.T) {
	l, _ := openTest(t)
	rec, err := l.GetArtifact("nope.zip")
	assert.NoError(t, err)
	assert.Nil(t, rec)
	assert.NoError(t, l.MarkDeleted("nope.zip"))
}

func TestMarkServedUnknownFile(t *testing.T) {
	l, _ := openTest(t)
	rec, first, err := l.MarkServed("orphan.zip")
	require.NoError(t, err)
	assert.True(t, first)
	assert.Equal(t, models.ArtifactServed, rec.State)
}

func TestListLiveSkipsDeleted(t *testing.T) {
	l, now := openTest(t)
	for _, name := range []string{"a.zip", "b.zip", "c.zip"} {
		_, err := l.PutArtifact(artifact(name), "")
		require.NoError(t, err)
		*now = now.Add(time.Second)
	}
	require.NoError(t, l.MarkDeleted("b.zip"))

	all, err := l.ListArtifacts()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c.zip", all[0].Filename, "newest first")

	live, err := l.ListLive()
	require.NoError(t, err)
	var names []string
	for _, rec := range live {
		names = append(names, rec.Filename)
	}
	assert.Equal(t, []string{"c.zip", "a.zip"}, names)
}

func TestFailures(t *testing.T) {
	l, now := openTest(t)

	req := models.GenerateRequest{Resolution: "638", OutputFormat: "pdf", SelectedIndices: []int{0}}
	first, err := l.StoreFailure(errors.New("boom"), req)
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Contains(t, first.Request, `"outputFormat":"pdf"`)

	*now = now.Add(time.Minute)
	_, err = l.StoreFailure(errors.New("again"), req)
	require.NoError(t, err)

	failures, err := l.ListFailures()
	require.NoError(t, err)
	require.Len(t, failures, 2)
	assert.Equal(t, "again", failures[0].Error)
	assert.Equal(t, "boom", failures[1].Error)

	// failures and artifacts live in separate key ranges
	arts, err := l.ListArtifacts()
	require.NoError(t, err)
	assert.Empty(t, arts)
}

func TestCleanupOldRecords(t *testing.T) {
	l, now := openTest(t)

	_, err := l.PutArtifact(artifact("old-deleted.zip"), "")
	require.NoError(t, err)
	require.NoError(t, l.MarkDeleted("old-deleted.zip"))
	_, err = l.PutArtifact(artifact("old-live.zip"), "")
	require.NoError(t, err)
	_, err = l.StoreFailure(errors.New("old"), nil)
	require.NoError(t, err)

	*now = now.Add(48 * time.Hour)
	_, err = l.StoreFailure(errors.New("recent"), nil)
	require.NoError(t, err)

	removed, err := l.CleanupOldRecords(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	rec, err := l.GetArtifact("old-deleted.zip")
	require.NoError(t, err)
	assert.Nil(t, rec)
	rec, err = l.GetArtifact("old-live.zip")
	require.NoError(t, err)
	assert.NotNil(t, rec)

	failures, err := l.ListFailures()
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, "recent", failures[0].Error)
}

func TestCheckHealth(t *testing.T) {
	l, _ := openTest(t)
	assert.NoError(t, l.CheckHealth())

	var missing *Ledger
	assert.Error(t, missing.CheckHealth())
}
