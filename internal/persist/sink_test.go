package persist

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"sjsage522/pagescope/internal/document"
	"sjsage522/pagescope/internal/engine"
	"sjsage522/pagescope/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(ts ...time.Time) func() time.Time {
	i := 0
	return func() time.Time {
		t := ts[i]
		if i < len(ts)-1 {
			i++
		}
		return t
	}
}

func TestSaveRawGeneratedNames(t *testing.T) {
	dir := t.TempDir()
	t0 := time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)
	sink := NewSink(dir, nil, WithClock(fixedClock(t0, t0.Add(time.Second))))
	doc := document.New("https://example.com", "<p>hi</p>", "utf-8", t0)

	first, err := sink.SaveRaw(doc, "")
	require.NoError(t, err)
	second, err := sink.SaveRaw(doc, "")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "saved_html_20240309_140507.html"), first)
	assert.Equal(t, filepath.Join(dir, "saved_html_20240309_140508.html"), second)

	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, "<p>hi</p>", string(data))
}

func TestSaveRawSameSecondDoesNotCollide(t *testing.T) {
	dir := t.TempDir()
	t0 := time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)
	sink := NewSink(dir, nil, WithClock(fixedClock(t0)))
	doc := document.New("", "x", "utf-8", t0)

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		path, err := sink.SaveRaw(doc, "")
		require.NoError(t, err)
		assert.False(t, seen[path], path)
		seen[path] = true
	}
	assert.True(t, seen[filepath.Join(dir, "saved_html_20240309_140507_2.html")])
}

func TestSaveRawExplicitName(t *testing.T) {
	dir := t.TempDir()
	sink := NewSink(dir, nil)
	doc := document.New("", "body", "utf-8", time.Now())

	path, err := sink.SaveRaw(doc, "page.html")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "page.html"), path)

	abs := filepath.Join(t.TempDir(), "abs.html")
	path, err = sink.SaveRaw(doc, abs)
	require.NoError(t, err)
	assert.Equal(t, abs, path)
}

func TestSaveRawWriteFailure(t *testing.T) {
	dir := t.TempDir()
	sink := NewSink(dir, nil)
	doc := document.New("", "body", "utf-8", time.Now())

	_, err := sink.SaveRaw(doc, filepath.Join("missing", "dir", "page.html"))
	require.Error(t, err)
	assert.Equal(t, errors.KindWriteFailure, errors.KindOf(err))
	assert.Equal(t, errors.CategoryPersistence, errors.CategoryOf(err))
}

func TestSaveSnapshot(t *testing.T) {
	dir := t.TempDir()
	t0 := time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)
	sink := NewSink(dir, nil, WithClock(fixedClock(t0)))

	path, err := sink.SaveSnapshot([]byte{0x89, 'P', 'N', 'G'}, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "screenshot_20240309_140507.png"), path)
}

func TestSaveReport(t *testing.T) {
	dir := t.TempDir()
	sink := NewSink(dir, nil)
	report := engine.Report{
		PageInfo: engine.PageInfo{Source: "https://example.com", Title: "T"},
		Census:   engine.Census{"div": 2},
	}

	path, err := sink.SaveReport(report, "")
	require.NoError(t, err)
	assert.Contains(t, filepath.Base(path), "report_")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded engine.Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "T", decoded.PageInfo.Title)
	assert.Equal(t, 2, decoded.Census["div"])
}
