package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"sjsage522/pagescope/internal/backend"
	"sjsage522/pagescope/internal/engine"
	"sjsage522/pagescope/internal/persist"
	"sjsage522/pagescope/internal/session"
	"sjsage522/pagescope/services/cache"
	"sjsage522/pagescope/services/publisher"
	"sjsage522/pagescope/services/worker"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testHTML mimics a small listing page
const testHTML = `
<!DOCTYPE html>
<html>
<head>
    <title>Test Listing</title>
    <meta name="keywords" content="test, listing">
</head>
<body>
    <div class="list">
        <div class="item">
            <h3 class="title"><a href="/item/1">Item 1</a></h3>
            <div class="thumb"><img src="/img/1.jpg" alt="Thumbnail" /></div>
        </div>
        <div class="item">
            <h3 class="title"><a href="/item/2">Item 2</a></h3>
            <div class="thumb"><img src="/img/2.jpg" /></div>
        </div>
    </div>
    <script>var hidden = true;</script>
</body>
</html>
`

func newTestServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, testHTML)
	}))
	t.Cleanup(server.Close)
	return server
}

// TestEndToEnd drives a static session through fetch, queries and saves
func TestEndToEnd(t *testing.T) {
	var hits int32
	server := newTestServer(t, &hits)
	dir := t.TempDir()

	b := backend.NewStatic(
		backend.WithTimeout(5*time.Second),
		backend.WithCache(cache.NewMemoryCache(), time.Minute),
	)
	s := session.New(b, engine.New(nil), persist.NewSink(dir, nil), nil, session.Options{})

	err := session.Run(context.Background(), s, func(ctx context.Context, s *session.Session) error {
		doc, err := s.Fetch(ctx, server.URL+"/list")
		require.NoError(t, err)
		assert.Equal(t, server.URL+"/list", doc.Source())

		info, err := s.PageInfo()
		require.NoError(t, err)
		assert.Equal(t, "Test Listing", info.Title)
		assert.Equal(t, "test, listing", info.Keywords)

		items, err := s.FindByClass("item")
		require.NoError(t, err)
		assert.Len(t, items, 2)

		links, err := s.ExtractLinks(0)
		require.NoError(t, err)
		require.Equal(t, 2, links.Total)
		assert.Equal(t, server.URL+"/item/1", links.Records[0].ResolvedURL)
		assert.Equal(t, "/item/1", links.Records[0].OriginalReference)

		images, err := s.ExtractImages(0)
		require.NoError(t, err)
		require.Len(t, images.Records, 2)
		assert.Equal(t, "Thumbnail", images.Records[0].Alt)
		assert.Equal(t, engine.NoAlt, images.Records[1].Alt)

		text, err := s.ExtractText()
		require.NoError(t, err)
		assert.Contains(t, text, "Item 2")
		assert.NotContains(t, text, "hidden")

		// second fetch is served from the cache
		_, err = s.Fetch(ctx, server.URL+"/list")
		require.NoError(t, err)
		assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

		path, err := s.SaveRaw("")
		require.NoError(t, err)
		saved, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, doc.Content(), string(saved))

		path, err = s.SaveReport("listing.json")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "listing.json"), path)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, session.Closed, s.State())

	_, err = s.PageInfo()
	assert.Error(t, err)
}

// TestIntegration tests the watch flow against a real Redis
func TestIntegration(t *testing.T) {
	// Skip this test if running in CI or without Redis
	if os.Getenv("CI") != "" {
		t.Skip("Skipping integration test in CI environment")
	}

	var hits int32
	server := newTestServer(t, &hits)
	ctx := context.Background()

	redisAddr := "localhost:6379"
	redisClient := redis.NewClient(&redis.Options{
		Addr: redisAddr,
		DB:   0,
	})
	defer redisClient.Close()

	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		t.Skip("Redis is not available, skipping integration test")
	}

	prefix := "test_pagescope_" + time.Now().Format("150405.000")
	stream := prefix + ":0"
	defer redisClient.Del(ctx, stream)

	redisPublisher := publisher.NewRedisPublisher(ctx, redisAddr, 0, prefix, 1, 10)
	defer redisPublisher.Close()

	s := session.New(backend.NewStatic(), nil, nil, nil, session.Options{})
	err := session.Run(ctx, s, func(ctx context.Context, s *session.Session) error {
		w := worker.NewWorker(ctx, s, []string{server.URL}, redisPublisher, nil, time.Minute)
		assert.Empty(t, w.RunOnce())
		return nil
	})
	require.NoError(t, err)

	entries, err := redisClient.XRange(ctx, stream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	payload, ok := entries[0].Values[worker.ReportKey].(string)
	require.True(t, ok, "stream entry should carry the report field")

	decoded, err := base64.StdEncoding.DecodeString(payload)
	require.NoError(t, err)

	var msg worker.Message
	require.NoError(t, json.Unmarshal(decoded, &msg))
	assert.Equal(t, server.URL, msg.Source)
	assert.Equal(t, "Test Listing", msg.Report.PageInfo.Title)
	assert.Equal(t, 2, msg.Report.Links.Total)
	assert.Equal(t, 2, msg.Report.Census["img"])
}
