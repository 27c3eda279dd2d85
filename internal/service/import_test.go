package service_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/streamgate/streamgate/internal/service"
	"github.com/streamgate/streamgate/internal/store"
)

const testPlaylist = `#EXTM3U
#EXTINF:-1 tvg-id="bbc1" tvg-logo="http://logos.example.com/bbc1.png" group-title="general",BBC One
http://streams.example.com/bbc1.m3u8
#EXTINF:-1 tvg-language="en" group-title="sports",Sky Sports
http://streams.example.com/skysports.m3u8
#EXTINF:-1,Unlabelled
http://streams.example.com/unlabelled.m3u8
`

func TestImportAddsCountryToCatalog(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testPlaylist))
	}))
	defer upstream.Close()

	s, err := store.NewFile(t.TempDir())
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	ctx := context.Background()

	count, err := service.Import(ctx, s, upstream.URL, "United Kingdom", "uk", "", 5*time.Second)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 imported channels, got %d", count)
	}

	catalog, err := s.LoadCatalog(ctx)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	ukIdx := -1
	for i := range catalog.Countries {
		if catalog.Countries[i].Code == "UK" {
			ukIdx = i
			break
		}
	}
	if ukIdx == -1 {
		t.Fatalf("imported country UK missing from catalog: %+v", catalog.Countries)
	}
	channels := catalog.Countries[ukIdx].Channels

	if channels[0].ID != "bbc1" || channels[0].Category != "general" || channels[0].Logo == "" {
		t.Fatalf("tvg attributes not mapped: %+v", channels[0])
	}
	if channels[1].Language != "en" || channels[1].Category != "sports" {
		t.Fatalf("tvg attributes not mapped: %+v", channels[1])
	}
	if channels[2].ID == "" {
		t.Fatalf("expected a generated id for entry without tvg-id")
	}
	if channels[2].Category != "general" {
		t.Fatalf("expected default category for entry without group-title, got %q", channels[2].Category)
	}
}

func TestImportReplacesExistingCountryInPlace(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testPlaylist))
	}))
	defer upstream.Close()

	s := newTestStore(t) // catalog fixture already has UK and DE
	ctx := context.Background()

	if _, err := service.Import(ctx, s, upstream.URL, "United Kingdom", "UK", "", 5*time.Second); err != nil {
		t.Fatalf("Import: %v", err)
	}

	catalog, err := s.LoadCatalog(ctx)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if len(catalog.Countries) != 2 {
		t.Fatalf("replace must not duplicate the country, got %d countries", len(catalog.Countries))
	}
	if catalog.Countries[0].Code != "UK" {
		t.Fatalf("replaced country lost its position, catalog starts with %q", catalog.Countries[0].Code)
	}
	if len(catalog.Countries[0].Channels) != 3 {
		t.Fatalf("expected replaced UK channels, got %d", len(catalog.Countries[0].Channels))
	}
	if catalog.Countries[1].Code != "DE" || len(catalog.Countries[1].Channels) != 1 {
		t.Fatalf("unrelated country was modified: %+v", catalog.Countries[1])
	}
}

func TestImportRequiresURLAndCode(t *testing.T) {
	s, err := store.NewFile(t.TempDir())
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	ctx := context.Background()

	if _, err := service.Import(ctx, s, "", "UK", "UK", "", time.Second); err == nil {
		t.Fatalf("expected error for missing url")
	}
	if _, err := service.Import(ctx, s, "http://example.com/list.m3u", "UK", "", "", time.Second); err == nil {
		t.Fatalf("expected error for missing code")
	}
}
