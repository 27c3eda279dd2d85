package fetcher_test

import (
	"strings"
	"testing"

	"github.com/streamgate/streamgate/internal/fetcher"
)

func TestParseM3UMapsAttributes(t *testing.T) {
	playlist := `#EXTM3U
#EXTINF:-1 tvg-id="news1" tvg-name="News One HD" tvg-logo="http://logos.example.com/n1.png" tvg-language="en" group-title="general",News One
http://streams.example.com/news1.m3u8
#EXTINF:-1 group-title="sports",Kicks TV
http://streams.example.com/kicks.m3u8
`
	channels, err := fetcher.ParseM3U(strings.NewReader(playlist))
	if err != nil {
		t.Fatalf("ParseM3U: %v", err)
	}
	if len(channels) != 2 {
		t.Fatalf("expected 2 channels, got %d", len(channels))
	}

	first := channels[0]
	if first.ID != "news1" || first.Name != "News One HD" || first.Category != "general" {
		t.Fatalf("attributes not mapped: %+v", first)
	}
	if first.Logo != "http://logos.example.com/n1.png" || first.Language != "en" {
		t.Fatalf("logo/language not mapped: %+v", first)
	}
	if first.URL != "http://streams.example.com/news1.m3u8" {
		t.Fatalf("url not mapped: %+v", first)
	}

	second := channels[1]
	if second.Name != "Kicks TV" {
		t.Fatalf("comma-alt name not used: %+v", second)
	}
	if second.ID != "" {
		t.Fatalf("expected empty id without tvg-id, got %q", second.ID)
	}
}

func TestParseM3UDefaultsCategory(t *testing.T) {
	playlist := `#EXTM3U
#EXTINF:-1,Plain Channel
http://streams.example.com/plain.m3u8
`
	channels, err := fetcher.ParseM3U(strings.NewReader(playlist))
	if err != nil {
		t.Fatalf("ParseM3U: %v", err)
	}
	if len(channels) != 1 {
		t.Fatalf("expected 1 channel, got %d", len(channels))
	}
	if channels[0].Category != fetcher.DefaultCategory {
		t.Fatalf("expected default category, got %q", channels[0].Category)
	}
}

func TestParseM3USkipsMalformedEntries(t *testing.T) {
	playlist := `#EXTM3U
http://streams.example.com/orphan-url.m3u8
#EXTINF:-1,Dangling Entry Without URL
#EXTINF:-1,Good Entry
http://streams.example.com/good.m3u8
#EXTINF:-1,Trailing Entry Without URL
`
	channels, err := fetcher.ParseM3U(strings.NewReader(playlist))
	if err != nil {
		t.Fatalf("ParseM3U: %v", err)
	}
	if len(channels) != 1 {
		t.Fatalf("expected only the well-formed entry, got %d: %+v", len(channels), channels)
	}
	if channels[0].Name != "Good Entry" {
		t.Fatalf("wrong entry survived: %+v", channels[0])
	}
}
