package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/streamgate/streamgate/internal/fetcher"
	"github.com/streamgate/streamgate/internal/models"
	"github.com/streamgate/streamgate/internal/store"
)

// Import fetches an M3U playlist and merges its channels into the catalog as
// the country named by name/code. An existing country with the same code is
// replaced in place (keeping its position in the document); a new one is
// appended. Returns the number of channels imported.
func Import(ctx context.Context, s store.Store, m3uURL, name, code, userAgent string, timeout time.Duration) (int, error) {
	if m3uURL == "" {
		return 0, fmt.Errorf("m3u URL is required")
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return 0, fmt.Errorf("country code is required")
	}
	if name == "" {
		name = code
	}

	channels, err := fetcher.FetchM3U(ctx, m3uURL, userAgent, timeout)
	if err != nil {
		return 0, fmt.Errorf("fetch: %w", err)
	}

	// Entries without a tvg-id get a deterministic id from the country code
	// and their playlist position; duplicates within one playlist likewise.
	seen := make(map[string]bool, len(channels))
	for i := range channels {
		id := channels[i].ID
		if id == "" || seen[id] {
			id = fmt.Sprintf("ch_%s_%d", strings.ToLower(code), i+1)
		}
		seen[id] = true
		channels[i].ID = id
	}

	catalog, err := s.LoadCatalog(ctx)
	if err != nil {
		return 0, fmt.Errorf("load catalog: %w", err)
	}

	country := models.Country{Name: name, Code: code, Channels: channels}
	replaced := false
	for i := range catalog.Countries {
		if catalog.Countries[i].Code == code {
			catalog.Countries[i] = country
			replaced = true
			break
		}
	}
	if !replaced {
		catalog.Countries = append(catalog.Countries, country)
	}

	if err := s.ReplaceCatalog(ctx, catalog); err != nil {
		return 0, fmt.Errorf("replace catalog: %w", err)
	}
	return len(channels), nil
}
