package service

import (
	"context"
	"errors"
	"log"

	"github.com/streamgate/streamgate/internal/models"
	"github.com/streamgate/streamgate/internal/store"
)

// ErrInvalidMAC is returned when the presented device identifier is empty.
// That is the only syntactic requirement; anything non-empty is looked up.
var ErrInvalidMAC = errors.New("mac is required")

// AuthResult is the outcome of an authorization attempt. A denial is a
// regular result, not an error: Authorized is false and every other field is
// zero so nothing about the catalog leaks to unknown devices.
type AuthResult struct {
	Authorized bool
	CustomerID string
	Package    string
	Channels   []models.Channel
}

// Authorize resolves a device MAC to a customer and computes the channel
// subset the customer is entitled to. The registry and catalog are loaded
// through the store on every call, so admin edits are reflected without a
// restart (the cached store keeps this contract via invalidation-on-write).
func Authorize(ctx context.Context, s store.Store, mac string) (*AuthResult, error) {
	normalized := models.NormalizeMAC(mac)
	if normalized == "" {
		return nil, ErrInvalidMAC
	}

	reg, err := s.LoadCustomers(ctx)
	if err != nil {
		return nil, err
	}

	// Linear scan, first match wins. A second match means two customers
	// share a MAC, which the append path rejects; existing data may still
	// carry duplicates, so surface them in the log instead of guessing.
	var match *models.Customer
	for i := range reg.Customers {
		if !reg.Customers[i].HasMAC(normalized) {
			continue
		}
		if match == nil {
			match = &reg.Customers[i]
			continue
		}
		log.Printf("authorize: mac %s bound to customers %s and %s; using %s",
			normalized, match.ID, reg.Customers[i].ID, match.ID)
	}
	if match == nil {
		return &AuthResult{Authorized: false}, nil
	}

	catalog, err := s.LoadCatalog(ctx)
	if err != nil {
		return nil, err
	}

	// Keep catalog order; no re-sorting.
	channels := make([]models.Channel, 0)
	for _, ch := range catalog.Flatten() {
		if match.AllowsCategory(ch.Category) {
			channels = append(channels, ch)
		}
	}

	return &AuthResult{
		Authorized: true,
		CustomerID: match.ID,
		Package:    match.Package,
		Channels:   channels,
	}, nil
}
