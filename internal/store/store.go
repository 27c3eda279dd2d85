package store

import (
	"context"
	"errors"

	"github.com/streamgate/streamgate/internal/models"
)

// Store defines persistence for the customer registry and the channel catalog,
// addressed as two independent documents.
type Store interface {
	// LoadCustomers returns the full customer registry.
	LoadCustomers(ctx context.Context) (*models.Registry, error)
	// LoadCatalog returns the full channel catalog.
	LoadCatalog(ctx context.Context) (*models.Catalog, error)
	// AppendCustomer assigns a fresh unique id, normalizes the MAC set, and
	// persists the record. A MAC already bound to another customer is
	// rejected with ErrMACInUse.
	AppendCustomer(ctx context.Context, c models.Customer) (*models.Customer, error)
	// ReplaceCatalog overwrites the channel catalog document.
	ReplaceCatalog(ctx context.Context, catalog *models.Catalog) error
}

// Sentinel errors for the storage failure taxonomy. Callers distinguish them
// with errors.Is; none of them is retried by the store itself.
var (
	// ErrStorageUnavailable covers I/O failures reaching the backing store.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrStorageCorrupt covers documents that exist but do not parse.
	ErrStorageCorrupt = errors.New("storage corrupt")
	// ErrMACInUse is returned when an appended customer carries a MAC that is
	// already bound to an existing customer.
	ErrMACInUse = errors.New("mac already registered to another customer")
	// ErrWriteContended is returned when a cross-process write lock could not
	// be acquired. The append did not happen; the client may retry.
	ErrWriteContended = errors.New("a registry write is already in progress")
)
