package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/streamgate/streamgate/internal/models"
)

const (
	customersFile = "customers.json"
	catalogFile   = "channels.json"
)

// File implements Store on top of two JSON documents in a data directory.
// Documents are re-read on every call so out-of-band edits are picked up
// without a restart. Writes rewrite the whole document and are serialized
// through a mutex; concurrent writers in other processes are not coordinated
// here (wrap with a CachedStore for a cross-process lock).
type File struct {
	dir string
	mu  sync.Mutex
}

// NewFile creates a file store rooted at dir. Missing documents are seeded
// with fixed defaults; existing ones are left untouched.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w: %w", ErrStorageUnavailable, err)
	}
	f := &File{dir: dir}
	if err := f.seed(); err != nil {
		return nil, err
	}
	return f, nil
}

// seed provisions absent documents. It is idempotent: a present document is
// never merged with or overwritten by the defaults.
func (f *File) seed() error {
	seeds := []struct {
		name string
		doc  any
	}{
		{customersFile, defaultRegistry()},
		{catalogFile, defaultCatalog()},
	}
	for _, s := range seeds {
		path := filepath.Join(f.dir, s.name)
		if _, err := os.Stat(path); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("stat %s: %w: %w", s.name, ErrStorageUnavailable, err)
		}
		if err := writeDocument(path, s.doc); err != nil {
			return err
		}
	}
	return nil
}

func (f *File) LoadCustomers(ctx context.Context) (*models.Registry, error) {
	var reg models.Registry
	if err := readDocument(filepath.Join(f.dir, customersFile), &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

func (f *File) LoadCatalog(ctx context.Context) (*models.Catalog, error) {
	var cat models.Catalog
	if err := readDocument(filepath.Join(f.dir, catalogFile), &cat); err != nil {
		return nil, err
	}
	return &cat, nil
}

func (f *File) AppendCustomer(ctx context.Context, c models.Customer) (*models.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	reg, err := f.LoadCustomers(ctx)
	if err != nil {
		return nil, err
	}

	stored, err := prepareCustomer(reg, c)
	if err != nil {
		return nil, err
	}

	reg.Customers = append(reg.Customers, *stored)
	if err := writeDocument(filepath.Join(f.dir, customersFile), reg); err != nil {
		return nil, err
	}
	return stored, nil
}

func (f *File) ReplaceCatalog(ctx context.Context, catalog *models.Catalog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return writeDocument(filepath.Join(f.dir, catalogFile), catalog)
}

// prepareCustomer validates and normalizes a record before it joins reg:
// the MAC set is normalized and de-duplicated, uniqueness against the
// existing registry is enforced, and a fresh id is assigned.
func prepareCustomer(reg *models.Registry, c models.Customer) (*models.Customer, error) {
	c.MACs = normalizeMACSet(c.MACs)

	for _, m := range c.MACs {
		if other := reg.FindByMAC(m); other != nil {
			return nil, fmt.Errorf("%w: %s (customer %s)", ErrMACInUse, m, other.ID)
		}
	}

	c.ID = NewCustomerID()
	if c.Entitlements == nil {
		c.Entitlements = []string{}
	}
	return &c, nil
}

// NewCustomerID returns a fresh opaque customer identifier.
func NewCustomerID() string {
	return "cust_" + uuid.NewString()
}

// normalizeMACSet canonicalizes and de-duplicates a MAC list, dropping
// blanks. Order of first appearance is kept.
func normalizeMACSet(macs []string) []string {
	out := make([]string, 0, len(macs))
	seen := make(map[string]bool, len(macs))
	for _, m := range macs {
		n := models.NormalizeMAC(m)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// readDocument parses one JSON document into dst, mapping failures onto the
// storage error taxonomy.
func readDocument(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w: %w", filepath.Base(path), ErrStorageUnavailable, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("parse %s: %w: %w", filepath.Base(path), ErrStorageCorrupt, err)
	}
	return nil
}

// writeDocument rewrites the whole document. Output keeps the 2-space
// indentation the existing documents use, so diffs against files edited by
// other tooling stay clean.
func writeDocument(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w: %w", filepath.Base(path), ErrStorageUnavailable, err)
	}
	return nil
}

// defaultRegistry is the document seeded on first boot: no customers.
func defaultRegistry() *models.Registry {
	return &models.Registry{Customers: []models.Customer{}}
}

// defaultCatalog is the catalog seeded on first boot. It is intentionally
// tiny; real deployments either edit channels.json out of band or use
// catalog import.
func defaultCatalog() *models.Catalog {
	return &models.Catalog{
		Countries: []models.Country{
			{
				Name: "International",
				Code: "INT",
				Channels: []models.Channel{
					{ID: "ch_welcome", Name: "Welcome", URL: "http://127.0.0.1/streams/welcome.m3u8", Category: "general", Language: "en"},
				},
			},
		},
	}
}
