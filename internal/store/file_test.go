package store_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/streamgate/streamgate/internal/models"
	"github.com/streamgate/streamgate/internal/store"
)

func TestNewFileSeedsMissingDocuments(t *testing.T) {
	dir := t.TempDir()
	s, err := store.NewFile(dir)
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}

	reg, err := s.LoadCustomers(context.Background())
	if err != nil {
		t.Fatalf("LoadCustomers: %v", err)
	}
	if len(reg.Customers) != 0 {
		t.Fatalf("expected empty seeded registry, got %d customers", len(reg.Customers))
	}

	cat, err := s.LoadCatalog(context.Background())
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if len(cat.Countries) == 0 {
		t.Fatalf("expected seeded catalog to contain at least one country")
	}
}

func TestNewFileLeavesExistingDocumentsUntouched(t *testing.T) {
	dir := t.TempDir()
	doc := `{"customers":[{"id":"cust_001","name":"Alice","macs":["AA:BB:CC:DD:EE:FF"],"package":"basic","entitlements":["general"]}]}`
	if err := os.WriteFile(filepath.Join(dir, "customers.json"), []byte(doc), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	s, err := store.NewFile(dir)
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	reg, err := s.LoadCustomers(context.Background())
	if err != nil {
		t.Fatalf("LoadCustomers: %v", err)
	}
	if len(reg.Customers) != 1 || reg.Customers[0].ID != "cust_001" {
		t.Fatalf("seeding overwrote an existing document: %+v", reg.Customers)
	}
}

func TestAppendCustomerAssignsUniqueIDsAndPersists(t *testing.T) {
	s, err := store.NewFile(t.TempDir())
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	ctx := context.Background()

	first, err := s.AppendCustomer(ctx, models.Customer{
		Name: "Alice", MACs: []string{"AA:BB:CC:DD:EE:01"}, Package: "basic",
	})
	if err != nil {
		t.Fatalf("append first: %v", err)
	}
	second, err := s.AppendCustomer(ctx, models.Customer{
		Name: "Bob", MACs: []string{"AA:BB:CC:DD:EE:02"}, Package: "premium",
	})
	if err != nil {
		t.Fatalf("append second: %v", err)
	}

	if first.ID == "" || second.ID == "" {
		t.Fatalf("expected assigned ids, got %q and %q", first.ID, second.ID)
	}
	if first.ID == second.ID {
		t.Fatalf("expected distinct ids, both are %q", first.ID)
	}

	reg, err := s.LoadCustomers(ctx)
	if err != nil {
		t.Fatalf("LoadCustomers: %v", err)
	}
	if len(reg.Customers) != 2 {
		t.Fatalf("expected 2 persisted customers, got %d", len(reg.Customers))
	}
	if reg.Customers[1].ID != second.ID {
		t.Fatalf("append order not preserved: got %q at the end", reg.Customers[1].ID)
	}
}

func TestAppendCustomerNormalizesMACSet(t *testing.T) {
	s, err := store.NewFile(t.TempDir())
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}

	stored, err := s.AppendCustomer(context.Background(), models.Customer{
		Name: "Carol",
		MACs: []string{" aa:bb:cc:dd:ee:03 ", "AA:BB:CC:DD:EE:03", "", "aa:bb:cc:dd:ee:04"},
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	want := []string{"AA:BB:CC:DD:EE:03", "AA:BB:CC:DD:EE:04"}
	if len(stored.MACs) != len(want) {
		t.Fatalf("expected macs %v, got %v", want, stored.MACs)
	}
	for i := range want {
		if stored.MACs[i] != want[i] {
			t.Fatalf("expected macs %v, got %v", want, stored.MACs)
		}
	}
}

func TestAppendCustomerRejectsMACBoundToAnotherCustomer(t *testing.T) {
	s, err := store.NewFile(t.TempDir())
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	ctx := context.Background()

	if _, err := s.AppendCustomer(ctx, models.Customer{Name: "Alice", MACs: []string{"AA:BB:CC:DD:EE:05"}}); err != nil {
		t.Fatalf("append: %v", err)
	}

	_, err = s.AppendCustomer(ctx, models.Customer{Name: "Mallory", MACs: []string{"aa:bb:cc:dd:ee:05"}})
	if !errors.Is(err, store.ErrMACInUse) {
		t.Fatalf("expected ErrMACInUse, got %v", err)
	}

	reg, err := s.LoadCustomers(ctx)
	if err != nil {
		t.Fatalf("LoadCustomers: %v", err)
	}
	if len(reg.Customers) != 1 {
		t.Fatalf("rejected append must not persist, got %d customers", len(reg.Customers))
	}
}

func TestLoadCustomersCorruptDocument(t *testing.T) {
	dir := t.TempDir()
	s, err := store.NewFile(dir)
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "customers.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	_, err = s.LoadCustomers(context.Background())
	if !errors.Is(err, store.ErrStorageCorrupt) {
		t.Fatalf("expected ErrStorageCorrupt, got %v", err)
	}
}

func TestDocumentLayoutStaysCompatible(t *testing.T) {
	dir := t.TempDir()
	s, err := store.NewFile(dir)
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	if _, err := s.AppendCustomer(context.Background(), models.Customer{Name: "Alice", MACs: []string{"AA:BB:CC:DD:EE:06"}}); err != nil {
		t.Fatalf("append: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "customers.json"))
	if err != nil {
		t.Fatalf("read customers.json: %v", err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("parse customers.json: %v", err)
	}
	if _, ok := doc["customers"]; !ok {
		t.Fatalf("customers.json lost its top-level customers key: %s", raw)
	}

	raw, err = os.ReadFile(filepath.Join(dir, "channels.json"))
	if err != nil {
		t.Fatalf("read channels.json: %v", err)
	}
	doc = nil
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("parse channels.json: %v", err)
	}
	if _, ok := doc["countries"]; !ok {
		t.Fatalf("channels.json lost its top-level countries key: %s", raw)
	}
}
