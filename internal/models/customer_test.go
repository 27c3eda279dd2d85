package models_test

import (
	"testing"

	"github.com/streamgate/streamgate/internal/models"
)

func TestHasMACNormalizesStoredValues(t *testing.T) {
	// Registries written by older tooling may hold lowercase MACs.
	c := models.Customer{MACs: []string{"aa:bb:cc:dd:ee:ff"}}
	if !c.HasMAC(models.NormalizeMAC("AA:bb:CC:dd:EE:ff")) {
		t.Fatalf("lookup must match regardless of stored case")
	}
	if c.HasMAC(models.NormalizeMAC("11:11:11:11:11:11")) {
		t.Fatalf("unrelated mac matched")
	}
}

func TestAllowsCategory(t *testing.T) {
	c := models.Customer{Entitlements: []string{"general", "sports"}}
	if !c.AllowsCategory("sports") || c.AllowsCategory("movies") {
		t.Fatalf("entitlement filter wrong for %v", c.Entitlements)
	}

	all := models.Customer{Entitlements: []string{models.EntitlementAll}}
	if !all.AllowsCategory("anything") {
		t.Fatalf("wildcard must allow every category")
	}

	none := models.Customer{}
	if none.AllowsCategory("general") {
		t.Fatalf("empty entitlements must allow nothing")
	}
}

func TestFlattenKeepsDocumentOrder(t *testing.T) {
	cat := models.Catalog{Countries: []models.Country{
		{Code: "UK", Channels: []models.Channel{{ID: "a"}, {ID: "b"}}},
		{Code: "DE", Channels: []models.Channel{{ID: "c"}}},
	}}
	flat := cat.Flatten()
	want := []string{"a", "b", "c"}
	if len(flat) != len(want) {
		t.Fatalf("expected %d channels, got %d", len(want), len(flat))
	}
	for i, id := range want {
		if flat[i].ID != id {
			t.Fatalf("order broken at %d: got %q want %q", i, flat[i].ID, id)
		}
	}
}
