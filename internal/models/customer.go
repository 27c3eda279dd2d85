package models

// EntitlementAll is the wildcard entitlement marker granting access to the
// whole catalog regardless of category.
const EntitlementAll = "*"

// Customer is one subscriber record. MACs act as bearer credentials: a device
// presenting any of them is resolved to this customer.
type Customer struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	MACs         []string `json:"macs"`
	Package      string   `json:"package"`
	Expires      string   `json:"expires,omitempty"`
	Entitlements []string `json:"entitlements"`
}

// Registry is the persisted customer document: {"customers":[...]}.
type Registry struct {
	Customers []Customer `json:"customers"`
}

// HasMAC reports whether mac is bound to this customer. The caller is
// expected to pass an already-normalized value; stored MACs are normalized
// on comparison so registries written by older tooling still match.
func (c *Customer) HasMAC(mac string) bool {
	for _, m := range c.MACs {
		if NormalizeMAC(m) == mac {
			return true
		}
	}
	return false
}

// AllowsCategory reports whether the customer's entitlements cover the given
// channel category, either through the wildcard or an exact label match.
func (c *Customer) AllowsCategory(category string) bool {
	for _, e := range c.Entitlements {
		if e == EntitlementAll || e == category {
			return true
		}
	}
	return false
}

// FindByMAC returns the first customer bound to the normalized mac, or nil.
// With well-formed data at most one customer matches; duplicates are a data
// integrity problem the caller may want to surface.
func (r *Registry) FindByMAC(mac string) *Customer {
	for i := range r.Customers {
		if r.Customers[i].HasMAC(mac) {
			return &r.Customers[i]
		}
	}
	return nil
}
