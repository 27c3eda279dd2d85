package models

// Channel is a single stream entry in the catalog.
type Channel struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	Category string `json:"category"`
	Language string `json:"language,omitempty"`
	Logo     string `json:"logo,omitempty"`
}

// Country groups the channels of one region in the catalog document.
type Country struct {
	Name     string    `json:"name"`
	Code     string    `json:"code"`
	Channels []Channel `json:"channels"`
}

// Catalog is the persisted channel document: {"countries":[...]}.
// It is edited out of band (or via catalog import) and read-only from the
// authorization path's perspective.
type Catalog struct {
	Countries []Country `json:"countries"`
}

// Flatten concatenates all countries' channel lists in document order.
// Ordering is stable: authorization results must come back in catalog order.
func (c *Catalog) Flatten() []Channel {
	var out []Channel
	for i := range c.Countries {
		out = append(out, c.Countries[i].Channels...)
	}
	return out
}
