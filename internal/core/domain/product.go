package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// An ID identifies a product.
//
// The remote catalog issues numeric ids while locally created products may
// carry any text, so the value is kept as text and compared as such.
type ID string

func (id ID) String() string {
	return string(id)
}

// MarshalJSON writes an id spelled as a JSON number literal (1, -2, 1.5,
// 1e3) as that number and everything else as a JSON string, so a numeric
// remote id keeps its JSON type through the overlay.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.isNumber() {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("product id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) isNumber() bool {
	s := string(id)
	if s == "" || s[0] != '-' && (s[0] < '0' || s[0] > '9') {
		return false
	}
	return strings.TrimSpace(s) == s && json.Valid([]byte(s))
}

type (
	Product struct {
		ID          ID      `json:"id"`
		Title       string  `json:"title"`
		Price       float64 `json:"price"`
		Description string  `json:"description"`
		Category    string  `json:"category"`
		Image       string  `json:"image"`
		Rating      *Rating `json:"rating,omitempty"`
	}

	Rating struct {
		Rate  float64 `json:"rate"`
		Count int     `json:"count"`
	}
)

// RatingOrZero returns the product rating, or the zero rating when the
// product has none.
func (p Product) RatingOrZero() Rating {
	if p.Rating == nil {
		return Rating{}
	}
	return *p.Rating
}

// Validate checks the fields a product form requires.
//
// The returned error is a [*ValidationError] or nil.
func (p Product) Validate() error {
	var verr ValidationError

	if strings.TrimSpace(p.Title) == "" {
		verr.Add("title", "Title is required")
	}
	if !(p.Price > 0) {
		verr.Add("price", "Valid price is required")
	}
	if strings.TrimSpace(p.Description) == "" {
		verr.Add("description", "Description is required")
	}
	if strings.TrimSpace(p.Category) == "" {
		verr.Add("category", "Category is required")
	}
	if strings.TrimSpace(p.Image) == "" {
		verr.Add("image", "Image URL is required")
	}

	if verr.Empty() {
		return nil
	}
	return &verr
}

// IndexOf returns the position of the product with id in ps or -1.
func IndexOf(ps []Product, id ID) int {
	for i := range ps {
		if ps[i].ID == id {
			return i
		}
	}
	return -1
}

// IDSet collects the ids of ps.
func IDSet(ps []Product) map[ID]struct{} {
	set := make(map[ID]struct{}, len(ps))
	for _, p := range ps {
		set[p.ID] = struct{}{}
	}
	return set
}

// A ProductsView is what the presentation layer renders.
type ProductsView struct {
	Products []Product

	// Total is the size of the merged view before filtering.
	Total int

	// Degraded is set while the remote catalog is unreachable and only
	// locally stored products are shown.
	Degraded bool
}

// A MutationResult reports an applied local change.
type MutationResult struct {
	Product Product

	// Synced reports whether the remote catalog accepted the change.
	// The local change is applied either way.
	Synced bool
}
