package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// AllCategories disables the category constraint of a [ProductFilter].
const AllCategories = "all"

// A ProductFilter holds the search constraints of a catalog session.
//
// The zero value matches every product.
type ProductFilter struct {
	Query     string
	Category  string
	MinPrice  *float64
	MaxPrice  *float64
	MinRating float64
}

func (f ProductFilter) allCategories() bool {
	return f.Category == "" || f.Category == AllCategories
}

// Match reports whether p satisfies every constraint of f.
func (f ProductFilter) Match(p Product) bool {
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(p.Title), q) &&
			!strings.Contains(strings.ToLower(p.Description), q) {
			return false
		}
	}

	if !f.allCategories() && p.Category != f.Category {
		return false
	}

	if f.MinPrice != nil && p.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && p.Price > *f.MaxPrice {
		return false
	}

	if f.MinRating > 0 && p.RatingOrZero().Rate < f.MinRating {
		return false
	}

	return true
}

// Active reports whether any constraint is set.
func (f ProductFilter) Active() bool {
	return f.Query != "" || !f.allCategories() ||
		f.MinPrice != nil || f.MaxPrice != nil || f.MinRating > 0
}

// Describe returns one label per active constraint, in display order.
func (f ProductFilter) Describe() []string {
	var labels []string
	if f.Query != "" {
		labels = append(labels, fmt.Sprintf("Search: %q", f.Query))
	}
	if !f.allCategories() {
		labels = append(labels, "Category: "+f.Category)
	}
	if f.MinPrice != nil || f.MaxPrice != nil {
		lo, hi := "0", "∞"
		if f.MinPrice != nil {
			lo = formatPrice(*f.MinPrice)
		}
		if f.MaxPrice != nil {
			hi = formatPrice(*f.MaxPrice)
		}
		labels = append(labels, fmt.Sprintf("Price: $%s - $%s", lo, hi))
	}
	if f.MinRating > 0 {
		labels = append(labels, fmt.Sprintf("Min Rating: %s+ stars", formatPrice(f.MinRating)))
	}
	return labels
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ApplyFilter returns the products of ps matching f, keeping their order.
// ps is not modified.
func ApplyFilter(ps []Product, f ProductFilter) []Product {
	out := make([]Product, 0, len(ps))
	for _, p := range ps {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	return out
}

// Categories returns the distinct categories of ps in first-seen order.
func Categories(ps []Product) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range ps {
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	return out
}
