package catalog

import (
	"strings"

	"rentme-app/internal/domain/user"
)

type ProductID string

type PriceUnit string

const (
	PerHour  PriceUnit = "hour"
	PerDay   PriceUnit = "day"
	PerWeek  PriceUnit = "week"
	PerMonth PriceUnit = "month"
)

type Condition string

const (
	ConditionNew     Condition = "new"
	ConditionLikeNew Condition = "like new"
	ConditionGood    Condition = "good"
	ConditionFair    Condition = "fair"
)

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type AvailableDates struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Product is a listing supplied by the catalog. The core only references products,
// it never mutates them.
type Product struct {
	ID             ProductID       `json:"id"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Images         []string        `json:"images"`
	Price          float64         `json:"price"`
	PriceUnit      PriceUnit       `json:"priceUnit"`
	Category       string          `json:"category"`
	Location       string          `json:"location"`
	Coordinates    *Coordinates    `json:"coordinates,omitempty"`
	Owner          user.User       `json:"owner"`
	Available      bool            `json:"available"`
	AvailableDates *AvailableDates `json:"availableDates,omitempty"`
	Condition      Condition       `json:"condition"`
	AllowBarter    bool            `json:"allowBarter"`
	Rating         float64         `json:"rating"`
	Reviews        int             `json:"reviews"`
	Featured       bool            `json:"featured,omitempty"`
	SwapOnly       bool            `json:"swapOnly,omitempty"`
	Tags           []string        `json:"tags,omitempty"`
}

type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Count int    `json:"count"`
}

// Clone returns a deep copy of p.
func (p Product) Clone() Product {
	out := p
	out.Images = cloneStrings(p.Images)
	out.Tags = cloneStrings(p.Tags)
	if p.Coordinates != nil {
		c := *p.Coordinates
		out.Coordinates = &c
	}
	if p.AvailableDates != nil {
		d := *p.AvailableDates
		out.AvailableDates = &d
	}
	out.Owner = p.Owner.Clone()
	return out
}

type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// FilterOptions narrows a product list. Zero values disable a criterion.
type FilterOptions struct {
	Query      string      `json:"query,omitempty"`
	PriceRange *PriceRange `json:"priceRange,omitempty"`
	Categories []string    `json:"categories,omitempty"`
	Conditions []Condition `json:"condition,omitempty"`
	SwapOnly   bool        `json:"swapOnly,omitempty"`
	RentalOnly bool        `json:"rentalOnly,omitempty"`
	Available  bool        `json:"available,omitempty"`
	Rating     float64     `json:"rating,omitempty"`
}

// Matches reports whether p satisfies every enabled criterion.
func (o FilterOptions) Matches(p Product) bool {
	if q := strings.TrimSpace(o.Query); q != "" {
		if !strings.Contains(strings.ToLower(p.Title), strings.ToLower(q)) {
			return false
		}
	}
	if o.PriceRange != nil {
		if p.Price < o.PriceRange.Min {
			return false
		}
		if o.PriceRange.Max > 0 && p.Price > o.PriceRange.Max {
			return false
		}
	}
	if len(o.Categories) > 0 && !containsFold(o.Categories, p.Category) {
		return false
	}
	if len(o.Conditions) > 0 {
		found := false
		for _, c := range o.Conditions {
			if c == p.Condition {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if o.SwapOnly && !p.AllowBarter && !p.SwapOnly {
		return false
	}
	if o.RentalOnly && p.SwapOnly {
		return false
	}
	if o.Available && !p.Available {
		return false
	}
	if o.Rating > 0 && p.Rating < o.Rating {
		return false
	}
	return true
}

// Filter returns the products matching opts, preserving order.
func Filter(products []Product, opts FilterOptions) []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if opts.Matches(p) {
			out = append(out, p)
		}
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append(make([]string, 0, len(in)), in...)
}

func containsFold(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), target) {
			return true
		}
	}
	return false
}
