// Package listing defines the data model exchanged with the listings backend.
//
// Package listing 定义与房源后端交换的数据模型。
package listing

import (
	"fmt"
	"strings"
)

// Listing represents a single property as returned by the backend.
// Optional numeric fields are pointers: nil means "not applicable",
// which is distinct from zero.
//
// Listing 表示后端返回的单个房产。
// 可选数值字段为指针：nil表示"不适用"，与零不同。
type Listing struct {
	ID          int64   `json:"id" yaml:"id"`
	Title       string  `json:"title" yaml:"title"`
	Location    string  `json:"location" yaml:"location"`
	Price       float64 `json:"price" yaml:"price"`
	ImageURL    string  `json:"imageUrl,omitempty" yaml:"image_url,omitempty"`
	Description string  `json:"description" yaml:"description"`
	Bedrooms    *int    `json:"bedrooms,omitempty" yaml:"bedrooms,omitempty"`
	Bathrooms   *int    `json:"bathrooms,omitempty" yaml:"bathrooms,omitempty"`
	Area        string  `json:"area,omitempty" yaml:"area,omitempty"`
	CreatedAt   string  `json:"createdAt,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt   string  `json:"updatedAt,omitempty" yaml:"updated_at,omitempty"`
}

// Facet returns the first comma-delimited segment of the location,
// e.g. "Andheri East" for "Andheri East, Mumbai".
func (l Listing) Facet() string {
	return FacetOf(l.Location)
}

// FacetOf returns the first comma-delimited segment of a location string.
func FacetOf(location string) string {
	head, _, _ := strings.Cut(location, ",")
	return strings.TrimSpace(head)
}

// Image returns the listing's image URL or the placeholder when absent.
func (l Listing) Image(placeholder string) string {
	if strings.TrimSpace(l.ImageURL) == "" {
		return placeholder
	}
	return l.ImageURL
}

// Snapshot is an immutable, ordered collection of listings.
// A controller replaces its snapshot wholesale; nothing mutates one in place.
//
// Snapshot 是不可变的有序房源集合。
// 控制器整体替换其快照；不会就地修改快照。
type Snapshot struct {
	items []Listing
	index map[int64]int
}

// NewSnapshot copies the given listings into a new snapshot.
func NewSnapshot(items []Listing) Snapshot {
	s := Snapshot{
		items: make([]Listing, len(items)),
		index: make(map[int64]int, len(items)),
	}
	copy(s.items, items)
	for i, l := range s.items {
		if _, dup := s.index[l.ID]; !dup {
			s.index[l.ID] = i
		}
	}
	return s
}

// Listings returns a copy of the listings in their original order.
func (s Snapshot) Listings() []Listing {
	out := make([]Listing, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of listings.
func (s Snapshot) Len() int {
	return len(s.items)
}

// ByID looks up a listing by id.
func (s Snapshot) ByID(id int64) (Listing, bool) {
	i, ok := s.index[id]
	if !ok {
		return Listing{}, false
	}
	return s.items[i], true
}

// Validate reports the first broken collection invariant:
// duplicate ids or a negative price.
func (s Snapshot) Validate() error {
	seen := make(map[int64]struct{}, len(s.items))
	for _, l := range s.items {
		if _, dup := seen[l.ID]; dup {
			return fmt.Errorf("duplicate listing id %d", l.ID)
		}
		seen[l.ID] = struct{}{}
		if l.Price < 0 {
			return fmt.Errorf("listing %d has negative price %v", l.ID, l.Price)
		}
	}
	return nil
}

// Envelope is the response wrapper used by every backend endpoint.
type Envelope[T any] struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	Data      T      `json:"data"`
	Timestamp string `json:"timestamp,omitempty"`
}
