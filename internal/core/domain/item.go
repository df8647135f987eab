package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Item is a named pantry entry. Name doubles as the document key and is
// case-sensitive as stored. A stored item always has Quantity >= 1.
type Item struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// DisplayName returns the name with its first character upper-cased.
func (i Item) DisplayName() string {
	r, size := utf8.DecodeRuneInString(i.Name)
	if r == utf8.RuneError {
		return i.Name
	}
	return string(unicode.ToUpper(r)) + i.Name[size:]
}

// InventoryList keeps the order returned by the store's collection scan.
type InventoryList []Item

// Filter returns the items whose lowercased name contains the lowercased
// term. An empty term returns the list unchanged.
func (l InventoryList) Filter(term string) InventoryList {
	if term == "" {
		return l
	}

	needle := strings.ToLower(term)
	out := make(InventoryList, 0, len(l))
	for _, item := range l {
		if strings.Contains(strings.ToLower(item.Name), needle) {
			out = append(out, item)
		}
	}
	return out
}

// Find returns the item with exactly this name.
func (l InventoryList) Find(name string) (Item, bool) {
	for _, item := range l {
		if item.Name == name {
			return item, true
		}
	}
	return Item{}, false
}
