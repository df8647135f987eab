package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_EmptyTermReturnsList(t *testing.T) {
	list := InventoryList{{Name: "Rice", Quantity: 2}, {Name: "beans", Quantity: 1}}

	assert.Equal(t, list, list.Filter(""))
}

func TestFilter_CaseInsensitive(t *testing.T) {
	list := InventoryList{{Name: "Rice", Quantity: 1}}

	got := list.Filter("ri")
	assert.Equal(t, InventoryList{{Name: "Rice", Quantity: 1}}, got)

	got = list.Filter("RICE")
	assert.Len(t, got, 1)
}

func TestFilter_Substring(t *testing.T) {
	list := InventoryList{
		{Name: "Banana", Quantity: 1},
		{Name: "apple", Quantity: 1},
	}

	got := list.Filter("an")
	assert.Equal(t, InventoryList{{Name: "Banana", Quantity: 1}}, got)
}

func TestFilter_KeepsOrder(t *testing.T) {
	list := InventoryList{
		{Name: "oat milk", Quantity: 1},
		{Name: "flour", Quantity: 3},
		{Name: "Milk powder", Quantity: 2},
	}

	got := list.Filter("milk")
	assert.Equal(t, []string{"oat milk", "Milk powder"}, []string{got[0].Name, got[1].Name})
}

func TestFilter_NoMatch(t *testing.T) {
	list := InventoryList{{Name: "salt", Quantity: 1}}

	assert.Empty(t, list.Filter("pepper"))
}

func TestDisplayName(t *testing.T) {
	cases := map[string]string{
		"apple":  "Apple",
		"Apple":  "Apple",
		"éclair": "Éclair",
		"":       "",
		"1kg":    "1kg",
	}

	for in, want := range cases {
		assert.Equal(t, want, Item{Name: in}.DisplayName(), "name %q", in)
	}
}

func TestFind(t *testing.T) {
	list := InventoryList{{Name: "apple", Quantity: 4}}

	item, ok := list.Find("apple")
	assert.True(t, ok)
	assert.Equal(t, 4, item.Quantity)

	_, ok = list.Find("Apple")
	assert.False(t, ok)
}
