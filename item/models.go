// Package item defines the potion catalog: what each SKU is made of, what
// it costs on each day of the week, and how many were sold on each day.
package item

import (
	"fmt"
	"strings"

	"github.com/xraph/apothecary/types"
)

// PotionType is the composition vector of a potion, in ml percentages of
// red, green, blue and dark liquid. A well-formed type sums to 100.
type PotionType [4]int

// Sum returns the total ml of the composition.
func (p PotionType) Sum() int {
	return p[0] + p[1] + p[2] + p[3]
}

// Valid reports whether every component is non-negative and the total is 100.
func (p PotionType) Valid() bool {
	for _, v := range p {
		if v < 0 {
			return false
		}
	}
	return p.Sum() == 100
}

// String formats the vector as "[r, g, b, d]".
func (p PotionType) String() string {
	return fmt.Sprintf("[%d, %d, %d, %d]", p[0], p[1], p[2], p[3])
}

// Item is a catalog entry identified by its SKU.
type Item struct {
	types.Entity
	SKU        string                         `json:"sku"`
	Name       string                         `json:"name"`
	PotionType PotionType                     `json:"potion_type"`
	PriceByDay map[types.DayOfWeek]types.Gold `json:"price_by_day"`
	SoldByDay  map[types.DayOfWeek]int64      `json:"sold_by_day"`
}

// Price returns the unit price for day. Days without a configured price
// cost nothing.
func (i *Item) Price(day types.DayOfWeek) types.Gold {
	return i.PriceByDay[day]
}

// Sold returns how many units were sold in the day's bucket.
func (i *Item) Sold(day types.DayOfWeek) int64 {
	return i.SoldByDay[day]
}

// DisplayName returns Name, falling back to the SKU.
func (i *Item) DisplayName() string {
	if i.Name != "" {
		return i.Name
	}
	return i.SKU
}

// Clone returns a deep copy so callers can mutate maps freely.
func (i *Item) Clone() *Item {
	c := *i
	c.PriceByDay = make(map[types.DayOfWeek]types.Gold, len(i.PriceByDay))
	for k, v := range i.PriceByDay {
		c.PriceByDay[k] = v
	}
	c.SoldByDay = make(map[types.DayOfWeek]int64, len(i.SoldByDay))
	for k, v := range i.SoldByDay {
		c.SoldByDay[k] = v
	}
	return &c
}

// Validate checks the fields a store relies on.
func (i *Item) Validate() error {
	if strings.TrimSpace(i.SKU) == "" {
		return fmt.Errorf("item: sku is required")
	}
	for day, price := range i.PriceByDay {
		if !day.Valid() {
			return fmt.Errorf("item %s: unknown price day %q", i.SKU, day)
		}
		if price.IsNegative() {
			return fmt.Errorf("item %s: negative price for %s", i.SKU, day)
		}
	}
	return nil
}
