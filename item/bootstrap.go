package item

import (
	"fmt"

	"github.com/xraph/apothecary/types"
)

// DefaultPrice is the flat price the catalog bootstrap assigns when no
// pricer is supplied.
const DefaultPrice types.Gold = 50

// Pricer assigns a price to a potion type for a given day.
type Pricer func(pt PotionType, day types.DayOfWeek) types.Gold

// FlatPrice prices every potion at p on every day.
func FlatPrice(p types.Gold) Pricer {
	return func(PotionType, types.DayOfWeek) types.Gold { return p }
}

// GeneratePotionTypes returns every composition whose components are
// multiples of step and add up to 100, in lexicographic order.
// step must be a positive divisor of 100.
func GeneratePotionTypes(step int) ([]PotionType, error) {
	if step <= 0 || 100%step != 0 {
		return nil, fmt.Errorf("item: step %d must be a positive divisor of 100", step)
	}

	var out []PotionType
	for r := 0; r <= 100; r += step {
		for g := 0; r+g <= 100; g += step {
			for b := 0; r+g+b <= 100; b += step {
				out = append(out, PotionType{r, g, b, 100 - r - g - b})
			}
		}
	}
	return out, nil
}

// SKUFor derives the catalog SKU of a composition.
func SKUFor(pt PotionType) string {
	return fmt.Sprintf("POTION_%d_%d_%d_%d", pt[0], pt[1], pt[2], pt[3])
}

// Bootstrap builds the full catalog for step with prices from pricer
// (DefaultPrice when nil) and zeroed sold counters.
func Bootstrap(step int, pricer Pricer) ([]*Item, error) {
	potionTypes, err := GeneratePotionTypes(step)
	if err != nil {
		return nil, err
	}
	if pricer == nil {
		pricer = FlatPrice(DefaultPrice)
	}

	items := make([]*Item, 0, len(potionTypes))
	for _, pt := range potionTypes {
		it := &Item{
			Entity:     types.NewEntity(),
			SKU:        SKUFor(pt),
			PotionType: pt,
			PriceByDay: make(map[types.DayOfWeek]types.Gold, len(types.Days)),
			SoldByDay:  make(map[types.DayOfWeek]int64, len(types.Days)),
		}
		it.Name = it.SKU
		for _, day := range types.Days {
			it.PriceByDay[day] = pricer(pt, day)
			it.SoldByDay[day] = 0
		}
		items = append(items, it)
	}
	return items, nil
}
