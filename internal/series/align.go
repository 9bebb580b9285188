package series

import (
	"fmt"
	"sort"
	"time"
)

// Align merges a price series and a production series onto a common hourly
// index. The output spans the sorted union of hours present in either input,
// one row per distinct hour. Production readings finer than one hour are
// summed into their hour bucket. Duplicate price points for the same hour are
// a data-quality error.
func Align(prices []PricePoint, production []ProductionPoint) ([]AlignedRow, error) {
	priceByHour := make(map[int64]PricePoint, len(prices))
	for _, p := range prices {
		key := NormalizeHour(p.TS).Unix()
		if prev, ok := priceByHour[key]; ok && !prev.Price.Equal(p.Price) {
			return nil, fmt.Errorf("conflicting price points for hour %s", NormalizeHour(p.TS).Format(time.RFC3339))
		}
		priceByHour[key] = p
	}

	prodByHour := make(map[int64]ProductionPoint, len(production))
	for _, p := range production {
		key := NormalizeHour(p.TS).Unix()
		if prev, ok := prodByHour[key]; ok {
			prev.Energy = prev.Energy.Add(p.Energy)
			prodByHour[key] = prev
		} else {
			prodByHour[key] = ProductionPoint{TS: NormalizeHour(p.TS), Energy: p.Energy}
		}
	}

	keys := make([]int64, 0, len(priceByHour)+len(prodByHour))
	for key := range priceByHour {
		keys = append(keys, key)
	}
	for key := range prodByHour {
		if _, ok := priceByHour[key]; !ok {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	rows := make([]AlignedRow, 0, len(keys))
	for _, key := range keys {
		row := AlignedRow{TS: time.Unix(key, 0).UTC()}
		if p, ok := priceByHour[key]; ok {
			price := p.Price
			row.Price = &price
		}
		if p, ok := prodByHour[key]; ok {
			energy := p.Energy
			row.Production = &energy
		}
		rows = append(rows, row)
	}
	return rows, nil
}
