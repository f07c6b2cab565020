// Package reduce implements the day-merger: the second-level
// accumulator that collects every worker's drained records for one
// trading day and finalizes them into sorted, float32 output rows.
package reduce

import (
	"sort"

	"github.com/obfactors/engine/internal/accum"
	"github.com/obfactors/engine/internal/alpha"
	"github.com/obfactors/engine/internal/rowset"
)

// baseSecOfDay is the packed key's timeCode anchor, 06:00:00: secOfDay is
// baseSecOfDay plus the key's 15 low bits.
const baseSecOfDay = 21600

// maskTime15 recovers timeCode's 15 low bits from a packed key.
const maskTime15 = 0x7FFF

// Merger owns one trading day's second-level accumulator. It is exclusive
// to a single goroutine for its lifetime.
type Merger struct {
	dayID int
	table *accum.Table
}

// NewMerger returns an empty Merger for the given trading day.
func NewMerger(dayID int) *Merger {
	return &Merger{dayID: dayID, table: accum.New()}
}

// DayID returns the trading day this merger is responsible for.
func (m *Merger) DayID() int { return m.dayID }

// Absorb combines one worker's drained record into the day's running
// total: sum += sum, count += count.
func (m *Merger) Absorb(packed int32, sum *[alpha.FactorCount]float64, count float64) {
	m.table.Merge(packed, sum, count)
}

// Finalize computes mean = sum/count for every live cell, narrows to
// float32, and returns the rows sorted ascending by secOfDay. No
// count == 0 defensive check is performed: by construction, an
// accumulator never holds a live entry with a zero count.
func (m *Merger) Finalize() []rowset.Row {
	rows := make([]rowset.Row, 0, m.table.Len())

	m.table.ForEach(func(packed int32, sum *[alpha.FactorCount]float64, count float64) {
		inv := 1.0 / count
		row := rowset.Row{SecOfDay: baseSecOfDay + int(packed&maskTime15)}
		for i := 0; i < alpha.FactorCount; i++ {
			row.Means[i] = float32(sum[i] * inv)
		}
		rows = append(rows, row)
	})

	sort.Slice(rows, func(i, j int) bool { return rows[i].SecOfDay < rows[j].SecOfDay })
	return rows
}
