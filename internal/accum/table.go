// Package accum implements the open-addressed accumulator table keyed by
// packed (day, time), shared by both the per-worker reduction and the
// day-merger's second-level reduction. Storage is flat parallel arrays
// rather than a string-keyed map, and the probe sequence follows a
// CPython-3.9-style dict recurrence rather than linear probing.
package accum

// FactorCount is the width of the summed vector stored per cell.
const FactorCount = 20

// valueWidth is FactorCount sums plus one trailing count column.
const valueWidth = FactorCount + 1

// InitialCapacity is the table's starting slot count (a power of two).
const InitialCapacity = 16384

// LoadFactor bounds live entries to capacity*LoadFactor before a resize.
const LoadFactor = 0.555

// Table is a mutable mapping packedKey -> (sum[20], count), implemented as
// two flat parallel arrays. Empty slots carry keys[i] == 0; a live slot
// stores packedKey+1, reserving 0 for "empty" per the accumulator's +1
// convention.
type Table struct {
	keys []int32
	vals []float64
	size int
}

// New returns a Table at InitialCapacity.
func New() *Table {
	return NewWithCapacity(InitialCapacity)
}

// NewWithCapacity returns an empty Table whose capacity is the next power
// of two at or above capacity.
func NewWithCapacity(capacity int) *Table {
	if capacity < 1 {
		capacity = InitialCapacity
	}
	capacity = nextPowerOfTwo(capacity)
	return &Table{
		keys: make([]int32, capacity),
		vals: make([]float64, capacity*valueWidth),
	}
}

func nextPowerOfTwo(v int) int {
	p := 1
	for p < v {
		p <<= 1
	}
	return p
}

// Len returns the number of live entries.
func (t *Table) Len() int { return t.size }

// AddOrAccumulate is the accumulator's sole per-row operation: insert
// delta as a fresh entry with count 1, or add it element-wise into an
// existing entry and bump its count.
func (t *Table) AddOrAccumulate(key int32, delta *[FactorCount]float64) {
	t.Merge(key, delta, 1.0)
}

// Merge adds delta (already summed over count contributions) into the
// entry for key, creating it if absent. AddOrAccumulate is Merge with
// count fixed at 1; the day-merger calls Merge directly to absorb a whole
// worker sub-total in one step.
func (t *Table) Merge(key int32, delta *[FactorCount]float64, count float64) {
	if float64(t.size+1) > float64(len(t.keys))*LoadFactor {
		t.grow()
	}

	stored := key + 1
	idx := t.probe(stored)
	base := idx * valueWidth

	if t.keys[idx] == 0 {
		t.keys[idx] = stored
		t.size++
		for i := 0; i < FactorCount; i++ {
			t.vals[base+i] = delta[i]
		}
		t.vals[base+FactorCount] = count
		return
	}

	for i := 0; i < FactorCount; i++ {
		t.vals[base+i] += delta[i]
	}
	t.vals[base+FactorCount] += count
}

// probe returns the slot index for stored, following the empty slot or
// the matching key, using the reference dictionary's probe recurrence:
// idx = hash & mask initially, then on each miss perturb >>= 5 (logical)
// and idx = (5*idx + 1 + perturb) & mask. Once perturb has shifted down
// to zero, the recurrence alone visits every slot exactly once before
// repeating, for any starting index, when mask+1 is a power of two >= 2.
func (t *Table) probe(stored int32) int {
	mask := uint32(len(t.keys) - 1)
	hash := uint32(stored)
	idx := hash & mask
	perturb := hash

	for probes := 0; ; probes++ {
		if t.keys[idx] == 0 || t.keys[idx] == stored {
			return int(idx)
		}
		if probes > int(mask) {
			panic("accum: probe sequence exceeded table capacity")
		}
		perturb >>= 5
		idx = (5*idx + 1 + perturb) & mask
	}
}

// grow doubles capacity and re-inserts every live entry against the new
// mask, using the same probe sequence. Amortized O(1) per insert overall.
func (t *Table) grow() {
	oldKeys, oldVals := t.keys, t.vals
	newCap := len(oldKeys) * 2

	t.keys = make([]int32, newCap)
	t.vals = make([]float64, newCap*valueWidth)
	t.size = 0

	for i, stored := range oldKeys {
		if stored == 0 {
			continue
		}
		idx := t.probe(stored)
		t.keys[idx] = stored
		copy(t.vals[idx*valueWidth:idx*valueWidth+valueWidth], oldVals[i*valueWidth:i*valueWidth+valueWidth])
		t.size++
	}
}

// ForEach yields every live (packedKey, sum, count) triple in slot order.
// Slot order carries no meaning downstream — the day-merger re-sorts by
// secOfDay once it finalizes.
func (t *Table) ForEach(fn func(packedKey int32, sum *[FactorCount]float64, count float64)) {
	for i, stored := range t.keys {
		if stored == 0 {
			continue
		}
		base := i * valueWidth
		var sum [FactorCount]float64
		copy(sum[:], t.vals[base:base+FactorCount])
		fn(stored-1, &sum, t.vals[base+FactorCount])
	}
}
