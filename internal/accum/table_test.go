package accum

import "testing"

func delta(v float64) *[FactorCount]float64 {
	var d [FactorCount]float64
	for i := range d {
		d[i] = v
	}
	return &d
}

func TestAddOrAccumulate_InsertThenAccumulate(t *testing.T) {
	tbl := New()

	tbl.AddOrAccumulate(42, delta(1))
	tbl.AddOrAccumulate(42, delta(2))
	tbl.AddOrAccumulate(7, delta(5))

	if tbl.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tbl.Len())
	}

	seen := map[int32][FactorCount]float64{}
	counts := map[int32]float64{}
	tbl.ForEach(func(key int32, sum *[FactorCount]float64, count float64) {
		seen[key] = *sum
		counts[key] = count
	})

	sum42 := seen[42]
	for i, v := range sum42 {
		if v != 3 {
			t.Errorf("key 42 sum[%d] = %v, want 3", i, v)
		}
	}
	if counts[42] != 2 {
		t.Errorf("key 42 count = %v, want 2", counts[42])
	}

	sum7 := seen[7]
	for i, v := range sum7 {
		if v != 5 {
			t.Errorf("key 7 sum[%d] = %v, want 5", i, v)
		}
	}
	if counts[7] != 1 {
		t.Errorf("key 7 count = %v, want 1", counts[7])
	}
}

func TestMerge_ArbitraryCount(t *testing.T) {
	tbl := New()
	tbl.Merge(1, delta(10), 4)
	tbl.Merge(1, delta(5), 2)

	var gotSum [FactorCount]float64
	var gotCount float64
	tbl.ForEach(func(key int32, sum *[FactorCount]float64, count float64) {
		gotSum = *sum
		gotCount = count
	})
	if gotCount != 6 {
		t.Fatalf("count = %v, want 6", gotCount)
	}
	if gotSum[0] != 15 {
		t.Fatalf("sum[0] = %v, want 15", gotSum[0])
	}
}

func TestTable_ZeroKeyIsValid(t *testing.T) {
	// Key 0 must not collide with the empty-slot sentinel (stored as key+1).
	tbl := New()
	tbl.AddOrAccumulate(0, delta(9))

	found := false
	tbl.ForEach(func(key int32, sum *[FactorCount]float64, count float64) {
		if key == 0 {
			found = true
			if sum[0] != 9 {
				t.Errorf("sum[0] = %v, want 9", sum[0])
			}
		}
	})
	if !found {
		t.Fatal("key 0 was not recorded as a live entry")
	}
}

func TestTable_GrowPreservesContent(t *testing.T) {
	tbl := NewWithCapacity(4)

	const n = 2000
	for i := int32(0); i < n; i++ {
		tbl.AddOrAccumulate(i, delta(float64(i)))
	}
	if tbl.Len() != n {
		t.Fatalf("Len() = %d, want %d", tbl.Len(), n)
	}

	seen := make(map[int32]bool, n)
	tbl.ForEach(func(key int32, sum *[FactorCount]float64, count float64) {
		seen[key] = true
		if count != 1 {
			t.Errorf("key %d count = %v, want 1", key, count)
		}
		if sum[0] != float64(key) {
			t.Errorf("key %d sum[0] = %v, want %v", key, sum[0], float64(key))
		}
	})
	for i := int32(0); i < n; i++ {
		if !seen[i] {
			t.Errorf("key %d missing after grow", i)
		}
	}
}

func TestNewWithCapacity_RoundsUpToPowerOfTwo(t *testing.T) {
	tbl := NewWithCapacity(10)
	if len(tbl.keys) != 16 {
		t.Fatalf("capacity = %d, want 16 (10 rounded up to a power of two)", len(tbl.keys))
	}
	tbl.AddOrAccumulate(1, delta(1))
	// Then insert enough entries to force growth from the rounded
	// capacity and check the table stays internally consistent.
	for i := int32(2); i <= 20; i++ {
		tbl.AddOrAccumulate(i, delta(1))
	}
	if tbl.Len() != 20 {
		t.Fatalf("Len() = %d, want 20", tbl.Len())
	}
}
