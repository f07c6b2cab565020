package worker

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/obfactors/engine/internal/splitplan"
	"github.com/obfactors/engine/internal/testfixture"
)

func writeFixtureFile(t *testing.T, dir, name string, rows []testfixture.Row) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := testfixture.WriteSnapshotFile(path, rows); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun_ProducesOneRecordPerEmittedSecond(t *testing.T) {
	dir := t.TempDir()
	rows := testfixture.RandomRows(1, 20240102, 34200, 3) // three seconds inside the emit window
	path := writeFixtureFile(t, dir, "snapshot.csv", rows)

	chunk := splitplan.Chunk{DayID: 102, Files: []string{path}}
	out := make(chan Record, 16)

	if err := Run(context.Background(), chunk, out); err != nil {
		t.Fatal(err)
	}
	close(out)

	count := 0
	for range out {
		count++
	}
	if count != 3 {
		t.Errorf("got %d records, want 3 (one per emitted second)", count)
	}
}

func TestRun_RowsOutsideEmitWindowProduceNoRecord(t *testing.T) {
	dir := t.TempDir()
	rows := testfixture.RandomRows(2, 20240102, 0, 5) // starts at midnight, well outside any emit window
	path := writeFixtureFile(t, dir, "snapshot.csv", rows)

	chunk := splitplan.Chunk{DayID: 102, Files: []string{path}}
	out := make(chan Record, 16)

	if err := Run(context.Background(), chunk, out); err != nil {
		t.Fatal(err)
	}
	close(out)

	for range out {
		t.Error("expected no records for rows outside the emit window")
	}
}

func TestPack_RoundTripsTimeCode(t *testing.T) {
	packed := pack(1, 2, 34200)
	dayID := int(packed >> 15)
	timeCode := int(packed & 0x7FFF)
	if dayID != 102 {
		t.Errorf("dayID = %d, want 102", dayID)
	}
	if timeCode != 34200-21600 {
		t.Errorf("timeCode = %d, want %d (offset from the 06:00:00 anchor)", timeCode, 34200-21600)
	}
}

func TestRun_CrossFileLagReset(t *testing.T) {
	dir := t.TempDir()
	file1 := writeFixtureFile(t, dir, "AAA.csv", testfixture.RandomRows(1, 20240102, 34200, 1))
	file2 := writeFixtureFile(t, dir, "BBB.csv", testfixture.RandomRows(2, 20240102, 34201, 1))

	chunk := splitplan.Chunk{DayID: 102, Files: []string{file1, file2}}
	out := make(chan Record, 16)

	if err := Run(context.Background(), chunk, out); err != nil {
		t.Fatal(err)
	}
	close(out)

	wantPacked := pack(1, 2, 34201)
	found := false
	for rec := range out {
		if rec.Packed != wantPacked {
			continue
		}
		found = true
		if rec.Sum[16] != 0 || rec.Sum[17] != 0 || rec.Sum[18] != 0 {
			t.Errorf("alpha_17/18/19 on the second file's first row = %v/%v/%v, want 0/0/0 (lag must not cross a file boundary)",
				rec.Sum[16], rec.Sum[17], rec.Sum[18])
		}
	}
	if !found {
		t.Fatalf("no record found for the second file's row (packed key %d)", wantPacked)
	}
}

func TestRun_ContextCancellationStopsEarly(t *testing.T) {
	dir := t.TempDir()
	rows := testfixture.RandomRows(3, 20240102, 34200, 3)
	path := writeFixtureFile(t, dir, "snapshot.csv", rows)

	chunk := splitplan.Chunk{DayID: 102, Files: []string{path}}
	out := make(chan Record) // unbuffered: Run must observe cancellation rather than deadlock

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Run(ctx, chunk, out)
	if err == nil {
		t.Error("expected an error from Run against an already-cancelled context")
	}
}
