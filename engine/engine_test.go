package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/obfactors/engine/internal/testfixture"
)

func writeDayFixture(t *testing.T, root, mmdd, stock string, rows []testfixture.Row) {
	t.Helper()
	path := filepath.Join(root, mmdd, stock, "snapshot.csv")
	if err := testfixture.WriteSnapshotFile(path, rows); err != nil {
		t.Fatal(err)
	}
}

func TestRun_SingleDayTwoStocks(t *testing.T) {
	root := t.TempDir()
	out := t.TempDir()

	rows := testfixture.RandomRows(1, 20240102, 34200, 5)
	writeDayFixture(t, root, "0102", "AAA", rows)
	writeDayFixture(t, root, "0102", "BBB", testfixture.RandomRows(2, 20240102, 34200, 5))

	cfg := Config{Root: root, OutputDir: out, Parallelism: 2}
	if err := Run(context.Background(), cfg); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(out, "0102.csv"))
	if err != nil {
		t.Fatalf("expected 0102.csv to be committed: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 6 { // header + 5 seconds
		t.Fatalf("got %d lines, want 6 (header + 5 rows)", len(lines))
	}
	if !strings.HasPrefix(lines[0], "tradeTime,alpha_1,") {
		t.Errorf("header = %q", lines[0])
	}
}

func TestRun_MultipleDaysEachGetOwnFile(t *testing.T) {
	root := t.TempDir()
	out := t.TempDir()

	writeDayFixture(t, root, "0102", "AAA", testfixture.RandomRows(1, 20240102, 34200, 2))
	writeDayFixture(t, root, "0103", "AAA", testfixture.RandomRows(2, 20240103, 46800, 2))

	cfg := Config{Root: root, OutputDir: out, Parallelism: 4}
	if err := Run(context.Background(), cfg); err != nil {
		t.Fatal(err)
	}

	for _, mmdd := range []string{"0102", "0103"} {
		if _, err := os.Stat(filepath.Join(out, mmdd+".csv")); err != nil {
			t.Errorf("expected %s.csv to exist: %v", mmdd, err)
		}
	}
}

func TestRun_NoTradingDaysIsAnError(t *testing.T) {
	root := t.TempDir()
	out := t.TempDir()

	err := Run(context.Background(), Config{Root: root, OutputDir: out})
	if !errors.Is(err, ErrNoTradingDays) {
		t.Fatalf("Run() err = %v, want ErrNoTradingDays", err)
	}
}

func TestRun_EmitArrowAlsoWritesArrowFile(t *testing.T) {
	root := t.TempDir()
	out := t.TempDir()
	writeDayFixture(t, root, "0102", "AAA", testfixture.RandomRows(1, 20240102, 34200, 2))

	cfg := Config{Root: root, OutputDir: out, EmitArrow: true}
	if err := Run(context.Background(), cfg); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(out, "0102.arrow")); err != nil {
		t.Errorf("expected 0102.arrow to exist when EmitArrow is set: %v", err)
	}
}

func TestRun_EmitGzipWritesCompressedCSV(t *testing.T) {
	root := t.TempDir()
	out := t.TempDir()
	writeDayFixture(t, root, "0102", "AAA", testfixture.RandomRows(1, 20240102, 34200, 2))

	cfg := Config{Root: root, OutputDir: out, EmitGzip: true}
	if err := Run(context.Background(), cfg); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(out, "0102.csv.gz")); err != nil {
		t.Errorf("expected 0102.csv.gz to exist when EmitGzip is set: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "0102.csv")); err == nil {
		t.Error("uncompressed 0102.csv should not exist when EmitGzip is set")
	}
}

func TestConfig_RecordBufferDefault(t *testing.T) {
	var c Config
	if c.recordBuffer() != defaultRecordBuffer {
		t.Errorf("recordBuffer() = %d, want default %d", c.recordBuffer(), defaultRecordBuffer)
	}
	c.RecordBufferSize = 10
	if c.recordBuffer() != 10 {
		t.Errorf("recordBuffer() = %d, want 10", c.recordBuffer())
	}
}
