// Package arrowout implements a supplemental columnar output sink: an
// Arrow IPC file per trading day, carrying the same 21 columns as the
// mandatory CSV.
package arrowout

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/obfactors/engine/internal/rowset"
)

var schema = buildSchema()

func buildSchema() *arrow.Schema {
	fields := make([]arrow.Field, 0, rowset.FactorCount+1)
	fields = append(fields, arrow.Field{Name: "tradeTime", Type: arrow.PrimitiveTypes.Int32})
	for i := 1; i <= rowset.FactorCount; i++ {
		fields = append(fields, arrow.Field{Name: fmt.Sprintf("alpha_%d", i), Type: arrow.PrimitiveTypes.Float32})
	}
	return arrow.NewSchema(fields, nil)
}

// Sink writes "<MMDD>.arrow" files under Dir, one record batch per day,
// rows in the same ascending secOfDay order the CSV sink receives.
type Sink struct {
	Dir string
}

// WriteDay writes rows as a single Arrow IPC file record batch.
func (s Sink) WriteDay(mmdd string, rows []rowset.Row) error {
	path := filepath.Join(s.Dir, mmdd+".arrow")
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("arrowout: create %s: %w", tmp, err)
	}

	if err := writeRecord(f, rows); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func writeRecord(f *os.File, rows []rowset.Row) error {
	pool := memory.NewGoAllocator()
	b := array.NewRecordBuilder(pool, schema)
	defer b.Release()

	tradeTime := b.Field(0).(*array.Int32Builder)
	alphaBuilders := make([]*array.Float32Builder, rowset.FactorCount)
	for i := 0; i < rowset.FactorCount; i++ {
		alphaBuilders[i] = b.Field(i + 1).(*array.Float32Builder)
	}

	for _, row := range rows {
		tradeTime.Append(int32(row.SecOfDay))
		for i := 0; i < rowset.FactorCount; i++ {
			alphaBuilders[i].Append(row.Means[i])
		}
	}

	rec := b.NewRecord()
	defer rec.Release()

	w, err := ipc.NewFileWriter(f, ipc.WithSchema(schema), ipc.WithAllocator(pool))
	if err != nil {
		return fmt.Errorf("arrowout: new writer: %w", err)
	}
	if err := w.Write(rec); err != nil {
		w.Close()
		return fmt.Errorf("arrowout: write record: %w", err)
	}
	return w.Close()
}
