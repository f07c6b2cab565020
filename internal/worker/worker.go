// Package worker drives one chunk of snapshot files through parsing,
// factor computation, and accumulation, maintaining per-file lag state,
// then drains its accumulator to the day-merger. File reads go through
// golang.org/x/exp/mmap, trading a read() syscall per batch for page
// faults against the mapped region.
package worker

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/exp/mmap"

	"github.com/obfactors/engine/internal/accum"
	"github.com/obfactors/engine/internal/alpha"
	"github.com/obfactors/engine/internal/snapline"
	"github.com/obfactors/engine/internal/splitplan"
)

// Record is one drained accumulator cell, forwarded to the day-merger
// responsible for its packed key's dayId.
type Record struct {
	Packed int32
	Sum    [alpha.FactorCount]float64
	Count  float64
}

// Run processes every file in chunk sequentially against a private
// accumulator, then forwards the accumulator's contents to out. Run
// blocks until either the chunk is exhausted or ctx is done.
func Run(ctx context.Context, chunk splitplan.Chunk, out chan<- Record) error {
	table := accum.New()

	for _, path := range chunk.Files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := processFile(path, table); err != nil {
			return fmt.Errorf("worker: %s: %w", path, err)
		}
	}

	var sendErr error
	table.ForEach(func(packed int32, sum *[alpha.FactorCount]float64, count float64) {
		if sendErr != nil {
			return
		}
		select {
		case out <- Record{Packed: packed, Sum: *sum, Count: count}:
		case <-ctx.Done():
			sendErr = ctx.Err()
		}
	})
	return sendErr
}

// processFile streams one instrument file line by line into table. Lag
// state is local to this call, so it resets at every file boundary
// automatically, satisfying the "reset whenever the file identifier
// changes" rule without an explicit identity check.
func processFile(path string, table *accum.Table) error {
	r, err := mmap.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	data := make([]byte, r.Len())
	if _, err := r.ReadAt(data, 0); err != nil && err != io.EOF {
		return err
	}

	var lag alpha.LagState
	lag.PrevTradeTime = -1

	var row snapline.Row
	start := 0
	for i := 0; i <= len(data); i++ {
		if i < len(data) && data[i] != '\n' {
			continue
		}
		line := data[start:i]
		start = i + 1
		if len(line) == 0 {
			continue
		}
		if snapline.ParseLine(line, &row) != snapline.OutcomeData {
			continue
		}
		processRow(&row, &lag, table)
	}
	return nil
}

func processRow(row *snapline.Row, lag *alpha.LagState, table *accum.Table) {
	if lag.HasPrev && row.SecOfDay < lag.PrevTradeTime {
		lag.Reset()
	}

	bp := toFloat(&row.BP)
	bv := toFloat(&row.BV)
	ap := toFloat(&row.AP)
	av := toFloat(&row.AV)

	if !row.Emit {
		ap1, bp1, sumBid, sumAsk := alpha.Aggregates(&bp, &bv, &ap, &av)
		updateLag(lag, ap1, bp1, sumBid, sumAsk, row.SecOfDay)
		return
	}

	var factors [alpha.FactorCount]float64
	ap1, bp1, sumBid, sumAsk := alpha.Compute(&factors, &bp, &bv, &ap, &av, float64(row.TBidVol), float64(row.TAskVol), *lag)

	packed := pack(row.Month, row.Day, row.SecOfDay)
	table.AddOrAccumulate(packed, &factors)

	updateLag(lag, ap1, bp1, sumBid, sumAsk, row.SecOfDay)
}

func updateLag(lag *alpha.LagState, ap1, bp1, sumBid, sumAsk float64, secOfDay int) {
	lag.HasPrev = true
	lag.PrevAp1, lag.PrevBp1 = ap1, bp1
	lag.PrevSumBidVolumes, lag.PrevSumAskVolumes = sumBid, sumAsk
	lag.PrevTradeTime = secOfDay
}

// pack builds the packed (dayId, timeCode) key from a row's own parsed
// trading-day and time fields, independent of which directory the file
// that contained it lived under.
func pack(month, day, secOfDay int) int32 {
	dayID := month*100 + day
	timeCode := (secOfDay - 21600) & 0x7FFF
	return int32(dayID)<<15 | int32(timeCode)
}

func toFloat(in *[5]int) [5]float64 {
	var out [5]float64
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}
