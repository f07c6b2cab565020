// Package testfixture builds synthetic snapshot-tree fixtures for engine
// and component tests: a bufio.Writer-over-os.Create shape with
// math/rand-seeded synthesis of random Level-10 snapshot rows, arranged
// under a <root>/<MMDD>/<stock>/snapshot.csv tree.
package testfixture

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
)

// Header is the fixed header line written to every generated snapshot.csv.
// Its exact column names are never read by the parser — only field
// position matters — so this is illustrative, not load-bearing.
const Header = "tradingDay,tradeTime,recvTime,marketId,code,cumCount,cumVolume,turnover,last,open,high,low," +
	"tBidVol,tAskVol,weightedBidPrice,weightedAskPrice,openInterest," +
	"bp1,bv1,ap1,av1,bp2,bv2,ap2,av2,bp3,bv3,ap3,av3,bp4,bv4,ap4,av4,bp5,bv5,ap5,av5," +
	"bp6,bv6,ap6,av6,bp7,bv7,ap7,av7,bp8,bv8,ap8,av8,bp9,bv9,ap9,av9,bp10,bv10,ap10,av10\n"

// Level holds one order-book rank's (price, volume) pair.
type Level struct {
	Price, Volume int
}

// Row is one synthetic snapshot line's fields, in wire order.
type Row struct {
	TradingDay       int // YYYYMMDD
	TradeTime        int // HHMMSS
	TBidVol, TAskVol int
	Bid, Ask         [10]Level
}

// WriteSnapshotFile writes header followed by rows to path, creating
// parent directories as needed.
func WriteSnapshotFile(path string, rows []Row) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("testfixture: mkdir for %s: %w", path, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("testfixture: create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	defer w.Flush()

	if _, err := w.WriteString(Header); err != nil {
		return err
	}
	for _, r := range rows {
		if err := writeRow(w, r); err != nil {
			return err
		}
	}
	return w.Flush()
}

func writeRow(w *bufio.Writer, r Row) error {
	_, err := fmt.Fprintf(w, "%08d,%06d,0,0,0,0,0,0,0,0,0,0,%d,%d,0,0,0",
		r.TradingDay, r.TradeTime, r.TBidVol, r.TAskVol)
	if err != nil {
		return err
	}
	for i := 0; i < 10; i++ {
		if _, err := fmt.Fprintf(w, ",%d,%d,%d,%d", r.Bid[i].Price, r.Bid[i].Volume, r.Ask[i].Price, r.Ask[i].Volume); err != nil {
			return err
		}
	}
	_, err = w.WriteString("\n")
	return err
}

// RandomRows synthesizes n rows spaced one second apart starting at
// startSecOfDay, with level prices/volumes drawn from a seeded generator,
// the way generate_data.go drew random stations and temperatures.
func RandomRows(seed int64, tradingDay, startSecOfDay, n int) []Row {
	r := rand.New(rand.NewSource(seed))
	rows := make([]Row, n)

	basePrice := 250000 + r.Intn(10000)
	for i := 0; i < n; i++ {
		row := Row{
			TradingDay: tradingDay,
			TradeTime:  secToHHMMSS(startSecOfDay + i),
			TBidVol:    1000000 + r.Intn(5000000),
			TAskVol:    1000000 + r.Intn(5000000),
		}
		for lvl := 0; lvl < 10; lvl++ {
			row.Bid[lvl] = Level{Price: basePrice - lvl*100, Volume: 100 + r.Intn(20000)}
			row.Ask[lvl] = Level{Price: basePrice + 100 + lvl*100, Volume: 100 + r.Intn(20000)}
		}
		rows[i] = row
	}
	return rows
}

func secToHHMMSS(secOfDay int) int {
	hh := secOfDay / 3600
	mm := (secOfDay % 3600) / 60
	ss := secOfDay % 60
	return hh*10000 + mm*100 + ss
}
