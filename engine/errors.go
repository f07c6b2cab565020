package engine

import (
	"errors"

	"github.com/obfactors/engine/internal/splitplan"
)

// Sentinel errors for the taxonomy in the error-handling design: input
// structure problems surfaced to the driver without retry, since the
// core never attempts recovery internally.
var (
	// ErrNoTradingDays is returned when the root directory has no <MMDD>
	// subdirectories at all. An <MMDD> directory without any snapshot file
	// yields ErrEmptyDay instead.
	ErrNoTradingDays = errors.New("engine: no trading-day directories discovered under root")

	// ErrEmptyDay is returned when a discovered day directory has no
	// stock subdirectory holding a snapshot.csv file. It is splitplan's own sentinel,
	// re-exported here so callers never need to import internal/splitplan
	// themselves to check errors.Is(err, engine.ErrEmptyDay).
	ErrEmptyDay = splitplan.ErrEmptyDay
)
