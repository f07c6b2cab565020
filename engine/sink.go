package engine

import (
	"github.com/obfactors/engine/internal/arrowout"
	"github.com/obfactors/engine/internal/csvout"
)

// sinks resolves cfg into the day's mandatory CSV sink plus an optional
// Arrow sink. There are only ever these two concrete implementations,
// and the CSV one is never optional, so a pluggable interface value
// would be more machinery than the problem needs.
func sinks(cfg Config) (csvout.Sink, *arrowout.Sink) {
	csvSink := csvout.FileSink{Dir: cfg.OutputDir, Compress: cfg.EmitGzip}
	if !cfg.EmitArrow {
		return csvSink, nil
	}
	return csvSink, &arrowout.Sink{Dir: cfg.OutputDir}
}
