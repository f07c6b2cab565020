// Package snapline implements the byte-scan parser for Level-10 order-book
// snapshot CSV lines. It extracts only the fields the factor kernel needs,
// never materializing an intermediate string.
package snapline

// Outcome reports what ParseLine did with a line.
type Outcome int

const (
	// OutcomeSkip means the line was a header or blank and carries no data.
	OutcomeSkip Outcome = iota
	// OutcomeData means row was parsed and Row was populated.
	OutcomeData
)

// Levels is the number of order-book levels consumed (1..5); the wire
// format carries ten, but only the top five feed the factor kernel.
const Levels = 5

// Row holds the fields pulled out of one snapshot line. Zero value is a
// valid scratch to reuse across ParseLine calls.
type Row struct {
	Month, Day int
	SecOfDay   int
	Emit       bool

	TBidVol, TAskVol int

	BP, BV [Levels]int
	AP, AV [Levels]int
}

const (
	emitLow1, emitHigh1 = 34200, 41400
	emitLow2, emitHigh2 = 46800, 54000
)

// ShouldEmit reports whether secOfDay falls in the twice-daily emit window.
func ShouldEmit(secOfDay int) bool {
	return (secOfDay >= emitLow1 && secOfDay <= emitHigh1) ||
		(secOfDay >= emitLow2 && secOfDay <= emitHigh2)
}

const comma = ','

// ParseLine parses one CSV line (without its trailing newline) into row.
// It trusts well-formed input: no bounds checks beyond what is needed to
// tell a header/blank line from a data line, per the parser's contract.
func ParseLine(line []byte, row *Row) Outcome {
	if len(line) == 0 {
		return OutcomeSkip
	}

	end := len(line)
	if line[end-1] == '\r' {
		end--
	}
	if end == 0 {
		return OutcomeSkip
	}

	if c := line[0]; c < '0' || c > '9' {
		return OutcomeSkip
	}

	// Field 0: YYYYMMDD, 8 digits. Only month/day survive.
	row.Month = int(line[4]-'0')*10 + int(line[5]-'0')
	row.Day = int(line[6]-'0')*10 + int(line[7]-'0')

	// Field 1: HHMMSS, 6 digits, starting right after the comma at offset 8.
	hh := int(line[9]-'0')*10 + int(line[10]-'0')
	mm := int(line[11]-'0')*10 + int(line[12]-'0')
	ss := int(line[13]-'0')*10 + int(line[14]-'0')
	row.SecOfDay = hh*3600 + mm*60 + ss
	row.Emit = ShouldEmit(row.SecOfDay)

	pos := 16 // past "YYYYMMDD,HHMMSS,"

	// Fields 2..11: ten ignored fields.
	for k := 0; k < 10; k++ {
		pos = skipField(line, pos, end)
	}

	// Fields 12/13: tBidVol, tAskVol — parsed only when this row will emit.
	if row.Emit {
		row.TBidVol, pos = parseUint(line, pos, end)
		row.TAskVol, pos = parseUint(line, pos, end)
	} else {
		row.TBidVol, row.TAskVol = 0, 0
		pos = skipField(line, pos, end)
		pos = skipField(line, pos, end)
	}

	// Fields 14..16: three ignored fields.
	for k := 0; k < 3; k++ {
		pos = skipField(line, pos, end)
	}

	// Fields 17..36: levels 1..5 of (bp, bv, ap, av). Levels 6..10 follow
	// but are never reached since we stop reading after level 5.
	for i := 0; i < Levels; i++ {
		row.BP[i], pos = parseUint(line, pos, end)
		row.BV[i], pos = parseUint(line, pos, end)
		row.AP[i], pos = parseUint(line, pos, end)
		row.AV[i], pos = parseUint(line, pos, end)
	}

	return OutcomeData
}

// skipField advances pos past one comma-delimited field, landing just past
// the comma (or at end, for a trailing field).
func skipField(line []byte, pos, end int) int {
	for pos < end && line[pos] != comma {
		pos++
	}
	if pos < end {
		pos++
	}
	return pos
}

// parseUint reads an unsigned decimal integer starting at pos and returns
// it along with the cursor position just past the field's comma (or at
// end, for the line's final field).
func parseUint(line []byte, pos, end int) (int, int) {
	v := 0
	for pos < end && line[pos] != comma {
		v = v*10 + int(line[pos]-'0')
		pos++
	}
	if pos < end && line[pos] == comma {
		pos++
	}
	return v, pos
}
