package encoding

import (
	"bufio"
	"io"
)

// Parser wraps a RowParser over a streamed io.Reader, yielding one row at
// a time. Provider.IngestText drives one internally; Parser is exported
// for callers that want to inspect or transform rows between parsing and
// accumulation, e.g. a CLI that prints progress every N rows.
type Parser struct {
	scanner  *bufio.Scanner
	inner    RowParser
	rowIndex int
}

// NewParser returns a Parser that decodes r's lines with inner.
func NewParser(r io.Reader, inner RowParser) *Parser {
	return &Parser{scanner: bufio.NewScanner(r), inner: inner}
}

// Next parses the next line. ok is false once the stream is exhausted; err
// is non-nil if the scan itself failed or inner.ParseOneLine rejected the
// line.
func (p *Parser) Next() (pairs []CatPair, label float64, ok bool, err error) {
	if !p.scanner.Scan() {
		return nil, 0, false, p.scanner.Err()
	}
	pairs, label, err = p.inner.ParseOneLine(p.scanner.Text(), p.rowIndex)
	p.rowIndex++
	return pairs, label, true, err
}

// cscCursor tracks one CSCSource's next unread nonzero entry.
type cscCursor struct {
	nextRow   int
	nextVal   float64
	exhausted bool
}

// CSCRowIterator advances a set of CSCSource columns in lockstep,
// producing one densified row of CatPair values at a time with implicit
// zero-fill for columns that have no nonzero entry at the current row.
// Grounded on category_encoding_provider.hpp's CSC row iterator, which
// walks per-column cursors this way instead of materializing the whole
// matrix up front.
type CSCRowIterator struct {
	columns    []CSCSource
	featureIDs []int
	cursors    []cscCursor
	row        int
}

// NewCSCRowIterator builds an iterator over columns, where featureIDs[i]
// names the feature id column i represents. Resets every column.
func NewCSCRowIterator(columns []CSCSource, featureIDs []int) *CSCRowIterator {
	cursors := make([]cscCursor, len(columns))
	for i, c := range columns {
		c.Reset()
		r, v := c.NextNonZero()
		cursors[i] = cscCursor{nextRow: r, nextVal: v, exhausted: r < 0}
	}
	return &CSCRowIterator{columns: columns, featureIDs: featureIDs, cursors: cursors}
}

// Next returns the current row's sparse pairs, zero-filling any column
// with no nonzero entry at this row, and advances to the next row.
func (it *CSCRowIterator) Next() []CatPair {
	pairs := make([]CatPair, len(it.columns))
	for i, col := range it.columns {
		cur := &it.cursors[i]
		val := 0.0
		if !cur.exhausted && cur.nextRow == it.row {
			val = cur.nextVal
			r, v := col.NextNonZero()
			if r < 0 {
				cur.exhausted = true
			} else {
				cur.nextRow, cur.nextVal = r, v
			}
		}
		pairs[i] = CatPair{FeatureID: it.featureIDs[i], Value: val}
	}
	it.row++
	return pairs
}
