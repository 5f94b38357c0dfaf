// Package bootcfg parses the boot configuration: comma separated key=value
// tokens read from the boot volume.
package bootcfg

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// ErrMalformedToken is a token without a '=' separator.
var ErrMalformedToken = errors.New("malformed config token")

const (
	separator = ','
	assign    = '='
)

// tokenizer walks a buffer one token at a time.
type tokenizer struct {
	buf string
	pos int
}

// next returns the next non-empty token. Line breaks directly after a
// separator are skipped, so a file may put one token per line.
func (t *tokenizer) next() (string, bool) {
	for t.pos < len(t.buf) {
		for t.pos < len(t.buf) && (t.buf[t.pos] == '\r' || t.buf[t.pos] == '\n') {
			t.pos++
		}

		start := t.pos
		for t.pos < len(t.buf) && t.buf[t.pos] != separator {
			t.pos++
		}
		tok := t.buf[start:t.pos]
		if t.pos < len(t.buf) {
			t.pos++
		}
		if tok != "" {
			return tok, true
		}
	}
	return "", false
}

// Parse splits buf into an ordered table. Tokens without '=' are kept with no
// value and reported through Table.Err. Keys and values are not trimmed.
func Parse(buf []byte) *Table {
	s := strings.TrimRight(string(buf), "\r\n")
	t := &tokenizer{buf: s}
	tbl := &Table{}

	for {
		tok, ok := t.next()
		if !ok {
			break
		}
		key, value, found := strings.Cut(tok, string(assign))
		e := Entry{Key: key, Value: value, HasValue: found}
		if !found {
			tbl.errs = multierror.Append(tbl.errs,
				fmt.Errorf("token %d %q: %w", len(tbl.entries), tok, ErrMalformedToken))
		}
		tbl.entries = append(tbl.entries, e)
	}

	return tbl
}
