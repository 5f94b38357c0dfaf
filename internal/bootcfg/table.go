package bootcfg

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Entry is one key/value pair. HasValue is false for a token that had no '='.
type Entry struct {
	Key      string
	Value    string
	HasValue bool
}

func (e Entry) String() string {
	if !e.HasValue {
		return e.Key
	}
	return e.Key + "=" + e.Value
}

// Table is an ordered list of entries. Duplicate keys are kept.
type Table struct {
	entries []Entry
	errs    *multierror.Error
}

// Entries returns the entries in file order.
func (t *Table) Entries() []Entry {
	if t == nil {
		return nil
	}
	return append([]Entry(nil), t.entries...)
}

// Len returns the number of entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Lookup returns the value of the last entry with key. Entries without a
// value are ignored.
func (t *Table) Lookup(key string) (string, bool) {
	if t == nil {
		return "", false
	}
	for i := len(t.entries) - 1; i >= 0; i-- {
		e := t.entries[i]
		if e.Key == key && e.HasValue {
			return e.Value, true
		}
	}
	return "", false
}

// Values returns every value of key in file order.
func (t *Table) Values(key string) []string {
	if t == nil {
		return nil
	}
	var out []string
	for _, e := range t.entries {
		if e.Key == key && e.HasValue {
			out = append(out, e.Value)
		}
	}
	return out
}

// Malformed returns the entries that had no '='.
func (t *Table) Malformed() []Entry {
	if t == nil {
		return nil
	}
	var out []Entry
	for _, e := range t.entries {
		if !e.HasValue {
			out = append(out, e)
		}
	}
	return out
}

// Err returns the parse problems, or nil.
func (t *Table) Err() error {
	if t == nil {
		return nil
	}
	return t.errs.ErrorOrNil()
}

// String renders the table one entry per line.
func (t *Table) String() string {
	var sb strings.Builder
	for i, e := range t.Entries() {
		if e.HasValue {
			fmt.Fprintf(&sb, "%3d  %s = %s\n", i, e.Key, e.Value)
		} else {
			fmt.Fprintf(&sb, "%3d  %s (no value)\n", i, e.Key)
		}
	}
	return sb.String()
}
