package fwtest

import (
	"errors"
	"strings"

	"neoboot/internal/firmware"
)

// ErrNoMoreKeys is returned by Console.ReadKey once the script is exhausted.
var ErrNoMoreKeys = errors.New("key script exhausted")

type cell struct {
	r    rune
	attr firmware.Attribute
}

// Console is a firmware.Console that replays a key script and renders output
// into a character grid.
type Console struct {
	Columns, Rows int
	Keys          []firmware.Key

	// QueryErr and OutputErr make the corresponding calls fail.
	QueryErr  error
	OutputErr error

	// Clears counts ClearScreen calls.
	Clears int
	// Transcript accumulates every string written, including across clears.
	Transcript strings.Builder

	grid     [][]cell
	col, row int
	attr     firmware.Attribute
}

var _ firmware.Console = (*Console)(nil)

// NewConsole returns an 80x25 console that will replay keys.
func NewConsole(keys ...firmware.Key) *Console {
	c := &Console{Columns: 80, Rows: 25, Keys: keys}
	c.reset()
	return c
}

// Script converts a compact description into keys: runes map to themselves
// while the special runes below map to control keys.
//
//	↑ Up, ↓ Down, ← Left, → Right, ⏎ Enter, ⎋ Esc, ⌫ Backspace
func Script(s string) []firmware.Key {
	var keys []firmware.Key
	for _, r := range s {
		switch r {
		case '↑':
			keys = append(keys, firmware.Key{Code: firmware.KeyUp})
		case '↓':
			keys = append(keys, firmware.Key{Code: firmware.KeyDown})
		case '←':
			keys = append(keys, firmware.Key{Code: firmware.KeyLeft})
		case '→':
			keys = append(keys, firmware.Key{Code: firmware.KeyRight})
		case '⏎':
			keys = append(keys, firmware.Key{Code: firmware.KeyEnter})
		case '⎋':
			keys = append(keys, firmware.Key{Code: firmware.KeyEscape})
		case '⌫':
			keys = append(keys, firmware.Key{Code: firmware.KeyBackspace})
		default:
			keys = append(keys, firmware.RuneKey(r))
		}
	}
	return keys
}

// ReadKey implements firmware.Console.
func (c *Console) ReadKey() (firmware.Key, error) {
	if len(c.Keys) == 0 {
		return firmware.Key{}, ErrNoMoreKeys
	}
	k := c.Keys[0]
	c.Keys = c.Keys[1:]
	return k, nil
}

// ClearScreen implements firmware.Console.
func (c *Console) ClearScreen() error {
	c.Clears++
	c.reset()
	return nil
}

// QueryMode implements firmware.Console.
func (c *Console) QueryMode() (int, int, error) {
	if c.QueryErr != nil {
		return 0, 0, c.QueryErr
	}
	return c.Columns, c.Rows, nil
}

// SetCursorPosition implements firmware.Console.
func (c *Console) SetCursorPosition(column, row int) error {
	c.col, c.row = column, row
	return nil
}

// SetAttribute implements firmware.Console.
func (c *Console) SetAttribute(a firmware.Attribute) error {
	c.attr = a
	return nil
}

// OutputString implements firmware.Console.
func (c *Console) OutputString(s string) error {
	if c.OutputErr != nil {
		return c.OutputErr
	}
	c.Transcript.WriteString(s)
	for _, r := range s {
		switch r {
		case '\n':
			c.row++
			c.col = 0
		case '\r':
			c.col = 0
		case '\b':
			if c.col > 0 {
				c.col--
			}
		default:
			if c.row >= 0 && c.row < len(c.grid) && c.col >= 0 && c.col < len(c.grid[c.row]) {
				c.grid[c.row][c.col] = cell{r: r, attr: c.attr}
			}
			c.col++
		}
	}
	return nil
}

// Line returns row i of the screen with trailing blanks removed.
func (c *Console) Line(i int) string {
	if i < 0 || i >= len(c.grid) {
		return ""
	}
	var sb strings.Builder
	for _, cl := range c.grid[i] {
		sb.WriteRune(cl.r)
	}
	return strings.TrimRight(sb.String(), " ")
}

// Screen returns all rows joined by newlines.
func (c *Console) Screen() string {
	lines := make([]string, len(c.grid))
	for i := range c.grid {
		lines[i] = c.Line(i)
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

// FindLine returns the first row containing s, or -1.
func (c *Console) FindLine(s string) int {
	for i := range c.grid {
		if strings.Contains(c.Line(i), s) {
			return i
		}
	}
	return -1
}

// AttrAt returns the attribute the cell at (column, row) was written with.
func (c *Console) AttrAt(column, row int) firmware.Attribute {
	if row < 0 || row >= len(c.grid) || column < 0 || column >= len(c.grid[row]) {
		return firmware.AttrNormal
	}
	return c.grid[row][column].attr
}

// Cursor returns the current cursor position.
func (c *Console) Cursor() (int, int) {
	return c.col, c.row
}

func (c *Console) reset() {
	c.grid = make([][]cell, c.Rows)
	for i := range c.grid {
		c.grid[i] = make([]cell, c.Columns)
		for j := range c.grid[i] {
			c.grid[i][j] = cell{r: ' '}
		}
	}
	c.col, c.row = 0, 0
}
