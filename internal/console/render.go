package console

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"neoboot/internal/firmware"
)

const (
	// entryGap is the number of rows between the title and the first entry.
	entryGap = 4

	instructions = "↑↓: Select | Enter: Boot | C: Command line | Esc: Exit"
	emptyMenu    = "No boot entries found"
)

func width(s string) int {
	return utf8.RuneCountInString(s)
}

func centered(cols int, s string) int {
	return max(0, (cols-width(s))/2)
}

// fit cuts s to at most n characters.
func fit(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if width(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// layout is the geometry of one menu frame.
type layout struct {
	cols, rows  int
	titleRow    int
	firstRow    int
	visible     int
	notices     []string
	footerStart int
}

func (s *Surface) layout(cols, rows int) layout {
	l := layout{cols: cols, rows: rows}
	l.titleRow = rows / 8
	l.firstRow = l.titleRow + entryGap

	// Notices and the instruction line sit at the bottom, one blank row above.
	// At least one entry row is kept; the newest notices win the rest.
	notices := s.notices
	if s.bootStatus != "" {
		notices = append(notices[:len(notices):len(notices)], s.bootStatus)
	}
	room := max(0, rows-1-(l.firstRow+2))
	l.notices = notices[max(0, len(notices)-room):]
	l.footerStart = rows - 1 - len(l.notices)
	l.visible = max(1, l.footerStart-1-l.firstRow)
	return l
}

// padded surrounds name with blanks as wide as its centering offset.
func padded(cols int, name string) string {
	pad := strings.Repeat(" ", centered(cols, name))
	return fit(pad+name+pad, cols)
}

// window returns the range of entries to draw so the selection is visible.
func (l layout) window(n, selected int) (int, int) {
	if n <= l.visible {
		return 0, n
	}
	first := max(0, selected-l.visible+1)
	return first, first + l.visible
}

// drawMenu renders the whole menu frame.
func (s *Surface) drawMenu() error {
	if err := s.clear(); err != nil {
		return err
	}
	cols, rows, err := s.con.QueryMode()
	if err != nil {
		return fmt.Errorf("query mode: %w: %w", ErrConsoleIO, err)
	}
	l := s.layout(cols, rows)

	title := fit(s.title, cols)
	if err := s.printAt(centered(cols, title), l.titleRow, firmware.AttrTitle, title); err != nil {
		return err
	}

	entries := s.state.Entries()
	if len(entries) == 0 {
		if err := s.printAt(centered(cols, emptyMenu), l.firstRow, firmware.AttrNormal, emptyMenu); err != nil {
			return err
		}
	}

	first, last := l.window(len(entries), s.state.SelectedIndex())
	for i := first; i < last; i++ {
		e := entries[i]
		text := padded(cols, e.Name)

		attr := firmware.AttrNormal
		if e.Selected {
			attr = firmware.AttrInverted
		}
		if err := s.printAt(centered(cols, text), l.firstRow+i-first, attr, text); err != nil {
			return err
		}
	}

	for i, n := range l.notices {
		n = fit(n, cols)
		if err := s.printAt(centered(cols, n), l.footerStart+i, firmware.AttrWarning, n); err != nil {
			return err
		}
	}

	help := fit(instructions, cols)
	return s.printAt(centered(cols, help), rows-1, firmware.AttrNormal, help)
}
