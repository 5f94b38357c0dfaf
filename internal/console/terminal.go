package console

import (
	"errors"
	"fmt"

	tcell "github.com/gdamore/tcell/v2"

	"neoboot/internal/firmware"
)

// ErrTerminalClosed is returned by ReadKey once the screen is finalized.
var ErrTerminalClosed = errors.New("terminal closed")

// Terminal is a firmware.Console on a tcell screen.
type Terminal struct {
	screen   tcell.Screen
	col, row int
	style    tcell.Style
}

var _ firmware.Console = (*Terminal)(nil)

// OpenTerminal initializes the controlling terminal.
func OpenTerminal() (*Terminal, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("failed to create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize screen: %w", err)
	}
	return NewTerminal(screen), nil
}

// NewTerminal wraps an initialized screen.
func NewTerminal(screen tcell.Screen) *Terminal {
	t := &Terminal{screen: screen, style: styleFor(firmware.AttrNormal)}
	screen.SetStyle(t.style)
	screen.Clear()
	screen.Show()
	return t
}

// Close restores the terminal.
func (t *Terminal) Close() {
	t.screen.Fini()
}

// ReadKey implements firmware.Console.
func (t *Terminal) ReadKey() (firmware.Key, error) {
	for {
		switch ev := t.screen.PollEvent().(type) {
		case nil:
			return firmware.Key{}, ErrTerminalClosed
		case *tcell.EventKey:
			return keyFor(ev), nil
		case *tcell.EventResize:
			t.screen.Sync()
		}
	}
}

func keyFor(ev *tcell.EventKey) firmware.Key {
	switch ev.Key() {
	case tcell.KeyUp:
		return firmware.Key{Code: firmware.KeyUp}
	case tcell.KeyDown:
		return firmware.Key{Code: firmware.KeyDown}
	case tcell.KeyLeft:
		return firmware.Key{Code: firmware.KeyLeft}
	case tcell.KeyRight:
		return firmware.Key{Code: firmware.KeyRight}
	case tcell.KeyEnter:
		return firmware.Key{Code: firmware.KeyEnter}
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return firmware.Key{Code: firmware.KeyEscape}
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		return firmware.Key{Code: firmware.KeyBackspace}
	case tcell.KeyRune:
		return firmware.RuneKey(ev.Rune())
	default:
		return firmware.Key{Code: firmware.KeyOther}
	}
}

// ClearScreen implements firmware.Console.
func (t *Terminal) ClearScreen() error {
	t.screen.Clear()
	t.col, t.row = 0, 0
	t.screen.ShowCursor(0, 0)
	t.screen.Show()
	return nil
}

// QueryMode implements firmware.Console.
func (t *Terminal) QueryMode() (int, int, error) {
	cols, rows := t.screen.Size()
	return cols, rows, nil
}

// SetCursorPosition implements firmware.Console.
func (t *Terminal) SetCursorPosition(column, row int) error {
	t.col, t.row = column, row
	t.screen.ShowCursor(column, row)
	return nil
}

// SetAttribute implements firmware.Console.
func (t *Terminal) SetAttribute(a firmware.Attribute) error {
	t.style = styleFor(a)
	return nil
}

// OutputString implements firmware.Console.
func (t *Terminal) OutputString(s string) error {
	cols, _ := t.screen.Size()
	for _, r := range s {
		switch r {
		case '\n':
			t.newline()
		case '\r':
			t.col = 0
		case '\b':
			if t.col > 0 {
				t.col--
			}
		default:
			if t.col >= cols {
				t.newline()
			}
			t.screen.SetContent(t.col, t.row, r, nil, t.style)
			t.col++
		}
	}
	t.screen.ShowCursor(t.col, t.row)
	t.screen.Show()
	return nil
}

// newline moves to the start of the next row, scrolling the screen up one
// row when the cursor is already on the last one.
func (t *Terminal) newline() {
	t.col = 0
	t.row++
	cols, rows := t.screen.Size()
	if t.row < rows {
		return
	}
	for y := 1; y < rows; y++ {
		for x := range cols {
			r, comb, st, _ := t.screen.GetContent(x, y)
			t.screen.SetContent(x, y-1, r, comb, st)
		}
	}
	blank := styleFor(firmware.AttrNormal)
	for x := range cols {
		t.screen.SetContent(x, rows-1, ' ', nil, blank)
	}
	t.row = max(0, rows-1)
}

func styleFor(a firmware.Attribute) tcell.Style {
	base := tcell.StyleDefault.Foreground(tcell.ColorLightGray).Background(tcell.ColorBlack)
	switch a {
	case firmware.AttrInverted:
		return base.Foreground(tcell.ColorBlack).Background(tcell.ColorLightGray)
	case firmware.AttrTitle:
		return base.Foreground(tcell.ColorWhite).Bold(true)
	case firmware.AttrOK:
		return base.Foreground(tcell.ColorGreen)
	case firmware.AttrWarning:
		return base.Foreground(tcell.ColorYellow)
	case firmware.AttrError:
		return base.Foreground(tcell.ColorRed)
	default:
		return base
	}
}
