// Package console drives the interactive boot menu and its command line on a
// firmware text console.
package console

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"neoboot/internal/bootcfg"
	"neoboot/internal/firmware"
	"neoboot/internal/gpt"
	"neoboot/internal/menu"
)

var (
	// ErrCommandBufferOverflow is a keystroke rejected because the command
	// line is full.
	ErrCommandBufferOverflow = errors.New("command buffer overflow")
	// ErrConsoleIO is a failure of the console service itself.
	ErrConsoleIO = errors.New("console I/O failure")
)

const (
	// DefaultTitle is shown above the menu.
	DefaultTitle = "NEOBOOT Version 0.01"
	// DefaultCommandCapacity is the command line length limit in characters.
	DefaultCommandCapacity = 128
	// Prompt starts every command line.
	Prompt = "neoboot> "
)

// Mode is the input mode of the surface.
type Mode int

const (
	ModeMenu Mode = iota
	ModeCommandLine
)

func (m Mode) String() string {
	switch m {
	case ModeMenu:
		return "menu"
	case ModeCommandLine:
		return "command-line"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Diagnostics is what the command line can show about the machine.
type Diagnostics struct {
	Disks  []gpt.DiskInfo
	Config *bootcfg.Table
}

// BootFunc is called with the selected entry when Enter is pressed in the
// menu.
type BootFunc func(menu.Entry) error

// Option configures a Surface.
type Option func(*Surface)

// WithTitle sets the menu title.
func WithTitle(title string) Option {
	return func(s *Surface) { s.title = title }
}

// WithNotices sets warning lines shown under the menu.
func WithNotices(notices ...string) Option {
	return func(s *Surface) { s.notices = append(s.notices, notices...) }
}

// WithDiagnostics sets the data behind the disks and config commands.
func WithDiagnostics(d Diagnostics) Option {
	return func(s *Surface) { s.diag = d }
}

// WithCommandCapacity sets the command line length limit. Values below one
// keep the default.
func WithCommandCapacity(n int) Option {
	return func(s *Surface) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithBootHook sets the function called on Enter in the menu.
func WithBootHook(fn BootFunc) Option {
	return func(s *Surface) { s.onBoot = fn }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Surface) {
		if log != nil {
			s.log = log
		}
	}
}

// Surface is the menu and command line state machine. It starts in menu mode.
type Surface struct {
	con   firmware.Console
	state *menu.State
	log   *zap.Logger

	title    string
	notices  []string
	// bootStatus is the result of the last failed boot, replaced on every Enter.
	bootStatus string
	diag     Diagnostics
	capacity int
	onBoot   BootFunc

	mode Mode
	line []rune
}

// New returns a Surface drawing state on con.
func New(con firmware.Console, state *menu.State, opts ...Option) *Surface {
	s := &Surface{
		con:      con,
		state:    state,
		log:      zap.NewNop(),
		title:    DefaultTitle,
		capacity: DefaultCommandCapacity,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.line = make([]rune, 0, s.capacity)
	return s
}

// Mode returns the current input mode.
func (s *Surface) Mode() Mode {
	return s.mode
}

// Line returns the command line typed so far.
func (s *Surface) Line() string {
	return string(s.line)
}

// State returns the menu state.
func (s *Surface) State() *menu.State {
	return s.state
}

// Run draws the menu and processes keys until Esc is pressed in the menu.
// It returns nil on a normal exit and an ErrConsoleIO error when the console
// fails.
func (s *Surface) Run() error {
	if err := s.drawMenu(); err != nil {
		return err
	}
	for {
		key, err := s.con.ReadKey()
		if err != nil {
			s.log.Error("read key failed", zap.Error(err))
			return fmt.Errorf("read key: %w: %w", ErrConsoleIO, err)
		}

		done, err := s.HandleKey(key)
		switch {
		case errors.Is(err, ErrConsoleIO):
			return err
		case err != nil:
			s.log.Warn("key rejected", zap.Stringer("key", key), zap.Error(err))
		case done:
			return nil
		}
	}
}

// HandleKey applies one key. done is true when the surface should return to
// its caller. ErrCommandBufferOverflow is returned for a rejected keystroke;
// the surface stays usable.
func (s *Surface) HandleKey(key firmware.Key) (done bool, err error) {
	if s.mode == ModeCommandLine {
		return false, s.commandKey(key)
	}
	return s.menuKey(key)
}

func (s *Surface) menuKey(key firmware.Key) (bool, error) {
	switch key.Code {
	case firmware.KeyUp:
		if s.state.Up() {
			return false, s.drawMenu()
		}
	case firmware.KeyDown:
		if s.state.Down() {
			return false, s.drawMenu()
		}
	case firmware.KeyEnter:
		s.boot()
		return false, s.drawMenu()
	case firmware.KeyEscape:
		return true, nil
	case firmware.KeyRune:
		if key.Rune == 'c' || key.Rune == 'C' {
			return false, s.enterCommandLine()
		}
	}
	return false, nil
}

func (s *Surface) boot() {
	entry, ok := s.state.Selected()
	if !ok || s.onBoot == nil {
		return
	}
	s.log.Info("boot requested", zap.String("entry", entry.Name), zap.Int("index", s.state.SelectedIndex()))
	s.bootStatus = ""
	if err := s.onBoot(entry); err != nil {
		s.log.Warn("boot failed", zap.String("entry", entry.Name), zap.Error(err))
		s.bootStatus = fmt.Sprintf("Boot %s failed: %v", entry.Name, err)
	}
}

func (s *Surface) enterCommandLine() error {
	s.mode = ModeCommandLine
	s.line = s.line[:0]
	if err := s.clear(); err != nil {
		return err
	}
	if err := s.print(firmware.AttrTitle, s.title+" command line. Type 'help' for a list of commands.\n"); err != nil {
		return err
	}
	return s.prompt()
}

func (s *Surface) leaveCommandLine() error {
	s.mode = ModeMenu
	s.line = s.line[:0]
	return s.drawMenu()
}

func (s *Surface) commandKey(key firmware.Key) error {
	switch key.Code {
	case firmware.KeyEscape:
		return s.leaveCommandLine()
	case firmware.KeyEnter:
		line := string(s.line)
		s.line = s.line[:0]
		if err := s.print(firmware.AttrNormal, "\n"); err != nil {
			return err
		}
		if err := s.dispatch(line); err != nil {
			return err
		}
		if s.mode == ModeCommandLine {
			return s.prompt()
		}
		return nil
	case firmware.KeyBackspace:
		if len(s.line) == 0 {
			return nil
		}
		s.line = s.line[:len(s.line)-1]
		return s.print(firmware.AttrNormal, "\b \b")
	case firmware.KeyRune:
		if key.Rune < 0x20 || key.Rune == 0x7f {
			return nil
		}
		if len(s.line) >= s.capacity {
			return fmt.Errorf("%w: limit is %d characters", ErrCommandBufferOverflow, s.capacity)
		}
		s.line = append(s.line, key.Rune)
		return s.print(firmware.AttrNormal, string(key.Rune))
	}
	return nil
}

func (s *Surface) prompt() error {
	return s.print(firmware.AttrNormal, Prompt)
}

func (s *Surface) clear() error {
	if err := s.con.ClearScreen(); err != nil {
		return fmt.Errorf("clear screen: %w: %w", ErrConsoleIO, err)
	}
	return nil
}

// print writes text with attr and restores the normal attribute.
func (s *Surface) print(attr firmware.Attribute, text string) error {
	if err := s.con.SetAttribute(attr); err != nil {
		return fmt.Errorf("set attribute: %w: %w", ErrConsoleIO, err)
	}
	if err := s.con.OutputString(text); err != nil {
		return fmt.Errorf("output: %w: %w", ErrConsoleIO, err)
	}
	if attr != firmware.AttrNormal {
		if err := s.con.SetAttribute(firmware.AttrNormal); err != nil {
			return fmt.Errorf("set attribute: %w: %w", ErrConsoleIO, err)
		}
	}
	return nil
}

// printAt writes text at the given cell.
func (s *Surface) printAt(col, row int, attr firmware.Attribute, text string) error {
	if err := s.con.SetCursorPosition(col, row); err != nil {
		return fmt.Errorf("set cursor: %w: %w", ErrConsoleIO, err)
	}
	return s.print(attr, text)
}
