package firmware

import "fmt"

// KeyCode identifies non-printable keys. Printable input arrives as KeyRune.
type KeyCode int

const (
	KeyOther KeyCode = iota
	KeyRune
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyEnter
	KeyEscape
	KeyBackspace
)

// Key is a single keystroke.
type Key struct {
	Code KeyCode
	Rune rune
}

// RuneKey returns the key for a printable character.
func RuneKey(r rune) Key {
	return Key{Code: KeyRune, Rune: r}
}

func (k Key) String() string {
	switch k.Code {
	case KeyRune:
		return fmt.Sprintf("%q", k.Rune)
	case KeyUp:
		return "Up"
	case KeyDown:
		return "Down"
	case KeyLeft:
		return "Left"
	case KeyRight:
		return "Right"
	case KeyEnter:
		return "Enter"
	case KeyEscape:
		return "Esc"
	case KeyBackspace:
		return "Backspace"
	default:
		return "Other"
	}
}

// Attribute is a console text attribute.
type Attribute int

const (
	// AttrNormal is light text on the default background.
	AttrNormal Attribute = iota
	// AttrInverted is dark text on a light background, used for the selection.
	AttrInverted
	AttrTitle
	AttrOK
	AttrWarning
	AttrError
)
