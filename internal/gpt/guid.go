package gpt

import (
	"strings"

	"github.com/google/uuid"
)

// GUID is a GUID in on-disk byte order: the first three groups are stored
// little-endian, the last two big-endian.
type GUID [16]byte

// swap converts between on-disk and RFC 4122 byte order.
func (g GUID) swap() [16]byte {
	var b [16]byte
	copy(b[:], g[:])
	b[0], b[1], b[2], b[3] = g[3], g[2], g[1], g[0]
	b[4], b[5] = g[5], g[4]
	b[6], b[7] = g[7], g[6]
	return b
}

// String formats the GUID in canonical upper-case form.
func (g GUID) String() string {
	return strings.ToUpper(uuid.UUID(g.swap()).String())
}

// IsZero reports whether every byte of the GUID is zero.
func (g GUID) IsZero() bool {
	return g == GUID{}
}

// ParseGUID parses the canonical textual form into on-disk byte order.
func ParseGUID(s string) (GUID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return GUID{}, err
	}
	return GUID(u).swapped(), nil
}

// MustParseGUID is like ParseGUID but panics on malformed input.
func MustParseGUID(s string) GUID {
	g, err := ParseGUID(s)
	if err != nil {
		panic(err)
	}
	return g
}

func (g GUID) swapped() GUID {
	return GUID(g.swap())
}
