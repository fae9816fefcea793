package input

import (
	"fmt"
	"strings"
)

// Key is the fixed key domain the runtime understands. Window backends map
// their own key codes onto it.
type Key uint8

const (
	KeyUp Key = iota
	KeyDown
	KeyLeft
	KeyRight
	KeySpace
	KeyEnter
	KeyEscape
	KeyW
	KeyA
	KeyS
	KeyD
	KeyF1

	keyCount
)

var keyNames = [keyCount]string{
	KeyUp:     "up",
	KeyDown:   "down",
	KeyLeft:   "left",
	KeyRight:  "right",
	KeySpace:  "space",
	KeyEnter:  "enter",
	KeyEscape: "escape",
	KeyW:      "w",
	KeyA:      "a",
	KeyS:      "s",
	KeyD:      "d",
	KeyF1:     "f1",
}

// Keys lists every key in declaration order.
func Keys() []Key {
	keys := make([]Key, keyCount)
	for i := range keys {
		keys[i] = Key(i)
	}
	return keys
}

func (k Key) String() string {
	if k >= keyCount {
		return fmt.Sprintf("Key(%d)", uint8(k))
	}
	return keyNames[k]
}

func (k Key) Valid() bool {
	return k < keyCount
}

// ParseKey accepts key names case-insensitively; "esc" is an alias for escape.
func ParseKey(name string) (Key, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "esc" {
		return KeyEscape, nil
	}
	for k, n := range keyNames {
		if n == name {
			return Key(k), nil
		}
	}
	return 0, fmt.Errorf("input: unknown key %q", name)
}

func (k Key) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("input: invalid key %d", uint8(k))
	}
	return []byte(k.String()), nil
}

func (k *Key) UnmarshalText(text []byte) error {
	parsed, err := ParseKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
