package camera

import (
	"bufio"
	"io"
	"unicode"
)

// Key is an operator key press.
type Key rune

const (
	KeyBreak      Key = 'r'
	KeyPermission Key = 'p'
	KeyQuit       Key = 'q'
)

// KeyTrigger reads key presses from a terminal in the background. The recognition
// loop polls it once per frame and never blocks on it.
type KeyTrigger struct {
	keys chan Key
}

// NewKeyTrigger starts reading r. Reading stops at EOF.
func NewKeyTrigger(r io.Reader) *KeyTrigger {
	t := &KeyTrigger{keys: make(chan Key, 16)}
	go t.read(bufio.NewReader(r))
	return t
}

func (t *KeyTrigger) read(r *bufio.Reader) {
	defer close(t.keys)
	for {
		ch, _, err := r.ReadRune()
		if err != nil {
			return
		}
		switch k := Key(unicode.ToLower(ch)); k {
		case KeyBreak, KeyPermission, KeyQuit:
			select {
			case t.keys <- k:
			default:
				// a full buffer means nobody is polling; drop the key
			}
		}
	}
}

// Poll returns the oldest pending key, if any.
func (t *KeyTrigger) Poll() (Key, bool) {
	select {
	case k, ok := <-t.keys:
		return k, ok
	default:
		return 0, false
	}
}
