package tui

import (
	"bufio"
	"io"
)

// KeyCode identifies non-printable keys the state machine consumes.
type KeyCode int

const (
	KeyRune KeyCode = iota
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyPgUp
	KeyPgDn
	KeyHome
	KeyEnd
	KeyEnter
	KeyEsc
	KeyBackspace
	KeyCtrlC
)

// Key is one decoded input event.
type Key struct {
	Code KeyCode
	Rune rune
}

// readKeys decodes raw terminal bytes into Key events until r fails. It
// runs in its own goroutine; the main loop consumes ch.
func readKeys(r io.Reader, ch chan<- Key) {
	defer close(ch)
	br := bufio.NewReader(r)
	for {
		b, err := br.ReadByte()
		if err != nil {
			return
		}
		switch b {
		case 0x03:
			ch <- Key{Code: KeyCtrlC}
		case '\r', '\n':
			ch <- Key{Code: KeyEnter}
		case 0x7f, 0x08:
			ch <- Key{Code: KeyBackspace}
		case 0x1b:
			k, ok := decodeEscape(br)
			if !ok {
				return
			}
			ch <- k
		default:
			if b >= 0x20 {
				ch <- Key{Code: KeyRune, Rune: rune(b)}
			}
		}
	}
}

// decodeEscape consumes the remainder of a CSI sequence after ESC. A byte
// other than '[' means the ESC stood alone; the byte is fed back through
// the same decoding rules.
func decodeEscape(br *bufio.Reader) (Key, bool) {
	next, err := br.ReadByte()
	if err != nil {
		return Key{}, false
	}
	if next != '[' {
		// Lone ESC followed by an ordinary key; deliver ESC, push back the
		// follower for the next read.
		br.UnreadByte()
		return Key{Code: KeyEsc}, true
	}
	final, err := br.ReadByte()
	if err != nil {
		return Key{}, false
	}
	switch final {
	case 'A':
		return Key{Code: KeyUp}, true
	case 'B':
		return Key{Code: KeyDown}, true
	case 'C':
		return Key{Code: KeyRight}, true
	case 'D':
		return Key{Code: KeyLeft}, true
	case 'H':
		return Key{Code: KeyHome}, true
	case 'F':
		return Key{Code: KeyEnd}, true
	case '1', '4', '5', '6':
		// Expect a trailing '~' for home/end/page keys.
		if tilde, err := br.ReadByte(); err != nil || tilde != '~' {
			return Key{Code: KeyEsc}, err == nil
		}
		switch final {
		case '1':
			return Key{Code: KeyHome}, true
		case '4':
			return Key{Code: KeyEnd}, true
		case '5':
			return Key{Code: KeyPgUp}, true
		default:
			return Key{Code: KeyPgDn}, true
		}
	}
	return Key{Code: KeyEsc}, true
}
