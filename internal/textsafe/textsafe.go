// Package textsafe implements a reversible, alphabet-parameterized radix-85
// binary-to-text transform. Every 4-byte group maps to exactly 5 alphabet
// characters and back with no folding, so arbitrary byte sequences round-trip
// bit for bit. A trailing group of 1..3 bytes is encoded as 2..4 characters.
//
// The default Z85 alphabet contains no quote, backslash, or control
// characters, so encoded text survives JSON string quoting untouched.
package textsafe

import (
	"errors"
	"fmt"
	"strings"
)

// Z85Alphabet is the ZeroMQ base-85 alphabet.
const Z85Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ.-:+=^!/*?&<>()[]{}@%$#"

var (
	// ErrInvalidAlphabet reports an alphabet that is not 85 distinct ASCII characters.
	ErrInvalidAlphabet = errors.New("textsafe: alphabet must be 85 distinct ASCII characters")
	// ErrInvalidChar reports an input character outside the encoding alphabet.
	ErrInvalidChar = errors.New("textsafe: character outside alphabet")
	// ErrInvalidLength reports an encoded string whose length cannot have been
	// produced by Encode (a trailing group of exactly one character).
	ErrInvalidLength = errors.New("textsafe: invalid encoded length")
	// ErrOverflow reports a 5-character group that decodes above 2^32-1.
	ErrOverflow = errors.New("textsafe: group value overflows 32 bits")
)

// Encoding is a radix-85 codec over a fixed alphabet. The zero value is not
// usable; build one with NewEncoding or use the package-level Z85.
type Encoding struct {
	alphabet [85]byte
	decode   [256]int16
}

// Z85 is the ready-to-use encoding over Z85Alphabet.
var Z85 = mustEncoding(Z85Alphabet)

// NewEncoding builds an Encoding from an 85-character alphabet. The alphabet
// must consist of distinct printable ASCII characters.
func NewEncoding(alphabet string) (*Encoding, error) {
	if len(alphabet) != 85 {
		return nil, fmt.Errorf("%w: got %d characters", ErrInvalidAlphabet, len(alphabet))
	}
	e := &Encoding{}
	for i := range e.decode {
		e.decode[i] = -1
	}
	for i := 0; i < 85; i++ {
		c := alphabet[i]
		if c < '!' || c > '~' {
			return nil, fmt.Errorf("%w: byte 0x%02x at position %d", ErrInvalidAlphabet, c, i)
		}
		if e.decode[c] != -1 {
			return nil, fmt.Errorf("%w: %q repeated", ErrInvalidAlphabet, c)
		}
		e.alphabet[i] = c
		e.decode[c] = int16(i)
	}
	return e, nil
}

func mustEncoding(alphabet string) *Encoding {
	e, err := NewEncoding(alphabet)
	if err != nil {
		panic(err)
	}
	return e
}

// EncodedLen returns the encoded length for n source bytes.
func (e *Encoding) EncodedLen(n int) int {
	groups := n / 4
	rem := n % 4
	if rem == 0 {
		return groups * 5
	}
	return groups*5 + rem + 1
}

// Encode converts src into its radix-85 text form.
func (e *Encoding) Encode(src []byte) string {
	var sb strings.Builder
	sb.Grow(e.EncodedLen(len(src)))

	var digits [5]byte
	for len(src) > 0 {
		n := len(src)
		if n > 4 {
			n = 4
		}
		var v uint32
		for i := 0; i < 4; i++ {
			v <<= 8
			if i < n {
				v |= uint32(src[i])
			}
		}
		for i := 4; i >= 0; i-- {
			digits[i] = e.alphabet[v%85]
			v /= 85
		}
		// A trailing group of n bytes needs only n+1 digits.
		sb.Write(digits[: n+1 : n+1])
		src = src[n:]
	}
	return sb.String()
}

// Decode converts an encoded string back into the original bytes. It rejects
// characters outside the alphabet, lengths that Encode cannot produce, and
// groups that overflow 32 bits.
func (e *Encoding) Decode(s string) ([]byte, error) {
	if len(s)%5 == 1 {
		return nil, fmt.Errorf("%w: %d characters", ErrInvalidLength, len(s))
	}

	out := make([]byte, 0, len(s)/5*4+4)
	for pos := 0; pos < len(s); pos += 5 {
		m := len(s) - pos
		if m > 5 {
			m = 5
		}
		var v uint64
		for i := 0; i < 5; i++ {
			var d int16
			if i < m {
				c := s[pos+i]
				d = e.decode[c]
				if d < 0 {
					return nil, fmt.Errorf("%w: %q at offset %d", ErrInvalidChar, c, pos+i)
				}
			} else {
				// Pad a short trailing group with the highest digit; the
				// zero-padding used on the encode side guarantees the
				// surviving bytes are unaffected.
				d = 84
			}
			v = v*85 + uint64(d)
		}
		if v > 0xffffffff {
			return nil, fmt.Errorf("%w: group at offset %d", ErrOverflow, pos)
		}
		b := [4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
		out = append(out, b[:m-1]...)
	}
	return out, nil
}
