package rdb

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Length-prefix encodings of §4.G: the two high bits of the leading
// byte select the form.
const (
	len6Bit  = 0b00
	len14Bit = 0b01
	len32Bit = 0b10
	lenSpecial = 0b11
)

// Special encoding selectors (low 6 bits of a lenSpecial byte).
const (
	encInt8  = 0
	encInt16 = 1
	encInt32 = 2
	encLZF   = 3
)

func writeLength(w io.Writer, n uint32) error {
	switch {
	case n < 1<<6:
		_, err := w.Write([]byte{byte(len6Bit<<6) | byte(n)})
		return err
	case n < 1<<14:
		_, err := w.Write([]byte{byte(len14Bit<<6) | byte(n>>8), byte(n)})
		return err
	default:
		buf := make([]byte, 5)
		buf[0] = byte(len32Bit << 6)
		binary.BigEndian.PutUint32(buf[1:], n)
		_, err := w.Write(buf)
		return err
	}
}

func writeSpecial(w io.Writer, selector byte) error {
	_, err := w.Write([]byte{byte(lenSpecial<<6) | selector})
	return err
}

// readLengthOrSpecial reads one length-prefixed header. If the header
// encodes a special selector (int8/16/32 or LZF block) isSpecial is
// true and selector identifies which; otherwise n is the plain length.
func readLengthOrSpecial(r io.Reader) (n uint32, isSpecial bool, selector byte, err error) {
	var first [1]byte
	if _, err = io.ReadFull(r, first[:]); err != nil {
		return 0, false, 0, err
	}
	return parseLengthHeader(first[0], r)
}

// parseLengthHeader finishes decoding a length header whose first byte
// has already been consumed by the caller (the double-encoding reader
// needs this to distinguish a sentinel byte from an ordinary length).
func parseLengthHeader(first byte, r io.Reader) (n uint32, isSpecial bool, selector byte, err error) {
	form := first >> 6
	switch form {
	case len6Bit:
		return uint32(first & 0x3F), false, 0, nil
	case len14Bit:
		var b2 [1]byte
		if _, err = io.ReadFull(r, b2[:]); err != nil {
			return 0, false, 0, err
		}
		return uint32(first&0x3F)<<8 | uint32(b2[0]), false, 0, nil
	case len32Bit:
		var buf [4]byte
		if _, err = io.ReadFull(r, buf[:]); err != nil {
			return 0, false, 0, err
		}
		return binary.BigEndian.Uint32(buf[:]), false, 0, nil
	default: // lenSpecial
		return 0, true, first & 0x3F, nil
	}
}

func readLength(r io.Reader) (uint32, error) {
	n, special, _, err := readLengthOrSpecial(r)
	if err != nil {
		return 0, err
	}
	if special {
		return 0, fmt.Errorf("rdb: unexpected special length encoding")
	}
	return n, nil
}
