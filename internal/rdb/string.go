package rdb

import (
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/s2"
)

// compressionThreshold is the minimum raw length worth attempting the
// LZF-slot compression path; below this the framing overhead isn't
// worth it (mirrors the original's rule of thumb).
const compressionThreshold = 20

// writeString emits a length-prefixed string, special-casing the three
// integer widths and, when compress is true and it's worth it, the
// LZF-block slot (§4.G). Go has no maintained LZF implementation in
// the example pack; s2 (klauspost/compress) fills the "general
// purpose block compressor" role the original's bundled LZF played,
// inside the same wire slot (compressed-length, uncompressed-length,
// bytes) — see DESIGN.md.
func writeString(w io.Writer, b []byte, compress bool) error {
	if n, ok := fitsInt8(b); ok {
		if err := writeSpecial(w, encInt8); err != nil {
			return err
		}
		_, err := w.Write([]byte{byte(n)})
		return err
	}
	if n, ok := fitsInt16(b); ok {
		if err := writeSpecial(w, encInt16); err != nil {
			return err
		}
		buf := make([]byte, 2)
		binary.LittleEndian.PutUint16(buf, uint16(n))
		_, err := w.Write(buf)
		return err
	}
	if n, ok := fitsInt32(b); ok {
		if err := writeSpecial(w, encInt32); err != nil {
			return err
		}
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, uint32(n))
		_, err := w.Write(buf)
		return err
	}

	if compress && len(b) >= compressionThreshold {
		compressed := s2.Encode(nil, b)
		if len(compressed) < len(b) {
			if err := writeSpecial(w, encLZF); err != nil {
				return err
			}
			if err := writeLength(w, uint32(len(compressed))); err != nil {
				return err
			}
			if err := writeLength(w, uint32(len(b))); err != nil {
				return err
			}
			_, err := w.Write(compressed)
			return err
		}
	}

	if err := writeLength(w, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readString(r io.Reader) ([]byte, error) {
	n, special, selector, err := readLengthOrSpecial(r)
	if err != nil {
		return nil, err
	}
	return readStringBody(r, n, special, selector)
}

// readStringWithFirstByte is readString for a caller (the double
// decoder) that already consumed the header's first byte.
func readStringWithFirstByte(r io.Reader, first byte) ([]byte, error) {
	n, special, selector, err := parseLengthHeader(first, r)
	if err != nil {
		return nil, err
	}
	return readStringBody(r, n, special, selector)
}

func readStringBody(r io.Reader, n uint32, special bool, selector byte) ([]byte, error) {
	if !special {
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		return buf, nil
	}
	switch selector {
	case encInt8:
		var b [1]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return nil, err
		}
		return []byte(itoa(int64(int8(b[0])))), nil
	case encInt16:
		var b [2]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return nil, err
		}
		return []byte(itoa(int64(int16(binary.LittleEndian.Uint16(b[:]))))), nil
	case encInt32:
		var b [4]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return nil, err
		}
		return []byte(itoa(int64(int32(binary.LittleEndian.Uint32(b[:]))))), nil
	case encLZF:
		compLen, err := readLength(r)
		if err != nil {
			return nil, err
		}
		rawLen, err := readLength(r)
		if err != nil {
			return nil, err
		}
		compressed := make([]byte, compLen)
		if _, err := io.ReadFull(r, compressed); err != nil {
			return nil, err
		}
		out, err := s2.Decode(make([]byte, 0, rawLen), compressed)
		if err != nil {
			return nil, err
		}
		return out, nil
	default:
		return nil, errUnknownSelector
	}
}

func fitsInt8(b []byte) (int8, bool) {
	n, ok := canonicalInt(b)
	if !ok || n < -128 || n > 127 {
		return 0, false
	}
	return int8(n), true
}

func fitsInt16(b []byte) (int16, bool) {
	n, ok := canonicalInt(b)
	if !ok || n < -32768 || n > 32767 {
		return 0, false
	}
	return int16(n), true
}

func fitsInt32(b []byte) (int32, bool) {
	n, ok := canonicalInt(b)
	if !ok || n < -2147483648 || n > 2147483647 {
		return 0, false
	}
	return int32(n), true
}
