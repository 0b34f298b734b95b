package protocol

import "strconv"

// Reply kinds from §6: Status, Error, Integer, Bulk, Multi-bulk, plus
// their nil forms.

func AppendStatus(buf []byte, s string) []byte {
	buf = append(buf, '+')
	buf = append(buf, s...)
	return append(buf, '\r', '\n')
}

func AppendError(buf []byte, s string) []byte {
	buf = append(buf, '-')
	buf = append(buf, s...)
	return append(buf, '\r', '\n')
}

func AppendInteger(buf []byte, n int64) []byte {
	buf = append(buf, ':')
	buf = strconv.AppendInt(buf, n, 10)
	return append(buf, '\r', '\n')
}

func AppendBulk(buf []byte, b []byte) []byte {
	if b == nil {
		return AppendNilBulk(buf)
	}
	buf = append(buf, '$')
	buf = strconv.AppendInt(buf, int64(len(b)), 10)
	buf = append(buf, '\r', '\n')
	buf = append(buf, b...)
	return append(buf, '\r', '\n')
}

func AppendNilBulk(buf []byte) []byte {
	return append(buf, '$', '-', '1', '\r', '\n')
}

func AppendNilArray(buf []byte) []byte {
	return append(buf, '*', '-', '1', '\r', '\n')
}

func AppendArrayHeader(buf []byte, n int) []byte {
	buf = append(buf, '*')
	buf = strconv.AppendInt(buf, int64(n), 10)
	return append(buf, '\r', '\n')
}

func AppendBulkArray(buf []byte, items [][]byte) []byte {
	buf = AppendArrayHeader(buf, len(items))
	for _, it := range items {
		buf = AppendBulk(buf, it)
	}
	return buf
}

func AppendDouble(buf []byte, f float64) []byte {
	return AppendBulk(buf, []byte(strconv.FormatFloat(f, 'g', 17, 64)))
}

// StatusOK is the shared immutable "+OK\r\n" reply (§9: "Shared
// cached replies... may be statically allocated").
var StatusOK = []byte("+OK\r\n")
