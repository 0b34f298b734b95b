package command

import (
	"strconv"

	"github.com/faizanhussain2310/goredis-core/internal/store"
)

func parseInt(b []byte) (int64, *Error) {
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, errNotInt()
	}
	return n, nil
}

func parseFloat(b []byte) (float64, *Error) {
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return 0, errNotFloat()
	}
	return f, nil
}

// typeCheck reports a WrongType error if o is non-nil and its Kind
// differs from want.
func typeCheck(o *store.Object, want store.Kind) *Error {
	if o != nil && o.Kind != want {
		return errWrongType
	}
	return nil
}
