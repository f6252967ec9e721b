package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ID is a row identifier in canonical form. Identifiers arrive as numbers or
// strings; a value that round-trips losslessly through a finite number is
// stored numerically, anything else as its string. Integers beyond 2^53 keep
// their exact decimal digits. Two records are the same row iff their IDs are
// equal, so ID is usable as a map key.
type ID struct {
	num     float64
	str     string
	numeric bool
	bigint  bool
	valid   bool
}

// maxExact is the largest magnitude below which every integer is exact in a
// float64.
const maxExact = 1 << 53

// NormalizeID converts an identifier in transit to its canonical form.
// nil yields the zero ID.
func NormalizeID(v any) ID {
	switch x := v.(type) {
	case nil:
		return ID{}
	case ID:
		return x
	case float64:
		return numericID(x)
	case float32:
		return numericID(float64(x))
	case int:
		return intID(int64(x))
	case int32:
		return intID(int64(x))
	case int64:
		return intID(x)
	case uint:
		return uintID(uint64(x))
	case uint32:
		return uintID(uint64(x))
	case uint64:
		return uintID(x)
	case json.Number:
		return NormalizeID(string(x))
	case string:
		t := strings.TrimSpace(x)
		if n, err := strconv.ParseInt(t, 10, 64); err == nil && strconv.FormatInt(n, 10) == t {
			return intID(n)
		}
		if n, err := strconv.ParseUint(t, 10, 64); err == nil && strconv.FormatUint(n, 10) == t {
			return uintID(n)
		}
		if f, err := strconv.ParseFloat(t, 64); err == nil && formatFloat(f) == t {
			return numericID(f)
		}
		return ID{str: x, valid: true}
	}
	return NormalizeID(fmt.Sprint(v))
}

// IDs normalizes a list of identifiers, skipping nils.
func IDs(values ...any) []ID {
	out := make([]ID, 0, len(values))
	for _, v := range values {
		if id := NormalizeID(v); id.valid {
			out = append(out, id)
		}
	}
	return out
}

func numericID(f float64) ID {
	switch {
	case math.IsNaN(f) || math.IsInf(f, 0):
		return ID{str: formatFloat(f), valid: true}
	case math.Abs(f) > maxExact:
		return bigID(strconv.FormatFloat(f, 'f', 0, 64))
	}
	return ID{num: f, numeric: true, valid: true}
}

func intID(n int64) ID {
	if n < -maxExact || n > maxExact {
		return bigID(strconv.FormatInt(n, 10))
	}
	return ID{num: float64(n), numeric: true, valid: true}
}

func uintID(n uint64) ID {
	if n > maxExact {
		return bigID(strconv.FormatUint(n, 10))
	}
	return ID{num: float64(n), numeric: true, valid: true}
}

func bigID(digits string) ID {
	return ID{str: digits, bigint: true, valid: true}
}

// IsZero reports whether the ID was normalized from nil.
func (id ID) IsZero() bool { return !id.valid }

// IsNumeric reports whether the ID is a number.
func (id ID) IsNumeric() bool { return id.numeric || id.bigint }

// Value returns the ID as float64, json.Number or string, for request
// bodies.
func (id ID) Value() any {
	switch {
	case !id.valid:
		return nil
	case id.numeric:
		return id.num
	case id.bigint:
		return json.Number(id.str)
	}
	return id.str
}

func (id ID) String() string {
	if id.numeric {
		return formatFloat(id.num)
	}
	return id.str
}

// MarshalJSON writes numeric IDs as JSON numbers and others as strings.
func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.Value())
}

// UnmarshalJSON accepts either a JSON number or string.
func (id *ID) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	*id = NormalizeID(v)
	return nil
}
