package core

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Quantity is a service count. Decoding is lenient: numbers and numeric
// strings are accepted, anything else (null, "", "abc") decodes to 0.
// Negative values are kept so the engine can report them before clamping.
type Quantity int

func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*q = 0
		return nil
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		*q = 0
		return nil
	}
	*q = quantityFrom(raw)
	return nil
}

func quantityFrom(raw any) Quantity {
	switch v := raw.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return Quantity(math.Trunc(v))
	case string:
		s := strings.TrimSpace(v)
		if n, err := strconv.Atoi(s); err == nil {
			return Quantity(n)
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return Quantity(math.Trunc(f))
		}
		return 0
	default:
		return 0
	}
}

// Int returns the quantity as an int.
func (q Quantity) Int() int { return int(q) }
