package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Scalar is a JSON value that may arrive as either a string or a number.
// Carts built by browsers send "2" and 2 interchangeably, so numeric fields
// keep their raw text and are parsed during validation.
type Scalar string

// UnmarshalJSON accepts strings, numbers and null.
func (s *Scalar) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = Scalar(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("expected a string or number, got %s", data)
	}
	*s = Scalar(num)
	return nil
}

// MarshalJSON emits numbers unquoted and everything else as a string.
func (s Scalar) MarshalJSON() ([]byte, error) {
	if s == "" {
		return []byte("null"), nil
	}
	if _, err := strconv.ParseFloat(string(s), 64); err == nil && json.Valid([]byte(s)) {
		return []byte(s), nil
	}
	return json.Marshal(string(s))
}

// String returns the raw text.
func (s Scalar) String() string {
	return string(s)
}
