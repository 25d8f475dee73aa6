// Package report parses nanoBench counter reports and renders them as
// comparison tables.
package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Separator splits a counter name from its value in a report line.
const Separator = ":"

var errNotFinite = errors.New("value is not finite")

// MalformedReportError reports a counter line whose value is not a number.
type MalformedReportError struct {
	Line string
	Err  error
}

func (e *MalformedReportError) Error() string {
	return fmt.Sprintf("malformed counter line %q: %v", e.Line, e.Err)
}

func (e *MalformedReportError) Unwrap() error {
	return e.Err
}

// Counters is an ordered mapping from counter name to measured value. Names
// keep the position in which they were first seen.
type Counters struct {
	names  []string
	values map[string]float64
}

// NewCounters returns an empty Counters.
func NewCounters() *Counters {
	return &Counters{values: make(map[string]float64)}
}

// Set stores value under name. A name that is already present keeps its
// position.
func (c *Counters) Set(name string, value float64) {
	if _, ok := c.values[name]; !ok {
		c.names = append(c.names, name)
	}

	c.values[name] = value
}

// Get returns the value of name.
func (c *Counters) Get(name string) (float64, bool) {
	v, ok := c.values[name]
	return v, ok
}

// Names returns the counter names in report order.
func (c *Counters) Names() []string {
	return append([]string(nil), c.names...)
}

func (c *Counters) Len() int {
	return len(c.names)
}

// Equal reports whether c and o hold the same counters in the same order.
func (c *Counters) Equal(o *Counters) bool {
	if c.Len() != o.Len() {
		return false
	}

	for i, name := range c.names {
		if o.names[i] != name || o.values[name] != c.values[name] {
			return false
		}
	}

	return true
}

// MarshalJSON encodes c as a JSON object with keys in report order.
func (c *Counters) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, name := range c.names {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}

		val, err := json.Marshal(c.values[name])
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", name, err)
		}

		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// Parse reads a raw counter report. Lines without a separator are headers
// or footers and are skipped, whatever their length. NaN and infinite values
// are rejected. When a counter appears twice the later value wins.
func Parse(raw string) (*Counters, error) {
	counters := NewCounters()

	for _, line := range strings.Split(raw, "\n") {
		name, value, ok := strings.Cut(line, Separator)
		if !ok {
			continue
		}

		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, &MalformedReportError{Line: line, Err: err}
		}

		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &MalformedReportError{Line: line, Err: errNotFinite}
		}

		counters.Set(strings.TrimSpace(name), v)
	}

	return counters, nil
}
