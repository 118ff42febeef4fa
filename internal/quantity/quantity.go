package quantity

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/junzzhu/openshift-mcp-server/internal/diagerr"
)

type Unit int

const (
	Bytes Unit = iota
	Percent
	Count
)

func (u Unit) String() string {
	switch u {
	case Bytes:
		return "bytes"
	case Percent:
		return "percent"
	case Count:
		return "count"
	}
	return "unknown"
}

// Quantity is a value tagged with its unit. Byte quantities always hold a
// plain byte count; binary prefixes only appear in Format.
type Quantity struct {
	unit    Unit
	value   float64
	clamped bool
}

func FromBytes(n int64) Quantity { return Quantity{unit: Bytes, value: float64(n)} }

// FromBytesFloat rounds v to a whole number of bytes.
func FromBytesFloat(v float64) Quantity {
	return Quantity{unit: Bytes, value: math.Round(v)}
}

// FromPercent clamps p into [0,100]; Clamped reports whether it had to.
func FromPercent(p float64) Quantity {
	q := Quantity{unit: Percent, value: p}
	switch {
	case math.IsNaN(p):
		q.value, q.clamped = 0, true
	case p < 0:
		q.value, q.clamped = 0, true
	case p > 100:
		q.value, q.clamped = 100, true
	}
	return q
}

func FromCount(n int64) Quantity { return Quantity{unit: Count, value: float64(n)} }

func (q Quantity) Unit() Unit     { return q.unit }
func (q Quantity) Value() float64 { return q.value }
func (q Quantity) Clamped() bool  { return q.clamped }
func (q Quantity) IsZero() bool   { return q.value == 0 }
func (q Quantity) Bytes() int64   { return int64(math.Round(q.value)) }
func (q Quantity) String() string { return q.Format() }
func (q Quantity) Int() int64     { return int64(math.Round(q.value)) }

func (q Quantity) same(op string, o Quantity) error {
	if q.unit != o.unit {
		return diagerr.Units(op, q.unit.String(), o.unit.String())
	}
	return nil
}

func (q Quantity) Add(o Quantity) (Quantity, error) {
	if err := q.same("add", o); err != nil {
		return Quantity{}, err
	}
	if q.unit == Percent {
		return FromPercent(q.value + o.value), nil
	}
	return Quantity{unit: q.unit, value: q.value + o.value}, nil
}

func (q Quantity) Subtract(o Quantity) (Quantity, error) {
	if err := q.same("subtract", o); err != nil {
		return Quantity{}, err
	}
	if q.unit == Percent {
		return FromPercent(q.value - o.value), nil
	}
	return Quantity{unit: q.unit, value: q.value - o.value}, nil
}

// Ratio returns q/o. A zero denominator yields 0.
func (q Quantity) Ratio(o Quantity) (float64, error) {
	if err := q.same("ratio", o); err != nil {
		return 0, err
	}
	if o.value == 0 {
		return 0, nil
	}
	return q.value / o.value, nil
}

// PercentOf expresses q as a percentage of whole.
func (q Quantity) PercentOf(whole Quantity) (Quantity, error) {
	r, err := q.Ratio(whole)
	if err != nil {
		return Quantity{}, err
	}
	return FromPercent(r * 100), nil
}

func (q Quantity) Cmp(o Quantity) (int, error) {
	if err := q.same("compare", o); err != nil {
		return 0, err
	}
	switch {
	case q.value < o.value:
		return -1, nil
	case q.value > o.value:
		return 1, nil
	}
	return 0, nil
}

// Sum adds byte quantities; an empty input is zero bytes.
func Sum(qs ...Quantity) (Quantity, error) {
	total := FromBytes(0)
	if len(qs) > 0 {
		total = Quantity{unit: qs[0].unit}
	}
	for _, q := range qs {
		var err error
		if total, err = total.Add(q); err != nil {
			return Quantity{}, err
		}
	}
	return total, nil
}

var prefixes = []string{"B", "Ki", "Mi", "Gi", "Ti", "Pi", "Ei"}

func roundHalfUp(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Floor(v*p+0.5+1e-9) / p
}

func (q Quantity) Format() string {
	switch q.unit {
	case Percent:
		return strconv.FormatFloat(roundHalfUp(q.value, 1), 'f', 1, 64) + "%"
	case Count:
		return strconv.FormatInt(q.Int(), 10)
	}
	return formatBytes(q.value)
}

func formatBytes(v float64) string {
	sign := ""
	if v < 0 {
		sign, v = "-", -v
	}
	if v < 1024 && roundHalfUp(v, 0) < 1024 {
		return fmt.Sprintf("%s%d B", sign, int64(roundHalfUp(v, 0)))
	}
	i := 0
	for v >= 1024 && i < len(prefixes)-1 {
		v /= 1024
		i++
	}
	if i == 0 {
		v /= 1024
		i = 1
	}
	r := roundHalfUp(v, 2)
	if r >= 1024 && i < len(prefixes)-1 {
		r = roundHalfUp(v/1024, 2)
		i++
	}
	return fmt.Sprintf("%s%.2f %s", sign, r, prefixes[i])
}

var multipliers = map[string]float64{
	"":    1,
	"b":   1,
	"k":   1 << 10,
	"ki":  1 << 10,
	"kib": 1 << 10,
	"m":   1 << 20,
	"mi":  1 << 20,
	"mib": 1 << 20,
	"g":   1 << 30,
	"gi":  1 << 30,
	"gib": 1 << 30,
	"t":   1 << 40,
	"ti":  1 << 40,
	"tib": 1 << 40,
	"p":   1 << 50,
	"pi":  1 << 50,
	"pib": 1 << 50,
	"e":   1 << 60,
	"ei":  1 << 60,
	"eib": 1 << 60,
}

// ParseSize reads a byte size such as "250G" (df -h), "974.96 Mi" (Format
// output) or "4096". Single-letter suffixes are binary, as df -h prints them.
func ParseSize(s string) (Quantity, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return Quantity{}, fmt.Errorf("empty size")
	}
	i := 0
	for i < len(s) && (s[i] == '.' || s[i] == '-' || (s[i] >= '0' && s[i] <= '9')) {
		i++
	}
	num, unit := s[:i], strings.ToLower(strings.TrimSpace(s[i:]))
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Quantity{}, fmt.Errorf("size %q: %w", s, err)
	}
	m, ok := multipliers[unit]
	if !ok {
		return Quantity{}, fmt.Errorf("size %q: unknown unit %q", s, unit)
	}
	return FromBytesFloat(v * m), nil
}

// ParsePercent reads "45%", "45.0%" or "45".
func ParsePercent(s string) (Quantity, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Quantity{}, fmt.Errorf("percent %q: %w", s, err)
	}
	return FromPercent(v), nil
}
