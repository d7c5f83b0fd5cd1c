package task

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrInvalidInterval = errors.New("invalid recurrence interval")

// Kind identifies how an Interval advances a date.
type Kind int

const (
	KindInvalid Kind = iota
	KindDaily
	KindWeekly
	KindMonthly
	KindYearly
	KindDays
)

// Interval is either one of the symbolic kinds or "every N days".
// The zero value is invalid.
type Interval struct {
	kind Kind
	days int
}

var (
	Daily   = Interval{kind: KindDaily}
	Weekly  = Interval{kind: KindWeekly}
	Monthly = Interval{kind: KindMonthly}
	Yearly  = Interval{kind: KindYearly}
)

var symbolic = map[string]Interval{
	"daily":   Daily,
	"weekly":  Weekly,
	"monthly": Monthly,
	"yearly":  Yearly,
}

// EveryDays returns an interval of n calendar days. n must be positive.
func EveryDays(n int) (Interval, error) {
	if n < 1 {
		return Interval{}, fmt.Errorf("%w: every %d days", ErrInvalidInterval, n)
	}
	return Interval{kind: KindDays, days: n}, nil
}

// ParseInterval accepts a symbolic name (daily, weekly, monthly, yearly)
// or a positive integer number of days.
func ParseInterval(s string) (Interval, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if iv, ok := symbolic[v]; ok {
		return iv, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return Interval{}, fmt.Errorf("%w: %q", ErrInvalidInterval, s)
	}
	return EveryDays(n)
}

func (iv Interval) Kind() Kind { return iv.kind }

// Days is the day count of a KindDays interval and 0 otherwise.
func (iv Interval) Days() int {
	if iv.kind != KindDays {
		return 0
	}
	return iv.days
}

func (iv Interval) Valid() bool {
	switch iv.kind {
	case KindDaily, KindWeekly, KindMonthly, KindYearly:
		return true
	case KindDays:
		return iv.days > 0
	default:
		return false
	}
}

func (iv Interval) String() string {
	switch iv.kind {
	case KindDaily:
		return "daily"
	case KindWeekly:
		return "weekly"
	case KindMonthly:
		return "monthly"
	case KindYearly:
		return "yearly"
	case KindDays:
		return strconv.Itoa(iv.days)
	default:
		return "invalid"
	}
}

// MarshalJSON encodes symbolic kinds as strings and day counts as numbers.
func (iv Interval) MarshalJSON() ([]byte, error) {
	if !iv.Valid() {
		return nil, ErrInvalidInterval
	}
	if iv.kind == KindDays {
		return []byte(strconv.Itoa(iv.days)), nil
	}
	return json.Marshal(iv.String())
}

func (iv *Interval) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		parsed, ok := symbolic[name]
		if !ok {
			return fmt.Errorf("%w: %q", ErrInvalidInterval, name)
		}
		*iv = parsed
		return nil
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, data)
	}
	parsed, err := EveryDays(n)
	if err != nil {
		return err
	}
	*iv = parsed
	return nil
}

func (iv Interval) MarshalYAML() (any, error) {
	if !iv.Valid() {
		return nil, ErrInvalidInterval
	}
	if iv.kind == KindDays {
		return iv.days, nil
	}
	return iv.String(), nil
}

func (iv *Interval) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("%w: line %d", ErrInvalidInterval, node.Line)
	}
	if node.Tag == "!!int" {
		n, err := strconv.Atoi(node.Value)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidInterval, node.Value)
		}
		parsed, err := EveryDays(n)
		if err != nil {
			return err
		}
		*iv = parsed
		return nil
	}
	parsed, ok := symbolic[node.Value]
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidInterval, node.Value)
	}
	*iv = parsed
	return nil
}
