package quota

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidConfiguration is the sentinel matched by InvalidConfigurationError.
var ErrInvalidConfiguration = errors.New("invalid quota configuration")

// InvalidConfigurationError reports a limit value that is not a number.
// Negative numbers are valid and disable the limit.
type InvalidConfigurationError struct {
	Kind  Kind
	Value any
}

func (e *InvalidConfigurationError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("%s: limit %v (%T) is not an integer", e.Kind, e.Value, e.Value)
	}
	return fmt.Sprintf("limit %v (%T) is not an integer", e.Value, e.Value)
}

// Is reports whether target is ErrInvalidConfiguration.
func (e *InvalidConfigurationError) Is(target error) bool {
	return target == ErrInvalidConfiguration
}

// ParseLimit converts a configured limit into an integer.
// nil means unset and yields 0, which disables the limit.
func ParseLimit(v any) (int64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, &InvalidConfigurationError{Value: v}
		}
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, &InvalidConfigurationError{Value: v}
		}
		return int64(n), nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || math.IsNaN(n) || math.Abs(n) >= math.MaxInt64 {
			return 0, &InvalidConfigurationError{Value: v}
		}
		return int64(n), nil
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, &InvalidConfigurationError{Value: v}
		}
		return parsed, nil
	default:
		return 0, &InvalidConfigurationError{Value: v}
	}
}

// Limit is a configured limit that rejects non-numeric YAML values
// at load time.
type Limit struct {
	Value int64
	Set   bool
}

// UnmarshalYAML parses integers and integer strings ("10", "${LIMIT:-10}").
func (l *Limit) UnmarshalYAML(unmarshal func(any) error) error {
	var raw any
	if err := unmarshal(&raw); err != nil {
		return err
	}
	n, err := ParseLimit(raw)
	if err != nil {
		return err
	}
	l.Value, l.Set = n, raw != nil
	return nil
}

// MarshalYAML writes the plain integer.
func (l Limit) MarshalYAML() (any, error) {
	return l.Value, nil
}
