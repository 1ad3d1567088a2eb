package site

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration is a delay in the configuration file, written as "300ms" or
// "1.5s". A bare number counts milliseconds.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return d.Std().String() }

// MarshalText writes d in the form UnmarshalText reads back.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText parses text and leaves d unchanged on error. Empty text
// is zero.
func (d *Duration) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if s == "" {
		*d = 0
		return nil
	}
	if ms, err := strconv.ParseFloat(s, 64); err == nil {
		*d = Duration(ms * float64(time.Millisecond))
		return nil
	}
	p, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q, want a value such as \"300ms\"", s)
	}
	*d = Duration(p)
	return nil
}
