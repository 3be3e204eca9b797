package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// AspectRatio is a width:height crop ratio. The zero value means no cropping.
type AspectRatio struct {
	W int
	H int
}

// ParseAspectRatio parses "3:4". An empty string yields the zero ratio.
func ParseAspectRatio(s string) (AspectRatio, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return AspectRatio{}, nil
	}
	a, b, ok := strings.Cut(s, ":")
	if !ok {
		return AspectRatio{}, fmt.Errorf("aspect ratio %q: want width:height", s)
	}
	w, err1 := strconv.Atoi(strings.TrimSpace(a))
	h, err2 := strconv.Atoi(strings.TrimSpace(b))
	if err1 != nil || err2 != nil || w <= 0 || h <= 0 {
		return AspectRatio{}, fmt.Errorf("aspect ratio %q: want two positive integers", s)
	}
	return AspectRatio{W: w, H: h}, nil
}

// IsZero reports whether no ratio is set.
func (r AspectRatio) IsZero() bool { return r.W <= 0 || r.H <= 0 }

// String implements fmt.Stringer and pflag.Value
func (r AspectRatio) String() string {
	if r.IsZero() {
		return ""
	}
	return fmt.Sprintf("%d:%d", r.W, r.H)
}

// Set implements pflag.Value
func (r *AspectRatio) Set(s string) error {
	parsed, err := ParseAspectRatio(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Type implements pflag.Value
func (r *AspectRatio) Type() string { return "ratio" }

// MarshalJSON stores the ratio as "w:h".
func (r AspectRatio) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON accepts "w:h" or a [w, h] pair.
func (r *AspectRatio) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return r.Set(s)
	}
	var pair []int
	if err := json.Unmarshal(data, &pair); err != nil || len(pair) != 2 {
		return fmt.Errorf("aspect ratio: want \"w:h\" or [w, h], got %s", data)
	}
	return r.Set(fmt.Sprintf("%d:%d", pair[0], pair[1]))
}
