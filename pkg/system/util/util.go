package util

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrBadPID reports an argument that is neither a pid nor a pid range.
var ErrBadPID = errors.New("util: bad pid")

// maxRange caps how many pids one "A..B" argument may expand to.
const maxRange = 1 << 16

// ParsePIDs expands arguments of the form "123" or "100..120" into a
// deduplicated list, keeping first-seen order.
func ParsePIDs(args []string) ([]int32, error) {
	var (
		out  []int32
		seen = make(map[int32]struct{})
	)
	add := func(p int32) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}

	for _, arg := range args {
		for _, tok := range strings.Fields(arg) {
			lo, hi, isRange := strings.Cut(tok, "..")
			a, err := parsePID(lo)
			if err != nil {
				return nil, err
			}
			if !isRange {
				add(a)
				continue
			}
			b, err := parsePID(hi)
			if err != nil {
				return nil, err
			}
			if b < a || b-a >= maxRange {
				return nil, fmt.Errorf("%w: range %q", ErrBadPID, tok)
			}
			for p := int64(a); p <= int64(b); p++ {
				add(int32(p))
			}
		}
	}
	return out, nil
}

func parsePID(s string) (int32, error) {
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrBadPID, s)
	}
	return int32(v), nil
}

func SafeDiv(n, d float64) float64 {
	const eps = 1e-12
	if d > eps || d < -eps {
		return n / d
	}
	return 0
}

func Clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	// guard against NaN
	if math.IsNaN(x) {
		return 0
	}
	return x
}

// Truncate shortens s to at most n runes, marking the cut with "+".
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n == 1 {
		return "+"
	}
	return string(r[:n-1]) + "+"
}
