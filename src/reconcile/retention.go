package reconcile

import (
	"fmt"
	"strconv"
	"strings"
)

// Retention is the number of bundle results kept per bucket.
type Retention int

// Unlimited keeps every bundle result.
const Unlimited Retention = -1

// ParseRetention accepts a non-negative integer or "unlimited"/"none"
// (case-insensitive). An empty string means unlimited.
func ParseRetention(s string) (Retention, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "unlimited", "none":
		return Unlimited, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid bundle result limit %q: want an integer or \"unlimited\"", s)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid bundle result limit %d: must not be negative", n)
	}
	return Retention(n), nil
}

// IsUnlimited reports whether no truncation applies.
func (r Retention) IsUnlimited() bool {
	return r < 0
}

func (r Retention) String() string {
	if r.IsUnlimited() {
		return "unlimited"
	}
	return strconv.Itoa(int(r))
}

// Set implements pflag.Value.
func (r *Retention) Set(s string) error {
	v, err := ParseRetention(s)
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// Type implements pflag.Value.
func (r *Retention) Type() string {
	return "limit"
}

func (r Retention) truncate(n int) int {
	if r.IsUnlimited() || int(r) >= n {
		return n
	}
	return int(r)
}
