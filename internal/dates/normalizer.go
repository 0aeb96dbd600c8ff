// Package dates turns caller supplied date tokens into calendar dates
// (YYYY-MM-DD) in one reference timezone.
package dates

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	_ "time/tzdata" // zone database for hosts without one
)

// Layout is the canonical calendar date format.
const Layout = "2006-01-02"

// PresentRef is the voice-assistant token meaning "now".
const PresentRef = "PRESENT_REF"

// Policy decides what happens to dates coarser than a day (2024, 2024-05,
// 2024-W19).
type Policy int

const (
	// UseToday substitutes today's date.
	UseToday Policy = iota
	// Reject returns ErrPartialDate.
	Reject
)

// ErrPartialDate is returned under the Reject policy for inputs that name
// a year, month or week rather than a day.
var ErrPartialDate = errors.New("date is not a full calendar day")

var fullDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Normalizer resolves date tokens against a fixed location.
type Normalizer struct {
	loc    *time.Location
	policy Policy
	now    func() time.Time
}

// NewNormalizer loads tz (an IANA name) and returns a Normalizer that
// applies policy to partial dates.
func NewNormalizer(tz string, policy Policy) (*Normalizer, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", tz, err)
	}
	return &Normalizer{loc: loc, policy: policy, now: time.Now}, nil
}

// WithClock returns a copy that reads the current instant from now.
func (n *Normalizer) WithClock(now func() time.Time) *Normalizer {
	cp := *n
	cp.now = now
	return &cp
}

// Location is the reference timezone.
func (n *Normalizer) Location() *time.Location { return n.loc }

// Today is the current calendar date in the reference timezone.
func (n *Normalizer) Today() string {
	return n.now().In(n.loc).Format(Layout)
}

// Yesterday is the calendar date before Today.
func (n *Normalizer) Yesterday() string {
	return n.now().In(n.loc).AddDate(0, 0, -1).Format(Layout)
}

// Normalize maps input to a calendar date.  Empty input and PresentRef
// mean today; a full YYYY-MM-DD date is returned unchanged; anything else
// falls under the partial date policy.
func (n *Normalizer) Normalize(input string) (string, error) {
	in := strings.TrimSpace(input)
	if in == "" || in == PresentRef {
		return n.Today(), nil
	}
	if fullDate.MatchString(in) {
		return in, nil
	}
	if n.policy == Reject {
		return "", fmt.Errorf("%w: %q", ErrPartialDate, input)
	}
	return n.Today(), nil
}

// Valid reports whether s is a real calendar date in canonical form.
func Valid(s string) bool {
	if !fullDate.MatchString(s) {
		return false
	}
	_, err := time.Parse(Layout, s)
	return err == nil
}

// PrevDay returns the calendar date one day before d.  Dates are parsed in
// UTC so the result never shifts across a DST boundary.
func PrevDay(d string) (string, error) {
	t, err := time.Parse(Layout, d)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, -1).Format(Layout), nil
}
