package analyzer

import "time"

// PacketFilter bounds a scan to an inclusive RFC 3339 time window. Either
// bound may be unset.
type PacketFilter struct {
	Start *time.Time
	End   *time.Time
}

// NewFilter parses start/end as RFC3339; an empty string leaves that bound
// unset rather than erroring, matching the CLI's optional --start/--end
// flags.
func NewFilter(start, end string) (PacketFilter, error) {
	var f PacketFilter
	if start != "" {
		t, err := time.Parse(time.RFC3339, start)
		if err != nil {
			return f, err
		}
		t = t.UTC()
		f.Start = &t
	}
	if end != "" {
		t, err := time.Parse(time.RFC3339, end)
		if err != nil {
			return f, err
		}
		t = t.UTC()
		f.End = &t
	}
	return f, nil
}

func (f PacketFilter) ShouldInclude(ts time.Time) bool {
	if f.Start != nil && ts.Before(*f.Start) {
		return false
	}
	if f.End != nil && ts.After(*f.End) {
		return false
	}
	return true
}

// IsPastEnd reports whether ts is after the filter's end bound, letting a
// streaming reader stop early once the window has closed.
func (f PacketFilter) IsPastEnd(ts time.Time) bool {
	return f.End != nil && ts.After(*f.End)
}
