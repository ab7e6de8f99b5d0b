package trigger

import (
	"fmt"
	"time"
)

// TagPrefix namespaces quarter boundary tags.
const TagPrefix = "archive/"

// Quarter is one calendar quarter, Q in 1..4.
type Quarter struct {
	Year int
	Q    int
}

// QuarterOf returns the UTC quarter containing t.
func QuarterOf(t time.Time) Quarter {
	t = t.UTC()
	return Quarter{Year: t.Year(), Q: (int(t.Month())-1)/3 + 1}
}

// ParseQuarter reads a label such as "2025-Q2".
func ParseQuarter(label string) (Quarter, error) {
	var q Quarter
	if _, err := fmt.Sscanf(label, "%4d-Q%1d", &q.Year, &q.Q); err != nil {
		return Quarter{}, fmt.Errorf("invalid quarter %q: %w", label, err)
	}
	if q.Q < 1 || q.Q > 4 || q.Label() != label {
		return Quarter{}, fmt.Errorf("invalid quarter %q", label)
	}
	return q, nil
}

// Previous returns the quarter before q.
func (q Quarter) Previous() Quarter {
	if q.Q == 1 {
		return Quarter{Year: q.Year - 1, Q: 4}
	}
	return Quarter{Year: q.Year, Q: q.Q - 1}
}

// Next returns the quarter after q.
func (q Quarter) Next() Quarter {
	if q.Q == 4 {
		return Quarter{Year: q.Year + 1, Q: 1}
	}
	return Quarter{Year: q.Year, Q: q.Q + 1}
}

// Start is the first instant of the quarter in UTC.
func (q Quarter) Start() time.Time {
	return time.Date(q.Year, time.Month(3*(q.Q-1)+1), 1, 0, 0, 0, 0, time.UTC)
}

// End is the first instant after the quarter.
func (q Quarter) End() time.Time {
	return q.Next().Start()
}

// Label renders the quarter as "2025-Q2".
func (q Quarter) Label() string {
	return fmt.Sprintf("%04d-Q%d", q.Year, q.Q)
}

// TagName is the tag marking the quarter boundary, e.g. "archive/2025-Q2".
func (q Quarter) TagName() string {
	return TagPrefix + q.Label()
}

// String implements fmt.Stringer.
func (q Quarter) String() string {
	return q.Label()
}
