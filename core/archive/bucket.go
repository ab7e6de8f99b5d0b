package archive

import (
	"time"

	"github.com/huangsam/gitnote/schema"
)

// Bucket groups the entries folded into one synthetic commit.
type Bucket struct {
	Start   time.Time // truncated bucket start in the bucketing location
	Latest  time.Time // latest effective change time in the bucket
	Entries schema.ChangeSet
}

// Label renders the bucket start at its granularity.
func (b Bucket) Label(g schema.BucketGranularity) string {
	switch g {
	case schema.HourBucket:
		return b.Start.Format("2006-01-02 15:00")
	case schema.MonthBucket:
		return b.Start.Format("2006-01")
	default:
		return b.Start.Format("2006-01-02")
	}
}

// Truncate returns the start of the bucket containing t.
func Truncate(t time.Time, g schema.BucketGranularity, loc *time.Location) time.Time {
	t = t.In(loc)
	y, m, d := t.Date()
	switch g {
	case schema.HourBucket:
		return time.Date(y, m, d, t.Hour(), 0, 0, 0, loc)
	case schema.MonthBucket:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc)
	default:
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	}
}

// Buckets groups a replayed change set into chronological buckets.
// Entries keep their replay order. A timestamp earlier than one already seen is
// treated as the latest seen time, so bucket order never contradicts history order.
func Buckets(cs schema.ChangeSet, g schema.BucketGranularity, loc *time.Location) []Bucket {
	var out []Bucket
	var floor time.Time
	for _, e := range cs {
		at := e.ChangedAt()
		if at.Before(floor) {
			at = floor
		} else {
			floor = at
		}

		start := Truncate(at, g, loc)
		if n := len(out); n > 0 && out[n-1].Start.Equal(start) {
			out[n-1].Entries = append(out[n-1].Entries, e)
			out[n-1].Latest = at
			continue
		}
		out = append(out, Bucket{Start: start, Latest: at, Entries: schema.ChangeSet{e}})
	}
	return out
}
