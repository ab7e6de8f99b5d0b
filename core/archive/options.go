package archive

import (
	"time"

	"github.com/huangsam/gitnote/schema"
	"go.uber.org/zap"
)

// DefaultRefPrefix is prepended to the archive label to name the published reference.
const DefaultRefPrefix = "refs/heads/archived/"

// Default identity used for synthetic commits.
const (
	DefaultAuthorName  = "gitnote-archive"
	DefaultAuthorEmail = "gitnote-archive@example.com"
)

type settings struct {
	logger      *zap.Logger
	refPrefix   string
	granularity schema.BucketGranularity
	location    *time.Location
	tempDir     string
	authorName  string
	authorEmail string
	clock       func() time.Time
}

func defaultSettings() settings {
	return settings{
		logger:      zap.NewNop(),
		refPrefix:   DefaultRefPrefix,
		granularity: schema.DayBucket,
		location:    time.UTC,
		authorName:  DefaultAuthorName,
		authorEmail: DefaultAuthorEmail,
		clock:       time.Now,
	}
}

// Option configures a Compactor.
type Option func(*settings)

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRefPrefix sets the reference prefix, e.g. "refs/heads/archived/".
func WithRefPrefix(prefix string) Option {
	return func(s *settings) {
		if prefix != "" {
			s.refPrefix = prefix
		}
	}
}

// WithGranularity sets the time bucket size.
func WithGranularity(g schema.BucketGranularity) Option {
	return func(s *settings) {
		if g != "" {
			s.granularity = g
		}
	}
}

// WithLocation sets the time zone used to truncate timestamps into buckets.
func WithLocation(loc *time.Location) Option {
	return func(s *settings) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithTempDir sets the parent directory of working areas. Empty means os.TempDir.
func WithTempDir(dir string) Option {
	return func(s *settings) {
		s.tempDir = dir
	}
}

// WithSignature sets the author and committer identity of synthetic commits.
func WithSignature(name, email string) Option {
	return func(s *settings) {
		if name != "" {
			s.authorName = name
		}
		if email != "" {
			s.authorEmail = email
		}
	}
}

// WithClock replaces time.Now for run timing.
func WithClock(clock func() time.Time) Option {
	return func(s *settings) {
		if clock != nil {
			s.clock = clock
		}
	}
}
