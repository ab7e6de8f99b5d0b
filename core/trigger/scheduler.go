// Package trigger runs compaction once per completed calendar quarter.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/huangsam/gitnote/core/archive"
	"github.com/huangsam/gitnote/core/extract"
	"github.com/huangsam/gitnote/schema"
	"go.uber.org/zap"
)

// ErrNothingToArchive means the quarter is already archived or has no history.
var ErrNothingToArchive = errors.New("nothing to archive")

// DefaultInterval is the time between two checks.
const DefaultInterval = 24 * time.Hour

// Compacter runs one compaction. *archive.Compactor satisfies it.
type Compacter interface {
	Compact(boundary, label string) (*schema.ArchivedInfo, error)
	RefName(label string) plumbing.ReferenceName
}

var _ Compacter = &archive.Compactor{}

// Opener returns a repository handle. The scheduler asks for a fresh one on
// every check so objects written by other processes since the last check are visible.
type Opener func() (*git.Repository, error)

// CompacterFunc builds the compacter for one check from the repository opened for it.
type CompacterFunc func(repo *git.Repository) Compacter

// Result is the outcome of one triggered compaction.
type Result struct {
	Quarter Quarter
	Info    *schema.ArchivedInfo
	Err     error
	At      time.Time
}

// Scheduler tags completed quarters and compacts history up to each tag.
type Scheduler struct {
	open         Opener
	compacterFor CompacterFunc
	interval     time.Duration
	clock        func() time.Time
	logger       *zap.Logger
	tipRef       string
	tagger       object.Signature
	results      chan Result
	mu           sync.Mutex
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithInterval sets the time between checks.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(clock func() time.Time) Option {
	return func(s *Scheduler) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTipRef sets the revision whose first-parent chain is archived.
func WithTipRef(rev string) Option {
	return func(s *Scheduler) {
		if rev != "" {
			s.tipRef = rev
		}
	}
}

// WithTagger sets the identity recorded on quarter tags.
func WithTagger(name, email string) Option {
	return func(s *Scheduler) {
		if name != "" {
			s.tagger.Name = name
		}
		if email != "" {
			s.tagger.Email = email
		}
	}
}

// NewScheduler returns a Scheduler that opens the repository with open on every
// check and compacts it through the compacter built by compacterFor.
func NewScheduler(open Opener, compacterFor CompacterFunc, opts ...Option) *Scheduler {
	s := &Scheduler{
		open:         open,
		compacterFor: compacterFor,
		interval:     DefaultInterval,
		clock:        time.Now,
		logger:       zap.NewNop(),
		tipRef:       "HEAD",
		tagger:       object.Signature{Name: archive.DefaultAuthorName, Email: archive.DefaultAuthorEmail},
		results:      make(chan Result, 16),
	}
	for _, apply := range opts {
		apply(s)
	}
	return s
}

// Results delivers the outcome of every compaction started by Run.
// The channel is closed when Run returns.
func (s *Scheduler) Results() <-chan Result {
	return s.results
}

// Run checks once immediately and then at every interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	defer close(s.results)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("archive scheduler started", zap.Duration("interval", s.interval))
	for {
		s.tick(ctx)
		select {
		case <-ctx.Done():
			s.logger.Info("archive scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	now := s.clock()
	q := QuarterOf(now).Previous()
	info, err := s.Check(now)
	if errors.Is(err, ErrNothingToArchive) {
		s.logger.Debug("archive check skipped", zap.String("quarter", q.Label()), zap.Error(err))
		return
	}
	if err != nil {
		s.logger.Error("archive check failed", zap.String("quarter", q.Label()), zap.Error(err))
	}

	select {
	case s.results <- Result{Quarter: q, Info: info, Err: err, At: now}:
	case <-ctx.Done():
	default:
		s.logger.Warn("archive result dropped, no reader", zap.String("quarter", q.Label()))
	}
}

// Check archives the most recently completed quarter as of now. It tags the last commit
// before the quarter end when the tag is missing, then compacts unless the archive
// reference already exists.
func (s *Scheduler) Check(now time.Time) (*schema.ArchivedInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, err := s.open()
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}

	q := QuarterOf(now).Previous()
	tagName := q.TagName()

	if _, err := repo.Tag(tagName); errors.Is(err, git.ErrTagNotFound) {
		boundary, err := s.lastCommitBefore(repo, q.End())
		if err != nil {
			return nil, err
		}
		if err := s.tag(repo, tagName, boundary, now); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to look up tag %s: %w", tagName, err)
	}

	c := s.compacterFor(repo)
	refName := c.RefName(q.Label())
	if _, err := repo.Reference(refName, false); err == nil {
		return nil, fmt.Errorf("%w: %s already exists", ErrNothingToArchive, refName)
	}

	s.logger.Info("archiving quarter", zap.String("quarter", q.Label()), zap.String("tag", tagName))
	return c.Compact(tagName, q.Label())
}

// lastCommitBefore walks the first-parent chain of the tip to the newest commit dated before end.
func (s *Scheduler) lastCommitBefore(repo *git.Repository, end time.Time) (*object.Commit, error) {
	commit, err := extract.ResolveCommit(repo, s.tipRef)
	if err != nil {
		if errors.Is(err, extract.ErrUnresolvedReference) && isEmpty(repo) {
			return nil, fmt.Errorf("%w: repository has no commits", ErrNothingToArchive)
		}
		return nil, err
	}
	for !commit.Committer.When.Before(end) {
		if commit.NumParents() == 0 {
			return nil, fmt.Errorf("%w: no commit before %s", ErrNothingToArchive, end.Format(time.RFC3339))
		}
		if commit, err = commit.Parent(0); err != nil {
			return nil, fmt.Errorf("failed to walk first parent: %w", err)
		}
	}
	return commit, nil
}

func isEmpty(repo *git.Repository) bool {
	_, err := repo.Head()
	return errors.Is(err, plumbing.ErrReferenceNotFound)
}

func (s *Scheduler) tag(repo *git.Repository, name string, boundary *object.Commit, now time.Time) error {
	tagger := s.tagger
	tagger.When = now
	if _, err := repo.CreateTag(name, boundary.Hash, &git.CreateTagOptions{
		Tagger:  &tagger,
		Message: "archive: auto tag " + name,
	}); err != nil {
		return fmt.Errorf("failed to create tag %s: %w", name, err)
	}
	s.logger.Info("created archive tag", zap.String("tag", name), zap.Stringer("commit", boundary.Hash))
	return nil
}
