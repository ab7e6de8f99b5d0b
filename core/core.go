// Package core has the entry points behind every gitnote command.
package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/huangsam/gitnote/core/archive"
	"github.com/huangsam/gitnote/core/extract"
	"github.com/huangsam/gitnote/core/trigger"
	"github.com/huangsam/gitnote/internal/contract"
	"github.com/huangsam/gitnote/internal/logger"
	"github.com/huangsam/gitnote/internal/metrics"
	"github.com/huangsam/gitnote/internal/outwriter"
	"github.com/huangsam/gitnote/schema"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrEntryStoreDisabled is returned by sync when no entry backend is configured.
var ErrEntryStoreDisabled = errors.New("entry store is disabled")

// ExecuteExtract prints the entries between two revisions.
// It serves as the main entry point for the 'extract' command.
func ExecuteExtract(ctx context.Context, cfg *contract.Config, from, to string) error {
	start := time.Now()
	changes, err := GetExtractResults(ctx, cfg, from, to)
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter().WriteChanges(changes, cfg, time.Since(start))
}

// GetExtractResults returns the entries between two revisions.
// Without from, `to` is diffed against its first parent, or against the empty tree when
// cfg.Snapshot is set. With from, the first-parent chain is replayed commit by commit,
// or the two trees are diffed directly when cfg.Snapshot is set.
func GetExtractResults(_ context.Context, cfg *contract.Config, from, to string) (schema.ChangeSet, error) {
	log, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	repo, err := contract.OpenRepository(cfg.RepoPath)
	if err != nil {
		return nil, err
	}
	return extractChanges(repo, log, from, to, cfg.Snapshot)
}

func extractChanges(repo *git.Repository, log *zap.Logger, from, to string, snapshot bool) (schema.ChangeSet, error) {
	e := extract.New(repo.Storer, extract.WithLogger(log))
	newCommit, err := extract.ResolveCommit(repo, to)
	if err != nil {
		return nil, err
	}

	if from == "" {
		var oldCommit *object.Commit
		if !snapshot && newCommit.NumParents() > 0 {
			if oldCommit, err = newCommit.Parent(0); err != nil {
				return nil, fmt.Errorf("failed to load parent of %s: %w", newCommit.Hash, err)
			}
		}
		return e.ExtractCommits(oldCommit, newCommit)
	}

	oldCommit, err := extract.ResolveCommit(repo, from)
	if err != nil {
		return nil, err
	}
	if snapshot {
		return e.ExtractCommits(oldCommit, newCommit)
	}
	return e.ExtractRange(oldCommit.Hash, newCommit.Hash)
}

// ExecuteArchive compacts the history up to boundary under the given label and
// prints the outcome.
func ExecuteArchive(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager, boundary, label string) error {
	info, err := GetArchiveResults(ctx, cfg, mgr, boundary, label)
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter().WriteArchive(info, cfg)
}

// GetArchiveResults compacts the history up to boundary under the given label.
// The run is recorded when an archive store is configured.
func GetArchiveResults(_ context.Context, cfg *contract.Config, mgr contract.StoreManager, boundary, label string) (*schema.ArchivedInfo, error) {
	log, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	repo, err := contract.OpenRepository(cfg.RepoPath)
	if err != nil {
		return nil, err
	}
	runner := NewRunner(NewCompactor(cfg, repo, log), archiveStoreOf(mgr), nil, log)
	return runner.Compact(boundary, label)
}

// ExecuteSync applies every change since the last synced commit up to cfg.TipRef to the
// entry store, then records the tip as synced.
func ExecuteSync(_ context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	start := time.Now()
	var store contract.EntryStore
	if mgr != nil {
		store = mgr.GetEntryStore()
	}
	if store == nil || cfg.EntryBackend == schema.NoneBackend {
		return fmt.Errorf("%w: set --entry-backend to sqlite, mysql or postgresql", ErrEntryStoreDisabled)
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	repo, err := contract.OpenRepository(cfg.RepoPath)
	if err != nil {
		return err
	}
	tip, err := extract.ResolveCommit(repo, cfg.TipRef)
	if err != nil {
		return err
	}

	repoKey := contract.RepoKey(cfg.RepoPath)
	state, err := store.GetSyncState(repoKey)
	if err != nil {
		return fmt.Errorf("failed to read sync state: %w", err)
	}
	from := plumbing.ZeroHash
	if state != nil {
		from = plumbing.NewHash(state.LastCommit)
	}

	changes, err := syncChanges(repo, log, from, tip)
	if err != nil {
		return err
	}
	if err := store.ApplyChangeSet(changes); err != nil {
		return fmt.Errorf("failed to apply %d entries: %w", len(changes), err)
	}
	if err := store.SetSyncState(schema.SyncState{
		RepoKey:    repoKey,
		LastCommit: tip.Hash.String(),
		SyncedAt:   time.Now(),
	}); err != nil {
		return fmt.Errorf("failed to record sync state: %w", err)
	}
	log.Info("sync completed",
		zap.String("repo", repoKey),
		zap.Stringer("from", from),
		zap.Stringer("to", tip.Hash),
		zap.Int("entries", len(changes)))

	return outwriter.NewOutWriter().WriteChanges(changes, cfg, time.Since(start))
}

// syncChanges replays the first-parent chain from the synced commit to tip. When the
// synced commit left the chain after a history rewrite, the two trees are diffed instead.
func syncChanges(repo *git.Repository, log *zap.Logger, from plumbing.Hash, tip *object.Commit) (schema.ChangeSet, error) {
	if from == tip.Hash {
		return schema.ChangeSet{}, nil
	}
	e := extract.New(repo.Storer, extract.WithLogger(log))
	changes, err := e.ExtractRange(from, tip.Hash)
	if !errors.Is(err, extract.ErrNotAncestor) {
		return changes, err
	}

	log.Warn("synced commit is not an ancestor of the tip, diffing trees", zap.Stringer("synced", from))
	old, cerr := repo.CommitObject(from)
	if cerr != nil {
		return nil, fmt.Errorf("%w. Run 'gitnote entries clear' to resync from scratch", err)
	}
	return e.ExtractCommits(old, tip)
}

// ExecuteDaemon runs the quarterly scheduler and the metrics server until ctx is done.
func ExecuteDaemon(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	open := func() (*git.Repository, error) {
		return contract.OpenRepository(cfg.RepoPath)
	}
	if _, err := open(); err != nil {
		return err
	}

	recorder := metrics.NewRecorder()
	runner := NewRunner(nil, archiveStoreOf(mgr), recorder, log)
	compacterFor := func(repo *git.Repository) trigger.Compacter {
		return runner.For(NewCompactor(cfg, repo, log))
	}
	scheduler := trigger.NewScheduler(open, compacterFor,
		trigger.WithInterval(cfg.Interval),
		trigger.WithLogger(log),
		trigger.WithTipRef(cfg.TipRef),
		trigger.WithTagger(cfg.AuthorName, cfg.AuthorEmail),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ignoreCanceled(scheduler.Run(gctx))
	})
	g.Go(func() error {
		for res := range scheduler.Results() {
			logResult(log, res)
		}
		return nil
	})
	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			return metrics.Serve(gctx, cfg.MetricsAddr, recorder.Handler(), log)
		})
	}
	recorder.SetReady(true)
	defer recorder.SetReady(false)

	return g.Wait()
}

func logResult(log *zap.Logger, res trigger.Result) {
	if res.Err != nil {
		log.Error("quarter archive failed", zap.String("quarter", res.Quarter.Label()), zap.Error(res.Err))
		return
	}
	log.Info("quarter archived",
		zap.String("quarter", res.Quarter.Label()),
		zap.String("ref", res.Info.RefName),
		zap.Int("commits", res.Info.CommitsCreated),
		zap.Int("entries", res.Info.EntriesFolded))
}

// NewCompactor builds a compactor for repo from the archive settings in cfg.
func NewCompactor(cfg *contract.Config, repo *git.Repository, log *zap.Logger) *archive.Compactor {
	return archive.New(repo,
		archive.WithLogger(log),
		archive.WithRefPrefix(cfg.RefPrefix),
		archive.WithGranularity(cfg.Bucket),
		archive.WithLocation(cfg.Location),
		archive.WithTempDir(cfg.TempDir),
		archive.WithSignature(cfg.AuthorName, cfg.AuthorEmail),
	)
}

func archiveStoreOf(mgr contract.StoreManager) contract.ArchiveStore {
	if mgr == nil {
		return nil
	}
	return mgr.GetArchiveStore()
}

func newLogger(cfg *contract.Config) (*zap.Logger, error) {
	level := cfg.LogLevel
	if level == "" {
		level = logger.DefaultLevel
	}
	log, err := logger.GetLogger(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return log, nil
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
