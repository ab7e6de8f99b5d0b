// Package archive folds the history of a repository into a short chain of synthetic
// commits, one per time bucket, and publishes it under an archive reference.
package archive

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage"
	"github.com/huangsam/gitnote/core/extract"
	"github.com/huangsam/gitnote/schema"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Compactor rewrites history up to a boundary into bucketed commits.
// It holds no locks; callers serialize runs against one repository.
type Compactor struct {
	repo *git.Repository
	settings
}

// New returns a Compactor over repo.
func New(repo *git.Repository, opts ...Option) *Compactor {
	s := defaultSettings()
	for _, apply := range opts {
		apply(&s)
	}
	return &Compactor{repo: repo, settings: s}
}

// RefName is the reference an archive with the given label is published under.
func (c *Compactor) RefName(label string) plumbing.ReferenceName {
	return plumbing.ReferenceName(c.refPrefix + label)
}

// Compact replays history up to boundary, groups the changes into time buckets, writes one
// commit per bucket and publishes the tip under RefName(label). The reference is either
// updated once with the full chain or left as it was.
func (c *Compactor) Compact(boundary, label string) (info *schema.ArchivedInfo, err error) {
	start := c.clock()
	rs := newRunState()
	log := c.logger.With(zap.String("label", label), zap.String("boundary", boundary))

	if err := ValidateLabel(label); err != nil {
		return nil, rs.fail(ErrInvalidLabel, err)
	}
	commit, err := extract.ResolveCommit(c.repo, boundary)
	if err != nil {
		return nil, rs.fail(nil, err)
	}
	refName := c.RefName(label)
	previous, err := c.repo.Storer.Reference(refName)
	if err != nil && !errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, rs.fail(ErrReferencePublish, fmt.Errorf("failed to read %s: %w", refName, err))
	}

	wa, err := acquireWorkingArea(c.tempDir)
	if err != nil {
		return nil, rs.fail(ErrWorkingArea, err)
	}
	rs.step = StepWorkingAreaAcquired
	log.Debug("acquired working area", zap.String("dir", wa.dir))
	defer func() {
		rerr := wa.release()
		if rerr == nil {
			rs.step = StepWorkingAreaReleased
			return
		}
		rerr = fmt.Errorf("failed to release working area %s: %w", wa.dir, rerr)
		if err == nil {
			// the reference is already published; the leftover directory is only reported
			log.Warn("working area left behind", zap.Error(rerr))
			return
		}
		var ae *Error
		if errors.As(err, &ae) {
			ae.Err = multierr.Append(ae.Err, rerr)
		}
	}()

	entries, err := extract.New(c.repo.Storer, extract.WithLogger(c.logger)).ExtractRange(plumbing.ZeroHash, commit.Hash)
	if err != nil {
		return nil, rs.fail(nil, err)
	}
	rs.step = StepHistoryReplayed

	buckets := Buckets(entries, c.granularity, c.location)
	rs.step = StepBucketed
	log.Debug("bucketed history", zap.Int("entries", len(entries)), zap.Int("buckets", len(buckets)))

	articles, configs, removals := entries.Counts()
	info = &schema.ArchivedInfo{
		RefName:       refName.String(),
		Label:         label,
		Boundary:      commit.Hash.String(),
		EntriesFolded: len(entries),
		Articles:      articles,
		Configs:       configs,
		Removals:      removals,
	}

	if len(buckets) > 0 {
		tip, err := c.buildChain(wa, buckets, label, rs)
		if err != nil {
			return nil, err
		}
		rs.step = StepCommitChainBuilt

		if err := c.publish(refName, tip, previous); err != nil {
			return nil, rs.fail(ErrReferencePublish, err)
		}
		info.TipCommit = tip.String()
		info.CommitsCreated = len(buckets)
	} else {
		log.Info("nothing to archive before boundary")
	}
	rs.step = StepReferencePublished

	info.FinishedAt = c.clock()
	info.Duration = info.FinishedAt.Sub(start)
	log.Info("archive completed",
		zap.String("ref", info.RefName),
		zap.Int("commits", info.CommitsCreated),
		zap.Int("entries", info.EntriesFolded),
		zap.Duration("duration", info.Duration))
	return info, nil
}

// buildChain writes one tree and one commit per bucket and returns the tip.
func (c *Compactor) buildChain(wa *workingArea, buckets []Bucket, label string, rs *runState) (plumbing.Hash, error) {
	objects := c.repo.Storer
	state := map[string]plumbing.Hash{}
	var parent plumbing.Hash

	for i, b := range buckets {
		rs.bucket = i
		for _, entry := range b.Entries {
			if err := applyEntry(objects, state, entry); err != nil {
				return plumbing.ZeroHash, rs.fail(ErrTreeWrite, err)
			}
		}

		treeHash, err := writeTree(objects, state)
		if err != nil {
			return plumbing.ZeroHash, rs.fail(ErrTreeWrite, err)
		}

		sig := object.Signature{Name: c.authorName, Email: c.authorEmail, When: b.Latest.In(c.location)}
		commit := &object.Commit{
			Author:    sig,
			Committer: sig,
			Message:   fmt.Sprintf("archive: archived(%s) bucket %s (%d entries)", label, b.Label(c.granularity), len(b.Entries)),
			TreeHash:  treeHash,
		}
		if !parent.IsZero() {
			commit.ParentHashes = []plumbing.Hash{parent}
		}
		commitHash, err := writeCommit(objects, commit)
		if err != nil {
			return plumbing.ZeroHash, rs.fail(ErrCommitWrite, err)
		}

		if err := wa.advance(commitHash, state); err != nil {
			return plumbing.ZeroHash, rs.fail(ErrWorkingArea, err)
		}
		parent = commitHash
		rs.lastCommitted = i

		c.logger.Debug("committed bucket",
			zap.Int("bucket", i),
			zap.String("start", b.Label(c.granularity)),
			zap.Int("entries", len(b.Entries)),
			zap.Stringer("commit", commitHash))
	}
	rs.bucket = -1
	return parent, nil
}

// applyEntry folds one entry into the cumulative path -> blob state.
func applyEntry(objects storage.Storer, state map[string]plumbing.Hash, entry schema.Entry) error {
	switch e := entry.(type) {
	case schema.GroupConfigChanged:
		h, err := ensureBlob(objects, e.BlobHash, e.Content)
		if err != nil {
			return fmt.Errorf("failed to store %s: %w", e.Path, err)
		}
		state[e.Path] = h
	case schema.ArticleChanged:
		h, err := ensureBlob(objects, e.BlobHash, e.Content)
		if err != nil {
			return fmt.Errorf("failed to store %s: %w", e.Path, err)
		}
		state[e.Path] = h
	case schema.Removed:
		delete(state, e.Path)
	default:
		return fmt.Errorf("unknown entry kind %T", entry)
	}
	return nil
}

func writeCommit(objects storage.Storer, commit *object.Commit) (plumbing.Hash, error) {
	obj := objects.NewEncodedObject()
	if err := commit.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to encode commit: %w", err)
	}
	h, err := objects.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to store commit: %w", err)
	}
	return h, nil
}

// publish moves refName to tip only if it still holds the value read at the start of the run.
func (c *Compactor) publish(refName plumbing.ReferenceName, tip plumbing.Hash, previous *plumbing.Reference) error {
	if previous == nil {
		if cur, err := c.repo.Storer.Reference(refName); err == nil {
			return fmt.Errorf("%w: %s was created at %s during the run", storage.ErrReferenceHasChanged, refName, cur.Hash())
		}
	}
	if err := c.repo.Storer.CheckAndSetReference(plumbing.NewHashReference(refName, tip), previous); err != nil {
		return fmt.Errorf("failed to publish %s: %w", refName, err)
	}
	return nil
}

// ValidateLabel checks that label can be used as the last part of a reference name.
func ValidateLabel(label string) error {
	switch {
	case label == "":
		return errors.New("label is empty")
	case strings.HasPrefix(label, "/") || strings.HasSuffix(label, "/"):
		return fmt.Errorf("label %q starts or ends with a slash", label)
	case strings.HasPrefix(label, ".") || strings.HasSuffix(label, "."):
		return fmt.Errorf("label %q starts or ends with a dot", label)
	case strings.HasSuffix(label, ".lock"):
		return fmt.Errorf("label %q ends with .lock", label)
	case strings.Contains(label, "..") || strings.Contains(label, "//") || strings.Contains(label, "@{"):
		return fmt.Errorf("label %q holds a forbidden sequence", label)
	}
	for _, r := range label {
		if unicode.IsSpace(r) || unicode.IsControl(r) || strings.ContainsRune(`~^:?*[\`, r) {
			return fmt.Errorf("label %q holds forbidden character %q", label, r)
		}
	}
	return nil
}
