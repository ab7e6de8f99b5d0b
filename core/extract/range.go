package extract

import (
	"fmt"
	"slices"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/huangsam/gitnote/schema"
	"go.uber.org/zap"
)

// ResolveCommit resolves a revision (tag, branch, id) to a commit.
func ResolveCommit(repo *git.Repository, rev string) (*object.Commit, error) {
	h, err := repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrUnresolvedReference, rev, err)
	}
	commit, err := repo.CommitObject(*h)
	if err != nil {
		return nil, fmt.Errorf("%w: %q does not name a commit: %v", ErrUnresolvedReference, rev, err)
	}
	return commit, nil
}

// ExtractRange replays the first-parent chain from `from` (exclusive) to `to` (inclusive),
// diffing each commit against its predecessor and concatenating the results in commit order.
// A zero `from` starts at the root commit, diffed against the empty tree.
func (e *Extractor) ExtractRange(from, to plumbing.Hash) (schema.ChangeSet, error) {
	chain, err := e.FirstParentChain(from, to)
	if err != nil {
		return nil, err
	}

	var prevTree *object.Tree
	if len(chain) > 0 && chain[0].NumParents() > 0 {
		parent, err := object.GetCommit(e.objects, chain[0].ParentHashes[0])
		if err != nil {
			return nil, fmt.Errorf("failed to load parent of %s: %w", chain[0].Hash, err)
		}
		if prevTree, err = parent.Tree(); err != nil {
			return nil, fmt.Errorf("failed to load tree of %s: %w", parent.Hash, err)
		}
	}

	var out schema.ChangeSet
	for _, commit := range chain {
		tree, err := commit.Tree()
		if err != nil {
			return nil, fmt.Errorf("failed to load tree of %s: %w", commit.Hash, err)
		}
		entries, err := e.Extract(prevTree, tree, commit.Committer.When)
		if err != nil {
			return nil, fmt.Errorf("commit %s: %w", commit.Hash, err)
		}
		out = append(out, entries...)
		prevTree = tree
	}

	e.logger.Debug("extracted commit range",
		zap.Stringer("from", from),
		zap.Stringer("to", to),
		zap.Int("commits", len(chain)),
		zap.Int("entries", len(out)))

	return out, nil
}

// FirstParentChain lists the commits after `from` up to and including `to`, oldest first.
func (e *Extractor) FirstParentChain(from, to plumbing.Hash) ([]*object.Commit, error) {
	var chain []*object.Commit
	for h := to; h != from; {
		commit, err := object.GetCommit(e.objects, h)
		if err != nil {
			return nil, fmt.Errorf("failed to load commit %s: %w", h, err)
		}
		chain = append(chain, commit)
		if commit.NumParents() == 0 {
			if !from.IsZero() {
				return nil, fmt.Errorf("%w: %s is not an ancestor of %s", ErrNotAncestor, from, to)
			}
			break
		}
		h = commit.ParentHashes[0]
	}
	slices.Reverse(chain)
	return chain, nil
}
