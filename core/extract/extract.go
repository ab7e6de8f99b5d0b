// Package extract turns tree diffs into ordered change sets of repo entries.
package extract

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/go-git/go-git/v5/utils/binary"
	"github.com/go-git/go-git/v5/utils/merkletrie"
	"github.com/huangsam/gitnote/core/content"
	"github.com/huangsam/gitnote/schema"
	"go.uber.org/zap"
)

// Extractor reads blobs from an object store to build change sets.
// It keeps no state between calls.
type Extractor struct {
	objects storer.EncodedObjectStorer
	logger  *zap.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger used for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// New returns an Extractor reading objects from the given store.
func New(objects storer.EncodedObjectStorer, opts ...Option) *Extractor {
	e := &Extractor{
		objects: objects,
		logger:  zap.NewNop(),
	}
	for _, apply := range opts {
		apply(e)
	}
	return e
}

// Extract diffs oldTree against newTree and returns one entry per classified path delta,
// ordered by path. A nil tree stands for the empty tree. Articles get changeTime as timestamp.
func (e *Extractor) Extract(oldTree, newTree *object.Tree, changeTime time.Time) (schema.ChangeSet, error) {
	if oldTree == nil {
		oldTree = &object.Tree{}
	}
	if newTree == nil {
		newTree = &object.Tree{}
	}

	changes, err := object.DiffTree(oldTree, newTree)
	if err != nil {
		return nil, fmt.Errorf("failed to diff trees %s..%s: %w", oldTree.Hash, newTree.Hash, err)
	}

	entries := make(schema.ChangeSet, 0, len(changes))
	for _, change := range changes {
		entry, err := e.toEntry(change, changeTime)
		if err != nil {
			return nil, err
		}
		if entry != nil {
			entries = append(entries, entry)
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].EntryPath() < entries[j].EntryPath()
	})

	e.logger.Debug("extracted tree diff",
		zap.Stringer("old", oldTree.Hash),
		zap.Stringer("new", newTree.Hash),
		zap.Int("deltas", len(changes)),
		zap.Int("entries", len(entries)))

	return entries, nil
}

// ExtractCommits diffs two commits; a nil old commit means the empty history.
// The change time is the committer time of the new commit.
func (e *Extractor) ExtractCommits(oldCommit, newCommit *object.Commit) (schema.ChangeSet, error) {
	var oldTree *object.Tree
	if oldCommit != nil {
		t, err := oldCommit.Tree()
		if err != nil {
			return nil, fmt.Errorf("failed to load tree of %s: %w", oldCommit.Hash, err)
		}
		oldTree = t
	}
	newTree, err := newCommit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to load tree of %s: %w", newCommit.Hash, err)
	}
	return e.Extract(oldTree, newTree, newCommit.Committer.When)
}

// toEntry converts one tree delta. It returns nil for ignored paths and mode-only changes.
func (e *Extractor) toEntry(change *object.Change, changeTime time.Time) (schema.Entry, error) {
	action, err := change.Action()
	if err != nil {
		return nil, fmt.Errorf("failed to read diff action: %w", err)
	}

	if action == merkletrie.Delete {
		p := change.From.Name
		group := content.GroupOf(p)
		switch content.Classify(p) {
		case schema.GroupConfigContent:
			return schema.Removed{Group: group, Path: p, Timestamp: changeTime}, nil
		case schema.ArticleContent:
			name := content.ArticleName(p)
			return schema.Removed{Group: group, Name: &name, Path: p, Timestamp: changeTime}, nil
		default:
			return nil, nil
		}
	}

	p := change.To.Name
	kind := content.Classify(p)
	if kind == schema.IgnoredContent {
		return nil, nil
	}
	if action == merkletrie.Modify && change.From.TreeEntry.Hash == change.To.TreeEntry.Hash {
		e.logger.Debug("skipping mode-only change", zap.String("path", p))
		return nil, nil
	}

	body, err := e.readContent(p, change.To.TreeEntry)
	if err != nil {
		return nil, err
	}

	group := content.GroupOf(p)
	hash := change.To.TreeEntry.Hash.String()
	if kind == schema.GroupConfigContent {
		return schema.GroupConfigChanged{Group: group, Path: p, Content: body, BlobHash: hash, Timestamp: changeTime}, nil
	}
	return schema.ArticleChanged{
		Group:     group,
		Name:      content.ArticleName(p),
		Path:      p,
		Content:   body,
		BlobHash:  hash,
		Timestamp: changeTime,
	}, nil
}

// readContent loads a blob as UTF-8 text.
func (e *Extractor) readContent(p string, te object.TreeEntry) (string, error) {
	fail := func(err error) (string, error) {
		return "", &ContentReadError{Path: p, Hash: te.Hash.String(), Err: err}
	}

	if te.Mode == filemode.Submodule || te.Mode == filemode.Dir {
		return fail(fmt.Errorf("unexpected object mode %s", te.Mode))
	}

	blob, err := object.GetBlob(e.objects, te.Hash)
	if err != nil {
		return fail(err)
	}
	r, err := blob.Reader()
	if err != nil {
		return fail(err)
	}
	defer func() { _ = r.Close() }()

	data, err := io.ReadAll(r)
	if err != nil {
		return fail(err)
	}
	if isBin, err := binary.IsBinary(bytes.NewReader(data)); err != nil {
		return fail(err)
	} else if isBin {
		return fail(errBinaryContent)
	}
	if !utf8.Valid(data) {
		return fail(errInvalidUTF8)
	}
	return string(data), nil
}
