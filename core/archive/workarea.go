package archive

import (
	"fmt"
	"os"
	"sort"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/storage/filesystem"
	"go.uber.org/multierr"
)

// StagingRef is the branch of a working area that follows the chain being built.
const StagingRef = plumbing.ReferenceName("refs/heads/staging")

// workingArea is a private repository in a temp directory. It keeps its own references,
// index and config while every object is written to the source repository.
type workingArea struct {
	dir   string
	local *filesystem.Storage
}

func acquireWorkingArea(parent string) (*workingArea, error) {
	dir, err := os.MkdirTemp(parent, "gitnote-archive-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create working area: %w", err)
	}

	local := filesystem.NewStorage(osfs.New(dir), cache.NewObjectLRUDefault())
	if _, err := git.Init(local, nil); err != nil {
		return nil, multierr.Append(
			fmt.Errorf("failed to initialize working area %s: %w", dir, err),
			os.RemoveAll(dir))
	}
	if err := local.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, StagingRef)); err != nil {
		return nil, multierr.Append(
			fmt.Errorf("failed to point HEAD of working area %s: %w", dir, err),
			os.RemoveAll(dir))
	}
	return &workingArea{dir: dir, local: local}, nil
}

// advance moves the staging branch to commit and rewrites the index to match state.
func (w *workingArea) advance(commit plumbing.Hash, state map[string]plumbing.Hash) error {
	if err := w.local.SetReference(plumbing.NewHashReference(StagingRef, commit)); err != nil {
		return fmt.Errorf("failed to move staging branch to %s: %w", commit, err)
	}

	paths := make([]string, 0, len(state))
	for p := range state {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	idx := &index.Index{Version: 2}
	for _, p := range paths {
		idx.Entries = append(idx.Entries, &index.Entry{
			Name: p,
			Hash: state[p],
			Mode: filemode.Regular,
		})
	}
	if err := w.local.SetIndex(idx); err != nil {
		return fmt.Errorf("failed to write working area index: %w", err)
	}
	return nil
}

// release closes the private storage and removes the directory.
func (w *workingArea) release() error {
	return multierr.Append(w.local.Close(), os.RemoveAll(w.dir))
}
