// Package gittest builds small in-memory repositories for tests.
package gittest

import (
	"path"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage"
	"github.com/go-git/go-git/v5/storage/filesystem"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/stretchr/testify/require"
)

// MainBranch is the branch every helper commit lands on.
const MainBranch = plumbing.ReferenceName("refs/heads/main")

// Author signs every helper commit.
var Author = object.Signature{Name: "tester", Email: "tester@example.com"}

type file struct {
	hash plumbing.Hash
	mode filemode.FileMode
}

// Repo is a repository whose history is written directly through its storer.
type Repo struct {
	t       testing.TB
	Storer  storage.Storer
	Repo    *git.Repository
	Head    plumbing.Hash
	Commits []plumbing.Hash
	files   map[string]file
}

// Change describes the edits of one helper commit.
type Change struct {
	Write  map[string]string            // path -> content
	Mode   map[string]filemode.FileMode // path -> new mode, content untouched
	Raw    map[string]plumbing.Hash     // path -> object id written as-is
	Delete []string
}

// NewRepo returns an empty repository backed by memory storage.
func NewRepo(t testing.TB) *Repo {
	return NewRepoWithStorer(t, memory.NewStorage())
}

// NewBareRepo returns an empty bare repository in a temporary directory, so it can
// also be opened by path. The directory is returned alongside.
func NewBareRepo(t testing.TB) (*Repo, string) {
	t.Helper()
	dir := t.TempDir()
	return NewRepoWithStorer(t, filesystem.NewStorage(osfs.New(dir), cache.NewObjectLRUDefault())), dir
}

// NewRepoWithStorer returns an empty repository over the given storer.
func NewRepoWithStorer(t testing.TB, s storage.Storer) *Repo {
	t.Helper()
	repo, err := git.Init(s, nil)
	require.NoError(t, err)
	require.NoError(t, s.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, MainBranch)))
	return &Repo{t: t, Storer: s, Repo: repo, files: map[string]file{}}
}

// Commit applies the change on top of the current head and advances the main branch.
func (r *Repo) Commit(when time.Time, msg string, ch Change) plumbing.Hash {
	r.t.Helper()

	for p, body := range ch.Write {
		mode := filemode.Regular
		if prev, ok := r.files[p]; ok {
			mode = prev.mode
		}
		r.files[p] = file{hash: r.writeBlob([]byte(body)), mode: mode}
	}
	for p, mode := range ch.Mode {
		prev, ok := r.files[p]
		require.True(r.t, ok, "mode change on missing path %s", p)
		r.files[p] = file{hash: prev.hash, mode: mode}
	}
	for p, h := range ch.Raw {
		r.files[p] = file{hash: h, mode: filemode.Regular}
	}
	for _, p := range ch.Delete {
		delete(r.files, p)
	}

	treeHash := r.writeTree("")
	sig := Author
	sig.When = when
	commit := &object.Commit{
		Author:    sig,
		Committer: sig,
		Message:   msg,
		TreeHash:  treeHash,
	}
	if !r.Head.IsZero() {
		commit.ParentHashes = []plumbing.Hash{r.Head}
	}
	obj := r.Storer.NewEncodedObject()
	require.NoError(r.t, commit.Encode(obj))
	h, err := r.Storer.SetEncodedObject(obj)
	require.NoError(r.t, err)

	require.NoError(r.t, r.Storer.SetReference(plumbing.NewHashReference(MainBranch, h)))
	r.Head = h
	r.Commits = append(r.Commits, h)
	return h
}

// Tag points a lightweight tag at a commit.
func (r *Repo) Tag(name string, h plumbing.Hash) {
	r.t.Helper()
	require.NoError(r.t, r.Storer.SetReference(plumbing.NewHashReference(plumbing.NewTagReferenceName(name), h)))
}

// Files returns path -> content of the tree of commit h.
func (r *Repo) Files(h plumbing.Hash) map[string]string {
	r.t.Helper()
	return TreeFiles(r.t, r.Storer, h)
}

// TreeFiles returns path -> content of the tree of commit h read from s.
func TreeFiles(t testing.TB, s storage.Storer, h plumbing.Hash) map[string]string {
	t.Helper()
	commit, err := object.GetCommit(s, h)
	require.NoError(t, err)
	tree, err := commit.Tree()
	require.NoError(t, err)

	out := map[string]string{}
	require.NoError(t, tree.Files().ForEach(func(f *object.File) error {
		body, err := f.Contents()
		if err != nil {
			return err
		}
		out[f.Name] = body
		return nil
	}))
	return out
}

func (r *Repo) writeBlob(data []byte) plumbing.Hash {
	obj := r.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	obj.SetSize(int64(len(data)))
	w, err := obj.Writer()
	require.NoError(r.t, err)
	_, err = w.Write(data)
	require.NoError(r.t, err)
	require.NoError(r.t, w.Close())
	h, err := r.Storer.SetEncodedObject(obj)
	require.NoError(r.t, err)
	return h
}

// writeTree writes the tree rooted at dir ("" for the root) and returns its id.
func (r *Repo) writeTree(dir string) plumbing.Hash {
	prefix := ""
	if dir != "" {
		prefix = dir + "/"
	}

	var entries []object.TreeEntry
	subdirs := map[string]bool{}
	for p, f := range r.files {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		rest := strings.TrimPrefix(p, prefix)
		if i := strings.Index(rest, "/"); i >= 0 {
			subdirs[rest[:i]] = true
			continue
		}
		entries = append(entries, object.TreeEntry{Name: rest, Mode: f.mode, Hash: f.hash})
	}
	for name := range subdirs {
		entries = append(entries, object.TreeEntry{Name: name, Mode: filemode.Dir, Hash: r.writeTree(path.Join(dir, name))})
	}
	sort.Slice(entries, func(i, j int) bool {
		return sortKey(entries[i]) < sortKey(entries[j])
	})

	tree := &object.Tree{Entries: entries}
	obj := r.Storer.NewEncodedObject()
	require.NoError(r.t, tree.Encode(obj))
	h, err := r.Storer.SetEncodedObject(obj)
	require.NoError(r.t, err)
	return h
}

func sortKey(e object.TreeEntry) string {
	if e.Mode == filemode.Dir {
		return e.Name + "/"
	}
	return e.Name
}

// Day returns midnight UTC plus the given hour on the given date.
func Day(year int, month time.Month, day, hour int) time.Time {
	return time.Date(year, month, day, hour, 0, 0, 0, time.UTC)
}
