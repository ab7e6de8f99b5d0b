package archive

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/huangsam/gitnote/core/content"
	"github.com/huangsam/gitnote/internal/gittest"
	"github.com/huangsam/gitnote/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDiskFull = errors.New("disk full")

// faultyStorage fails tree writes once a number of commits went through, and can run a
// hook after each commit write. It only interferes once armed.
type faultyStorage struct {
	*memory.Storage
	armed                bool
	commits              int
	failTreeAfterCommits int
	onCommit             func()
}

func newFaultyStorage() *faultyStorage {
	return &faultyStorage{Storage: memory.NewStorage(), failTreeAfterCommits: -1}
}

func (s *faultyStorage) SetEncodedObject(obj plumbing.EncodedObject) (plumbing.Hash, error) {
	if s.armed {
		switch obj.Type() {
		case plumbing.TreeObject:
			if s.failTreeAfterCommits >= 0 && s.commits >= s.failTreeAfterCommits {
				return plumbing.ZeroHash, errDiskFull
			}
		case plumbing.CommitObject:
			s.commits++
			if s.onCommit != nil {
				defer s.onCommit()
			}
		}
	}
	return s.Storage.SetEncodedObject(obj)
}

func newCompactor(t *testing.T, r *gittest.Repo, opts ...Option) (*Compactor, string) {
	dir := t.TempDir()
	return New(r.Repo, append([]Option{WithTempDir(dir)}, opts...)...), dir
}

// threeDays commits one article per day on three consecutive days.
func threeDays(r *gittest.Repo) plumbing.Hash {
	r.Commit(gittest.Day(2025, 1, 10, 9), "a", gittest.Change{Write: map[string]string{"notes/a.md": "a"}})
	r.Commit(gittest.Day(2025, 1, 11, 9), "b", gittest.Change{Write: map[string]string{"notes/b.md": "b"}})
	return r.Commit(gittest.Day(2025, 1, 12, 9), "c", gittest.Change{Write: map[string]string{"notes/c.md": "c"}})
}

// history lists the commits reachable from tip, oldest first, and checks the chain is linear.
func history(t *testing.T, s storage.Storer, tip plumbing.Hash) []*object.Commit {
	t.Helper()
	var out []*object.Commit
	for h := tip; !h.IsZero(); {
		commit, err := object.GetCommit(s, h)
		require.NoError(t, err)
		require.LessOrEqual(t, commit.NumParents(), 1, "archive chain must be linear")
		out = append([]*object.Commit{commit}, out...)
		h = plumbing.ZeroHash
		if commit.NumParents() == 1 {
			h = commit.ParentHashes[0]
		}
	}
	return out
}

func assertNoWorkingAreas(t *testing.T, dir string) {
	t.Helper()
	left, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, left, "working area must be released")
}

func TestCompact_OneCommitPerDay(t *testing.T) {
	r := gittest.NewRepo(t)
	boundary := threeDays(r)
	r.Tag("archive/2025-Q1", boundary)

	c, dir := newCompactor(t, r)
	info, err := c.Compact("archive/2025-Q1", "2025-Q1")
	require.NoError(t, err)

	assert.Equal(t, "refs/heads/archived/2025-Q1", info.RefName)
	assert.Equal(t, boundary.String(), info.Boundary)
	assert.Equal(t, 3, info.CommitsCreated)
	assert.Equal(t, 3, info.EntriesFolded)
	assert.Equal(t, 3, info.Articles)
	assert.True(t, info.Published())

	ref, err := r.Storer.Reference(c.RefName("2025-Q1"))
	require.NoError(t, err)
	assert.Equal(t, info.TipCommit, ref.Hash().String())

	commits := history(t, r.Storer, ref.Hash())
	require.Len(t, commits, 3)
	want := []map[string]string{
		{"notes/a.md": "a"},
		{"notes/a.md": "a", "notes/b.md": "b"},
		{"notes/a.md": "a", "notes/b.md": "b", "notes/c.md": "c"},
	}
	for i, commit := range commits {
		assert.Equal(t, want[i], gittest.TreeFiles(t, r.Storer, commit.Hash), "bucket %d", i)
		assert.Equal(t, DefaultAuthorName, commit.Author.Name)
		assert.Equal(t, DefaultAuthorEmail, commit.Committer.Email)
	}
	assert.Equal(t, "archive: archived(2025-Q1) bucket 2025-01-10 (1 entries)", commits[0].Message)
	assert.True(t, gittest.Day(2025, 1, 12, 9).Equal(commits[2].Committer.When))

	assertNoWorkingAreas(t, dir)
}

func TestCompact_FoldsSameDay(t *testing.T) {
	r := gittest.NewRepo(t)
	r.Commit(gittest.Day(2025, 2, 1, 8), "a", gittest.Change{Write: map[string]string{"a.md": "a"}})
	r.Commit(gittest.Day(2025, 2, 1, 17), "b", gittest.Change{Write: map[string]string{"b.md": "b", ".group.toml": "title = \"Root\"\n"}})
	boundary := r.Commit(gittest.Day(2025, 2, 2, 8), "drop a", gittest.Change{Delete: []string{"a.md"}})

	c, _ := newCompactor(t, r, WithSignature("archiver", "archiver@example.com"))
	info, err := c.Compact(boundary.String(), "feb")
	require.NoError(t, err)
	assert.Equal(t, 2, info.CommitsCreated)
	assert.Equal(t, 1, info.Configs)
	assert.Equal(t, 1, info.Removals)

	ref, err := r.Storer.Reference(c.RefName("feb"))
	require.NoError(t, err)
	commits := history(t, r.Storer, ref.Hash())
	require.Len(t, commits, 2)

	assert.Equal(t, "archiver", commits[0].Author.Name)
	assert.True(t, gittest.Day(2025, 2, 1, 17).Equal(commits[0].Author.When), "latest change of the day")
	assert.Equal(t, "archive: archived(feb) bucket 2025-02-01 (3 entries)", commits[0].Message)
	assert.Equal(t, map[string]string{"a.md": "a", "b.md": "b", ".group.toml": "title = \"Root\"\n"},
		gittest.TreeFiles(t, r.Storer, commits[0].Hash))
	assert.Equal(t, map[string]string{"b.md": "b", ".group.toml": "title = \"Root\"\n"},
		gittest.TreeFiles(t, r.Storer, commits[1].Hash))
}

func TestCompact_Granularity(t *testing.T) {
	tests := []struct {
		name        string
		granularity schema.BucketGranularity
		want        int
	}{
		{"hour", schema.HourBucket, 3},
		{"day", schema.DayBucket, 3},
		{"month", schema.MonthBucket, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gittest.NewRepo(t)
			boundary := threeDays(r)
			c, _ := newCompactor(t, r, WithGranularity(tt.granularity))
			info, err := c.Compact(boundary.String(), "g-"+tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, info.CommitsCreated)
		})
	}
}

func TestCompact_Fidelity(t *testing.T) {
	r := gittest.NewRepo(t)
	r.Commit(gittest.Day(2025, 4, 1, 9), "init", gittest.Change{Write: map[string]string{
		"README.txt":             "ignored",
		".group.toml":            "title = \"Root\"\n",
		"notes/a.md":             "a1",
		"notes/deep/b.markdown":  "b1",
		"notes/deep/.group.toml": "title = \"Deep\"\n",
		"notes/old.md":           "old",
	}})
	r.Commit(gittest.Day(2025, 4, 3, 9), "edit", gittest.Change{
		Write:  map[string]string{"notes/a.md": "a2", "other/x.md": "x"},
		Delete: []string{"notes/old.md"},
	})
	r.Commit(gittest.Day(2025, 4, 3, 10), "drop config", gittest.Change{Delete: []string{"notes/deep/.group.toml"}})
	r.Commit(gittest.Day(2025, 5, 20, 9), "rename", gittest.Change{
		Write:  map[string]string{"archive/a.md": "a2"},
		Delete: []string{"notes/a.md"},
	})
	boundary := r.Commit(gittest.Day(2025, 6, 2, 9), "touch", gittest.Change{Write: map[string]string{"notes/deep/b.markdown": "b2"}})

	c, _ := newCompactor(t, r)
	info, err := c.Compact(boundary.String(), "2025-Q2")
	require.NoError(t, err)
	assert.Equal(t, 4, info.CommitsCreated)

	want := map[string]string{}
	for p, body := range r.Files(boundary) {
		if content.Classify(p) != schema.IgnoredContent {
			want[p] = body
		}
	}
	tip := plumbing.NewHash(info.TipCommit)
	assert.Equal(t, want, gittest.TreeFiles(t, r.Storer, tip))
	assert.Len(t, history(t, r.Storer, tip), 4)
}

func TestCompact_WritesRegularModes(t *testing.T) {
	r := gittest.NewRepo(t)
	r.Commit(gittest.Day(2025, 4, 1, 9), "init", gittest.Change{Write: map[string]string{"notes/run.md": "run"}})
	boundary := r.Commit(gittest.Day(2025, 4, 2, 9), "chmod", gittest.Change{Mode: map[string]filemode.FileMode{"notes/run.md": filemode.Executable}})

	c, _ := newCompactor(t, r)
	info, err := c.Compact(boundary.String(), "2025-Q2")
	require.NoError(t, err)

	commit, err := object.GetCommit(r.Storer, plumbing.NewHash(info.TipCommit))
	require.NoError(t, err)
	f, err := commit.File("notes/run.md")
	require.NoError(t, err)
	assert.Equal(t, filemode.Regular, f.Mode, "archived entries carry content only")
}

func TestCompact_NothingToArchive(t *testing.T) {
	r := gittest.NewRepo(t)
	boundary := r.Commit(gittest.Day(2025, 1, 1, 0), "docs", gittest.Change{Write: map[string]string{"README.txt": "hi"}})

	c, dir := newCompactor(t, r)
	info, err := c.Compact(boundary.String(), "empty")
	require.NoError(t, err)
	assert.Zero(t, info.CommitsCreated)
	assert.False(t, info.Published())
	assert.Empty(t, info.TipCommit)

	_, err = r.Storer.Reference(c.RefName("empty"))
	assert.ErrorIs(t, err, plumbing.ErrReferenceNotFound)
	assertNoWorkingAreas(t, dir)
}

func TestCompact_Rerun(t *testing.T) {
	r := gittest.NewRepo(t)
	boundary := threeDays(r)
	c, _ := newCompactor(t, r)

	first, err := c.Compact(boundary.String(), "q")
	require.NoError(t, err)
	second, err := c.Compact(boundary.String(), "q")
	require.NoError(t, err)
	assert.Equal(t, first.TipCommit, second.TipCommit, "same history folds to the same chain")

	later := r.Commit(gittest.Day(2025, 1, 20, 9), "d", gittest.Change{Write: map[string]string{"notes/d.md": "d"}})
	third, err := c.Compact(later.String(), "q")
	require.NoError(t, err)
	assert.Equal(t, 4, third.CommitsCreated)

	ref, err := r.Storer.Reference(c.RefName("q"))
	require.NoError(t, err)
	assert.Equal(t, third.TipCommit, ref.Hash().String())
}

func TestCompact_TreeWriteFailure(t *testing.T) {
	tests := []struct {
		name     string
		existing bool
	}{
		{"no previous archive", false},
		{"previous archive kept", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := newFaultyStorage()
			r := gittest.NewRepoWithStorer(t, fs)
			boundary := threeDays(r)

			c, dir := newCompactor(t, r)
			refName := c.RefName("2025-Q1")
			if tt.existing {
				require.NoError(t, fs.SetReference(plumbing.NewHashReference(refName, r.Commits[0])))
			}

			fs.armed = true
			fs.failTreeAfterCommits = 1
			info, err := c.Compact(boundary.String(), "2025-Q1")
			require.Error(t, err)
			assert.Nil(t, info)

			var ae *Error
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, 1, ae.Bucket)
			assert.Equal(t, 0, ae.LastCommitted)
			assert.Equal(t, StepBucketed, ae.Step)
			assert.ErrorIs(t, err, ErrTreeWrite)
			assert.ErrorIs(t, err, errDiskFull)
			assert.Contains(t, err.Error(), "at bucket 1")

			ref, refErr := fs.Reference(refName)
			if tt.existing {
				require.NoError(t, refErr)
				assert.Equal(t, r.Commits[0], ref.Hash())
			} else {
				assert.ErrorIs(t, refErr, plumbing.ErrReferenceNotFound)
			}
			assertNoWorkingAreas(t, dir)
		})
	}
}

func TestCompact_ConcurrentReferenceUpdate(t *testing.T) {
	tests := []struct {
		name     string
		existing bool
	}{
		{"created during run", false},
		{"moved during run", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := newFaultyStorage()
			r := gittest.NewRepoWithStorer(t, fs)
			boundary := threeDays(r)

			c, _ := newCompactor(t, r)
			refName := c.RefName("race")
			if tt.existing {
				require.NoError(t, fs.SetReference(plumbing.NewHashReference(refName, r.Commits[0])))
			}
			fs.armed = true
			fs.onCommit = func() {
				_ = fs.Storage.SetReference(plumbing.NewHashReference(refName, r.Commits[1]))
			}

			_, err := c.Compact(boundary.String(), "race")
			var ae *Error
			require.ErrorAs(t, err, &ae)
			assert.ErrorIs(t, err, ErrReferencePublish)
			assert.ErrorIs(t, err, storage.ErrReferenceHasChanged)
			assert.Equal(t, StepCommitChainBuilt, ae.Step)
			assert.Equal(t, -1, ae.Bucket)
			assert.Equal(t, 2, ae.LastCommitted)

			ref, err := fs.Reference(refName)
			require.NoError(t, err)
			assert.Equal(t, r.Commits[1], ref.Hash(), "concurrent value wins")
		})
	}
}

func TestCompact_UnresolvedBoundary(t *testing.T) {
	r := gittest.NewRepo(t)
	threeDays(r)

	c, dir := newCompactor(t, r)
	_, err := c.Compact("archive/1999-Q1", "1999-Q1")
	var ae *Error
	require.ErrorAs(t, err, &ae)
	assert.ErrorIs(t, err, ErrUnresolvedReference)
	assert.Equal(t, StepStart, ae.Step)
	assert.Equal(t, -1, ae.Bucket)
	assert.Equal(t, -1, ae.LastCommitted)
	assertNoWorkingAreas(t, dir)
}

func TestCompact_ContentReadFailure(t *testing.T) {
	r := gittest.NewRepo(t)
	r.Commit(gittest.Day(2025, 1, 1, 0), "ok", gittest.Change{Write: map[string]string{"a.md": "a"}})
	boundary := r.Commit(gittest.Day(2025, 1, 2, 0), "bin", gittest.Change{Write: map[string]string{"b.md": "b\x00b"}})

	c, dir := newCompactor(t, r)
	_, err := c.Compact(boundary.String(), "bin")
	var ae *Error
	require.ErrorAs(t, err, &ae)
	assert.ErrorIs(t, err, ErrContentRead)
	assert.Equal(t, StepWorkingAreaAcquired, ae.Step)

	_, err = r.Storer.Reference(c.RefName("bin"))
	assert.ErrorIs(t, err, plumbing.ErrReferenceNotFound)
	assertNoWorkingAreas(t, dir)
}

func TestCompact_InvalidLabel(t *testing.T) {
	r := gittest.NewRepo(t)
	boundary := threeDays(r)

	c, _ := newCompactor(t, r)
	_, err := c.Compact(boundary.String(), "bad label")
	assert.ErrorIs(t, err, ErrInvalidLabel)
}

func TestCompact_Timing(t *testing.T) {
	r := gittest.NewRepo(t)
	boundary := threeDays(r)

	now := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		now = now.Add(250 * time.Millisecond)
		return now
	}
	c, _ := newCompactor(t, r, WithClock(clock), WithRefPrefix("refs/archive/"))
	info, err := c.Compact(boundary.String(), "timed")
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, info.Duration)
	assert.Equal(t, "refs/archive/timed", info.RefName)
}

func TestValidateLabel(t *testing.T) {
	valid := []string{"2025-Q1", "team/2025-Q1", "q_1"}
	for _, label := range valid {
		assert.NoError(t, ValidateLabel(label), label)
	}

	invalid := []string{"", "/q", "q/", ".q", "q.", "q.lock", "a..b", "a//b", "a@{b", "a b", "a~b", "a^b", "a:b", "a?b", "a*b", "a[b", "a\\b", "a\tb"}
	for _, label := range invalid {
		assert.Error(t, ValidateLabel(label), label)
	}
}
