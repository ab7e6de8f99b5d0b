package trigger

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/huangsam/gitnote/core/archive"
	"github.com/huangsam/gitnote/internal/gittest"
	"github.com/huangsam/gitnote/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var aprilTenth = time.Date(2025, 4, 10, 6, 0, 0, 0, time.UTC)

// quarterRepo has two commits in Q1 2025 and one in Q2.
func quarterRepo(t *testing.T) *gittest.Repo {
	r := gittest.NewRepo(t)
	r.Commit(gittest.Day(2025, 3, 10, 9), "a", gittest.Change{Write: map[string]string{"notes/a.md": "a"}})
	r.Commit(gittest.Day(2025, 3, 30, 9), "b", gittest.Change{Write: map[string]string{"notes/b.md": "b"}})
	r.Commit(gittest.Day(2025, 4, 5, 9), "c", gittest.Change{Write: map[string]string{"notes/c.md": "c"}})
	return r
}

func openerOf(repo *git.Repository) Opener {
	return func() (*git.Repository, error) { return repo, nil }
}

func compacterOf(c Compacter) CompacterFunc {
	return func(*git.Repository) Compacter { return c }
}

func archiveCompacter(t *testing.T) CompacterFunc {
	dir := t.TempDir()
	return func(repo *git.Repository) Compacter {
		return archive.New(repo, archive.WithTempDir(dir))
	}
}

func TestScheduler_CheckArchivesPreviousQuarter(t *testing.T) {
	r := quarterRepo(t)
	s := NewScheduler(openerOf(r.Repo), archiveCompacter(t), WithTagger("bot", "bot@example.com"))

	info, err := s.Check(aprilTenth)
	require.NoError(t, err)
	assert.Equal(t, "2025-Q1", info.Label)
	assert.Equal(t, 2, info.CommitsCreated)
	assert.Equal(t, r.Commits[1].String(), info.Boundary)

	ref, err := r.Repo.Tag("archive/2025-Q1")
	require.NoError(t, err)
	tag, err := r.Repo.TagObject(ref.Hash())
	require.NoError(t, err)
	assert.Equal(t, r.Commits[1], tag.Target)
	assert.Equal(t, "bot", tag.Tagger.Name)
	assert.Contains(t, tag.Message, "archive: auto tag archive/2025-Q1")

	_, err = s.Check(aprilTenth.Add(time.Hour))
	assert.ErrorIs(t, err, ErrNothingToArchive, "archive reference already exists")
}

func TestScheduler_CheckRetriesFailedCompaction(t *testing.T) {
	r := quarterRepo(t)
	m := &MockCompacter{}
	m.On("Compact", "archive/2025-Q1", "2025-Q1").Return(nil, errors.New("boom")).Once()
	m.On("Compact", "archive/2025-Q1", "2025-Q1").Return(&schema.ArchivedInfo{Label: "2025-Q1"}, nil).Once()
	s := NewScheduler(openerOf(r.Repo), compacterOf(m))

	_, err := s.Check(aprilTenth)
	assert.EqualError(t, err, "boom")

	info, err := s.Check(aprilTenth)
	require.NoError(t, err)
	assert.Equal(t, "2025-Q1", info.Label)
	m.AssertExpectations(t)
}

func TestScheduler_CheckNothingBeforeQuarterEnd(t *testing.T) {
	r := gittest.NewRepo(t)
	r.Commit(gittest.Day(2025, 4, 2, 9), "late", gittest.Change{Write: map[string]string{"a.md": "a"}})
	m := &MockCompacter{}
	s := NewScheduler(openerOf(r.Repo), compacterOf(m))

	_, err := s.Check(aprilTenth)
	assert.ErrorIs(t, err, ErrNothingToArchive)
	_, err = r.Repo.Tag("archive/2025-Q1")
	assert.Error(t, err, "no tag without a boundary commit")
	m.AssertNotCalled(t, "Compact", mock.Anything, mock.Anything)
}

func TestScheduler_CheckEmptyRepository(t *testing.T) {
	r := gittest.NewRepo(t)
	s := NewScheduler(openerOf(r.Repo), compacterOf(&MockCompacter{}))

	_, err := s.Check(aprilTenth)
	assert.ErrorIs(t, err, ErrNothingToArchive)
}

func TestScheduler_CheckUsesExistingTag(t *testing.T) {
	r := quarterRepo(t)
	r.Tag("archive/2025-Q1", r.Commits[0])
	m := &MockCompacter{}
	m.On("Compact", "archive/2025-Q1", "2025-Q1").Return(&schema.ArchivedInfo{}, nil).Once()
	s := NewScheduler(openerOf(r.Repo), compacterOf(m))

	_, err := s.Check(aprilTenth)
	require.NoError(t, err)

	ref, err := r.Repo.Tag("archive/2025-Q1")
	require.NoError(t, err)
	assert.Equal(t, r.Commits[0], ref.Hash(), "existing tag is left alone")
	m.AssertExpectations(t)
}

func TestScheduler_TipRef(t *testing.T) {
	r := quarterRepo(t)
	require.NoError(t, r.Storer.SetReference(plumbing.NewHashReference("refs/heads/old", r.Commits[0])))
	m := &MockCompacter{}
	m.On("Compact", "archive/2025-Q1", "2025-Q1").Return(&schema.ArchivedInfo{}, nil).Once()
	s := NewScheduler(openerOf(r.Repo), compacterOf(m), WithTipRef("old"))

	_, err := s.Check(aprilTenth)
	require.NoError(t, err)
	ref, err := r.Repo.Tag("archive/2025-Q1")
	require.NoError(t, err)
	tag, err := r.Repo.TagObject(ref.Hash())
	require.NoError(t, err)
	assert.Equal(t, r.Commits[0], tag.Target)
}

func TestScheduler_Run(t *testing.T) {
	r := quarterRepo(t)
	m := &MockCompacter{}
	m.On("Compact", "archive/2025-Q1", "2025-Q1").Return(&schema.ArchivedInfo{Label: "2025-Q1"}, nil)
	s := NewScheduler(openerOf(r.Repo), compacterOf(m),
		WithInterval(10*time.Millisecond),
		WithClock(func() time.Time { return aprilTenth }))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case res := <-s.Results():
		require.NoError(t, res.Err)
		assert.Equal(t, Quarter{2025, 1}, res.Quarter)
		assert.Equal(t, "2025-Q1", res.Info.Label)
		assert.Equal(t, aprilTenth, res.At)
	case <-time.After(5 * time.Second):
		t.Fatal("no result from scheduler")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	for range s.Results() {
		// drain until closed
	}
}

func TestScheduler_CheckOpenFailure(t *testing.T) {
	m := &MockCompacter{}
	s := NewScheduler(func() (*git.Repository, error) { return nil, git.ErrRepositoryNotExists }, compacterOf(m))

	_, err := s.Check(aprilTenth)
	assert.ErrorIs(t, err, git.ErrRepositoryNotExists)
	m.AssertNotCalled(t, "Compact", mock.Anything, mock.Anything)
}

// gitCLI runs git in dir with fixed identity and dates.
func gitCLI(t *testing.T, dir string, when time.Time, args ...string) {
	t.Helper()
	cmd := exec.Command("git", append([]string{"-c", "user.name=t", "-c", "user.email=t@example.com", "-c", "commit.gpgsign=false"}, args...)...)
	cmd.Dir = dir
	date := when.Format(time.RFC3339)
	cmd.Env = append(os.Environ(), "GIT_AUTHOR_DATE="+date, "GIT_COMMITTER_DATE="+date)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
}

func gitCommitFile(t *testing.T, dir string, when time.Time, name, body string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	gitCLI(t, dir, when, "add", name)
	gitCLI(t, dir, when, "commit", "-q", "-m", name)
}

func TestScheduler_CheckSeesNewPackfiles(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
	dir := t.TempDir()
	gitCLI(t, dir, aprilTenth, "init", "-q")
	gitCommitFile(t, dir, gittest.Day(2025, 3, 10, 9), "notes/a.md", "a")
	gitCLI(t, dir, aprilTenth, "repack", "-a", "-d", "-q")

	open := func() (*git.Repository, error) { return git.PlainOpen(dir) }
	s := NewScheduler(open, archiveCompacter(t))

	info, err := s.Check(aprilTenth)
	require.NoError(t, err)
	assert.Equal(t, "2025-Q1", info.Label)
	assert.Equal(t, 1, info.CommitsCreated)

	// Written by another process while the scheduler is alive, then packed.
	gitCommitFile(t, dir, gittest.Day(2025, 5, 2, 9), "notes/b.md", "b")
	gitCLI(t, dir, aprilTenth, "repack", "-d", "-q")

	info, err = s.Check(time.Date(2025, 7, 10, 6, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "2025-Q2", info.Label)
	assert.Equal(t, 2, info.CommitsCreated)
}
