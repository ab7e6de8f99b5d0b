package contract

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/go-git/go-git/v5"
)

// OpenRepository opens the repository at path. A bare repository must be named directly;
// a working tree may be named by any directory inside it.
func OpenRepository(path string) (*git.Repository, error) {
	repo, err := git.PlainOpen(path)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		repo, err = git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open git repository at %q: %w. If this is not a Git repository, verify the path or run 'git init --bare'", path, err)
	}
	return repo, nil
}

// RepoKey identifies a repository in the entry store by its cleaned absolute path.
func RepoKey(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}
