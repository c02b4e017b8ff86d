// Package gitsource keeps local checkouts of repositories that hold study
// plan files.
package gitsource

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
)

// CachePath is where url is checked out under root.
func CachePath(root, url string) string {
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(root, hex.EncodeToString(sum[:])[:16])
}

// Sync clones a git repository if it doesn't exist at the given path,
// or pulls the latest changes if it does.
func Sync(ctx context.Context, url, localPath string, logger *slog.Logger) error {
	_, err := os.Stat(localPath)
	switch {
	case os.IsNotExist(err):
		logger.Info("cloning plan repository", "url", url, "path", localPath)
		if _, err := git.PlainCloneContext(ctx, localPath, false, &git.CloneOptions{URL: url}); err != nil {
			return fmt.Errorf("failed to clone repo %s: %w", url, err)
		}
	case err == nil:
		logger.Debug("pulling plan repository", "path", localPath)
		repo, err := git.PlainOpen(localPath)
		if err != nil {
			return fmt.Errorf("failed to open existing repo at %s: %w", localPath, err)
		}
		worktree, err := repo.Worktree()
		if err != nil {
			return fmt.Errorf("failed to get worktree for repo at %s: %w", localPath, err)
		}
		err = worktree.PullContext(ctx, &git.PullOptions{RemoteName: "origin"})
		if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
			return fmt.Errorf("failed to pull changes for repo at %s: %w", localPath, err)
		}
	default:
		return fmt.Errorf("error checking path %s: %w", localPath, err)
	}
	return nil
}

// File syncs url into root and returns the local path of name inside the
// checkout. name must stay within the repository.
func File(ctx context.Context, url, root, name string, logger *slog.Logger) (string, error) {
	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("plan path %q escapes the repository", name)
	}
	dir := CachePath(root, url)
	if err := os.MkdirAll(root, 0o700); err != nil {
		return "", fmt.Errorf("mkdir: %w", err)
	}
	if err := Sync(ctx, url, dir, logger); err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}
