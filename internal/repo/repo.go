package repo

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pilothouse-sh/pilothouse/internal/logger"
	"github.com/pilothouse-sh/pilothouse/internal/paths"
)

var fullNamePattern = regexp.MustCompile(`^[\w.\-]+/[\w.\-]+$`)

// ValidateFullName checks an owner/repo slug.
func ValidateFullName(fullName string) error {
	if !fullNamePattern.MatchString(fullName) {
		return fmt.Errorf("invalid repository %q: expected format owner/repo", fullName)
	}
	return nil
}

// LocalPath is the canonical clone location for a repository, under the
// cache directory. One physical path per repo; the database enforces that no
// two repo rows claim it.
func LocalPath(fullName string) (string, error) {
	cacheDir, err := paths.CacheDir()
	if err != nil {
		return "", fmt.Errorf("getting cache directory: %w", err)
	}
	return filepath.Join(cacheDir, "repos", fullName), nil
}

// EnsureCloned makes sure a clone exists at localPath, cloning on first use
// and fast-forwarding on subsequent ones.
func EnsureCloned(ctx context.Context, cloneURL, localPath string) error {
	if _, err := os.Stat(filepath.Join(localPath, ".git")); err == nil {
		return pull(ctx, localPath)
	}
	return clone(ctx, cloneURL, localPath)
}

// CurrentBranch returns the checked-out branch of a clone.
func CurrentBranch(ctx context.Context, localPath string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--abbrev-ref", "HEAD")
	cmd.Dir = localPath
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("resolving current branch: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// CreateBranch creates and switches to a new branch in the clone. The name
// should already have been through SanitizeBranchName or GenerateDefaultName.
func CreateBranch(ctx context.Context, localPath, branch string) error {
	cmd := exec.CommandContext(ctx, "git", "switch", "-c", branch)
	cmd.Dir = localPath
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("creating branch %s: %s", branch, strings.TrimSpace(string(output)))
	}
	return nil
}

func clone(ctx context.Context, cloneURL, localPath string) error {
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}

	logger.Info("cloning repository", "url", cloneURL, "path", localPath)
	cmd := exec.CommandContext(ctx, "git", "clone", cloneURL, localPath)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("cloning repository: %s", strings.TrimSpace(string(output)))
	}
	return nil
}

func pull(ctx context.Context, localPath string) error {
	logger.Info("updating repository", "path", localPath)
	cmd := exec.CommandContext(ctx, "git", "pull", "--ff-only")
	cmd.Dir = localPath
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("pulling repository (try deleting %s and restarting): %s", localPath, strings.TrimSpace(string(output)))
	}
	return nil
}
