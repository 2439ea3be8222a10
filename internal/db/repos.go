package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pilothouse-sh/pilothouse/internal/models"
)

const repoColumns = `id, user_id, repo_full_name, repo_url, clone_url, local_path, branch, last_synced, is_private, created_at, updated_at`

type CreateRepoParams struct {
	UserID       string
	RepoFullName string
	RepoURL      string
	CloneURL     string
	LocalPath    string
	Branch       string
	IsPrivate    bool
}

// CreateRepo records a local clone of an external repository. At most one
// repo row may claim a given local path; a second claim fails with
// ErrConflict rather than upserting.
func (q *Queries) CreateRepo(p CreateRepoParams) (*models.GithubRepo, error) {
	switch {
	case strings.TrimSpace(p.UserID) == "":
		return nil, fmt.Errorf("creating repo: user id is required: %w", ErrValidation)
	case strings.TrimSpace(p.RepoFullName) == "":
		return nil, fmt.Errorf("creating repo: full name is required: %w", ErrValidation)
	case strings.TrimSpace(p.LocalPath) == "":
		return nil, fmt.Errorf("creating repo: local path is required: %w", ErrValidation)
	}
	if p.Branch == "" {
		p.Branch = "main"
	}

	id := uuid.New().String()
	ts := now()
	_, err := q.db.Exec(
		`INSERT INTO github_repos (id, user_id, repo_full_name, repo_url, clone_url, local_path, branch, is_private, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, p.UserID, p.RepoFullName, p.RepoURL, p.CloneURL, p.LocalPath, p.Branch, p.IsPrivate, ts, ts,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("creating repo: local path %q already in use: %w", p.LocalPath, ErrConflict)
		}
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("creating repo: user %s: %w", p.UserID, ErrNotFound)
		}
		return nil, fmt.Errorf("creating repo %s: %w", p.RepoFullName, err)
	}
	return q.GetRepo(id)
}

func (q *Queries) GetRepo(id string) (*models.GithubRepo, error) {
	row := q.db.QueryRow(`SELECT `+repoColumns+` FROM github_repos WHERE id = ?`, id)
	r, err := scanRepo(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("getting repo %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting repo %s: %w", id, err)
	}
	return r, nil
}

func (q *Queries) GetRepoByLocalPath(localPath string) (*models.GithubRepo, error) {
	row := q.db.QueryRow(`SELECT `+repoColumns+` FROM github_repos WHERE local_path = ?`, localPath)
	r, err := scanRepo(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("getting repo at %s: %w", localPath, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting repo at %s: %w", localPath, err)
	}
	return r, nil
}

// ListRepos returns a user's repos, most recently updated first.
func (q *Queries) ListRepos(userID string) ([]models.GithubRepo, error) {
	rows, err := q.db.Query(
		`SELECT `+repoColumns+` FROM github_repos WHERE user_id = ? ORDER BY updated_at DESC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing repos for user %s: %w", userID, err)
	}
	defer rows.Close()

	results := []models.GithubRepo{}
	for rows.Next() {
		r, err := scanRepo(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning repo: %w", err)
		}
		results = append(results, *r)
	}
	return results, rows.Err()
}

// UpdateRepoSynced records a completed sync of the clone on the given branch.
func (q *Queries) UpdateRepoSynced(id, branch string, syncedAt time.Time) error {
	res, err := q.db.Exec(
		`UPDATE github_repos SET branch = ?, last_synced = ?, updated_at = ? WHERE id = ?`,
		branch, syncedAt.UTC().Format(time.DateTime), now(), id,
	)
	if err != nil {
		return fmt.Errorf("updating repo %s: %w", id, err)
	}
	return requireRow(res, "repo", id)
}

// DeleteRepo removes the repo row. Sessions pointing at it keep existing;
// their reference is nulled by the foreign key.
func (q *Queries) DeleteRepo(id string) error {
	res, err := q.db.Exec(`DELETE FROM github_repos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting repo %s: %w", id, err)
	}
	return requireRow(res, "repo", id)
}

func scanRepo(row rowScanner) (*models.GithubRepo, error) {
	var r models.GithubRepo
	var lastSynced *string
	var createdAt, updatedAt string
	err := row.Scan(
		&r.ID, &r.UserID, &r.RepoFullName, &r.RepoURL, &r.CloneURL,
		&r.LocalPath, &r.Branch, &lastSynced, &r.IsPrivate,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.LastSynced = parseTimePtr(lastSynced)
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)
	return &r, nil
}
