package github

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
)

// Repo is the metadata needed to register a clone, fetched through the gh
// CLI so pilothouse never handles GitHub credentials itself.
type Repo struct {
	FullName  string `json:"nameWithOwner"`
	URL       string `json:"url"`
	SSHURL    string `json:"sshUrl"`
	IsPrivate bool   `json:"isPrivate"`
	Branch    struct {
		Name string `json:"name"`
	} `json:"defaultBranchRef"`
}

// CloneURL returns the HTTPS clone address for the repository.
func (r *Repo) CloneURL() string {
	return r.URL + ".git"
}

// ViewRepo looks up repository metadata for an owner/repo slug.
func ViewRepo(ctx context.Context, fullName string) (*Repo, error) {
	cmd := exec.CommandContext(ctx, "gh", "repo", "view", fullName,
		"--json", "nameWithOwner,url,sshUrl,isPrivate,defaultBranchRef",
	)

	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("looking up %s: %s", fullName, string(exitErr.Stderr))
		}
		return nil, fmt.Errorf("looking up %s: %w", fullName, err)
	}

	var repo Repo
	if err := json.Unmarshal(output, &repo); err != nil {
		return nil, fmt.Errorf("parsing gh output for %s: %w", fullName, err)
	}
	return &repo, nil
}

func CheckAuth(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "gh", "auth", "status")
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("not authenticated with GitHub: %s\nRun: gh auth login", string(output))
	}
	return nil
}
