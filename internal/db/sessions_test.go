package db

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilothouse-sh/pilothouse/internal/models"
)

func TestCreateSessionDefaults(t *testing.T) {
	q := newTestQueries(t)

	session, err := q.CreateSession(CreateSessionParams{Title: "explore the parser"})
	require.NoError(t, err)

	_, err = uuid.Parse(session.ID)
	assert.NoError(t, err, "session id should be a uuid")
	assert.Equal(t, models.StatusIdle, session.Status)
	assert.Equal(t, "explore the parser", session.Title)
	assert.Equal(t, session.CreatedAt, session.UpdatedAt)
	assert.Nil(t, session.ClaudeSessionID)
	assert.Nil(t, session.CWD)
	assert.Nil(t, session.LastPrompt)
	assert.Nil(t, session.GithubRepoID)
}

func TestCreateSessionRequiresTitle(t *testing.T) {
	q := newTestQueries(t)

	_, err := q.CreateSession(CreateSessionParams{Title: "   "})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from models.Status
		to   models.Status
		ok   bool
	}{
		{models.StatusIdle, models.StatusRunning, true},
		{models.StatusRunning, models.StatusCompleted, true},
		{models.StatusRunning, models.StatusError, true},
		{models.StatusCompleted, models.StatusRunning, true},
		{models.StatusError, models.StatusRunning, true},
		{models.StatusIdle, models.StatusCompleted, false},
		{models.StatusIdle, models.StatusError, false},
		{models.StatusCompleted, models.StatusError, false},
		{models.StatusRunning, models.StatusIdle, false},
	}

	q := newTestQueries(t)
	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			session, err := q.CreateSession(CreateSessionParams{Title: "transition check"})
			require.NoError(t, err)

			// Put the row into the starting state directly; the state
			// machine only guards UpdateSessionStatus.
			_, err = q.db.Exec(`UPDATE sessions SET status = ? WHERE id = ?`, string(tt.from), session.ID)
			require.NoError(t, err)

			err = q.UpdateSessionStatus(session.ID, tt.to)
			if tt.ok {
				require.NoError(t, err)
				got, err := q.GetSession(session.ID)
				require.NoError(t, err)
				assert.Equal(t, tt.to, got.Status)
			} else {
				assert.ErrorIs(t, err, ErrInvalidTransition)
			}
		})
	}
}

func TestUpdateSessionStatusRejectsUnknownStatus(t *testing.T) {
	q := newTestQueries(t)
	session, err := q.CreateSession(CreateSessionParams{Title: "bad status"})
	require.NoError(t, err)

	err = q.UpdateSessionStatus(session.ID, models.Status("paused"))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSessionUpdatesBumpUpdatedAt(t *testing.T) {
	q := newTestQueries(t)
	session, err := q.CreateSession(CreateSessionParams{Title: "before"})
	require.NoError(t, err)

	// Backdate so the bump is observable despite second resolution.
	_, err = q.db.Exec(`UPDATE sessions SET updated_at = '2020-01-01 00:00:00' WHERE id = ?`, session.ID)
	require.NoError(t, err)

	require.NoError(t, q.UpdateSessionTitle(session.ID, "after"))

	got, err := q.GetSession(session.ID)
	require.NoError(t, err)
	assert.Equal(t, "after", got.Title)
	assert.True(t, got.UpdatedAt.After(parseTime("2020-01-01 00:00:00")))
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt), "updatedAt never precedes createdAt")
}

func TestSessionOperationsOnUnknownID(t *testing.T) {
	q := newTestQueries(t)

	_, err := q.GetSession("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, q.UpdateSessionTitle("missing", "title"), ErrNotFound)
	assert.ErrorIs(t, q.UpdateSessionPrompt("missing", "prompt"), ErrNotFound)
	assert.ErrorIs(t, q.UpdateSessionCWD("missing", "/tmp"), ErrNotFound)
	assert.ErrorIs(t, q.UpdateSessionTools("missing", []string{"Read"}), ErrNotFound)
	assert.ErrorIs(t, q.DeleteSession("missing"), ErrNotFound)
}

func TestAllowedToolsRoundTrip(t *testing.T) {
	q := newTestQueries(t)

	session, err := q.CreateSession(CreateSessionParams{
		Title:        "with tools",
		AllowedTools: []string{"Read", "Glob", "Grep"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Read", "Glob", "Grep"}, session.AllowedTools)

	require.NoError(t, q.UpdateSessionTools(session.ID, []string{"Read"}))
	got, err := q.GetSession(session.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Read"}, got.AllowedTools)
}

func TestUpdateSessionCWDKeepsTools(t *testing.T) {
	q := newTestQueries(t)

	session, err := q.CreateSession(CreateSessionParams{
		Title:        "workspace",
		AllowedTools: []string{"Read", "Grep"},
	})
	require.NoError(t, err)

	require.NoError(t, q.UpdateSessionCWD(session.ID, "/tmp/elsewhere"))

	got, err := q.GetSession(session.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CWD)
	assert.Equal(t, "/tmp/elsewhere", *got.CWD)
	assert.Equal(t, []string{"Read", "Grep"}, got.AllowedTools, "cwd update must not touch the tool list")

	require.NoError(t, q.UpdateSessionTools(session.ID, []string{"Read"}))
	got, err = q.GetSession(session.ID)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/elsewhere", *got.CWD, "tool update must not touch cwd")
	assert.Equal(t, []string{"Read"}, got.AllowedTools)
}

func TestListSessionsEmptyIsNotNil(t *testing.T) {
	q := newTestQueries(t)

	sessions, err := q.ListSessions()
	require.NoError(t, err)
	assert.NotNil(t, sessions)
	assert.Empty(t, sessions)
}

func TestDeleteSessionCascadesMessages(t *testing.T) {
	q := newTestQueries(t)

	doomed, err := q.CreateSession(CreateSessionParams{Title: "doomed"})
	require.NoError(t, err)
	survivor, err := q.CreateSession(CreateSessionParams{Title: "survivor"})
	require.NoError(t, err)

	for range 3 {
		_, err := q.AppendMessage(doomed.ID, `{"type":"assistant"}`)
		require.NoError(t, err)
	}
	_, err = q.AppendMessage(survivor.ID, `{"type":"user"}`)
	require.NoError(t, err)

	require.NoError(t, q.DeleteSession(doomed.ID))

	var count int
	require.NoError(t, q.db.QueryRow(`SELECT COUNT(*) FROM messages WHERE session_id = ?`, doomed.ID).Scan(&count))
	assert.Zero(t, count, "cascade should remove the session's messages")

	remaining, err := q.ListMessages(survivor.ID)
	require.NoError(t, err)
	assert.Len(t, remaining, 1, "unrelated sessions keep their messages")
}

func TestDeleteRepoNullsSessionReference(t *testing.T) {
	q := newTestQueries(t)
	seedUser(t, q, "user-1")

	created, err := q.CreateRepo(CreateRepoParams{
		UserID:       "user-1",
		RepoFullName: "acme/widgets",
		RepoURL:      "https://github.com/acme/widgets",
		CloneURL:     "https://github.com/acme/widgets.git",
		LocalPath:    "/clones/acme/widgets",
	})
	require.NoError(t, err)

	session, err := q.CreateSession(CreateSessionParams{Title: "linked"})
	require.NoError(t, err)
	require.NoError(t, q.AttachSessionRepo(session.ID, created.ID))

	require.NoError(t, q.DeleteRepo(created.ID))

	got, err := q.GetSession(session.ID)
	require.NoError(t, err)
	assert.Nil(t, got.GithubRepoID, "repo deletion nulls the reference")
}

func TestDeleteUserCascadesSessionsAndRepos(t *testing.T) {
	q := newTestQueries(t)
	seedUser(t, q, "user-1")

	userID := "user-1"
	_, err := q.CreateRepo(CreateRepoParams{
		UserID:       userID,
		RepoFullName: "acme/widgets",
		RepoURL:      "https://github.com/acme/widgets",
		CloneURL:     "https://github.com/acme/widgets.git",
		LocalPath:    "/clones/acme/widgets",
	})
	require.NoError(t, err)
	_, err = q.CreateSession(CreateSessionParams{Title: "owned", UserID: &userID})
	require.NoError(t, err)

	_, err = q.db.Exec(`DELETE FROM users WHERE id = ?`, userID)
	require.NoError(t, err)

	var sessions, repos int
	require.NoError(t, q.db.QueryRow(`SELECT COUNT(*) FROM sessions WHERE user_id = ?`, userID).Scan(&sessions))
	require.NoError(t, q.db.QueryRow(`SELECT COUNT(*) FROM github_repos WHERE user_id = ?`, userID).Scan(&repos))
	assert.Zero(t, sessions)
	assert.Zero(t, repos)
}

func TestAttachDetachSessionRepo(t *testing.T) {
	q := newTestQueries(t)
	seedUser(t, q, "user-1")

	created, err := q.CreateRepo(CreateRepoParams{
		UserID:       "user-1",
		RepoFullName: "acme/widgets",
		RepoURL:      "https://github.com/acme/widgets",
		CloneURL:     "https://github.com/acme/widgets.git",
		LocalPath:    "/clones/acme/widgets",
	})
	require.NoError(t, err)

	session, err := q.CreateSession(CreateSessionParams{Title: "workbench"})
	require.NoError(t, err)

	assert.ErrorIs(t, q.AttachSessionRepo(session.ID, "missing-repo"), ErrNotFound)

	require.NoError(t, q.AttachSessionRepo(session.ID, created.ID))
	got, err := q.GetSession(session.ID)
	require.NoError(t, err)
	require.NotNil(t, got.GithubRepoID)
	assert.Equal(t, created.ID, *got.GithubRepoID)

	require.NoError(t, q.DetachSessionRepo(session.ID))
	got, err = q.GetSession(session.ID)
	require.NoError(t, err)
	assert.Nil(t, got.GithubRepoID)

	// The repo row itself is untouched by attach/detach.
	_, err = q.GetRepo(created.ID)
	assert.NoError(t, err)
}
