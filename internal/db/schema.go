package db

// Table shapes and constraints. The migration runner executes these in order;
// every statement is conditional, so re-running is a no-op. Post-creation
// evolution happens exclusively through columnMigrations in migrate.go.
//
// The auth collaborator keeps its own tables (user, session, account,
// verification) in the same file; this core never creates or touches them.

const createUsers = `
CREATE TABLE IF NOT EXISTS users (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL DEFAULT '',
    email       TEXT NOT NULL UNIQUE,
    created_at  TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
);`

const createGithubRepos = `
CREATE TABLE IF NOT EXISTS github_repos (
    id              TEXT PRIMARY KEY,
    user_id         TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    repo_full_name  TEXT NOT NULL,
    repo_url        TEXT NOT NULL,
    clone_url       TEXT NOT NULL,
    local_path      TEXT NOT NULL UNIQUE,
    branch          TEXT NOT NULL DEFAULT 'main',
    last_synced     TEXT,
    is_private      INTEGER NOT NULL DEFAULT 0,
    created_at      TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at      TEXT NOT NULL DEFAULT (datetime('now'))
);`

const createSessions = `
CREATE TABLE IF NOT EXISTS sessions (
    id                 TEXT PRIMARY KEY,
    title              TEXT NOT NULL,
    claude_session_id  TEXT,
    status             TEXT NOT NULL DEFAULT 'idle'
                       CHECK (status IN ('idle', 'running', 'completed', 'error')),
    cwd                TEXT,
    allowed_tools      TEXT, -- JSON array of tool names
    last_prompt        TEXT,
    user_id            TEXT REFERENCES users(id) ON DELETE CASCADE,
    github_repo_id     TEXT REFERENCES github_repos(id) ON DELETE SET NULL,
    created_at         TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at         TEXT NOT NULL DEFAULT (datetime('now'))
);`

const createMessages = `
CREATE TABLE IF NOT EXISTS messages (
    id          TEXT PRIMARY KEY,
    session_id  TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    data        TEXT NOT NULL,
    created_at  TEXT NOT NULL DEFAULT (datetime('now'))
);`

var schemaStatements = []struct {
	name string
	ddl  string
}{
	{"users", createUsers},
	{"github_repos", createGithubRepos},
	{"sessions", createSessions},
	{"messages", createMessages},
	{"idx_github_repos_user", `CREATE INDEX IF NOT EXISTS idx_github_repos_user ON github_repos(user_id);`},
	{"idx_sessions_updated", `CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at);`},
	{"idx_sessions_repo", `CREATE INDEX IF NOT EXISTS idx_sessions_repo ON sessions(github_repo_id);`},
	{"idx_messages_session_created", `CREATE INDEX IF NOT EXISTS idx_messages_session_created ON messages(session_id, created_at);`},
}
