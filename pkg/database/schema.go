package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// schema is written once for both dialects; {{ts}} expands to the
// dialect's timestamp column type.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('user', 'admin', 'super-admin')),
		created_at {{ts}} NOT NULL,
		updated_at {{ts}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		owner_id TEXT NOT NULL REFERENCES users(id),
		created_at {{ts}} NOT NULL,
		updated_at {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_projects_owner ON projects(owner_id)`,
	`CREATE TABLE IF NOT EXISTS project_members (
		project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		access TEXT NOT NULL CHECK (access IN ('owner', 'admin', 'member')),
		created_at {{ts}} NOT NULL,
		PRIMARY KEY (project_id, user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_project_members_user ON project_members(user_id)`,
	// one owner row per project
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_project_members_owner ON project_members(project_id) WHERE access = 'owner'`,
	`CREATE TABLE IF NOT EXISTS project_invitations (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		inviter_id TEXT NOT NULL REFERENCES users(id),
		email TEXT NOT NULL,
		invitee_id TEXT REFERENCES users(id) ON DELETE SET NULL,
		access TEXT NOT NULL CHECK (access IN ('admin', 'member')),
		status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'accepted', 'declined')),
		created_at {{ts}} NOT NULL,
		responded_at {{ts}}
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_project_invitations_pending ON project_invitations(project_id, email) WHERE status = 'pending'`,
	`CREATE INDEX IF NOT EXISTS idx_project_invitations_email ON project_invitations(email)`,
	`CREATE INDEX IF NOT EXISTS idx_project_invitations_invitee ON project_invitations(invitee_id)`,
	`CREATE TABLE IF NOT EXISTS phases (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		created_at {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_phases_project ON phases(project_id)`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		phase_id TEXT NOT NULL REFERENCES phases(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'complete', 'canceled')),
		assigned_to TEXT NOT NULL REFERENCES users(id),
		created_by TEXT NOT NULL REFERENCES users(id),
		created_at {{ts}} NOT NULL,
		updated_at {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_phase ON tasks(phase_id)`,
	`CREATE TABLE IF NOT EXISTS pending_updates (
		id TEXT PRIMARY KEY,
		task_id TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		requested_by TEXT NOT NULL REFERENCES users(id),
		update_description TEXT NOT NULL,
		new_status TEXT NOT NULL CHECK (new_status IN ('active', 'complete', 'canceled')),
		created_at {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pending_updates_task ON pending_updates(task_id)`,
}

func (s *SQLDatabase) timestampType() string {
	if s.dialect == dialectPostgres {
		return "TIMESTAMPTZ"
	}
	return "DATETIME"
}

// Migrate 创建或更新表结构（幂等）
func (s *SQLDatabase) Migrate(ctx context.Context) error {
	return s.InTx(ctx, func(tx DatabaseInterface) error {
		store := tx.(*SQLDatabase)
		for i, stmt := range schema {
			stmt = strings.ReplaceAll(stmt, "{{ts}}", s.timestampType())
			if _, err := store.exec(ctx, stmt); err != nil {
				return fmt.Errorf("migrate statement %d: %w", i+1, err)
			}
		}
		slog.Debug("schema migrated", slog.String("dialect", s.dialect.String()), slog.Int("statements", len(schema)))
		return nil
	})
}
