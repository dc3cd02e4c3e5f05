package database

import (
	"context"
	"fmt"

	"taskboard-backend/pkg/models"
)

const projectColumns = `id, title, description, owner_id, created_at, updated_at`

func scanProject(row rowScanner) (*models.Project, error) {
	var p models.Project
	if err := row.Scan(&p.ID, &p.Title, &p.Description, &p.OwnerID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProject 创建项目
func (s *SQLDatabase) CreateProject(ctx context.Context, p *models.Project) error {
	_, err := s.exec(ctx,
		`INSERT INTO projects (`+projectColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, p.Description, p.OwnerID, p.CreatedAt.UTC(), p.UpdatedAt.UTC())
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

// GetProject 获取项目
func (s *SQLDatabase) GetProject(ctx context.Context, id string) (*models.Project, error) {
	p, err := scanProject(s.queryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id))
	if err != nil {
		return nil, notFoundOr(err, "get project")
	}
	return p, nil
}

// UpdateProject 更新项目标题与描述；owner_id 不可变
func (s *SQLDatabase) UpdateProject(ctx context.Context, p *models.Project) error {
	res, err := s.exec(ctx,
		`UPDATE projects SET title = ?, description = ?, updated_at = ? WHERE id = ?`,
		p.Title, p.Description, p.UpdatedAt.UTC(), p.ID)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	return affectedOne(res)
}

// DeleteProject 删除项目及其所有关联数据
func (s *SQLDatabase) DeleteProject(ctx context.Context, id string) error {
	return s.InTx(ctx, func(tx DatabaseInterface) error {
		store := tx.(*SQLDatabase)
		steps := []string{
			`DELETE FROM pending_updates WHERE task_id IN (SELECT id FROM tasks WHERE project_id = ?)`,
			`DELETE FROM tasks WHERE project_id = ?`,
			`DELETE FROM phases WHERE project_id = ?`,
			`DELETE FROM project_invitations WHERE project_id = ?`,
			`DELETE FROM project_members WHERE project_id = ?`,
		}
		for _, stmt := range steps {
			if _, err := store.exec(ctx, stmt, id); err != nil {
				return fmt.Errorf("delete project data: %w", err)
			}
		}
		res, err := store.exec(ctx, `DELETE FROM projects WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete project: %w", err)
		}
		return affectedOne(res)
	})
}

// ListUserProjects 列出用户参与的项目及其访问级别
func (s *SQLDatabase) ListUserProjects(ctx context.Context, userID string) ([]models.ProjectWithAccess, error) {
	rows, err := s.query(ctx, `
		SELECT p.id, p.title, p.description, p.owner_id, p.created_at, p.updated_at, m.access
		FROM projects p
		JOIN project_members m ON m.project_id = p.id
		WHERE m.user_id = ?
		ORDER BY p.created_at DESC, p.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list user projects: %w", err)
	}
	defer rows.Close()

	out := []models.ProjectWithAccess{}
	for rows.Next() {
		var pa models.ProjectWithAccess
		if err := rows.Scan(&pa.ID, &pa.Title, &pa.Description, &pa.OwnerID, &pa.CreatedAt, &pa.UpdatedAt, &pa.Access); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, pa)
	}
	return out, rows.Err()
}

// AddProjectMember 添加成员；已存在时不做任何修改
func (s *SQLDatabase) AddProjectMember(ctx context.Context, m *models.ProjectMember) (bool, error) {
	res, err := s.exec(ctx, `
		INSERT INTO project_members (project_id, user_id, access, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (project_id, user_id) DO NOTHING`,
		m.ProjectID, m.UserID, string(m.Access), m.CreatedAt.UTC())
	if isUniqueViolation(err) {
		return false, ErrConflict
	}
	if err != nil {
		return false, fmt.Errorf("insert member: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// GetProjectMember 获取成员关系
func (s *SQLDatabase) GetProjectMember(ctx context.Context, projectID, userID string) (*models.ProjectMember, error) {
	var m models.ProjectMember
	err := s.queryRow(ctx, `
		SELECT m.project_id, m.user_id, m.access, m.created_at, u.name, u.email
		FROM project_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.project_id = ? AND m.user_id = ?`, projectID, userID).
		Scan(&m.ProjectID, &m.UserID, &m.Access, &m.CreatedAt, &m.Name, &m.Email)
	if err != nil {
		return nil, notFoundOr(err, "get member")
	}
	return &m, nil
}

// ListProjectMembers 列出项目成员
func (s *SQLDatabase) ListProjectMembers(ctx context.Context, projectID string) ([]models.ProjectMember, error) {
	rows, err := s.query(ctx, `
		SELECT m.project_id, m.user_id, m.access, m.created_at, u.name, u.email
		FROM project_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.project_id = ?
		ORDER BY m.created_at, u.email`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	members := []models.ProjectMember{}
	for rows.Next() {
		var m models.ProjectMember
		if err := rows.Scan(&m.ProjectID, &m.UserID, &m.Access, &m.CreatedAt, &m.Name, &m.Email); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// UpdateProjectMemberAccess 修改成员访问级别
func (s *SQLDatabase) UpdateProjectMemberAccess(ctx context.Context, projectID, userID string, access models.ProjectRole) error {
	res, err := s.exec(ctx,
		`UPDATE project_members SET access = ? WHERE project_id = ? AND user_id = ?`,
		string(access), projectID, userID)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("update member access: %w", err)
	}
	return affectedOne(res)
}

// RemoveProjectMember 移除成员
func (s *SQLDatabase) RemoveProjectMember(ctx context.Context, projectID, userID string) error {
	res, err := s.exec(ctx, `DELETE FROM project_members WHERE project_id = ? AND user_id = ?`, projectID, userID)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	return affectedOne(res)
}
