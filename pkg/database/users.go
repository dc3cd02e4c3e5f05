package database

import (
	"context"
	"fmt"

	"taskboard-backend/pkg/models"
)

const userColumns = `id, name, email, password_hash, role, created_at, updated_at`

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Password, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser 创建用户
func (s *SQLDatabase) CreateUser(ctx context.Context, user *models.User) error {
	if user.Role == "" {
		user.Role = models.UserRoleUser
	}
	_, err := s.exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Name, user.Email, user.Password, string(user.Role), user.CreatedAt.UTC(), user.UpdatedAt.UTC())
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUserByID 根据ID获取用户
func (s *SQLDatabase) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	u, err := scanUser(s.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return nil, notFoundOr(err, "get user")
	}
	return u, nil
}

// GetUserByEmail 根据邮箱获取用户
func (s *SQLDatabase) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(s.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if err != nil {
		return nil, notFoundOr(err, "get user by email")
	}
	return u, nil
}

// UpdateUser 更新用户资料
func (s *SQLDatabase) UpdateUser(ctx context.Context, user *models.User) error {
	res, err := s.exec(ctx,
		`UPDATE users SET name = ?, email = ?, password_hash = ?, updated_at = ? WHERE id = ?`,
		user.Name, user.Email, user.Password, user.UpdatedAt.UTC(), user.ID)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return affectedOne(res)
}

// UpdateUserRole 更新用户全局角色
func (s *SQLDatabase) UpdateUserRole(ctx context.Context, id string, role models.UserRole) error {
	res, err := s.exec(ctx, `UPDATE users SET role = ? WHERE id = ?`, string(role), id)
	if err != nil {
		return fmt.Errorf("update user role: %w", err)
	}
	return affectedOne(res)
}

// ListUsers 列出全部用户
func (s *SQLDatabase) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, email`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// Stats 汇总系统统计数据
func (s *SQLDatabase) Stats(ctx context.Context) (*models.SystemStats, error) {
	stats := &models.SystemStats{TasksByStatus: map[string]int{
		string(models.TaskActive):   0,
		string(models.TaskComplete): 0,
		string(models.TaskCanceled): 0,
	}}

	counts := []struct {
		dst   *int
		query string
	}{
		{&stats.Users, `SELECT COUNT(*) FROM users`},
		{&stats.Projects, `SELECT COUNT(*) FROM projects`},
		{&stats.Tasks, `SELECT COUNT(*) FROM tasks`},
		{&stats.PendingInvitations, `SELECT COUNT(*) FROM project_invitations WHERE status = 'pending'`},
		{&stats.PendingUpdates, `SELECT COUNT(*) FROM pending_updates`},
	}
	for _, c := range counts {
		if err := s.queryRow(ctx, c.query).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("stats: %w", err)
		}
	}

	rows, err := s.query(ctx, `SELECT status, COUNT(*) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("stats by status: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		stats.TasksByStatus[status] = n
	}
	return stats, rows.Err()
}
