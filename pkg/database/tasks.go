package database

import (
	"context"
	"fmt"
	"sort"

	"taskboard-backend/pkg/models"
)

// CreatePhase 创建阶段
func (s *SQLDatabase) CreatePhase(ctx context.Context, p *models.Phase) error {
	_, err := s.exec(ctx,
		`INSERT INTO phases (id, project_id, name, created_at) VALUES (?, ?, ?, ?)`,
		p.ID, p.ProjectID, p.Name, p.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert phase: %w", err)
	}
	return nil
}

// GetPhase 获取阶段
func (s *SQLDatabase) GetPhase(ctx context.Context, id string) (*models.Phase, error) {
	var p models.Phase
	err := s.queryRow(ctx, `SELECT id, project_id, name, created_at FROM phases WHERE id = ?`, id).
		Scan(&p.ID, &p.ProjectID, &p.Name, &p.CreatedAt)
	if err != nil {
		return nil, notFoundOr(err, "get phase")
	}
	return &p, nil
}

// UpdatePhase 重命名阶段
func (s *SQLDatabase) UpdatePhase(ctx context.Context, p *models.Phase) error {
	res, err := s.exec(ctx, `UPDATE phases SET name = ? WHERE id = ?`, p.Name, p.ID)
	if err != nil {
		return fmt.Errorf("update phase: %w", err)
	}
	return affectedOne(res)
}

// DeletePhase 删除阶段及其任务
func (s *SQLDatabase) DeletePhase(ctx context.Context, id string) error {
	return s.InTx(ctx, func(tx DatabaseInterface) error {
		store := tx.(*SQLDatabase)
		if _, err := store.exec(ctx,
			`DELETE FROM pending_updates WHERE task_id IN (SELECT id FROM tasks WHERE phase_id = ?)`, id); err != nil {
			return fmt.Errorf("delete phase updates: %w", err)
		}
		if _, err := store.exec(ctx, `DELETE FROM tasks WHERE phase_id = ?`, id); err != nil {
			return fmt.Errorf("delete phase tasks: %w", err)
		}
		res, err := store.exec(ctx, `DELETE FROM phases WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete phase: %w", err)
		}
		return affectedOne(res)
	})
}

// ListPhases 列出项目阶段（按创建时间）
func (s *SQLDatabase) ListPhases(ctx context.Context, projectID string) ([]models.Phase, error) {
	rows, err := s.query(ctx,
		`SELECT id, project_id, name, created_at FROM phases WHERE project_id = ? ORDER BY created_at, id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list phases: %w", err)
	}
	defer rows.Close()

	phases := []models.Phase{}
	for rows.Next() {
		var p models.Phase
		if err := rows.Scan(&p.ID, &p.ProjectID, &p.Name, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan phase: %w", err)
		}
		phases = append(phases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.SliceStable(phases, func(i, j int) bool { return phases[i].CreatedAt.Before(phases[j].CreatedAt) })
	return phases, nil
}

const taskColumns = `id, project_id, phase_id, title, description, status, assigned_to, created_by, created_at, updated_at`

func scanTask(row rowScanner) (*models.Task, error) {
	var t models.Task
	if err := row.Scan(&t.ID, &t.ProjectID, &t.PhaseID, &t.Title, &t.Description, &t.Status,
		&t.AssignedTo, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTask 创建任务
func (s *SQLDatabase) CreateTask(ctx context.Context, t *models.Task) error {
	if t.Status == "" {
		t.Status = models.TaskActive
	}
	_, err := s.exec(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.ProjectID, t.PhaseID, t.Title, t.Description, string(t.Status),
		t.AssignedTo, t.CreatedBy, t.CreatedAt.UTC(), t.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// GetTask 获取任务
func (s *SQLDatabase) GetTask(ctx context.Context, id string) (*models.Task, error) {
	t, err := scanTask(s.queryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if err != nil {
		return nil, notFoundOr(err, "get task")
	}
	return t, nil
}

// UpdateTask 写入任务的可变字段
func (s *SQLDatabase) UpdateTask(ctx context.Context, t *models.Task) error {
	res, err := s.exec(ctx, `
		UPDATE tasks
		SET phase_id = ?, title = ?, description = ?, status = ?, assigned_to = ?, updated_at = ?
		WHERE id = ?`,
		t.PhaseID, t.Title, t.Description, string(t.Status), t.AssignedTo, t.UpdatedAt.UTC(), t.ID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return affectedOne(res)
}

// DeleteTask 删除任务及其待审更新
func (s *SQLDatabase) DeleteTask(ctx context.Context, id string) error {
	return s.InTx(ctx, func(tx DatabaseInterface) error {
		store := tx.(*SQLDatabase)
		if _, err := store.exec(ctx, `DELETE FROM pending_updates WHERE task_id = ?`, id); err != nil {
			return fmt.Errorf("delete task updates: %w", err)
		}
		res, err := store.exec(ctx, `DELETE FROM tasks WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		return affectedOne(res)
	})
}

// ListTasks 列出项目全部任务
func (s *SQLDatabase) ListTasks(ctx context.Context, projectID string) ([]models.Task, error) {
	rows, err := s.query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE project_id = ? ORDER BY created_at, id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].CreatedAt.Before(tasks[j].CreatedAt) })
	return tasks, nil
}

const pendingUpdateColumns = `pu.id, pu.task_id, pu.requested_by, pu.update_description, pu.new_status, pu.created_at`

func scanPendingUpdate(row rowScanner) (*models.PendingUpdate, error) {
	var pu models.PendingUpdate
	if err := row.Scan(&pu.ID, &pu.TaskID, &pu.RequestedBy, &pu.UpdateDescription, &pu.NewStatus, &pu.CreatedAt); err != nil {
		return nil, err
	}
	return &pu, nil
}

// CreatePendingUpdate 创建待审更新
func (s *SQLDatabase) CreatePendingUpdate(ctx context.Context, pu *models.PendingUpdate) error {
	_, err := s.exec(ctx, `
		INSERT INTO pending_updates (id, task_id, requested_by, update_description, new_status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		pu.ID, pu.TaskID, pu.RequestedBy, pu.UpdateDescription, string(pu.NewStatus), pu.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert pending update: %w", err)
	}
	return nil
}

// GetPendingUpdate 获取待审更新
func (s *SQLDatabase) GetPendingUpdate(ctx context.Context, id string) (*models.PendingUpdate, error) {
	pu, err := scanPendingUpdate(s.queryRow(ctx, `SELECT `+pendingUpdateColumns+` FROM pending_updates pu WHERE pu.id = ?`, id))
	if err != nil {
		return nil, notFoundOr(err, "get pending update")
	}
	return pu, nil
}

// DeletePendingUpdate 删除待审更新；没有删除任何行时返回 ErrNotFound
func (s *SQLDatabase) DeletePendingUpdate(ctx context.Context, id string) error {
	res, err := s.exec(ctx, `DELETE FROM pending_updates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete pending update: %w", err)
	}
	return affectedOne(res)
}

func (s *SQLDatabase) listPendingUpdates(ctx context.Context, query string, arg string) ([]models.PendingUpdate, error) {
	rows, err := s.query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list pending updates: %w", err)
	}
	defer rows.Close()

	out := []models.PendingUpdate{}
	for rows.Next() {
		pu, err := scanPendingUpdate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending update: %w", err)
		}
		out = append(out, *pu)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ListPendingUpdates 按时间从旧到新列出任务的待审更新
func (s *SQLDatabase) ListPendingUpdates(ctx context.Context, taskID string) ([]models.PendingUpdate, error) {
	return s.listPendingUpdates(ctx,
		`SELECT `+pendingUpdateColumns+` FROM pending_updates pu WHERE pu.task_id = ? ORDER BY pu.created_at, pu.id`, taskID)
}

// ListProjectPendingUpdates 列出项目内全部待审更新
func (s *SQLDatabase) ListProjectPendingUpdates(ctx context.Context, projectID string) ([]models.PendingUpdate, error) {
	return s.listPendingUpdates(ctx, `
		SELECT `+pendingUpdateColumns+`
		FROM pending_updates pu
		JOIN tasks t ON t.id = pu.task_id
		WHERE t.project_id = ?
		ORDER BY pu.created_at, pu.id`, projectID)
}
