package services

import (
	"context"
	"errors"
	"strings"

	"taskboard-backend/pkg/database"
	"taskboard-backend/pkg/mailer"
	"taskboard-backend/pkg/models"
)

// projectTask loads a task and hides tasks of other projects behind 404.
func (s *Service) projectTask(ctx context.Context, db database.DatabaseInterface, projectID, taskID string) (*models.Task, error) {
	task, err := db.GetTask(ctx, taskID)
	if err != nil {
		return nil, fromStore(err, "Task not found")
	}
	if task.ProjectID != projectID {
		return nil, NotFound("Task not found")
	}
	return task, nil
}

// projectPendingUpdate loads a proposal whose task belongs to projectID.
func (s *Service) projectPendingUpdate(ctx context.Context, projectID, pendingUpdateID string) (*models.PendingUpdate, *models.Task, error) {
	pu, err := s.db.GetPendingUpdate(ctx, pendingUpdateID)
	if err != nil {
		return nil, nil, fromStore(err, "Pending update not found")
	}
	task, err := s.projectTask(ctx, s.db, projectID, pu.TaskID)
	if err != nil {
		if StatusOf(err) == 404 {
			return nil, nil, NotFound("Pending update not found")
		}
		return nil, nil, err
	}
	return pu, task, nil
}

// CreateTask adds a task to a phase of the project. The assignee must be a
// member and is notified by email.
func (s *Service) CreateTask(ctx context.Context, projectID, phaseID, actorID string, req models.CreateTaskRequest) (*models.Task, error) {
	project, _, err := s.RequireAccess(ctx, projectID, actorID, "task.create", "")
	if err != nil {
		return nil, err
	}
	if _, err := s.projectPhase(ctx, projectID, phaseID); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, BadRequest("Title is required")
	}
	assignee, err := s.db.GetProjectMember(ctx, projectID, strings.TrimSpace(req.AssignedTo))
	if errors.Is(err, database.ErrNotFound) {
		return nil, BadRequest("Assignee must be a member of this project")
	}
	if err != nil {
		return nil, Internal(err)
	}

	now := s.now()
	task := &models.Task{
		ID:          newID(),
		ProjectID:   projectID,
		PhaseID:     phaseID,
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Status:      models.TaskActive,
		AssignedTo:  assignee.UserID,
		CreatedBy:   actorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.db.CreateTask(ctx, task); err != nil {
		return nil, Internal(err)
	}
	s.invalidatePhases(ctx, projectID)

	assigner := actorID
	if u, err := s.db.GetUserByID(ctx, actorID); err == nil {
		assigner = displayName(u)
	}
	s.sendMail(mailer.TaskAssignedMessage(assignee.Email, mailer.TaskAssignedData{
		AssignerName: assigner,
		ProjectTitle: project.Title,
		TaskTitle:    task.Title,
		Description:  task.Description,
		Link:         s.baseURL + "/project/" + projectID,
	}))
	return task, nil
}

// UpdateTask is the privileged direct write of a task's fields, status included.
func (s *Service) UpdateTask(ctx context.Context, projectID, taskID, actorID string, req models.UpdateTaskRequest) (*models.Task, error) {
	if _, _, err := s.RequireAccess(ctx, projectID, actorID, "task.update", ""); err != nil {
		return nil, err
	}
	task, err := s.projectTask(ctx, s.db, projectID, taskID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, BadRequest("Title cannot be empty")
		}
		task.Title = title
	}
	if req.Description != nil {
		task.Description = strings.TrimSpace(*req.Description)
	}
	if req.Status != nil {
		if !req.Status.IsValid() {
			return nil, BadRequest("Status must be active, complete or canceled")
		}
		task.Status = *req.Status
	}
	if req.PhaseID != nil && *req.PhaseID != task.PhaseID {
		if _, err := s.projectPhase(ctx, projectID, *req.PhaseID); err != nil {
			return nil, err
		}
		task.PhaseID = *req.PhaseID
	}
	task.UpdatedAt = s.now()

	if err := s.db.UpdateTask(ctx, task); err != nil {
		return nil, fromStore(err, "Task not found")
	}
	s.invalidatePhases(ctx, projectID)
	return task, nil
}

// DeleteTask removes a task and its pending updates.
func (s *Service) DeleteTask(ctx context.Context, projectID, taskID, actorID string) error {
	if _, _, err := s.RequireAccess(ctx, projectID, actorID, "task.delete", ""); err != nil {
		return err
	}
	if _, err := s.projectTask(ctx, s.db, projectID, taskID); err != nil {
		return err
	}
	if err := s.db.DeleteTask(ctx, taskID); err != nil {
		return fromStore(err, "Task not found")
	}
	s.invalidatePhases(ctx, projectID)
	return nil
}

// RequestTaskUpdate records a member's proposed status change. The task
// itself is not modified until the proposal is accepted.
func (s *Service) RequestTaskUpdate(ctx context.Context, projectID, taskID, actorID string, req models.RequestUpdateRequest) (*models.PendingUpdate, error) {
	if _, _, err := s.RequireAccess(ctx, projectID, actorID, "task.request_update", ""); err != nil {
		return nil, err
	}
	task, err := s.projectTask(ctx, s.db, projectID, taskID)
	if err != nil {
		return nil, err
	}
	if !req.NewStatus.IsValid() {
		return nil, BadRequest("Status must be active, complete or canceled")
	}
	description := strings.TrimSpace(req.UpdateDescription)
	if description == "" {
		return nil, BadRequest("Update description is required")
	}

	pu := &models.PendingUpdate{
		ID:                newID(),
		TaskID:            task.ID,
		RequestedBy:       actorID,
		UpdateDescription: description,
		NewStatus:         req.NewStatus,
		CreatedAt:         s.now(),
	}
	if err := s.db.CreatePendingUpdate(ctx, pu); err != nil {
		return nil, Internal(err)
	}
	s.invalidatePhases(ctx, projectID)
	return pu, nil
}

// AcceptPendingUpdate commits newStatus to the proposal's task and removes the
// proposal. An empty newStatus commits the status the proposal asked for.
func (s *Service) AcceptPendingUpdate(ctx context.Context, projectID, pendingUpdateID, actorID string, newStatus models.TaskStatus) (*models.Task, error) {
	if _, _, err := s.RequireAccess(ctx, projectID, actorID, "task.accept_update", ""); err != nil {
		return nil, err
	}
	pu, _, err := s.projectPendingUpdate(ctx, projectID, pendingUpdateID)
	if err != nil {
		return nil, err
	}
	status := newStatus
	if status == "" {
		status = pu.NewStatus
	}
	if !status.IsValid() {
		return nil, BadRequest("Status must be active, complete or canceled")
	}

	var task *models.Task
	err = s.db.InTx(ctx, func(tx database.DatabaseInterface) error {
		// the conditional delete decides which of two concurrent accepts wins
		if err := tx.DeletePendingUpdate(ctx, pu.ID); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return NotFound("Pending update not found")
			}
			return err
		}
		t, err := s.projectTask(ctx, tx, projectID, pu.TaskID)
		if err != nil {
			return err
		}
		t.Status = status
		t.UpdatedAt = s.now()
		if err := tx.UpdateTask(ctx, t); err != nil {
			return err
		}
		task = t
		return nil
	})
	if err != nil {
		return nil, fromStore(err, "Pending update not found")
	}
	s.invalidatePhases(ctx, projectID)
	return task, nil
}

// RejectPendingUpdate discards a proposal without touching its task.
func (s *Service) RejectPendingUpdate(ctx context.Context, projectID, pendingUpdateID, actorID string) error {
	if _, _, err := s.RequireAccess(ctx, projectID, actorID, "task.reject_update", ""); err != nil {
		return err
	}
	pu, _, err := s.projectPendingUpdate(ctx, projectID, pendingUpdateID)
	if err != nil {
		return err
	}
	if err := s.db.DeletePendingUpdate(ctx, pu.ID); err != nil {
		return fromStore(err, "Pending update not found")
	}
	s.invalidatePhases(ctx, projectID)
	return nil
}

// ListPendingUpdates returns a task's open proposals, oldest first.
func (s *Service) ListPendingUpdates(ctx context.Context, projectID, taskID, actorID string) ([]models.PendingUpdate, error) {
	if _, _, err := s.RequireAccess(ctx, projectID, actorID, "task.list_updates", ""); err != nil {
		return nil, err
	}
	if _, err := s.projectTask(ctx, s.db, projectID, taskID); err != nil {
		return nil, err
	}
	updates, err := s.db.ListPendingUpdates(ctx, taskID)
	if err != nil {
		return nil, Internal(err)
	}
	return updates, nil
}
