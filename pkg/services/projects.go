package services

import (
	"context"
	"strings"

	"taskboard-backend/pkg/database"
	"taskboard-backend/pkg/models"
)

// CreateProject creates a project and the creator's owner membership in one
// transaction.
func (s *Service) CreateProject(ctx context.Context, ownerID string, req models.CreateProjectRequest) (*models.Project, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, BadRequest("Title is required")
	}

	now := s.now()
	project := &models.Project{
		ID:          newID(),
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := s.db.InTx(ctx, func(tx database.DatabaseInterface) error {
		if err := tx.CreateProject(ctx, project); err != nil {
			return err
		}
		_, err := tx.AddProjectMember(ctx, &models.ProjectMember{
			ProjectID: project.ID,
			UserID:    ownerID,
			Access:    models.RoleOwner,
			CreatedAt: now,
		})
		return err
	})
	if err != nil {
		return nil, fromStore(err, "User not found")
	}
	return project, nil
}

// GetProject returns the project together with the caller's role.
func (s *Service) GetProject(ctx context.Context, projectID, actorID string) (*models.ProjectWithAccess, error) {
	project, role, err := s.RequireAccess(ctx, projectID, actorID, "project.get", "")
	if err != nil {
		return nil, err
	}
	return &models.ProjectWithAccess{Project: *project, Access: role}, nil
}

// UpdateProject applies a partial update of title and description.
func (s *Service) UpdateProject(ctx context.Context, projectID, actorID string, req models.UpdateProjectRequest) (*models.Project, error) {
	project, _, err := s.RequireAccess(ctx, projectID, actorID, "project.update", "")
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, BadRequest("Title cannot be empty")
		}
		project.Title = title
	}
	if req.Description != nil {
		project.Description = strings.TrimSpace(*req.Description)
	}
	project.UpdatedAt = s.now()
	if err := s.db.UpdateProject(ctx, project); err != nil {
		return nil, fromStore(err, "Project not found")
	}
	return project, nil
}

// DeleteProject removes the project and everything attached to it.
func (s *Service) DeleteProject(ctx context.Context, projectID, actorID string) error {
	if _, _, err := s.RequireAccess(ctx, projectID, actorID, "project.delete", ""); err != nil {
		return err
	}
	if err := s.db.DeleteProject(ctx, projectID); err != nil {
		return fromStore(err, "Project not found")
	}
	s.invalidatePhases(ctx, projectID)
	return nil
}

// GetUserProjects partitions the user's projects by access level. Each
// project lands in exactly one bucket.
func (s *Service) GetUserProjects(ctx context.Context, userID string) (*models.UserProjects, error) {
	rows, err := s.db.ListUserProjects(ctx, userID)
	if err != nil {
		return nil, Internal(err)
	}
	out := &models.UserProjects{
		Owner:  []models.Project{},
		Admin:  []models.Project{},
		Member: []models.Project{},
	}
	for _, row := range rows {
		access := row.Access
		if row.OwnerID == userID {
			access = models.RoleOwner
		}
		switch access {
		case models.RoleOwner:
			out.Owner = append(out.Owner, row.Project)
		case models.RoleAdmin:
			out.Admin = append(out.Admin, row.Project)
		default:
			out.Member = append(out.Member, row.Project)
		}
	}
	return out, nil
}
