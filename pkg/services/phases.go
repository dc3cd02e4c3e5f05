package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"taskboard-backend/pkg/cache"
	"taskboard-backend/pkg/models"
)

// projectPhase loads a phase and checks it belongs to projectID.
func (s *Service) projectPhase(ctx context.Context, projectID, phaseID string) (*models.Phase, error) {
	phase, err := s.db.GetPhase(ctx, phaseID)
	if err != nil {
		return nil, fromStore(err, "Phase not found")
	}
	if phase.ProjectID != projectID {
		return nil, Forbidden("Phase does not belong to this project")
	}
	return phase, nil
}

func (s *Service) CreatePhase(ctx context.Context, projectID, actorID string, req models.PhaseRequest) (*models.Phase, error) {
	if _, _, err := s.RequireAccess(ctx, projectID, actorID, "phase.create", ""); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, BadRequest("Name is required")
	}
	phase := &models.Phase{ID: newID(), ProjectID: projectID, Name: name, CreatedAt: s.now()}
	if err := s.db.CreatePhase(ctx, phase); err != nil {
		return nil, Internal(err)
	}
	s.invalidatePhases(ctx, projectID)
	return phase, nil
}

func (s *Service) UpdatePhase(ctx context.Context, projectID, phaseID, actorID string, req models.PhaseRequest) (*models.Phase, error) {
	if _, _, err := s.RequireAccess(ctx, projectID, actorID, "phase.update", ""); err != nil {
		return nil, err
	}
	phase, err := s.projectPhase(ctx, projectID, phaseID)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, BadRequest("Name is required")
	}
	phase.Name = name
	if err := s.db.UpdatePhase(ctx, phase); err != nil {
		return nil, fromStore(err, "Phase not found")
	}
	s.invalidatePhases(ctx, projectID)
	return phase, nil
}

// DeletePhase removes the phase with its tasks and their pending updates.
func (s *Service) DeletePhase(ctx context.Context, projectID, phaseID, actorID string) error {
	if _, _, err := s.RequireAccess(ctx, projectID, actorID, "phase.delete", ""); err != nil {
		return err
	}
	if _, err := s.projectPhase(ctx, projectID, phaseID); err != nil {
		return err
	}
	if err := s.db.DeletePhase(ctx, phaseID); err != nil {
		return fromStore(err, "Phase not found")
	}
	s.invalidatePhases(ctx, projectID)
	return nil
}

// ListPhases returns the project's phases with their tasks, each carrying its
// latest pending update. The listing is read through the cache; the access
// check always hits the store.
func (s *Service) ListPhases(ctx context.Context, projectID, actorID string) ([]models.PhaseWithTasks, error) {
	if _, _, err := s.RequireAccess(ctx, projectID, actorID, "phase.list", ""); err != nil {
		return nil, err
	}

	key := cache.PhasesKey(projectID)
	if raw, ok, err := s.cache.Get(ctx, key); err != nil {
		s.logger.Warn("phase cache read failed", slog.String("project_id", projectID), slog.String("error", err.Error()))
	} else if ok {
		var cached []models.PhaseWithTasks
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
		s.logger.Warn("discarding undecodable phase cache entry", slog.String("project_id", projectID))
	}

	listing, err := s.buildPhaseListing(ctx, projectID)
	if err != nil {
		return nil, Internal(err)
	}
	if raw, err := json.Marshal(listing); err == nil {
		if err := s.cache.Set(ctx, key, raw, s.cacheTTL); err != nil {
			s.logger.Warn("phase cache write failed", slog.String("project_id", projectID), slog.String("error", err.Error()))
		}
	}
	return listing, nil
}

func (s *Service) buildPhaseListing(ctx context.Context, projectID string) ([]models.PhaseWithTasks, error) {
	phases, err := s.db.ListPhases(ctx, projectID)
	if err != nil {
		return nil, err
	}
	tasks, err := s.db.ListTasks(ctx, projectID)
	if err != nil {
		return nil, err
	}
	updates, err := s.db.ListProjectPendingUpdates(ctx, projectID)
	if err != nil {
		return nil, err
	}

	// updates arrive oldest first, so the last one seen per task is the latest
	latest := make(map[string]models.PendingUpdate, len(updates))
	counts := make(map[string]int, len(updates))
	for _, pu := range updates {
		latest[pu.TaskID] = pu
		counts[pu.TaskID]++
	}

	byPhase := make(map[string][]models.TaskView, len(phases))
	for _, t := range tasks {
		view := models.TaskView{Task: t, PendingCount: counts[t.ID]}
		if pu, ok := latest[t.ID]; ok {
			pu := pu
			view.PendingUpdate = &pu
		}
		byPhase[t.PhaseID] = append(byPhase[t.PhaseID], view)
	}

	out := make([]models.PhaseWithTasks, 0, len(phases))
	for _, p := range phases {
		views := byPhase[p.ID]
		if views == nil {
			views = []models.TaskView{}
		}
		out = append(out, models.PhaseWithTasks{Phase: p, Tasks: views})
	}
	return out, nil
}
