package handlers

import (
	"log/slog"
	"net/http"

	"taskboard-backend/pkg/models"
	"taskboard-backend/pkg/services"
	"taskboard-backend/pkg/utils"
)

// TasksHandler 阶段、任务与待审更新处理器
type TasksHandler struct {
	base
}

func NewTasksHandler(svc *services.Service, logger *slog.Logger) *TasksHandler {
	return &TasksHandler{base: newBase(svc, logger)}
}

// GET /phase/{projectId}
func (h *TasksHandler) ListPhases(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	params, ok := pathParams(w, r, "projectId")
	if !ok {
		return
	}
	phases, err := h.svc.ListPhases(r.Context(), params[0], user.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"phases": phases})
}

// POST /phase/{projectId}
func (h *TasksHandler) CreatePhase(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	params, ok := pathParams(w, r, "projectId")
	if !ok {
		return
	}
	var req models.PhaseRequest
	if !decode(w, r, &req) {
		return
	}
	phase, err := h.svc.CreatePhase(r.Context(), params[0], user.ID, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteCreatedResponse(w, map[string]interface{}{"phase": phase})
}

// PATCH /phase/{projectId}/{phaseId}
func (h *TasksHandler) UpdatePhase(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	params, ok := pathParams(w, r, "projectId", "phaseId")
	if !ok {
		return
	}
	var req models.PhaseRequest
	if !decode(w, r, &req) {
		return
	}
	phase, err := h.svc.UpdatePhase(r.Context(), params[0], params[1], user.ID, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"phase": phase})
}

// DELETE /phase/{projectId}/{phaseId}
func (h *TasksHandler) DeletePhase(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	params, ok := pathParams(w, r, "projectId", "phaseId")
	if !ok {
		return
	}
	if err := h.svc.DeletePhase(r.Context(), params[0], params[1], user.ID); err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteMessageResponse(w, http.StatusOK, "Phase deleted", nil)
}

// POST /task/{projectId}/{phaseId}
func (h *TasksHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	params, ok := pathParams(w, r, "projectId", "phaseId")
	if !ok {
		return
	}
	var req models.CreateTaskRequest
	if !decode(w, r, &req) {
		return
	}
	task, err := h.svc.CreateTask(r.Context(), params[0], params[1], user.ID, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteCreatedResponse(w, map[string]interface{}{"task": task})
}

// PATCH /task/{projectId}/{taskId}
func (h *TasksHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	params, ok := pathParams(w, r, "projectId", "taskId")
	if !ok {
		return
	}
	var req models.UpdateTaskRequest
	if !decode(w, r, &req) {
		return
	}
	task, err := h.svc.UpdateTask(r.Context(), params[0], params[1], user.ID, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"task": task})
}

// DELETE /task/{projectId}/{taskId}
func (h *TasksHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	params, ok := pathParams(w, r, "projectId", "taskId")
	if !ok {
		return
	}
	if err := h.svc.DeleteTask(r.Context(), params[0], params[1], user.ID); err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteMessageResponse(w, http.StatusOK, "Task deleted", nil)
}

// GET /task/pending-updates/{projectId}/{taskId}
func (h *TasksHandler) ListPendingUpdates(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	params, ok := pathParams(w, r, "projectId", "taskId")
	if !ok {
		return
	}
	updates, err := h.svc.ListPendingUpdates(r.Context(), params[0], params[1], user.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"pending_updates": updates})
}

// POST /task/request-update/{projectId}/{taskId}
func (h *TasksHandler) RequestUpdate(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	params, ok := pathParams(w, r, "projectId", "taskId")
	if !ok {
		return
	}
	var req models.RequestUpdateRequest
	if !decode(w, r, &req) {
		return
	}
	pu, err := h.svc.RequestTaskUpdate(r.Context(), params[0], params[1], user.ID, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteMessageResponse(w, http.StatusCreated, "Update request submitted for review",
		map[string]interface{}{"pending_update": pu})
}

// PATCH /task/accept-update/{projectId}/{pendingUpdateId}
func (h *TasksHandler) AcceptUpdate(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	params, ok := pathParams(w, r, "projectId", "pendingUpdateId")
	if !ok {
		return
	}
	var req models.AcceptUpdateRequest
	if !decode(w, r, &req) {
		return
	}
	task, err := h.svc.AcceptPendingUpdate(r.Context(), params[0], params[1], user.ID, req.NewStatus)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"task": task})
}

// PATCH /task/reject-update/{projectId}/{pendingUpdateId}
func (h *TasksHandler) RejectUpdate(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	params, ok := pathParams(w, r, "projectId", "pendingUpdateId")
	if !ok {
		return
	}
	if err := h.svc.RejectPendingUpdate(r.Context(), params[0], params[1], user.ID); err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteMessageResponse(w, http.StatusOK, "Update request rejected", nil)
}
