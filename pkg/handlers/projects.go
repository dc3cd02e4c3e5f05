package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"taskboard-backend/pkg/models"
	"taskboard-backend/pkg/services"
	"taskboard-backend/pkg/utils"
)

// ProjectsHandler 项目、成员与邀请处理器
type ProjectsHandler struct {
	base
}

func NewProjectsHandler(svc *services.Service, logger *slog.Logger) *ProjectsHandler {
	return &ProjectsHandler{base: newBase(svc, logger)}
}

// GET /project
func (h *ProjectsHandler) ListMyProjects(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	projects, err := h.svc.GetUserProjects(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	// Weak ETag: projects:<user>:<count>:<maxUpdated>
	var count int
	var maxUpdated int64
	for _, bucket := range [][]models.Project{projects.Owner, projects.Admin, projects.Member} {
		for _, p := range bucket {
			count++
			if ts := p.UpdatedAt.UnixMilli(); ts > maxUpdated {
				maxUpdated = ts
			}
		}
	}
	etag := fmt.Sprintf("W/\"projects:%s:%d:%d\"", user.ID, count, maxUpdated)
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	utils.WriteSuccessResponse(w, projects)
}

// POST /project
func (h *ProjectsHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	var req models.CreateProjectRequest
	if !decode(w, r, &req) {
		return
	}
	project, err := h.svc.CreateProject(r.Context(), user.ID, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteCreatedResponse(w, map[string]interface{}{"project": project})
}

// GET /project/{projectId}
func (h *ProjectsHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	params, ok := pathParams(w, r, "projectId")
	if !ok {
		return
	}
	project, err := h.svc.GetProject(r.Context(), params[0], user.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"project": project})
}

// PATCH /project/{projectId}
func (h *ProjectsHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	params, ok := pathParams(w, r, "projectId")
	if !ok {
		return
	}
	var req models.UpdateProjectRequest
	if !decode(w, r, &req) {
		return
	}
	project, err := h.svc.UpdateProject(r.Context(), params[0], user.ID, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"project": project})
}

// DELETE /project/{projectId}
func (h *ProjectsHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	params, ok := pathParams(w, r, "projectId")
	if !ok {
		return
	}
	if err := h.svc.DeleteProject(r.Context(), params[0], user.ID); err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteMessageResponse(w, http.StatusOK, "Project deleted", nil)
}

// POST /project/member/{projectId}
func (h *ProjectsHandler) InviteMember(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	params, ok := pathParams(w, r, "projectId")
	if !ok {
		return
	}
	var req models.AddMemberRequest
	if !decode(w, r, &req) {
		return
	}
	inv, err := h.svc.AddMember(r.Context(), params[0], user.ID, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteMessageResponse(w, http.StatusCreated, "Invitation sent", map[string]interface{}{"invitation": inv})
}

// PATCH /project/member/{projectId}/{userId}
func (h *ProjectsHandler) ChangeMemberAccess(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	params, ok := pathParams(w, r, "projectId", "userId")
	if !ok {
		return
	}
	var req models.ChangeAccessRequest
	if !decode(w, r, &req) {
		return
	}
	member, err := h.svc.PromoteMember(r.Context(), params[0], user.ID, params[1], req.Access)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"member": member})
}

// GET /project/member/{projectId}
func (h *ProjectsHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	params, ok := pathParams(w, r, "projectId")
	if !ok {
		return
	}
	members, err := h.svc.ListMembers(r.Context(), params[0], user.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"members": members})
}

// DELETE /project/member/{projectId}/{userId}
func (h *ProjectsHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	params, ok := pathParams(w, r, "projectId", "userId")
	if !ok {
		return
	}
	if err := h.svc.RemoveMember(r.Context(), params[0], user.ID, params[1]); err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteMessageResponse(w, http.StatusOK, "Member removed", nil)
}

// GET /project/member/{projectId}/invitations
func (h *ProjectsHandler) ListProjectInvitations(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	params, ok := pathParams(w, r, "projectId")
	if !ok {
		return
	}
	invitations, err := h.svc.ListProjectInvitations(r.Context(), params[0], user.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"invitations": invitations})
}

// GET /project/invitations
func (h *ProjectsHandler) ListMyInvitations(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	invitations, err := h.svc.ListMyInvitations(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"invitations": invitations})
}

// PATCH /project/invitations/{invitationId}
func (h *ProjectsHandler) RespondToInvitation(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	params, ok := pathParams(w, r, "invitationId")
	if !ok {
		return
	}
	var req models.RespondInvitationRequest
	if !decode(w, r, &req) {
		return
	}
	inv, err := h.svc.RespondToInvitation(r.Context(), params[0], user.ID, req.Action)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"invitation": inv})
}
