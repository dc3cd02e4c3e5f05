package handlers

import (
	"log/slog"
	"net/http"

	"taskboard-backend/pkg/models"
	"taskboard-backend/pkg/services"
	"taskboard-backend/pkg/utils"
)

// AdminHandler 管理后台处理器；全局角色在服务层每次从数据库重新读取
type AdminHandler struct {
	base
}

func NewAdminHandler(svc *services.Service, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{base: newBase(svc, logger)}
}

// GET /admin/users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	users, err := h.svc.ListUsers(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"users": users})
}

// PATCH /admin/users/{userId}/role
func (h *AdminHandler) ChangeUserRole(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	params, ok := pathParams(w, r, "userId")
	if !ok {
		return
	}
	var req models.ChangeRoleRequest
	if !decode(w, r, &req) {
		return
	}
	updated, err := h.svc.ChangeUserRole(r.Context(), user.ID, params[0], req.Role)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"user": updated})
}

// GET /admin/stats
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	stats, err := h.svc.Stats(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, stats)
}
