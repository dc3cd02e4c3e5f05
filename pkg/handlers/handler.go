package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	chiRoute "github.com/go-chi/chi/v5"

	"taskboard-backend/pkg/middleware"
	"taskboard-backend/pkg/models"
	"taskboard-backend/pkg/services"
	"taskboard-backend/pkg/utils"
)

// base 各处理器共享的依赖与辅助方法
type base struct {
	svc    *services.Service
	logger *slog.Logger
}

func newBase(svc *services.Service, logger *slog.Logger) base {
	if logger == nil {
		logger = slog.Default()
	}
	return base{svc: svc, logger: logger}
}

// writeError 将服务层错误写为统一响应；未知错误只记录日志，不向客户端泄露细节
func (b base) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if e, ok := services.AsError(err); ok && e.Status < http.StatusInternalServerError {
		utils.WriteErrorResponseWithCode(w, e.Status, e.Code, e.Message, "")
		return
	}
	b.logger.Error("request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()))
	utils.WriteInternalServerErrorResponse(w, "Internal server error")
}

// currentUser 获取已认证用户，失败时写出401
func (b base) currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return nil, false
	}
	return user, true
}

// pathParams 读取并校验路径参数
func pathParams(w http.ResponseWriter, r *http.Request, names ...string) ([]string, bool) {
	values := make([]string, len(names))
	for i, name := range names {
		v := strings.TrimSpace(chiRoute.URLParam(r, name))
		if v == "" {
			utils.WriteBadRequestResponse(w, name+" is required")
			return nil, false
		}
		values[i] = v
	}
	return values, true
}

// decode 解析并校验请求体，失败时写出400
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := utils.DecodeAndValidate(r, v); err != nil {
		utils.WriteDecodeError(w, err)
		return false
	}
	return true
}
