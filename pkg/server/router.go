package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"taskboard-backend/pkg/database"
	"taskboard-backend/pkg/handlers"
	customMiddleware "taskboard-backend/pkg/middleware"
	"taskboard-backend/pkg/utils"
)

// maxBodyBytes 请求体大小上限
const maxBodyBytes = 1 << 20

// NewRouter 创建Chi路由器并挂载全部中间件与路由
func NewRouter(app *App) *chi.Mux {
	router := chi.NewRouter()
	setupMiddleware(router, app)
	setupRoutes(router, app)
	return router
}

// setupMiddleware 设置全局中间件
func setupMiddleware(router *chi.Mux, app *App) {
	cfg := app.Config

	// 基础中间件
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	// Normalize path and restore scheme/host before logging and routing
	router.Use(customMiddleware.Normalize())
	router.Use(customMiddleware.Logger(app.Logger))
	router.Use(customMiddleware.Recovery(app.Logger, cfg.IsDevelopment()))

	// CORS中间件
	router.Use(customMiddleware.CORS(cfg))

	// 超时中间件（Vercel函数有时间限制）
	router.Use(middleware.Timeout(25 * time.Second)) // 留5秒缓冲

	// 压缩中间件
	router.Use(middleware.Compress(5))

	router.Use(customMiddleware.MaxBodySize(maxBodyBytes))
	router.Use(customMiddleware.ContentTypeJSON)

	// 开发环境额外中间件
	if cfg.IsDevelopment() {
		router.Use(middleware.Heartbeat("/ping"))
	}
}

// setupRoutes 设置所有API路由
func setupRoutes(router *chi.Mux, app *App) {
	cfg := app.Config

	// 创建处理器
	authHandler := handlers.NewAuthHandler(cfg, app.DB, app.Service, app.Logger)
	projectsHandler := handlers.NewProjectsHandler(app.Service, app.Logger)
	tasksHandler := handlers.NewTasksHandler(app.Service, app.Logger)
	adminHandler := handlers.NewAdminHandler(app.Service, app.Logger)

	// 健康检查端点
	router.Get("/", authHandler.HealthCheck)

	// 数据库连接池状态端点（调试用）
	if cfg.IsDevelopment() {
		router.Get("/debug/db-pool", func(w http.ResponseWriter, r *http.Request) {
			utils.WriteSuccessResponse(w, database.GetConnectionStats())
		})
	}

	// 公开路由（不需要认证）
	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.RefreshToken)
	})

	// 需要认证的路由
	router.Group(func(r chi.Router) {
		r.Use(customMiddleware.AuthMiddleware(app.JWT, app.Logger))

		r.Route("/user", func(r chi.Router) {
			r.Get("/me", authHandler.Me)
			r.Patch("/me", authHandler.UpdateProfile)
		})

		r.Route("/project", func(r chi.Router) {
			r.Get("/", projectsHandler.ListMyProjects)
			r.Post("/", projectsHandler.CreateProject)

			// Invitations
			r.Get("/invitations", projectsHandler.ListMyInvitations)
			r.Patch("/invitations/{invitationId}", projectsHandler.RespondToInvitation)

			// Members
			r.Route("/member/{projectId}", func(r chi.Router) {
				r.Get("/", projectsHandler.ListMembers)
				r.Post("/", projectsHandler.InviteMember)
				r.Get("/invitations", projectsHandler.ListProjectInvitations)
				r.Patch("/{userId}", projectsHandler.ChangeMemberAccess)
				r.Delete("/{userId}", projectsHandler.RemoveMember)
			})

			r.Get("/{projectId}", projectsHandler.GetProject)
			r.Patch("/{projectId}", projectsHandler.UpdateProject)
			r.Delete("/{projectId}", projectsHandler.DeleteProject)
		})

		r.Route("/phase/{projectId}", func(r chi.Router) {
			r.Get("/", tasksHandler.ListPhases)
			r.Post("/", tasksHandler.CreatePhase)
			r.Patch("/{phaseId}", tasksHandler.UpdatePhase)
			r.Delete("/{phaseId}", tasksHandler.DeletePhase)
		})

		r.Route("/task", func(r chi.Router) {
			r.Get("/pending-updates/{projectId}/{taskId}", tasksHandler.ListPendingUpdates)
			r.Post("/request-update/{projectId}/{taskId}", tasksHandler.RequestUpdate)
			r.Patch("/accept-update/{projectId}/{pendingUpdateId}", tasksHandler.AcceptUpdate)
			r.Patch("/reject-update/{projectId}/{pendingUpdateId}", tasksHandler.RejectUpdate)

			r.Post("/{projectId}/{phaseId}", tasksHandler.CreateTask)
			r.Patch("/{projectId}/{taskId}", tasksHandler.UpdateTask)
			r.Delete("/{projectId}/{taskId}", tasksHandler.DeleteTask)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Get("/users", adminHandler.ListUsers)
			r.Patch("/users/{userId}/role", adminHandler.ChangeUserRole)
			r.Get("/stats", adminHandler.Stats)
		})
	})

	// 404处理
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteNotFoundResponse(w, fmt.Sprintf("Route not found: %s %s", r.Method, r.URL.Path))
	})

	// 405处理
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteErrorResponseWithCode(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			fmt.Sprintf("Method %s not allowed for %s", r.Method, r.URL.Path), "")
	})
}
