package database

import (
	"context"
	"errors"
	"fmt"

	"taskboard-backend/pkg/models"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("record already exists")
)

// DatabaseInterface 定义数据库访问接口
type DatabaseInterface interface {
	// 用户管理
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	UpdateUserRole(ctx context.Context, id string, role models.UserRole) error
	ListUsers(ctx context.Context) ([]models.User, error)

	// Projects
	CreateProject(ctx context.Context, p *models.Project) error
	GetProject(ctx context.Context, id string) (*models.Project, error)
	UpdateProject(ctx context.Context, p *models.Project) error
	// DeleteProject removes the project and everything attached to it.
	DeleteProject(ctx context.Context, id string) error
	ListUserProjects(ctx context.Context, userID string) ([]models.ProjectWithAccess, error)

	// Memberships
	// AddProjectMember inserts the row if (project, user) is absent and
	// reports whether a row was created.
	AddProjectMember(ctx context.Context, m *models.ProjectMember) (bool, error)
	GetProjectMember(ctx context.Context, projectID, userID string) (*models.ProjectMember, error)
	ListProjectMembers(ctx context.Context, projectID string) ([]models.ProjectMember, error)
	UpdateProjectMemberAccess(ctx context.Context, projectID, userID string, access models.ProjectRole) error
	RemoveProjectMember(ctx context.Context, projectID, userID string) error

	// Invitations
	CreateInvitation(ctx context.Context, inv *models.ProjectInvitation) error
	GetInvitation(ctx context.Context, id string) (*models.ProjectInvitation, error)
	FindPendingInvitation(ctx context.Context, projectID, email string) (*models.ProjectInvitation, error)
	ListProjectInvitations(ctx context.Context, projectID string, status models.InvitationStatus) ([]models.ProjectInvitation, error)
	ListInvitationsForUser(ctx context.Context, userID, email string) ([]models.ProjectInvitation, error)
	// ResolveInvitation writes the response only while the row is still
	// pending and reports whether it did.
	ResolveInvitation(ctx context.Context, inv *models.ProjectInvitation) (bool, error)

	// Phases
	CreatePhase(ctx context.Context, p *models.Phase) error
	GetPhase(ctx context.Context, id string) (*models.Phase, error)
	UpdatePhase(ctx context.Context, p *models.Phase) error
	DeletePhase(ctx context.Context, id string) error
	ListPhases(ctx context.Context, projectID string) ([]models.Phase, error)

	// Tasks
	CreateTask(ctx context.Context, t *models.Task) error
	GetTask(ctx context.Context, id string) (*models.Task, error)
	UpdateTask(ctx context.Context, t *models.Task) error
	DeleteTask(ctx context.Context, id string) error
	ListTasks(ctx context.Context, projectID string) ([]models.Task, error)

	// Pending updates
	CreatePendingUpdate(ctx context.Context, pu *models.PendingUpdate) error
	GetPendingUpdate(ctx context.Context, id string) (*models.PendingUpdate, error)
	// DeletePendingUpdate returns ErrNotFound when no row was removed.
	DeletePendingUpdate(ctx context.Context, id string) error
	// ListPendingUpdates returns a task's proposals oldest first.
	ListPendingUpdates(ctx context.Context, taskID string) ([]models.PendingUpdate, error)
	ListProjectPendingUpdates(ctx context.Context, projectID string) ([]models.PendingUpdate, error)

	// 统计
	Stats(ctx context.Context) (*models.SystemStats, error)

	// InTx runs fn inside one transaction; fn must only use the store it is given.
	InTx(ctx context.Context, fn func(tx DatabaseInterface) error) error

	// Migrate 创建或更新表结构
	Migrate(ctx context.Context) error

	// 健康检查
	HealthCheck(ctx context.Context) error

	// 关闭连接
	Close() error
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver      string // "postgres" | "sqlite"
	PostgresDSN string
	SQLitePath  string
	Debug       bool
}

// NewDatabase 根据配置选择数据库实现
func NewDatabase(ctx context.Context, config DatabaseConfig) (DatabaseInterface, error) {
	switch config.Driver {
	case "postgres":
		return NewPostgresDatabase(ctx, config.PostgresDSN)
	case "sqlite", "":
		return NewSQLiteDatabase(ctx, config.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", config.Driver)
	}
}
