package models

import "time"

// Project is a collaborative workspace owned by exactly one user.
type Project struct {
	ID          string    `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	OwnerID     string    `json:"owner_id" db:"owner_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// ProjectRole is a user's access level on a single project.
type ProjectRole string

const (
	RoleOwner  ProjectRole = "owner"
	RoleAdmin  ProjectRole = "admin"
	RoleMember ProjectRole = "member"
	RoleNone   ProjectRole = "" // not part of the project
)

// IsValid reports whether r is a stored access level.
func (r ProjectRole) IsValid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	default:
		return false
	}
}

// ProjectMember relates users to projects with an access level
type ProjectMember struct {
	ProjectID string      `json:"project_id" db:"project_id"`
	UserID    string      `json:"user_id" db:"user_id"`
	Access    ProjectRole `json:"access" db:"access"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
	// populated by member listings
	Name  string `json:"name,omitempty" db:"-"`
	Email string `json:"email,omitempty" db:"-"`
}

// ProjectWithAccess pairs a project with the caller's resolved role.
type ProjectWithAccess struct {
	Project
	Access ProjectRole `json:"access"`
}

// UserProjects partitions a user's projects by access level.
type UserProjects struct {
	Owner  []Project `json:"owner"`
	Admin  []Project `json:"admin"`
	Member []Project `json:"member"`
}

// CreateProjectRequest is the payload for POST /project
type CreateProjectRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
}

// UpdateProjectRequest is the payload for PATCH /project/{projectId}
type UpdateProjectRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
}

// AddMemberRequest invites a user by id or by email.
type AddMemberRequest struct {
	UserID string      `json:"userId"`
	Email  string      `json:"email" validate:"omitempty,email"`
	Access ProjectRole `json:"access"`
}

// ChangeAccessRequest is the payload for PATCH /project/member/{projectId}/{userId}
type ChangeAccessRequest struct {
	Access ProjectRole `json:"access" validate:"required,oneof=admin member"`
}
