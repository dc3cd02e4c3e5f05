package models

import "time"

// TaskStatus is the free tri-state of a task.
type TaskStatus string

const (
	TaskActive   TaskStatus = "active"
	TaskComplete TaskStatus = "complete"
	TaskCanceled TaskStatus = "canceled"
)

// IsValid reports whether s is one of the three task states.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskActive, TaskComplete, TaskCanceled:
		return true
	default:
		return false
	}
}

// Phase groups tasks within a project.
type Phase struct {
	ID        string    `json:"id" db:"id"`
	ProjectID string    `json:"project_id" db:"project_id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Task is a unit of work assigned to a project member.
type Task struct {
	ID          string     `json:"id" db:"id"`
	ProjectID   string     `json:"project_id" db:"project_id"`
	PhaseID     string     `json:"phase_id" db:"phase_id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	Status      TaskStatus `json:"status" db:"status"`
	AssignedTo  string     `json:"assigned_to" db:"assigned_to"`
	CreatedBy   string     `json:"created_by" db:"created_by"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// PendingUpdate is a member's proposed status change awaiting review.
type PendingUpdate struct {
	ID                string     `json:"id" db:"id"`
	TaskID            string     `json:"task_id" db:"task_id"`
	RequestedBy       string     `json:"requested_by" db:"requested_by"`
	UpdateDescription string     `json:"update_description" db:"update_description"`
	NewStatus         TaskStatus `json:"new_status" db:"new_status"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
}

// TaskView is a task as shown on the board, with its latest open proposal.
type TaskView struct {
	Task
	PendingUpdate *PendingUpdate `json:"pending_update,omitempty"`
	PendingCount  int            `json:"pending_count"`
}

// PhaseWithTasks is one column of the cached phase listing.
type PhaseWithTasks struct {
	Phase
	Tasks []TaskView `json:"tasks"`
}

// PhaseRequest is the payload for creating or renaming a phase.
type PhaseRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

// CreateTaskRequest is the payload for POST /task/{projectId}/{phaseId}
type CreateTaskRequest struct {
	Title       string `json:"title" validate:"required,max=300"`
	Description string `json:"description" validate:"max=10000"`
	AssignedTo  string `json:"assignedTo" validate:"required"`
}

// UpdateTaskRequest is the payload for PATCH /task/{projectId}/{taskId}
type UpdateTaskRequest struct {
	Title       *string     `json:"title" validate:"omitempty,min=1,max=300"`
	Description *string     `json:"description" validate:"omitempty,max=10000"`
	Status      *TaskStatus `json:"status" validate:"omitempty,oneof=active complete canceled"`
	PhaseID     *string     `json:"phaseId" validate:"omitempty,min=1"`
}

// RequestUpdateRequest is the payload for POST /task/request-update/{projectId}/{taskId}
type RequestUpdateRequest struct {
	UpdateDescription string     `json:"updateDescription" validate:"required,max=5000"`
	NewStatus         TaskStatus `json:"newStatus" validate:"required,oneof=active complete canceled"`
}

// AcceptUpdateRequest is the payload for PATCH /task/accept-update/{projectId}/{pendingUpdateId}
type AcceptUpdateRequest struct {
	NewStatus TaskStatus `json:"newStatus" validate:"omitempty,oneof=active complete canceled"`
}
