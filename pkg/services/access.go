package services

import (
	"context"
	"errors"

	"taskboard-backend/pkg/database"
	"taskboard-backend/pkg/models"
)

// Policy is a declarative authorization rule for a project operation.
type Policy struct {
	Roles []models.ProjectRole
	// AllowSelf admits the caller when the operation targets the caller.
	AllowSelf bool
	Denied    string
}

// AnyOf allows callers holding one of roles.
func AnyOf(denied string, roles ...models.ProjectRole) Policy {
	return Policy{Roles: roles, Denied: denied}
}

// SelfOrRole allows callers holding one of roles, or acting on themselves.
func SelfOrRole(denied string, roles ...models.ProjectRole) Policy {
	return Policy{Roles: roles, AllowSelf: true, Denied: denied}
}

// Allows reports whether a caller with role may act on targetID.
func (p Policy) Allows(role models.ProjectRole, callerID, targetID string) bool {
	if p.AllowSelf && callerID != "" && callerID == targetID {
		return true
	}
	if role == models.RoleNone {
		return false
	}
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

var (
	ownerOnly = AnyOf("Only the project owner can perform this action",
		models.RoleOwner)
	ownerOrAdmin = AnyOf("Only the project owner or an admin can perform this action",
		models.RoleOwner, models.RoleAdmin)
	anyMember = AnyOf("You are not a member of this project",
		models.RoleOwner, models.RoleAdmin, models.RoleMember)
	selfOrOwner = SelfOrRole("Only the project owner can remove other members",
		models.RoleOwner)
)

// Policies lists the rule applied by every project-scoped operation.
var Policies = map[string]Policy{
	"project.get":          anyMember,
	"project.update":       ownerOnly,
	"project.delete":       ownerOnly,
	"member.invite":        ownerOnly,
	"member.change_access": ownerOnly,
	"member.list":          anyMember,
	"member.remove":        selfOrOwner,
	"invitation.list":      ownerOrAdmin,
	"phase.list":           anyMember,
	"phase.create":         ownerOrAdmin,
	"phase.update":         ownerOrAdmin,
	"phase.delete":         ownerOrAdmin,
	"task.create":          ownerOrAdmin,
	"task.update":          ownerOrAdmin,
	"task.delete":          ownerOrAdmin,
	"task.request_update":  anyMember,
	"task.list_updates":    anyMember,
	"task.accept_update":   ownerOrAdmin,
	"task.reject_update":   ownerOrAdmin,
}

// ResolveRole returns the caller's access on the project: owner when the
// caller owns it, otherwise the membership row's access, otherwise none.
func (s *Service) ResolveRole(ctx context.Context, projectID, userID string) (*models.Project, models.ProjectRole, error) {
	project, err := s.db.GetProject(ctx, projectID)
	if err != nil {
		return nil, models.RoleNone, fromStore(err, "Project not found")
	}
	if project.OwnerID == userID {
		return project, models.RoleOwner, nil
	}
	m, err := s.db.GetProjectMember(ctx, projectID, userID)
	if errors.Is(err, database.ErrNotFound) {
		return project, models.RoleNone, nil
	}
	if err != nil {
		return nil, models.RoleNone, Internal(err)
	}
	return project, m.Access, nil
}

// RequireAccess resolves the caller's role and checks the named operation's
// policy. targetID is only consulted by self-allowing policies.
func (s *Service) RequireAccess(ctx context.Context, projectID, userID, operation, targetID string) (*models.Project, models.ProjectRole, error) {
	policy, ok := Policies[operation]
	if !ok {
		return nil, models.RoleNone, Internal(errUnknownOperation(operation))
	}
	project, role, err := s.ResolveRole(ctx, projectID, userID)
	if err != nil {
		return nil, models.RoleNone, err
	}
	if !policy.Allows(role, userID, targetID) {
		if role == models.RoleNone {
			return nil, role, Forbidden("You are not a member of this project")
		}
		return nil, role, Forbidden(policy.Denied)
	}
	return project, role, nil
}

type errUnknownOperation string

func (e errUnknownOperation) Error() string { return "no access policy for " + string(e) }
