package services

import (
	"context"
	"errors"
	"strings"

	"taskboard-backend/pkg/database"
	"taskboard-backend/pkg/mailer"
	"taskboard-backend/pkg/models"
)

// AddMember invites a user, identified by id or email, to the project.
func (s *Service) AddMember(ctx context.Context, projectID, inviterID string, req models.AddMemberRequest) (*models.ProjectInvitation, error) {
	project, _, err := s.RequireAccess(ctx, projectID, inviterID, "member.invite", "")
	if err != nil {
		return nil, err
	}
	inviter, err := s.db.GetUserByID(ctx, inviterID)
	if err != nil {
		return nil, fromStore(err, "User not found")
	}

	var (
		email     string
		inviteeID string
	)
	switch {
	case strings.TrimSpace(req.UserID) != "":
		u, err := s.db.GetUserByID(ctx, strings.TrimSpace(req.UserID))
		if err != nil {
			return nil, fromStore(err, "User not found")
		}
		email, inviteeID = models.NormalizeEmail(u.Email), u.ID
	case models.NormalizeEmail(req.Email) != "":
		email = models.NormalizeEmail(req.Email)
		u, err := s.db.GetUserByEmail(ctx, email)
		switch {
		case err == nil:
			inviteeID = u.ID
		case !errors.Is(err, database.ErrNotFound):
			return nil, Internal(err)
		}
	default:
		return nil, BadRequest("A userId or email is required")
	}

	if inviteeID == inviterID || email == models.NormalizeEmail(inviter.Email) {
		return nil, BadRequest("You cannot invite yourself")
	}
	if inviteeID != "" {
		_, err := s.db.GetProjectMember(ctx, projectID, inviteeID)
		if err == nil {
			return nil, Conflict("User is already a member of this project")
		}
		if !errors.Is(err, database.ErrNotFound) {
			return nil, Internal(err)
		}
	}
	if _, err := s.db.FindPendingInvitation(ctx, projectID, email); err == nil {
		return nil, Conflict("An invitation is already pending for this email")
	} else if !errors.Is(err, database.ErrNotFound) {
		return nil, Internal(err)
	}

	access := models.RoleMember
	if req.Access == models.RoleAdmin {
		access = models.RoleAdmin
	}
	inv := &models.ProjectInvitation{
		ID:           newID(),
		ProjectID:    projectID,
		InviterID:    inviterID,
		Email:        email,
		Access:       access,
		Status:       models.InvitationPending,
		CreatedAt:    s.now(),
		ProjectTitle: project.Title,
	}
	if inviteeID != "" {
		inv.InviteeID = &inviteeID
	}
	if err := s.db.CreateInvitation(ctx, inv); err != nil {
		if errors.Is(err, database.ErrConflict) {
			return nil, Conflict("An invitation is already pending for this email")
		}
		return nil, Internal(err)
	}

	s.sendMail(mailer.InvitationMessage(email, mailer.InvitationData{
		InviterName:  displayName(inviter),
		ProjectTitle: project.Title,
		Access:       string(access),
		Link:         s.baseURL + "/invitations",
	}))
	return inv, nil
}

// RespondToInvitation accepts or declines an invitation on behalf of userID.
func (s *Service) RespondToInvitation(ctx context.Context, invitationID, userID string, action models.InvitationAction) (*models.ProjectInvitation, error) {
	if action != models.InvitationAccept && action != models.InvitationDecline {
		return nil, BadRequest("Action must be accept or decline")
	}
	inv, err := s.db.GetInvitation(ctx, invitationID)
	if err != nil {
		return nil, fromStore(err, "Invitation not found")
	}
	if inv.Status != models.InvitationPending {
		return nil, BadRequest("Invitation has already been answered")
	}
	user, err := s.db.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fromStore(err, "User not found")
	}
	if !inv.Invitee().Matches(user.ID, user.Email) {
		return nil, Forbidden("This invitation is not addressed to you")
	}

	now := s.now()
	inv.InviteeID = &user.ID
	inv.RespondedAt = &now
	inv.Status = models.InvitationDeclined
	if action == models.InvitationAccept {
		inv.Status = models.InvitationAccepted
	}

	err = s.db.InTx(ctx, func(tx database.DatabaseInterface) error {
		resolved, err := tx.ResolveInvitation(ctx, inv)
		if err != nil {
			return err
		}
		if !resolved {
			return BadRequest("Invitation has already been answered")
		}
		if inv.Status != models.InvitationAccepted {
			return nil
		}
		_, err = tx.AddProjectMember(ctx, &models.ProjectMember{
			ProjectID: inv.ProjectID,
			UserID:    user.ID,
			Access:    inv.Access,
			CreatedAt: now,
		})
		return err
	})
	if err != nil {
		return nil, fromStore(err, "Invitation not found")
	}
	return inv, nil
}

// RemoveMember removes targetUserID from the project. Members may remove
// themselves; only the owner may remove others. The owner is never removable.
func (s *Service) RemoveMember(ctx context.Context, projectID, actorID, targetUserID string) error {
	project, _, err := s.RequireAccess(ctx, projectID, actorID, "member.remove", targetUserID)
	if err != nil {
		return err
	}
	if targetUserID == project.OwnerID {
		return BadRequest("The project owner cannot be removed")
	}
	if err := s.db.RemoveProjectMember(ctx, projectID, targetUserID); err != nil {
		return fromStore(err, "Member not found")
	}
	return nil
}

// PromoteMember changes a member's access between admin and member.
func (s *Service) PromoteMember(ctx context.Context, projectID, actorID, userID string, access models.ProjectRole) (*models.ProjectMember, error) {
	project, _, err := s.RequireAccess(ctx, projectID, actorID, "member.change_access", "")
	if err != nil {
		return nil, err
	}
	if access != models.RoleAdmin && access != models.RoleMember {
		return nil, BadRequest("Access must be admin or member")
	}
	if userID == project.OwnerID {
		return nil, BadRequest("The project owner's access cannot be changed")
	}
	member, err := s.db.GetProjectMember(ctx, projectID, userID)
	if err != nil {
		return nil, fromStore(err, "Member not found")
	}
	if member.Access == models.RoleOwner {
		return nil, BadRequest("The project owner's access cannot be changed")
	}
	if err := s.db.UpdateProjectMemberAccess(ctx, projectID, userID, access); err != nil {
		return nil, fromStore(err, "Member not found")
	}
	member.Access = access
	return member, nil
}

// ListMembers returns the project's members with their names and emails.
func (s *Service) ListMembers(ctx context.Context, projectID, actorID string) ([]models.ProjectMember, error) {
	if _, _, err := s.RequireAccess(ctx, projectID, actorID, "member.list", ""); err != nil {
		return nil, err
	}
	members, err := s.db.ListProjectMembers(ctx, projectID)
	if err != nil {
		return nil, Internal(err)
	}
	return members, nil
}

// ListProjectInvitations returns the project's pending invitations.
func (s *Service) ListProjectInvitations(ctx context.Context, projectID, actorID string) ([]models.ProjectInvitation, error) {
	if _, _, err := s.RequireAccess(ctx, projectID, actorID, "invitation.list", ""); err != nil {
		return nil, err
	}
	invs, err := s.db.ListProjectInvitations(ctx, projectID, models.InvitationPending)
	if err != nil {
		return nil, Internal(err)
	}
	return invs, nil
}

// ListMyInvitations returns pending invitations addressed to the user, by
// binding or by the user's current email.
func (s *Service) ListMyInvitations(ctx context.Context, userID string) ([]models.ProjectInvitation, error) {
	user, err := s.db.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fromStore(err, "User not found")
	}
	invs, err := s.db.ListInvitationsForUser(ctx, user.ID, models.NormalizeEmail(user.Email))
	if err != nil {
		return nil, Internal(err)
	}
	return invs, nil
}

func displayName(u *models.User) string {
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	return u.Email
}
