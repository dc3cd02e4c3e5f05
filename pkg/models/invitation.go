package models

import (
	"strings"
	"time"
)

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
)

// IsValid reports whether s is a known invitation status.
func (s InvitationStatus) IsValid() bool {
	switch s {
	case InvitationPending, InvitationAccepted, InvitationDeclined:
		return true
	default:
		return false
	}
}

// InvitationAction is the invitee's answer to an invitation.
type InvitationAction string

const (
	InvitationAccept  InvitationAction = "accept"
	InvitationDecline InvitationAction = "decline"
)

// ProjectInvitation is an offer of membership addressed to an email,
// optionally bound to a registered user.
type ProjectInvitation struct {
	ID          string           `json:"id" db:"id"`
	ProjectID   string           `json:"project_id" db:"project_id"`
	InviterID   string           `json:"inviter_id" db:"inviter_id"`
	Email       string           `json:"email" db:"email"`
	InviteeID   *string          `json:"invitee_id,omitempty" db:"invitee_id"`
	Access      ProjectRole      `json:"access" db:"access"`
	Status      InvitationStatus `json:"status" db:"status"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
	RespondedAt *time.Time       `json:"responded_at,omitempty" db:"responded_at"`
	// populated by listings
	ProjectTitle string `json:"project_title,omitempty" db:"-"`
}

// Invitee is the identity an invitation is addressed to: either a known
// account or an email that has not been bound to one yet.
type Invitee struct {
	UserID string
	Email  string
}

// Known reports whether the invitation is bound to a concrete account.
func (i Invitee) Known() bool { return i.UserID != "" }

// Invitee returns the invitation's addressee.
func (inv *ProjectInvitation) Invitee() Invitee {
	if inv.InviteeID != nil && *inv.InviteeID != "" {
		return Invitee{UserID: *inv.InviteeID, Email: inv.Email}
	}
	return Invitee{Email: inv.Email}
}

// Matches reports whether the given account proves the invitee identity:
// the bound user id when known, otherwise the normalized email.
func (i Invitee) Matches(userID, email string) bool {
	if i.Known() {
		return i.UserID == userID
	}
	return NormalizeEmail(email) != "" && NormalizeEmail(email) == i.Email
}

// RespondInvitationRequest is the payload for PATCH /project/invitations/{invitationId}
type RespondInvitationRequest struct {
	Action InvitationAction `json:"action" validate:"required,oneof=accept decline"`
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
