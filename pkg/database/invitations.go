package database

import (
	"context"
	"database/sql"
	"fmt"

	"taskboard-backend/pkg/models"
)

const invitationColumns = `i.id, i.project_id, i.inviter_id, i.email, i.invitee_id, i.access, i.status, i.created_at, i.responded_at, p.title`

func scanInvitation(row rowScanner) (*models.ProjectInvitation, error) {
	var (
		inv         models.ProjectInvitation
		inviteeID   sql.NullString
		respondedAt sql.NullTime
	)
	if err := row.Scan(&inv.ID, &inv.ProjectID, &inv.InviterID, &inv.Email, &inviteeID,
		&inv.Access, &inv.Status, &inv.CreatedAt, &respondedAt, &inv.ProjectTitle); err != nil {
		return nil, err
	}
	if inviteeID.Valid {
		id := inviteeID.String
		inv.InviteeID = &id
	}
	if respondedAt.Valid {
		t := respondedAt.Time
		inv.RespondedAt = &t
	}
	return &inv, nil
}

func (s *SQLDatabase) listInvitations(ctx context.Context, where string, args ...any) ([]models.ProjectInvitation, error) {
	rows, err := s.query(ctx, `
		SELECT `+invitationColumns+`
		FROM project_invitations i
		JOIN projects p ON p.id = i.project_id
		WHERE `+where+`
		ORDER BY i.created_at, i.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	defer rows.Close()

	out := []models.ProjectInvitation{}
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invitation: %w", err)
		}
		out = append(out, *inv)
	}
	return out, rows.Err()
}

// CreateInvitation 创建邀请；同一项目同一邮箱只能有一个待处理邀请
func (s *SQLDatabase) CreateInvitation(ctx context.Context, inv *models.ProjectInvitation) error {
	if inv.Status == "" {
		inv.Status = models.InvitationPending
	}
	_, err := s.exec(ctx, `
		INSERT INTO project_invitations (id, project_id, inviter_id, email, invitee_id, access, status, created_at, responded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.ProjectID, inv.InviterID, inv.Email, nullString(inv.InviteeID),
		string(inv.Access), string(inv.Status), inv.CreatedAt.UTC(), nullTime(inv.RespondedAt))
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert invitation: %w", err)
	}
	return nil
}

// GetInvitation 获取邀请
func (s *SQLDatabase) GetInvitation(ctx context.Context, id string) (*models.ProjectInvitation, error) {
	inv, err := scanInvitation(s.queryRow(ctx, `
		SELECT `+invitationColumns+`
		FROM project_invitations i
		JOIN projects p ON p.id = i.project_id
		WHERE i.id = ?`, id))
	if err != nil {
		return nil, notFoundOr(err, "get invitation")
	}
	return inv, nil
}

// FindPendingInvitation 查找项目中某邮箱的待处理邀请
func (s *SQLDatabase) FindPendingInvitation(ctx context.Context, projectID, email string) (*models.ProjectInvitation, error) {
	inv, err := scanInvitation(s.queryRow(ctx, `
		SELECT `+invitationColumns+`
		FROM project_invitations i
		JOIN projects p ON p.id = i.project_id
		WHERE i.project_id = ? AND i.email = ? AND i.status = 'pending'`, projectID, email))
	if err != nil {
		return nil, notFoundOr(err, "find pending invitation")
	}
	return inv, nil
}

// ListProjectInvitations 按状态列出项目邀请
func (s *SQLDatabase) ListProjectInvitations(ctx context.Context, projectID string, status models.InvitationStatus) ([]models.ProjectInvitation, error) {
	return s.listInvitations(ctx, `i.project_id = ? AND i.status = ?`, projectID, string(status))
}

// ListInvitationsForUser 列出发给用户的待处理邀请（按用户ID或未绑定的邮箱）
func (s *SQLDatabase) ListInvitationsForUser(ctx context.Context, userID, email string) ([]models.ProjectInvitation, error) {
	return s.listInvitations(ctx,
		`i.status = 'pending' AND (i.invitee_id = ? OR (i.invitee_id IS NULL AND i.email = ?))`,
		userID, email)
}

// ResolveInvitation 仅在邀请仍为 pending 时写入响应
func (s *SQLDatabase) ResolveInvitation(ctx context.Context, inv *models.ProjectInvitation) (bool, error) {
	res, err := s.exec(ctx, `
		UPDATE project_invitations
		SET status = ?, invitee_id = ?, responded_at = ?
		WHERE id = ? AND status = 'pending'`,
		string(inv.Status), nullString(inv.InviteeID), nullTime(inv.RespondedAt), inv.ID)
	if err != nil {
		return false, fmt.Errorf("resolve invitation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
