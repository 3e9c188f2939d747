// Package admin implements user management for admin operators: listing,
// profile edits, soft deletion and platform stats.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/promptpilot/server/internal/domain"
	"github.com/promptpilot/server/internal/infra"
	"github.com/promptpilot/server/internal/sqlinline"
)

// Service coordinates admin user management against the store. Deletions are
// guarded per target id so concurrent requests for the same user cannot race.
type Service struct {
	sql    infra.SQLExecutor
	logger zerolog.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewService(sql infra.SQLExecutor, logger zerolog.Logger) *Service {
	return &Service{
		sql:      sql,
		logger:   logger,
		inflight: make(map[string]struct{}),
	}
}

// ListUsers loads all users and their role rows, joins them in memory and
// applies the filter. Locale shapes the last-active display strings.
func (s *Service) ListUsers(ctx context.Context, filter domain.UserFilter, locale string) ([]domain.AdminUser, error) {
	users, err := s.listUsers(ctx)
	if err != nil {
		return nil, err
	}
	rolesByUser, err := s.allUserRoles(ctx)
	if err != nil {
		return nil, err
	}
	joined := domain.JoinRoles(users, rolesByUser, time.Now(), locale)
	return filter.Apply(joined), nil
}

func (s *Service) listUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := s.sql.Query(ctx, sqlinline.QListUsers)
	if err != nil {
		return nil, fmt.Errorf("admin: list users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.GoogleSub, &u.Email, &u.Name, &u.Picture, &u.Locale, &u.Deleted, &u.LastSeenAt, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("admin: scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Service) allUserRoles(ctx context.Context) (map[string][]domain.Role, error) {
	rows, err := s.sql.Query(ctx, sqlinline.QSelectAllUserRoles)
	if err != nil {
		return nil, fmt.Errorf("admin: list roles: %w", err)
	}
	defer rows.Close()

	byUser := make(map[string][]domain.Role)
	for rows.Next() {
		var userID, raw string
		if err := rows.Scan(&userID, &raw); err != nil {
			return nil, fmt.Errorf("admin: scan role: %w", err)
		}
		if role, ok := domain.ParseRole(raw); ok {
			byUser[userID] = append(byUser[userID], role)
		}
	}
	return byUser, rows.Err()
}

func (s *Service) userRoles(ctx context.Context, userID string) ([]domain.Role, error) {
	rows, err := s.sql.Query(ctx, sqlinline.QSelectUserRoles, userID)
	if err != nil {
		return nil, fmt.Errorf("admin: roles for %s: %w", userID, err)
	}
	defer rows.Close()

	var roles []domain.Role
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("admin: scan role: %w", err)
		}
		if role, ok := domain.ParseRole(raw); ok {
			roles = append(roles, role)
		}
	}
	return roles, rows.Err()
}

// UpdateUserInput carries the editable profile fields.
type UpdateUserInput struct {
	Name  string
	Email string
}

// UpdateUser edits the target's profile fields and returns the updated row.
func (s *Service) UpdateUser(ctx context.Context, actorID, targetID string, in UpdateUserInput) (domain.User, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if name == "" || email == "" || !strings.Contains(email, "@") {
		return domain.User{}, domain.ErrValidation
	}

	var id string
	err := s.sql.QueryRow(ctx, sqlinline.QUpdateUserProfile, targetID, name, email).Scan(&id)
	if infra.IsNoRows(err) {
		return domain.User{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("admin: update user %s: %w", targetID, err)
	}

	s.audit(ctx, actorID, "admin.user.update", targetID, map[string]string{"name": name, "email": email})

	var u domain.User
	err = s.sql.QueryRow(ctx, sqlinline.QSelectUserByID, targetID).
		Scan(&u.ID, &u.GoogleSub, &u.Email, &u.Name, &u.Picture, &u.Locale, &u.Deleted, &u.LastSeenAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return domain.User{}, fmt.Errorf("admin: reload user %s: %w", targetID, err)
	}
	return u, nil
}

// DeleteUser soft-deletes the target after checking the role rule: only a
// superadmin may delete a superadmin. A second delete for the same target
// while one is in flight returns ErrDeleteInFlight.
func (s *Service) DeleteUser(ctx context.Context, actorID, targetID string) error {
	actorRoles, err := s.userRoles(ctx, actorID)
	if err != nil {
		return err
	}
	targetRoles, err := s.userRoles(ctx, targetID)
	if err != nil {
		return err
	}
	if !domain.CanDeleteUser(actorRoles, targetRoles) {
		return domain.ErrForbidden
	}

	if !s.beginDelete(targetID) {
		return domain.ErrDeleteInFlight
	}
	defer s.endDelete(targetID)

	var id string
	err = s.sql.QueryRow(ctx, sqlinline.QSoftDeleteUser, targetID).Scan(&id)
	if infra.IsNoRows(err) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("admin: delete user %s: %w", targetID, err)
	}

	s.audit(ctx, actorID, "admin.user.delete", targetID, nil)
	return nil
}

// BulkDeleteResult reports the per-target outcome: deleted targets, targets
// the actor was not allowed to delete, and targets that failed for another
// reason (missing, already mid-delete, store error).
type BulkDeleteResult struct {
	DeletedCount int      `json:"deleted_count"`
	Deleted      []string `json:"deleted"`
	Denied       []string `json:"denied"`
	Failed       []string `json:"failed"`
}

// BulkDelete deletes the targets one at a time. A failure on one target does
// not stop the rest; it lands in Denied or Failed instead.
func (s *Service) BulkDelete(ctx context.Context, actorID string, targetIDs []string) (BulkDeleteResult, error) {
	result := BulkDeleteResult{
		Deleted: make([]string, 0, len(targetIDs)),
		Denied:  make([]string, 0),
		Failed:  make([]string, 0),
	}
	for _, id := range targetIDs {
		err := s.DeleteUser(ctx, actorID, id)
		switch {
		case err == nil:
			result.Deleted = append(result.Deleted, id)
		case errors.Is(err, domain.ErrForbidden):
			s.logger.Warn().Str("target_id", id).Msg("bulk delete: target denied")
			result.Denied = append(result.Denied, id)
		default:
			s.logger.Warn().Err(err).Str("target_id", id).Msg("bulk delete: target failed")
			result.Failed = append(result.Failed, id)
		}
	}
	result.DeletedCount = len(result.Deleted)
	s.audit(ctx, actorID, "admin.user.bulk_delete", "", map[string]any{
		"requested": len(targetIDs),
		"deleted":   result.DeletedCount,
		"denied":    len(result.Denied),
	})
	return result, nil
}

// Stats is the aggregate platform summary shown on the admin dashboard.
type Stats struct {
	TotalUsers            int64 `json:"total_users"`
	DeletedUsers          int64 `json:"deleted_users"`
	ActiveSubscriptions   int64 `json:"active_subscriptions"`
	TrialingSubscriptions int64 `json:"trialing_subscriptions"`
	CanceledSubscriptions int64 `json:"canceled_subscriptions"`
	NewUsers24h           int64 `json:"new_users_24h"`
}

// Stats aggregates user and subscription counts in a single round trip.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.sql.QueryRow(ctx, sqlinline.QStatsSummary).
		Scan(&st.TotalUsers, &st.DeletedUsers, &st.ActiveSubscriptions, &st.TrialingSubscriptions, &st.CanceledSubscriptions, &st.NewUsers24h)
	if err != nil {
		return Stats{}, fmt.Errorf("admin: stats: %w", err)
	}
	return st, nil
}

func (s *Service) beginDelete(targetID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[targetID]; busy {
		return false
	}
	s.inflight[targetID] = struct{}{}
	return true
}

func (s *Service) endDelete(targetID string) {
	s.mu.Lock()
	delete(s.inflight, targetID)
	s.mu.Unlock()
}

func (s *Service) audit(ctx context.Context, actorID, action, targetID string, props any) {
	payload := []byte("{}")
	if props != nil {
		if b, err := json.Marshal(props); err == nil {
			payload = b
		}
	}
	if _, err := s.sql.Exec(ctx, sqlinline.QInsertAuditEvent, actorID, action, nullable(targetID), payload); err != nil {
		s.logger.Error().Err(err).Str("action", action).Msg("audit write failed")
	}
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
