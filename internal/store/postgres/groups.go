package postgres

import (
	"context"
	"fmt"

	apperrors "interview-sync/internal/common/errors"
	"interview-sync/internal/models"
)

const groupColumns = `id, name, external_group_id, api_key_hash, orchestrator_api_key, ats_url,
	ats_api_key, webhook_secret, request_timeout_ms, is_active, created_at, updated_at`

func scanGroup(row interface{ Scan(...interface{}) error }) (*models.Group, error) {
	var g models.Group
	err := row.Scan(&g.ID, &g.Name, &g.ExternalGroupID, &g.APIKeyHash, &g.OrchestratorAPIKey, &g.ATSURL,
		&g.ATSAPIKey, &g.WebhookSecret, &g.RequestTimeoutMs, &g.IsActive, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// CreateGroup inserts a group. The caller supplies the hash of the group's inbound API key.
func (s *Store) CreateGroup(ctx context.Context, g *models.Group) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO groups (id, name, external_group_id, api_key_hash, ats_url, ats_api_key,
			webhook_secret, request_timeout_ms, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`,
		g.ID, g.Name, g.ExternalGroupID, g.APIKeyHash, g.ATSURL, g.ATSAPIKey,
		g.WebhookSecret, g.RequestTimeoutMs, g.IsActive,
	).Scan(&g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return apperrors.NewDatabaseError("create_group", err)
	}
	return nil
}

func (s *Store) GetGroup(ctx context.Context, id string) (*models.Group, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+groupColumns+` FROM groups WHERE id = $1`, id)
	g, err := scanGroup(row)
	if err != nil {
		return nil, notFoundOr(err, "Group", fmt.Sprintf("groupId: %s", id), "get_group")
	}
	return g, nil
}

// GetGroupByAPIKeyHash resolves an inbound API key (already hashed) to an active group.
func (s *Store) GetGroupByAPIKeyHash(ctx context.Context, hash string) (*models.Group, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+groupColumns+` FROM groups WHERE api_key_hash = $1 AND is_active`, hash)
	g, err := scanGroup(row)
	if err != nil {
		return nil, notFoundOr(err, "Group", "api key", "get_group_by_key")
	}
	return g, nil
}

// SetOrchestratorAPIKey stores the key issued by the orchestrator at group sync.
func (s *Store) SetOrchestratorAPIKey(ctx context.Context, groupID, key string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE groups SET orchestrator_api_key = $2, updated_at = NOW() WHERE id = $1`, groupID, key)
	if err != nil {
		return apperrors.NewDatabaseError("set_orchestrator_key", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NewResourceNotFoundError("Group", fmt.Sprintf("groupId: %s", groupID))
	}
	return nil
}
