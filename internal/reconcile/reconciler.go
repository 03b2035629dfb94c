// Package reconcile reports tenant entities whose organization is no longer
// known to the ATS. It never repairs anything.
package reconcile

import (
	"context"
	"sort"
	"strings"

	apperrors "interview-sync/internal/common/errors"
	"interview-sync/internal/common/logger"
	"interview-sync/internal/models"
)

type Store interface {
	CountOrphans(ctx context.Context, groupID string, knownOrganizationIDs []string) (*models.OrphanedEntitySummary, error)
}

type Reconciler struct {
	store  Store
	logger logger.Logger
}

func NewReconciler(store Store, log logger.Logger) *Reconciler {
	return &Reconciler{
		store:  store,
		logger: log.WithFields(map[string]interface{}{"component": "orphan_reconciler"}),
	}
}

// Summarize counts live agents, guides, configurations, jobs and applicants in
// the group whose organization id is set and absent from known.
func (r *Reconciler) Summarize(ctx context.Context, groupID string, known []string) (*models.OrphanedEntitySummary, error) {
	if strings.TrimSpace(groupID) == "" {
		return nil, apperrors.NewValidationError("groupId is required")
	}

	summary, err := r.store.CountOrphans(ctx, groupID, normalize(known))
	if err != nil {
		return nil, err
	}
	summary.GroupID = groupID
	if summary.DanglingOrganizationIDs == nil {
		summary.DanglingOrganizationIDs = []string{}
	}

	if summary.HasOrphans() {
		r.logger.Warn("orphaned entities found", map[string]interface{}{
			"groupId":       groupID,
			"total":         summary.Total(),
			"organizations": len(summary.DanglingOrganizationIDs),
		})
	}
	return summary, nil
}

// normalize trims, lower-cases, drops blanks and dedups. The result is never
// nil so the store always binds an array.
func normalize(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.ToLower(strings.TrimSpace(id))
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ParseIDs splits a comma separated list of organization ids.
func ParseIDs(raw string) []string {
	if raw == "" {
		return []string{}
	}
	return normalize(strings.Split(raw, ","))
}
