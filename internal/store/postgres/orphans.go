package postgres

import (
	"context"
	"sort"
	"strings"

	"github.com/lib/pq"

	apperrors "interview-sync/internal/common/errors"
	"interview-sync/internal/models"
)

// orphanQuery groups live rows of every org-scoped table whose organization is
// set but not in the known set. An empty known set makes every set
// organization_id dangling. uuid::text is always lower case, so known ids are
// lowered before binding.
const orphanQuery = `
	SELECT kind, organization_id, COUNT(*) FROM (
		SELECT 'agents' AS kind, organization_id::text AS organization_id FROM agents
			WHERE group_id = $1 AND NOT is_deleted AND organization_id IS NOT NULL
		UNION ALL
		SELECT 'interview_guides', organization_id::text FROM interview_guides
			WHERE group_id = $1 AND NOT is_deleted AND organization_id IS NOT NULL
		UNION ALL
		SELECT 'interview_configurations', organization_id::text FROM interview_configurations
			WHERE group_id = $1 AND NOT is_deleted AND organization_id IS NOT NULL
		UNION ALL
		SELECT 'jobs', organization_id::text FROM jobs
			WHERE group_id = $1 AND NOT is_deleted AND organization_id IS NOT NULL
		UNION ALL
		SELECT 'applicants', organization_id::text FROM applicants
			WHERE group_id = $1 AND NOT is_deleted AND organization_id IS NOT NULL
	) scoped
	WHERE organization_id <> ALL($2::text[])
	GROUP BY kind, organization_id`

// CountOrphans summarizes org-scoped rows whose organization is unknown. It
// never modifies data.
func (s *Store) CountOrphans(ctx context.Context, groupID string, knownOrganizationIDs []string) (*models.OrphanedEntitySummary, error) {
	rows, err := s.db.QueryContext(ctx, orphanQuery, groupID, pq.Array(lowerIDs(knownOrganizationIDs)))
	if err != nil {
		return nil, apperrors.NewDatabaseError("count_orphans", err)
	}
	defer rows.Close()

	summary := &models.OrphanedEntitySummary{GroupID: groupID, DanglingOrganizationIDs: []string{}}
	dangling := map[string]struct{}{}
	for rows.Next() {
		var (
			kind, orgID string
			n           int
		)
		if err := rows.Scan(&kind, &orgID, &n); err != nil {
			return nil, apperrors.NewDatabaseError("count_orphans", err)
		}
		switch kind {
		case "agents":
			summary.Agents += n
		case "interview_guides":
			summary.InterviewGuides += n
		case "interview_configurations":
			summary.InterviewConfigurations += n
		case "jobs":
			summary.Jobs += n
		case "applicants":
			summary.Applicants += n
		}
		dangling[orgID] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError("count_orphans", err)
	}

	for id := range dangling {
		summary.DanglingOrganizationIDs = append(summary.DanglingOrganizationIDs, id)
	}
	sort.Strings(summary.DanglingOrganizationIDs)
	return summary, nil
}

func lowerIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, strings.ToLower(id))
	}
	return out
}
