package orphanssummarize

import "interview-sync/internal/models"

type Input struct {
	GroupID              string   `json:"groupId"`
	KnownOrganizationIDs []string `json:"knownOrganizationIds"`
}

type Output struct {
	Summary    *models.OrphanedEntitySummary `json:"orphanSummary"`
	Total      int                           `json:"orphanTotal"`
	HasOrphans bool                          `json:"hasOrphans"`
}
