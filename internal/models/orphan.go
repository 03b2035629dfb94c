package models

// OrphanedEntitySummary counts live rows whose organization is not in the
// caller's known set.
type OrphanedEntitySummary struct {
	GroupID                 string   `json:"groupId"`
	Agents                  int      `json:"agents"`
	InterviewGuides         int      `json:"interviewGuides"`
	InterviewConfigurations int      `json:"interviewConfigurations"`
	Jobs                    int      `json:"jobs"`
	Applicants              int      `json:"applicants"`
	DanglingOrganizationIDs []string `json:"danglingOrganizationIds"`
}

func (s *OrphanedEntitySummary) Total() int {
	return s.Agents + s.InterviewGuides + s.InterviewConfigurations + s.Jobs + s.Applicants
}

func (s *OrphanedEntitySummary) HasOrphans() bool {
	return s.Total() > 0
}
