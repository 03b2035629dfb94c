package statusrefresh

type Input struct {
	// InterviewID is optional; without it the job only expires stale invites.
	InterviewID string `json:"interviewId"`
}

type Output struct {
	InterviewID    string `json:"interviewId,omitempty"`
	Status         string `json:"status,omitempty"`
	PreviousStatus string `json:"previousStatus,omitempty"`
	Changed        bool   `json:"changed"`
	ExpiredInvites int64  `json:"expiredInvites"`
}
