package invitenotify

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
	ChannelBoth  = "both"

	StatusSent    = "SENT"
	StatusSkipped = "SKIPPED"
)

type Input struct {
	InterviewID string `json:"interviewId"`
	// Channel defaults to email.
	Channel string `json:"channel"`
}

type Output struct {
	InterviewID    string `json:"interviewId"`
	Status         string `json:"status"`
	Reason         string `json:"reason,omitempty"`
	Link           string `json:"link,omitempty"`
	EmailMessageID string `json:"emailMessageId,omitempty"`
	SMSMessageID   string `json:"smsMessageId,omitempty"`
	SentAt         string `json:"sentAt,omitempty"`
}
