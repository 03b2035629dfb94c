// Package webhooks authenticates inbound orchestrator callbacks and forwards
// interview results to group endpoints.
package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"interview-sync/internal/common/metrics"
)

const signaturePrefix = "sha256="

// Reason explains a verification verdict.
type Reason string

const (
	ReasonValid            Reason = "valid"
	ReasonUnsigned         Reason = "no_secret_configured"
	ReasonMissingSignature Reason = "missing_signature"
	ReasonBadTimestamp     Reason = "invalid_timestamp"
	ReasonReplayed         Reason = "outside_replay_window"
	ReasonMismatch         Reason = "signature_mismatch"
)

type Verdict struct {
	Valid  bool
	Reason Reason
}

// Sign returns "sha256=" followed by the lowercase hex HMAC-SHA256 of body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

type Verifier struct {
	window time.Duration
	// requireSecret rejects callbacks when no secret is configured.
	requireSecret bool
	now           func() time.Time
}

func NewVerifier(replayWindow time.Duration, requireSecret bool) *Verifier {
	return &Verifier{window: replayWindow, requireSecret: requireSecret, now: time.Now}
}

// Verify checks a callback body against its signature and optional unix
// timestamp header. An empty secret passes unless the verifier requires one.
func (v *Verifier) Verify(secret string, body []byte, signature, timestamp string) Verdict {
	verdict := v.verify(secret, body, signature, timestamp)
	metrics.WebhookVerifications.WithLabelValues(string(verdict.Reason)).Inc()
	return verdict
}

func (v *Verifier) verify(secret string, body []byte, signature, timestamp string) Verdict {
	if secret == "" {
		return Verdict{Valid: !v.requireSecret, Reason: ReasonUnsigned}
	}
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return Verdict{Reason: ReasonMissingSignature}
	}

	if timestamp = strings.TrimSpace(timestamp); timestamp != "" {
		ts, err := strconv.ParseInt(timestamp, 10, 64)
		if err != nil {
			return Verdict{Reason: ReasonBadTimestamp}
		}
		skew := v.now().Sub(time.Unix(ts, 0))
		if skew < 0 {
			skew = -skew
		}
		if skew > v.window {
			return Verdict{Reason: ReasonReplayed}
		}
	}

	expected := Sign(secret, body)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(signature))) {
		return Verdict{Reason: ReasonMismatch}
	}
	return Verdict{Valid: true, Reason: ReasonValid}
}
