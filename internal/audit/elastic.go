package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"interview-sync/internal/models"
)

// ElasticMirror indexes audit events by id, so re-indexing the same event is
// an overwrite.
type ElasticMirror struct {
	client  *elasticsearch.Client
	index   string
	timeout time.Duration
}

func NewElasticMirror(client *elasticsearch.Client, index string) *ElasticMirror {
	return &ElasticMirror{client: client, index: index, timeout: 5 * time.Second}
}

func (m *ElasticMirror) Index(ctx context.Context, event models.InterviewAuditLog) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	res, err := m.client.Index(
		m.index,
		bytes.NewReader(body),
		m.client.Index.WithDocumentID(event.ID),
		m.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("index audit event: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index audit event: %s", res.Status())
	}
	return nil
}
