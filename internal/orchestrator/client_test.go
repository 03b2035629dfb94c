package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "interview-sync/internal/common/errors"
	commonhttp "interview-sync/internal/common/http"
	"interview-sync/internal/common/logger"
	"interview-sync/internal/credentials"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	hc := commonhttp.NewClientWithHTTP(srv.Client(), 2*time.Second)
	return NewClient(srv.URL+"/", hc, logger.NewTestLogger(t)), srv
}

func apiKey(v string) CallOptions {
	return CallOptions{Credential: credentials.Credential{Header: credentials.HeaderAPIKey, Value: v}}
}

func TestClient_CreateInterview(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/ats/interviews", r.URL.Path)
		assert.Equal(t, "group-key", r.Header.Get("X-API-Key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req CreateInterviewRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "J1", req.ExternalJobID)
		assert.Equal(t, "A1", req.ExternalApplicantID)

		// property names deliberately differ in case
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"InterviewId":"orch-1","TOKEN":"tok","invite":{"shortcode":"ABC123","expiresAt":"2026-01-02T15:04:05Z","maxUses":3}}`))
	})

	resp, err := client.CreateInterview(context.Background(), apiKey("group-key"), CreateInterviewRequest{
		ExternalJobID:       "J1",
		ExternalApplicantID: "A1",
		AgentID:             "agent-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "orch-1", resp.InterviewID)
	assert.Equal(t, "tok", resp.Token)
	require.NotNil(t, resp.Invite)
	assert.Equal(t, "ABC123", resp.Invite.ShortCode)
	assert.Equal(t, 3, resp.Invite.MaxUses)
}

func TestClient_APIErrorCarriesStatusAndBody(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"unknown job"}`))
	})

	err := client.UpsertApplicant(context.Background(), apiKey("k"), ApplicantUpsertRequest{ExternalApplicantID: "A1"})
	require.Error(t, err)

	assert.True(t, apperrors.IsAPI(err))
	assert.True(t, errors.Is(err, apperrors.ErrAPI))
	assert.Equal(t, http.StatusUnprocessableEntity, apperrors.StatusCode(err))

	stdErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Contains(t, stdErr.Metadata["body"], "unknown job")
}

func TestClient_TimeoutIsConnectionError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(500 * time.Millisecond):
		case <-r.Context().Done():
		}
	})

	opts := apiKey("k")
	opts.Timeout = 20 * time.Millisecond
	_, err := client.GetInterview(context.Background(), opts, "orch-1")
	require.Error(t, err)
	assert.True(t, apperrors.IsConnection(err))
	assert.False(t, apperrors.IsAPI(err))
}

func TestClient_UnreachableIsConnectionError(t *testing.T) {
	client, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	err := client.DeleteJob(context.Background(), apiKey("k"), "J1")
	require.Error(t, err)
	assert.True(t, apperrors.IsConnection(err))
}

func TestClient_BootstrapHeader(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ats/groups", r.URL.Path)
		assert.Equal(t, "boot", r.Header.Get("X-Bootstrap-Secret"))
		assert.Empty(t, r.Header.Get("X-API-Key"))
		_, _ = w.Write([]byte(`{"groupId":"g-remote","apiKey":"issued-key"}`))
	})

	opts := CallOptions{Credential: credentials.Credential{Header: credentials.HeaderBootstrapSecret, Value: "boot"}}
	resp, err := client.UpsertGroup(context.Background(), opts, GroupUpsertRequest{ExternalGroupID: "ext-1", Name: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, "issued-key", resp.APIKey)
}

func TestClient_PathEscaping(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ats/jobs/J%2F1", r.URL.EscapedPath())
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.DeleteJob(context.Background(), apiKey("k"), "J/1"))
}

func TestClient_ListAgents(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ats/agents", r.URL.Path)
		_, _ = w.Write([]byte(`[{"id":"a1","name":"Ava"},{"id":"a2","name":"Max"}]`))
	})

	agents, err := client.ListAgents(context.Background(), apiKey("k"))
	require.NoError(t, err)
	require.Len(t, agents, 2)
	assert.Equal(t, "Ava", agents[0].Name)
}
