// Package orchestrator is the HTTP transport to the counterpart tenant.
package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "interview-sync/internal/common/errors"
	commonhttp "interview-sync/internal/common/http"
	"interview-sync/internal/common/logger"
	"interview-sync/internal/common/metrics"
	"interview-sync/internal/credentials"
)

const maxErrorBody = 4096

// CallOptions carries the credential and deadline for one outbound call.
type CallOptions struct {
	Credential credentials.Credential
	Timeout    time.Duration
}

type Client struct {
	baseURL    string
	httpClient *commonhttp.Client
	logger     logger.Logger
}

func NewClient(baseURL string, httpClient *commonhttp.Client, log logger.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     log.WithFields(map[string]interface{}{"component": "orchestrator_client"}),
	}
}

func (c *Client) UpsertGroup(ctx context.Context, opts CallOptions, req GroupUpsertRequest) (*GroupUpsertResponse, error) {
	var out GroupUpsertResponse
	if err := c.do(ctx, opts, "upsert_group", http.MethodPost, "/ats/groups", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpsertJob(ctx context.Context, opts CallOptions, req JobUpsertRequest) error {
	return c.do(ctx, opts, "upsert_job", http.MethodPost, "/ats/jobs", req, nil)
}

func (c *Client) DeleteJob(ctx context.Context, opts CallOptions, externalJobID string) error {
	return c.do(ctx, opts, "delete_job", http.MethodDelete, "/ats/jobs/"+url.PathEscape(externalJobID), nil, nil)
}

func (c *Client) UpsertApplicant(ctx context.Context, opts CallOptions, req ApplicantUpsertRequest) error {
	return c.do(ctx, opts, "upsert_applicant", http.MethodPost, "/ats/applicants", req, nil)
}

func (c *Client) CreateInterview(ctx context.Context, opts CallOptions, req CreateInterviewRequest) (*CreateInterviewResponse, error) {
	var out CreateInterviewResponse
	if err := c.do(ctx, opts, "create_interview", http.MethodPost, "/ats/interviews", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetInterview(ctx context.Context, opts CallOptions, interviewID string) (*InterviewStatusResponse, error) {
	var out InterviewStatusResponse
	path := "/ats/interviews/" + url.PathEscape(interviewID)
	if err := c.do(ctx, opts, "get_interview", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RefreshInvite(ctx context.Context, opts CallOptions, interviewID string) (*InviteInfo, error) {
	var out InviteInfo
	path := "/ats/interviews/" + url.PathEscape(interviewID) + "/refresh-invite"
	if err := c.do(ctx, opts, "refresh_invite", http.MethodPost, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListAgents(ctx context.Context, opts CallOptions) ([]CatalogItem, error) {
	return c.list(ctx, opts, "list_agents", "/ats/agents")
}

func (c *Client) ListGuides(ctx context.Context, opts CallOptions) ([]CatalogItem, error) {
	return c.list(ctx, opts, "list_guides", "/ats/interview-guides")
}

func (c *Client) ListConfigurations(ctx context.Context, opts CallOptions) ([]CatalogItem, error) {
	return c.list(ctx, opts, "list_configurations", "/ats/configurations")
}

func (c *Client) list(ctx context.Context, opts CallOptions, operation, path string) ([]CatalogItem, error) {
	var out []CatalogItem
	if err := c.do(ctx, opts, operation, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetUser(ctx context.Context, opts CallOptions, userID string) (*User, error) {
	var out User
	if err := c.do(ctx, opts, "get_user", http.MethodGet, "/user?id="+url.QueryEscape(userID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetUserByAuth0Sub(ctx context.Context, opts CallOptions, sub string) (*User, error) {
	var out User
	path := "/user/by-auth0-sub/" + url.PathEscape(sub)
	if err := c.do(ctx, opts, "get_user_by_sub", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateUser(ctx context.Context, opts CallOptions, user User) (*User, error) {
	var out User
	if err := c.do(ctx, opts, "create_user", http.MethodPost, "/user", user, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do performs one JSON round trip. Transport failures and timeouts become
// connection errors, non-2xx responses become API errors carrying the body.
func (c *Client) do(ctx context.Context, opts CallOptions, operation, method, path string, in, out interface{}) error {
	start := time.Now()
	outcome := "success"
	defer func() {
		metrics.OrchestratorRequests.WithLabelValues(operation, outcome).Inc()
		metrics.OrchestratorRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			outcome = "encode_error"
			return apperrors.NewInternalError(fmt.Errorf("marshal %s request: %w", operation, err))
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		outcome = "encode_error"
		return apperrors.NewInternalError(fmt.Errorf("build %s request: %w", operation, err))
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if opts.Credential.Header != "" {
		req.Header.Set(opts.Credential.Header, opts.Credential.Value)
	}

	resp, cancel, err := c.httpClient.Do(ctx, req, opts.Timeout)
	defer cancel()
	if err != nil {
		outcome = "connection_error"
		c.logger.Warn("orchestrator call failed", map[string]interface{}{
			"operation": operation,
			"error":     err.Error(),
		})
		return apperrors.NewConnectionError(operation, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		outcome = "connection_error"
		return apperrors.NewConnectionError(operation, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		outcome = "api_error"
		snippet := respBody
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		c.logger.Warn("orchestrator returned error status", map[string]interface{}{
			"operation":  operation,
			"statusCode": resp.StatusCode,
		})
		return apperrors.NewAPIError(operation, resp.StatusCode, string(snippet))
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	// encoding/json matches field names case-insensitively.
	if err := json.Unmarshal(respBody, out); err != nil {
		outcome = "decode_error"
		return apperrors.NewAPIError(operation, resp.StatusCode, fmt.Sprintf("undecodable response: %v", err))
	}
	return nil
}
