// Package quickspin implements the services-API collaborator: a thin JSON
// client over the QuickSpin control plane. Every call carries the caller's
// bearer credential and is bounded by the client timeout; failures surface as
// typed errors, never as silently empty results.
package quickspin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/quickspin-labs/assistant/internal/assistant/model"
	"github.com/quickspin-labs/assistant/internal/core/errx"
	logx "github.com/quickspin-labs/assistant/pkg/logger"
)

const apiPrefix = "/api/v1"

type Client struct {
	http    *http.Client
	baseURL string
}

// New builds a client from config. The timeout applies per call.
func New(cfg model.QuickSpinConfig) *Client {
	return &Client{
		http:    &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second},
		baseURL: cfg.APIURL,
	}
}

// NewWithHTTPClient is used by tests to point the client at a stub server.
func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	return &Client{http: hc, baseURL: baseURL}
}

func (c *Client) do(ctx context.Context, token, method, path string, query url.Values, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	u := c.baseURL + apiPrefix + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		var ue *url.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ue) && ue.Timeout()) {
			return errx.New(err, errx.KindCollaboratorTimeout, "services API call timed out")
		}
		return errx.New(err, errx.KindCollaboratorUnavailable, "services API is unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.apiError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// apiError maps an HTTP error status onto the assistant's error taxonomy,
// keeping the server's detail message when one is present.
func (c *Client) apiError(resp *http.Response) error {
	var payload struct {
		Detail     string `json:"detail"`
		ResourceID string `json:"resource_id"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&payload)

	detail := payload.Detail
	if detail == "" {
		detail = resp.Status
	}
	base := fmt.Errorf("services API: %s", detail)

	switch resp.StatusCode {
	case http.StatusNotFound:
		return errx.New(base, errx.KindServiceNotFound, detail)
	case http.StatusUnauthorized, http.StatusForbidden:
		return errx.New(base, errx.KindPermissionDenied, detail)
	case http.StatusPaymentRequired, http.StatusTooManyRequests:
		return errx.New(base, errx.KindQuotaExceeded, detail)
	default:
		e := errx.New(base, errx.KindCollaboratorUnavailable, detail)
		e.ResourceID = payload.ResourceID
		return e
	}
}

// ListServices returns every service in the organization. A genuinely empty
// organization yields an empty slice, which is a valid result.
func (c *Client) ListServices(ctx context.Context, token, orgID string) ([]model.Service, error) {
	var out struct {
		Services []model.Service `json:"services"`
	}
	q := url.Values{"organization_id": {orgID}}
	if err := c.do(ctx, token, http.MethodGet, "/services", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Services, nil
}

// GetService loads one service by id.
func (c *Client) GetService(ctx context.Context, token, serviceID string) (*model.Service, error) {
	var svc model.Service
	if err := c.do(ctx, token, http.MethodGet, "/services/"+serviceID, nil, nil, &svc); err != nil {
		return nil, err
	}
	return &svc, nil
}

// CreateService provisions a new instance. This is the one mutating call
// whose failure may leave a partially-created remote resource; the returned
// error carries the resource id when the control plane reported one.
func (c *Client) CreateService(ctx context.Context, token string, req model.ProvisionRequest) (*model.Service, error) {
	var out struct {
		Service model.Service `json:"service"`
	}
	if err := c.do(ctx, token, http.MethodPost, "/services", nil, req, &out); err != nil {
		var e *errx.Error
		if errors.As(err, &e) && e.Kind == errx.KindCollaboratorUnavailable {
			pe := errx.New(e.Err, errx.KindProvision, e.Message)
			pe.ResourceID = e.ResourceID
			return nil, pe
		}
		return nil, err
	}
	logx.Info().
		Str("service_id", out.Service.ID).
		Str("service_type", string(out.Service.ServiceType)).
		Msg("service provisioned")
	return &out.Service, nil
}

// DeleteService removes a service.
func (c *Client) DeleteService(ctx context.Context, token, serviceID string) error {
	return c.do(ctx, token, http.MethodDelete, "/services/"+serviceID, nil, nil, nil)
}

// GetMetrics returns the usage snapshot for a service.
func (c *Client) GetMetrics(ctx context.Context, token, serviceID string) (model.ServiceMetrics, error) {
	var m model.ServiceMetrics
	if err := c.do(ctx, token, http.MethodGet, "/services/"+serviceID+"/metrics", nil, nil, &m); err != nil {
		return model.ServiceMetrics{}, err
	}
	return m, nil
}

// GetLogs returns up to lines recent log lines for a service.
func (c *Client) GetLogs(ctx context.Context, token, serviceID string, lines int) ([]string, error) {
	var out struct {
		Logs []string `json:"logs"`
	}
	q := url.Values{"lines": {strconv.Itoa(lines)}}
	if err := c.do(ctx, token, http.MethodGet, "/services/"+serviceID+"/logs", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Logs, nil
}

// GetBilling returns the organization's billing summary.
func (c *Client) GetBilling(ctx context.Context, token, orgID string) (*model.BillingSummary, error) {
	var b model.BillingSummary
	q := url.Values{"organization_id": {orgID}}
	if err := c.do(ctx, token, http.MethodGet, "/billing", q, nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// GetQuota returns the organization's provisioning allowance.
func (c *Client) GetQuota(ctx context.Context, token, orgID string) (model.Quota, error) {
	var qt model.Quota
	q := url.Values{"organization_id": {orgID}}
	if err := c.do(ctx, token, http.MethodGet, "/quota", q, nil, &qt); err != nil {
		return model.Quota{}, err
	}
	return qt, nil
}

// ScaleService updates a service's configuration in place.
func (c *Client) ScaleService(ctx context.Context, token, serviceID string, cfg model.ServiceConfig) (*model.Service, error) {
	var out struct {
		Service model.Service `json:"service"`
	}
	body := map[string]any{"config": cfg}
	if err := c.do(ctx, token, http.MethodPatch, "/services/"+serviceID, nil, body, &out); err != nil {
		return nil, err
	}
	return &out.Service, nil
}
