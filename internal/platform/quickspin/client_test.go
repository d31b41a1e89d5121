package quickspin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickspin-labs/assistant/internal/assistant/model"
	"github.com/quickspin-labs/assistant/internal/core/errx"
)

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return NewWithHTTPClient(srv.URL, srv.Client()), srv
}

func TestListServicesSendsAuthAndQuery(t *testing.T) {
	var gotAuth, gotOrg, gotPath string
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotOrg = r.URL.Query().Get("organization_id")
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode(map[string]any{
			"services": []model.Service{{ID: "svc-1", Name: "cache-main"}},
		})
	}))
	defer srv.Close()

	services, err := c.ListServices(context.Background(), "tok-123", "org-9")
	require.NoError(t, err)
	require.Len(t, services, 1)
	assert.Equal(t, "svc-1", services[0].ID)
	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, "org-9", gotOrg)
	assert.Equal(t, "/api/v1/services", gotPath)
}

func TestListServicesEmptyOrgIsValid(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"services": []model.Service{}})
	}))
	defer srv.Close()

	services, err := c.ListServices(context.Background(), "tok", "org-empty")
	require.NoError(t, err)
	assert.Empty(t, services)
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		status   int
		wantKind errx.Kind
	}{
		{http.StatusNotFound, errx.KindServiceNotFound},
		{http.StatusUnauthorized, errx.KindPermissionDenied},
		{http.StatusForbidden, errx.KindPermissionDenied},
		{http.StatusPaymentRequired, errx.KindQuotaExceeded},
		{http.StatusTooManyRequests, errx.KindQuotaExceeded},
		{http.StatusInternalServerError, errx.KindCollaboratorUnavailable},
	}

	for _, tc := range tests {
		c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_ = json.NewEncoder(w).Encode(map[string]string{"detail": "nope"})
		}))

		_, err := c.GetService(context.Background(), "tok", "svc-x")
		require.Error(t, err, "status %d", tc.status)
		assert.True(t, errx.IsKind(err, tc.wantKind), "status %d got %v", tc.status, err)
		srv.Close()
	}
}

func TestCreateServiceSuccess(t *testing.T) {
	var gotReq model.ProvisionRequest
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"service": model.Service{ID: "svc-new", Name: gotReq.Name, Status: model.StatusProvisioning},
		})
	}))
	defer srv.Close()

	svc, err := c.CreateService(context.Background(), "tok", model.ProvisionRequest{
		Name: "redis-starter-1",
		Config: model.ServiceConfig{
			ServiceType: model.ServiceRedis,
			Tier:        model.TierStarter,
			MemoryMB:    256,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "svc-new", svc.ID)
	assert.Equal(t, "redis-starter-1", gotReq.Name)
	assert.Equal(t, model.ServiceRedis, gotReq.Config.ServiceType)
}

func TestCreateServiceFailureBecomesProvisionError(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"detail":      "cluster rejected instance",
			"resource_id": "svc-partial-9",
		})
	}))
	defer srv.Close()

	_, err := c.CreateService(context.Background(), "tok", model.ProvisionRequest{Name: "x"})
	require.Error(t, err)
	assert.True(t, errx.IsKind(err, errx.KindProvision))

	var xe *errx.Error
	require.ErrorAs(t, err, &xe)
	assert.Equal(t, "svc-partial-9", xe.ResourceID)
}

func TestCreateServicePermissionErrorPassesThrough(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := c.CreateService(context.Background(), "tok", model.ProvisionRequest{Name: "x"})
	require.Error(t, err)
	assert.True(t, errx.IsKind(err, errx.KindPermissionDenied))
}

func TestTimeoutMapsToCollaboratorTimeout(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.ListServices(ctx, "tok", "org")
	require.Error(t, err)
	assert.True(t, errx.IsKind(err, errx.KindCollaboratorTimeout), "got %v", err)
}

func TestGetLogsAndQuota(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/services/svc-1/logs":
			assert.Equal(t, "25", r.URL.Query().Get("lines"))
			_ = json.NewEncoder(w).Encode(map[string]any{"logs": []string{"line1", "line2"}})
		case "/api/v1/quota":
			_ = json.NewEncoder(w).Encode(model.Quota{MaxServices: 5, UsedServices: 2})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	logs, err := c.GetLogs(context.Background(), "tok", "svc-1", 25)
	require.NoError(t, err)
	assert.Equal(t, []string{"line1", "line2"}, logs)

	quota, err := c.GetQuota(context.Background(), "tok", "org")
	require.NoError(t, err)
	assert.Equal(t, 5, quota.MaxServices)
	assert.Equal(t, 2, quota.UsedServices)
}
