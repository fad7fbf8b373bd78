package access

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/woodcraft-storefront/internal/gateway"
	"github.com/mmeshcher/woodcraft-storefront/internal/model"
	"github.com/mmeshcher/woodcraft-storefront/internal/validation"
)

type stubBackend struct {
	mu sync.Mutex

	grant      model.AccessGrant
	checkFail  bool
	checkCalls int
	requested  int

	requests  []model.AccessRequest
	granted   map[string]int
	rejected  map[string]string
	listCalls int
}

func newStubBackend() *stubBackend {
	return &stubBackend{
		grant: model.AccessGrant{HasAccess: true, TimeRemaining: 42},
		requests: []model.AccessRequest{
			{ID: "r-1", UserID: "u-1", Username: "anna", Email: "anna@example.com", Status: "pending"},
			{ID: "r-2", UserID: "u-2", Username: "boris", Email: "boris@example.com", Status: "pending"},
		},
		granted:  map[string]int{},
		rejected: map[string]string{},
	}
}

func (s *stubBackend) CheckAIAccess(ctx context.Context, token string) gateway.Result[model.AccessGrant] {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkCalls++
	if s.checkFail {
		return gateway.Result[model.AccessGrant]{Kind: gateway.KindTransport, Error: "timeout"}
	}
	return gateway.Result[model.AccessGrant]{Success: true, Data: s.grant}
}

func (s *stubBackend) RequestAIAccess(ctx context.Context, token string) gateway.Result[gateway.Empty] {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requested++
	return gateway.Result[gateway.Empty]{Success: true}
}

func (s *stubBackend) ListAIAccessRequests(ctx context.Context, token string) gateway.Result[[]model.AccessRequest] {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	out := make([]model.AccessRequest, len(s.requests))
	copy(out, s.requests)
	return gateway.Result[[]model.AccessRequest]{Success: true, Data: out}
}

func (s *stubBackend) GrantAIAccess(ctx context.Context, userID string, hours int, token string) gateway.Result[gateway.Empty] {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.granted[userID] = hours
	s.drop(func(r model.AccessRequest) bool { return r.UserID == userID })
	return gateway.Result[gateway.Empty]{Success: true}
}

func (s *stubBackend) RejectAIAccess(ctx context.Context, requestID, reason, token string) gateway.Result[gateway.Empty] {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejected[requestID] = reason
	s.drop(func(r model.AccessRequest) bool { return r.ID == requestID })
	return gateway.Result[gateway.Empty]{Success: true}
}

func (s *stubBackend) drop(match func(model.AccessRequest) bool) {
	kept := s.requests[:0]
	for _, r := range s.requests {
		if !match(r) {
			kept = append(kept, r)
		}
	}
	s.requests = kept
}

func (s *stubBackend) checks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkCalls
}

func TestGrantMonitor_RefreshesInBackground(t *testing.T) {
	backend := newStubBackend()
	g := NewGrantMonitor(backend, zap.NewNop(), 2*time.Millisecond)

	g.Start("tok")
	require.True(t, g.Running())
	require.Eventually(t, func() bool { return backend.checks() >= 3 }, time.Second, time.Millisecond)

	grant, at := g.Latest()
	assert.True(t, grant.HasAccess)
	assert.Equal(t, 42, grant.TimeRemaining)
	assert.False(t, at.IsZero())

	g.Stop()
	assert.False(t, g.Running())
	n := backend.checks()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, n, backend.checks())

	grant, _ = g.Latest()
	assert.False(t, grant.HasAccess)
}

func TestGrantMonitor_FailedRefreshKeepsLastValue(t *testing.T) {
	backend := newStubBackend()
	g := NewGrantMonitor(backend, zap.NewNop(), time.Hour)

	_, err := g.Refresh(context.Background(), "tok")
	require.NoError(t, err)

	backend.checkFail = true
	_, err = g.Refresh(context.Background(), "tok")
	require.Error(t, err)

	grant, _ := g.Latest()
	assert.True(t, grant.HasAccess)
}

func TestGrantMonitor_RequestAccess(t *testing.T) {
	backend := newStubBackend()
	backend.grant = model.AccessGrant{}
	g := NewGrantMonitor(backend, zap.NewNop(), time.Hour)

	grant, err := g.RequestAccess(context.Background(), "tok")
	require.NoError(t, err)
	assert.True(t, grant.RequestPending)
	assert.False(t, grant.HasAccess)
	assert.Equal(t, 1, backend.requested)
}

func TestRequestsMonitor_GrantAndReject(t *testing.T) {
	backend := newStubBackend()
	r := NewRequestsMonitor(backend, zap.NewNop(), time.Hour)

	list, err := r.Refresh(context.Background(), "admin-tok")
	require.NoError(t, err)
	require.Len(t, list, 2)

	list, err = r.Grant(context.Background(), "u-1", 24, "admin-tok")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 24, backend.granted["u-1"])

	list, err = r.Reject(context.Background(), "r-2", "not a customer", "admin-tok")
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Equal(t, "not a customer", backend.rejected["r-2"])

	latest, _ := r.Latest()
	assert.Empty(t, latest)
}

func TestRequestsMonitor_Validation(t *testing.T) {
	backend := newStubBackend()
	r := NewRequestsMonitor(backend, zap.NewNop(), time.Hour)

	_, err := r.Grant(context.Background(), "u-1", 0, "admin-tok")
	require.ErrorIs(t, err, validation.ErrInvalidHours)

	_, err = r.Reject(context.Background(), "r-1", "  ", "admin-tok")
	require.ErrorIs(t, err, validation.ErrMissingReason)

	assert.Empty(t, backend.granted)
	assert.Empty(t, backend.rejected)
	assert.Zero(t, backend.listCalls)
}
