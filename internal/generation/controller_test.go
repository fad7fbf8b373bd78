package generation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/woodcraft-storefront/internal/gateway"
	"github.com/mmeshcher/woodcraft-storefront/internal/model"
	"github.com/mmeshcher/woodcraft-storefront/internal/validation"
	"github.com/mmeshcher/woodcraft-storefront/internal/watermark"
)

type stubBackend struct {
	mu sync.Mutex

	access   gateway.Result[model.AccessGrant]
	submit   gateway.Result[string]
	statuses []gateway.Result[model.GenerationJob]

	accessCalls int
	submitCalls int
	statusCalls int
}

func newStubBackend(statuses ...gateway.Result[model.GenerationJob]) *stubBackend {
	return &stubBackend{
		access:   gateway.Result[model.AccessGrant]{Success: true, Data: model.AccessGrant{HasAccess: true, TimeRemaining: 60}},
		submit:   gateway.Result[string]{Success: true, Data: "g-1"},
		statuses: statuses,
	}
}

func (s *stubBackend) CheckAIAccess(ctx context.Context, token string) gateway.Result[model.AccessGrant] {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessCalls++
	return s.access
}

func (s *stubBackend) GenerateRoom(ctx context.Context, roomImage, prompt, token string) gateway.Result[string] {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitCalls++
	return s.submit
}

func (s *stubBackend) GenerationStatus(ctx context.Context, generationID, token string) gateway.Result[model.GenerationJob] {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusCalls++
	if len(s.statuses) == 0 {
		return status(model.GenerationGenerating)
	}
	i := s.statusCalls - 1
	if i >= len(s.statuses) {
		i = len(s.statuses) - 1
	}
	return s.statuses[i]
}

func (s *stubBackend) calls() (access, submit, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessCalls, s.submitCalls, s.statusCalls
}

func status(st model.GenerationStatus) gateway.Result[model.GenerationJob] {
	return gateway.Result[model.GenerationJob]{Success: true, Data: model.GenerationJob{Status: st}}
}

func completed(url string) gateway.Result[model.GenerationJob] {
	return gateway.Result[model.GenerationJob]{Success: true, Data: model.GenerationJob{
		Status:            model.GenerationCompleted,
		GeneratedImageURL: url,
		RoomAnalysis:      "bright living room with oak floor",
	}}
}

func transportError() gateway.Result[model.GenerationJob] {
	return gateway.Result[model.GenerationJob]{Kind: gateway.KindTransport, Error: "connection reset by peer"}
}

type stubProtector struct{}

func (stubProtector) Protect(ctx context.Context, imageURL string) string {
	return "data:image/png;base64,protected(" + imageURL + ")"
}

var validInput = Input{
	UserID:    "u-1",
	Token:     "tok",
	RoomImage: "data:image/png;base64,AAAA",
	Prompt:    "modern minimalist living room",
}

func newTestController(t *testing.T, backend Backend, protector Protector, maxPolls int) (*Controller, *MemoryHistory) {
	t.Helper()

	history := NewMemoryHistory()
	c := NewController(backend, protector, history, zap.NewNop(), Options{
		PollInterval: time.Millisecond,
		MaxPolls:     maxPolls,
	})
	t.Cleanup(c.Close)
	return c, history
}

func waitTerminal(t *testing.T, c *Controller) Snapshot {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	snap, err := c.Wait(ctx)
	require.NoError(t, err)
	require.True(t, snap.State.IsTerminal(), "state = %s", snap.State)
	return snap
}

func TestController_GeneratingThenCompleted(t *testing.T) {
	backend := newStubBackend(
		status(model.GenerationGenerating),
		completed("https://x/img.png"),
	)
	c, history := newTestController(t, backend, stubProtector{}, 50)

	snap, err := c.Start(context.Background(), validInput)
	require.NoError(t, err)
	assert.Equal(t, StatePolling, snap.State)
	require.NotNil(t, snap.Job)
	assert.Equal(t, "g-1", snap.Job.GenerationID)

	final := waitTerminal(t, c)
	assert.Equal(t, StateCompleted, final.State)
	assert.Equal(t, "data:image/png;base64,protected(https://x/img.png)", final.Image)
	assert.Empty(t, final.Progress)
	assert.Equal(t, 2, final.Polls)

	_, _, statusCalls := backend.calls()
	assert.Equal(t, 2, statusCalls)

	recs, err := history.List(context.Background(), "u-1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, final.Image, recs[0].Image)
	assert.Equal(t, validInput.Prompt, recs[0].Prompt)
	assert.Equal(t, "bright living room with oak floor", recs[0].RoomAnalysis)
}

func TestController_GeneratingTwiceThenCompleted(t *testing.T) {
	backend := newStubBackend(
		status(model.GenerationGenerating),
		status(model.GenerationGenerating),
		completed("https://x/img.png"),
	)
	c, history := newTestController(t, backend, stubProtector{}, 50)

	_, err := c.Start(context.Background(), validInput)
	require.NoError(t, err)

	final := waitTerminal(t, c)
	assert.Equal(t, StateCompleted, final.State)
	assert.NotEmpty(t, final.Image)

	recs, err := c.History(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	other, err := history.List(context.Background(), "someone-else")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestController_TimesOutAfterMaxPolls(t *testing.T) {
	backend := newStubBackend(status(model.GenerationGenerating))
	c, history := newTestController(t, backend, stubProtector{}, 50)

	_, err := c.Start(context.Background(), validInput)
	require.NoError(t, err)

	final := waitTerminal(t, c)
	assert.Equal(t, StateTimedOut, final.State)
	assert.Contains(t, final.Error, "timed out")
	assert.Equal(t, 50, final.Polls)

	_, _, statusCalls := backend.calls()
	assert.Equal(t, 50, statusCalls)

	time.Sleep(30 * time.Millisecond)
	_, _, after := backend.calls()
	assert.Equal(t, 50, after, "no status queries may happen after timeout")

	recs, err := history.List(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestController_SubmissionFailure(t *testing.T) {
	backend := newStubBackend()
	backend.submit = gateway.Result[string]{Kind: gateway.KindBackend, Error: "quota exceeded"}
	c, _ := newTestController(t, backend, stubProtector{}, 50)

	snap, err := c.Start(context.Background(), validInput)
	require.ErrorIs(t, err, ErrSubmitFailed)
	assert.Equal(t, StateFailed, snap.State)
	assert.Nil(t, snap.Job)
	assert.Contains(t, snap.Error, "quota exceeded")
	assert.Equal(t, 0, snap.Polls)

	time.Sleep(10 * time.Millisecond)
	_, submitCalls, statusCalls := backend.calls()
	assert.Equal(t, 1, submitCalls)
	assert.Equal(t, 0, statusCalls)
}

func TestController_ValidationMakesNoCalls(t *testing.T) {
	tests := []struct {
		name string
		in   Input
		want error
	}{
		{
			name: "missing room image",
			in:   Input{Token: "tok", Prompt: "cozy"},
			want: validation.ErrMissingRoomImage,
		},
		{
			name: "blank prompt",
			in:   Input{Token: "tok", RoomImage: "data:image/png;base64,AAAA", Prompt: "  "},
			want: validation.ErrMissingPrompt,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newStubBackend()
			c, _ := newTestController(t, backend, stubProtector{}, 50)

			snap, err := c.Start(context.Background(), tt.in)
			require.ErrorIs(t, err, tt.want)
			require.ErrorIs(t, err, validation.ErrInvalidInput)
			assert.Equal(t, StateIdle, snap.State)

			access, submit, st := backend.calls()
			assert.Zero(t, access+submit+st)
		})
	}
}

func TestController_RequiresFreshAccess(t *testing.T) {
	backend := newStubBackend()
	backend.access = gateway.Result[model.AccessGrant]{Success: true, Data: model.AccessGrant{HasAccess: false, RequestPending: true}}
	c, _ := newTestController(t, backend, stubProtector{}, 50)

	snap, err := c.Start(context.Background(), validInput)
	require.ErrorIs(t, err, ErrNoAIAccess)
	assert.Equal(t, StateIdle, snap.State)

	access, submit, _ := backend.calls()
	assert.Equal(t, 1, access)
	assert.Equal(t, 0, submit)

	backend.mu.Lock()
	backend.access = gateway.Result[model.AccessGrant]{Kind: gateway.KindTransport, Error: "timeout"}
	backend.mu.Unlock()

	snap, err = c.Start(context.Background(), validInput)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoAIAccess)

	var gwErr *gateway.Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, gateway.KindTransport, gwErr.Kind)
	assert.Equal(t, StateIdle, snap.State)
}

func TestController_SubmissionKeepsBackendErrorKind(t *testing.T) {
	backend := newStubBackend()
	backend.submit = gateway.Result[string]{Kind: gateway.KindUnauthorized, Error: "token expired"}
	c, _ := newTestController(t, backend, stubProtector{}, 50)

	_, err := c.Start(context.Background(), validInput)
	require.ErrorIs(t, err, ErrSubmitFailed)
	assert.True(t, gateway.IsUnauthorized(err))
}

func TestController_BackendReportedFailure(t *testing.T) {
	tests := []struct {
		name    string
		job     model.GenerationJob
		wantMsg string
	}{
		{
			name:    "with message",
			job:     model.GenerationJob{Status: model.GenerationFailed, Error: "content policy violation"},
			wantMsg: "content policy violation",
		},
		{
			name:    "generic message",
			job:     model.GenerationJob{Status: model.GenerationFailed},
			wantMsg: "Unknown error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newStubBackend(
				status(model.GenerationPending),
				gateway.Result[model.GenerationJob]{Success: true, Data: tt.job},
			)
			c, _ := newTestController(t, backend, stubProtector{}, 50)

			_, err := c.Start(context.Background(), validInput)
			require.NoError(t, err)

			final := waitTerminal(t, c)
			assert.Equal(t, StateFailed, final.State)
			assert.Contains(t, final.Error, tt.wantMsg)
			assert.Empty(t, final.Image)
		})
	}
}

func TestController_TransientPollErrorsAreRetried(t *testing.T) {
	backend := newStubBackend(
		transportError(),
		transportError(),
		status(model.GenerationGenerating),
		completed("https://x/img.png"),
	)
	c, _ := newTestController(t, backend, stubProtector{}, 50)

	_, err := c.Start(context.Background(), validInput)
	require.NoError(t, err)

	final := waitTerminal(t, c)
	assert.Equal(t, StateCompleted, final.State)
	assert.Equal(t, 4, final.Polls)
}

func TestController_WatermarkFallbackKeepsOriginalURL(t *testing.T) {
	const url = "http://127.0.0.1:1/unreachable.png"

	backend := newStubBackend(completed(url))
	protector := watermark.NewProtector(watermark.Options{LoadTimeout: 200 * time.Millisecond})
	c, _ := newTestController(t, backend, protector, 50)

	_, err := c.Start(context.Background(), validInput)
	require.NoError(t, err)

	final := waitTerminal(t, c)
	assert.Equal(t, StateCompleted, final.State)
	assert.Equal(t, url, final.Image)
	assert.Empty(t, final.Error)
}

func TestController_CancelStopsPolling(t *testing.T) {
	backend := newStubBackend(status(model.GenerationGenerating))
	c := NewController(backend, stubProtector{}, nil, zap.NewNop(), Options{
		PollInterval: 5 * time.Millisecond,
		MaxPolls:     1000,
	})
	defer c.Close()

	_, err := c.Start(context.Background(), validInput)
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)
	c.Cancel()

	_, _, calls := backend.calls()
	time.Sleep(30 * time.Millisecond)
	_, _, after := backend.calls()
	assert.Equal(t, calls, after, "polling continued after Cancel")
	assert.Equal(t, StateIdle, c.Snapshot().State)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = c.Wait(ctx)
	assert.NoError(t, err)
}

// blockingProtector держит обработку изображения до отмены ctx.
type blockingProtector struct {
	entered chan struct{}
}

func (p blockingProtector) Protect(ctx context.Context, imageURL string) string {
	close(p.entered)
	<-ctx.Done()
	return imageURL
}

func TestController_CancelDuringWatermarkSkipsHistory(t *testing.T) {
	backend := newStubBackend(completed("https://x/img.png"))
	protector := blockingProtector{entered: make(chan struct{})}
	c, history := newTestController(t, backend, protector, 50)

	_, err := c.Start(context.Background(), validInput)
	require.NoError(t, err)

	select {
	case <-protector.entered:
	case <-time.After(5 * time.Second):
		t.Fatalf("watermark step was not reached")
	}

	c.Cancel()

	assert.Equal(t, StateIdle, c.Snapshot().State)
	recs, err := history.List(context.Background(), validInput.UserID)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestController_HistoryWrittenBeforeWaitReturns(t *testing.T) {
	backend := newStubBackend(completed("https://x/img.png"))
	c, history := newTestController(t, backend, stubProtector{}, 50)

	_, err := c.Start(context.Background(), validInput)
	require.NoError(t, err)

	snap := waitTerminal(t, c)
	require.Equal(t, StateCompleted, snap.State)

	recs, err := history.List(context.Background(), validInput.UserID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, snap.Image, recs[0].Image)
}

func TestController_NewAttemptSupersedesPrevious(t *testing.T) {
	backend := newStubBackend(status(model.GenerationGenerating))
	c := NewController(backend, stubProtector{}, nil, zap.NewNop(), Options{
		PollInterval: 5 * time.Millisecond,
		MaxPolls:     1000,
	})
	defer c.Close()

	first, err := c.Start(context.Background(), validInput)
	require.NoError(t, err)

	second, err := c.Start(context.Background(), validInput)
	require.NoError(t, err)

	assert.Greater(t, second.Attempt, first.Attempt)
	assert.Equal(t, StatePolling, c.Snapshot().State)
	assert.Equal(t, second.Attempt, c.Snapshot().Attempt)
}

func TestController_Close(t *testing.T) {
	backend := newStubBackend(status(model.GenerationGenerating))
	c := NewController(backend, stubProtector{}, nil, zap.NewNop(), Options{PollInterval: time.Millisecond, MaxPolls: 1000})

	_, err := c.Start(context.Background(), validInput)
	require.NoError(t, err)

	c.Close()

	_, err = c.Start(context.Background(), validInput)
	assert.True(t, errors.Is(err, ErrClosed))

	_, _, calls := backend.calls()
	time.Sleep(20 * time.Millisecond)
	_, _, after := backend.calls()
	assert.Equal(t, calls, after)
}

func TestProgressMessages(t *testing.T) {
	interval := 3 * time.Second

	_, ok := progressBeforePoll(1, interval)
	assert.False(t, ok)

	msg, ok := progressBeforePoll(5, interval)
	assert.True(t, ok)
	assert.Equal(t, msgGenerating, msg)

	msg, ok = progressBeforePoll(10, interval)
	assert.True(t, ok)
	assert.Equal(t, msgAlmostThere, msg)

	_, ok = progressBeforePoll(15, interval)
	assert.False(t, ok)

	msg, ok = progressBeforePoll(20, interval)
	assert.True(t, ok)
	assert.Equal(t, "Still generating... (60 seconds elapsed)", msg)

	msg, ok = progressAfterPoll(8, model.GenerationGenerating)
	assert.True(t, ok)
	assert.Equal(t, msgRoomAnalyzed, msg)

	_, ok = progressAfterPoll(8, model.GenerationPending)
	assert.False(t, ok)
}
