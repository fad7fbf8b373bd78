// Package generation управляет жизненным циклом AI-генерации дизайна комнаты:
// отправкой задания, опросом статуса, защитой результата водяными знаками и историей.
package generation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/woodcraft-storefront/internal/gateway"
	"github.com/mmeshcher/woodcraft-storefront/internal/model"
	"github.com/mmeshcher/woodcraft-storefront/internal/task"
	"github.com/mmeshcher/woodcraft-storefront/internal/validation"
)

// State описывает состояние попытки генерации.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StatePolling    State = "polling"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
	StateTimedOut   State = "timed_out"
)

// IsTerminal сообщает, что попытка завершена.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateTimedOut
}

var (
	// ErrNoAIAccess возвращается, если у пользователя нет действующего доступа к AI.
	ErrNoAIAccess = fmt.Errorf("%w: ai access is required, please request access first", validation.ErrInvalidInput)
	// ErrSubmitFailed возвращается, если backend не принял задание.
	ErrSubmitFailed = errors.New("failed to start generation")
	// ErrClosed возвращается после Close.
	ErrClosed = errors.New("generation controller closed")
)

const (
	defaultPollInterval = 3 * time.Second
	defaultMaxPolls     = 50
	historyTimeout      = 10 * time.Second
)

// Backend описывает вызовы backend, нужные контроллеру.
type Backend interface {
	CheckAIAccess(ctx context.Context, token string) gateway.Result[model.AccessGrant]
	GenerateRoom(ctx context.Context, roomImage, prompt, token string) gateway.Result[string]
	GenerationStatus(ctx context.Context, generationID, token string) gateway.Result[model.GenerationJob]
}

// Protector накладывает водяные знаки на готовое изображение.
// При невозможности загрузить изображение возвращает исходный адрес.
type Protector interface {
	Protect(ctx context.Context, imageURL string) string
}

// HistoryStore хранит историю завершённых генераций.
type HistoryStore interface {
	Append(ctx context.Context, rec model.HistoryRecord) (model.HistoryRecord, error)
	List(ctx context.Context, userID string) ([]model.HistoryRecord, error)
}

// Options задаёт интервал опроса и предельное число опросов.
type Options struct {
	PollInterval time.Duration
	MaxPolls     int
}

// Input — входные данные одной попытки.
type Input struct {
	UserID    string
	Token     string
	RoomImage string
	Prompt    string
}

// Snapshot — неизменяемая копия состояния контроллера.
type Snapshot struct {
	Attempt   uint64               `json:"attempt"`
	State     State                `json:"state"`
	Job       *model.GenerationJob `json:"job,omitempty"`
	Progress  string               `json:"progress,omitempty"`
	Image     string               `json:"image,omitempty"`
	Error     string               `json:"error,omitempty"`
	Polls     int                  `json:"polls"`
	Prompt    string               `json:"prompt,omitempty"`
	RoomImage string               `json:"-"`
}

// Controller — конечный автомат генерации. Одновременно активна не более одной попытки
// и не более одного таймера опроса.
type Controller struct {
	backend   Backend
	protector Protector
	history   HistoryStore
	logger    *zap.Logger
	opts      Options

	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu         sync.Mutex
	snap       Snapshot
	poll       *task.Handle
	pollCancel context.CancelFunc
	done       chan struct{}
	closed     bool
}

// NewController создаёт контроллер в состоянии idle.
func NewController(backend Backend, protector Protector, history HistoryStore, logger *zap.Logger, opts Options) *Controller {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.MaxPolls <= 0 {
		opts.MaxPolls = defaultMaxPolls
	}
	if history == nil {
		history = NewMemoryHistory()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Controller{
		backend:    backend,
		protector:  protector,
		history:    history,
		logger:     logger,
		opts:       opts,
		baseCtx:    ctx,
		baseCancel: cancel,
		snap:       Snapshot{State: StateIdle},
	}
}

// Start запускает новую попытку. Ошибки валидации и отсутствие доступа оставляют
// текущее состояние без изменений и не приводят к отправке задания.
// Неуспешная проверка доступа возвращает *gateway.Error, а не ErrNoAIAccess.
// Ошибка отправки переводит попытку в failed и возвращает ErrSubmitFailed,
// обёрнутую вместе с *gateway.Error.
func (c *Controller) Start(ctx context.Context, in Input) (Snapshot, error) {
	if c.isClosed() {
		return Snapshot{}, ErrClosed
	}

	if err := validation.GenerationInput(in.RoomImage, in.Prompt); err != nil {
		return c.Snapshot(), err
	}

	access := c.backend.CheckAIAccess(ctx, in.Token)
	if !access.Success {
		return c.Snapshot(), fmt.Errorf("check ai access: %w", access.Err())
	}
	if !access.Data.HasAccess {
		return c.Snapshot(), ErrNoAIAccess
	}

	c.Cancel()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Snapshot{}, ErrClosed
	}
	attempt := c.snap.Attempt + 1
	c.snap = Snapshot{
		Attempt:   attempt,
		State:     StateSubmitting,
		Progress:  msgStarting,
		Prompt:    in.Prompt,
		RoomImage: in.RoomImage,
	}
	c.done = make(chan struct{})
	c.mu.Unlock()

	submit := c.backend.GenerateRoom(ctx, in.RoomImage, in.Prompt, in.Token)
	if !submit.Success || submit.Data == "" {
		msg := submit.Error
		if submit.Success {
			msg = "backend returned empty generation id"
		}
		if msg == "" {
			msg = "unknown error"
		}

		c.logger.Warn("generation submission failed", zap.String("error", msg), zap.Stringer("kind", submit.Kind))

		c.mu.Lock()
		if c.snap.Attempt == attempt && c.snap.State == StateSubmitting {
			c.snap.State = StateFailed
			c.snap.Progress = ""
			c.snap.Error = "Failed to start generation: " + msg
			c.finishLocked()
		}
		snap := c.snapshotLocked()
		c.mu.Unlock()

		if err := submit.Err(); err != nil {
			return snap, fmt.Errorf("%w: %w", ErrSubmitFailed, err)
		}
		return snap, fmt.Errorf("%w: %s", ErrSubmitFailed, msg)
	}

	generationID := submit.Data
	c.logger.Info("generation started", zap.String("generationID", generationID))

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.snap.Attempt != attempt || c.snap.State != StateSubmitting {
		return c.snapshotLocked(), nil
	}

	c.snap.State = StatePolling
	c.snap.Progress = msgAnalyzing
	c.snap.Job = &model.GenerationJob{
		GenerationID: generationID,
		Status:       model.GenerationPending,
		Prompt:       in.Prompt,
	}

	pollCtx, pollCancel := context.WithCancel(c.baseCtx)
	p := &poller{
		c:            c,
		attempt:      attempt,
		generationID: generationID,
		userID:       in.UserID,
		token:        in.Token,
		prompt:       in.Prompt,
		stop:         pollCancel,
	}
	c.pollCancel = pollCancel
	c.poll = task.Every(pollCtx, c.opts.PollInterval, false, p.tick)

	return c.snapshotLocked(), nil
}

// Cancel останавливает таймер опроса и ждёт его завершения.
// Незавершённая попытка возвращается в idle.
func (c *Controller) Cancel() {
	c.mu.Lock()
	h := c.poll
	cancel := c.pollCancel
	c.poll = nil
	c.pollCancel = nil
	if !c.snap.State.IsTerminal() && c.snap.State != StateIdle {
		c.snap.State = StateIdle
		c.snap.Progress = ""
		c.finishLocked()
	}
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	h.Stop()
}

// Close отменяет текущую попытку; после Close контроллер не принимает новых попыток.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.Cancel()
	c.baseCancel()
}

// Reset отменяет текущую попытку и очищает результат предыдущей.
func (c *Controller) Reset() {
	c.Cancel()

	c.mu.Lock()
	c.snap = Snapshot{Attempt: c.snap.Attempt, State: StateIdle}
	c.mu.Unlock()
}

// Snapshot возвращает копию текущего состояния.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.snapshotLocked()
}

// Wait ждёт завершения текущей попытки или отмены ctx.
func (c *Controller) Wait(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return c.Snapshot(), ctx.Err()
		}
	}
	return c.Snapshot(), nil
}

// History возвращает историю генераций пользователя.
func (c *Controller) History(ctx context.Context, userID string) ([]model.HistoryRecord, error) {
	return c.history.List(ctx, userID)
}

func (c *Controller) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closed
}

func (c *Controller) snapshotLocked() Snapshot {
	s := c.snap
	if c.snap.Job != nil {
		job := *c.snap.Job
		s.Job = &job
	}
	return s
}

func (c *Controller) finishLocked() {
	if c.done != nil {
		close(c.done)
		c.done = nil
	}
}

// poller выполняет опросы одной попытки. tick вызывается строго последовательно.
type poller struct {
	c            *Controller
	attempt      uint64
	generationID string
	userID       string
	token        string
	prompt       string
	stop         context.CancelFunc

	count int
}

func (p *poller) tick(ctx context.Context) {
	c := p.c

	p.count++
	n := p.count

	if !c.update(p.attempt, func(s *Snapshot) {
		s.Polls = n
		if msg, ok := progressBeforePoll(n, c.opts.PollInterval); ok {
			s.Progress = msg
		}
	}) {
		p.stop()
		return
	}

	res := c.backend.GenerationStatus(ctx, p.generationID, p.token)
	if ctx.Err() != nil {
		return
	}

	if !res.Success {
		c.logger.Warn("generation status check failed",
			zap.String("generationID", p.generationID),
			zap.Int("poll", n),
			zap.String("error", res.Error),
		)
	} else {
		job := res.Data
		c.logger.Debug("generation status", zap.String("generationID", p.generationID), zap.String("status", string(job.Status)))

		switch job.Status {
		case model.GenerationCompleted:
			p.complete(ctx, job)
			p.stop()
			return
		case model.GenerationFailed:
			p.fail(job)
			p.stop()
			return
		default:
			c.update(p.attempt, func(s *Snapshot) {
				s.Job.Status = job.Status
				if job.RoomAnalysis != "" {
					s.Job.RoomAnalysis = job.RoomAnalysis
				}
				if msg, ok := progressAfterPoll(n, job.Status); ok {
					s.Progress = msg
				}
			})
		}
	}

	if n >= c.opts.MaxPolls {
		p.timeout(n)
		p.stop()
	}
}

func (p *poller) complete(ctx context.Context, job model.GenerationJob) {
	c := p.c

	if job.GeneratedImageURL == "" {
		job.Error = "generation completed without an image"
		p.fail(job)
		return
	}

	if !c.update(p.attempt, func(*Snapshot) {}) {
		return
	}

	image := job.GeneratedImageURL
	if c.protector != nil {
		image = c.protector.Protect(ctx, job.GeneratedImageURL)
	}
	if ctx.Err() != nil {
		return
	}

	// Запись в историю выполняется только для попытки, успевшей перейти в completed;
	// ожидающие Wait освобождаются после записи.
	release, ok := c.settle(p.attempt, func(s *Snapshot) {
		s.State = StateCompleted
		s.Image = image
		s.Progress = ""
		jobCopy := job
		s.Job = &jobCopy
	})
	if !ok {
		return
	}
	defer release()

	appendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyTimeout)
	defer cancel()

	rec, err := c.history.Append(appendCtx, model.HistoryRecord{
		UserID:       p.userID,
		Image:        image,
		Prompt:       p.prompt,
		RoomAnalysis: job.RoomAnalysis,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		c.logger.Error("append generation history", zap.Error(err), zap.String("generationID", p.generationID))
	}

	c.logger.Info("generation completed",
		zap.String("generationID", p.generationID),
		zap.Int64("historyID", rec.ID),
		zap.Int("polls", p.count),
	)
}

func (p *poller) fail(job model.GenerationJob) {
	msg := job.Error
	if msg == "" {
		msg = "Unknown error. Please try again."
	}

	p.c.finish(p.attempt, func(s *Snapshot) {
		s.State = StateFailed
		s.Error = "Generation failed: " + msg
		s.Progress = ""
		jobCopy := job
		s.Job = &jobCopy
	})

	p.c.logger.Warn("generation failed", zap.String("generationID", p.generationID), zap.String("error", msg))
}

func (p *poller) timeout(polls int) {
	limit := time.Duration(polls) * p.c.opts.PollInterval

	p.c.finish(p.attempt, func(s *Snapshot) {
		s.State = StateTimedOut
		s.Error = fmt.Sprintf("Generation timed out after %s. Please try again or contact support.", limit)
		s.Progress = ""
	})

	p.c.logger.Warn("generation timed out", zap.String("generationID", p.generationID), zap.Int("polls", polls))
}

// update применяет fn, только если попытка всё ещё текущая и находится в опросе.
func (c *Controller) update(attempt uint64, fn func(s *Snapshot)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.snap.Attempt != attempt || c.snap.State != StatePolling {
		return false
	}
	fn(&c.snap)
	return true
}

// finish переводит текущую попытку в терминальное состояние.
func (c *Controller) finish(attempt uint64, fn func(s *Snapshot)) {
	if release, ok := c.settle(attempt, fn); ok {
		release()
	}
}

// settle переводит текущую попытку в терминальное состояние, но откладывает
// пробуждение Wait до вызова release.
func (c *Controller) settle(attempt uint64, fn func(s *Snapshot)) (release func(), ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.snap.Attempt != attempt || c.snap.State != StatePolling {
		return nil, false
	}
	fn(&c.snap)

	done := c.done
	c.done = nil
	return func() {
		if done != nil {
			close(done)
		}
	}, true
}
