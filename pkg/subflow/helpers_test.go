package subflow_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dukex/subflow/pkg/models"
	"github.com/dukex/subflow/pkg/persistence/memory"
	"github.com/dukex/subflow/pkg/runstate"
	"github.com/dukex/subflow/pkg/subflow"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// spyStores wraps the persistence-backed stores, counting calls and injecting failures.
type spyStores struct {
	*subflow.Stores

	mu               sync.Mutex
	createdRuns      int
	createdMessages  int
	loads            int
	createRunErr     error
	createMessageErr error
	loadWorkflowErr  error
	onLoad           func(call int, ref string)
}

func (s *spyStores) LoadWorkflow(ctx context.Context, ref string) (*models.Workflow, error) {
	if s.loadWorkflowErr != nil {
		return nil, s.loadWorkflowErr
	}

	return s.Stores.LoadWorkflow(ctx, ref)
}

func (s *spyStores) CreateRun(ctx context.Context, workflow *models.Workflow, name string, metadata map[string]any) (runstate.Record, error) {
	if s.createRunErr != nil {
		return nil, s.createRunErr
	}

	s.mu.Lock()
	s.createdRuns++
	s.mu.Unlock()

	return s.Stores.CreateRun(ctx, workflow, name, metadata)
}

func (s *spyStores) LoadRun(ctx context.Context, ref string) (runstate.Record, error) {
	s.mu.Lock()
	s.loads++
	call := s.loads
	hook := s.onLoad
	s.mu.Unlock()

	if hook != nil {
		hook(call, ref)
	}

	return s.Stores.LoadRun(ctx, ref)
}

func (s *spyStores) CreateMessage(
	ctx context.Context,
	runRef string,
	role models.MessageRole,
	content string,
	metadata map[string]any,
) (*models.Message, error) {
	if s.createMessageErr != nil {
		return nil, s.createMessageErr
	}

	s.mu.Lock()
	s.createdMessages++
	s.mu.Unlock()

	return s.Stores.CreateMessage(ctx, runRef, role, content, metadata)
}

func (s *spyStores) counts() (runs, messages, loads int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.createdRuns, s.createdMessages, s.loads
}

type recordingQueue struct {
	mu    sync.Mutex
	items []models.QueueItem
	err   error
}

func (q *recordingQueue) Enqueue(_ context.Context, item models.QueueItem) error {
	if q.err != nil {
		return q.err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, item)

	return nil
}

func (q *recordingQueue) Items() []models.QueueItem {
	q.mu.Lock()
	defer q.mu.Unlock()

	return append([]models.QueueItem(nil), q.items...)
}

type recordingProcessor struct {
	mu       sync.Mutex
	messages []*models.Message
	err      error
}

func (p *recordingProcessor) ProcessMessage(_ context.Context, message *models.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.messages = append(p.messages, message)

	return p.err
}

func (p *recordingProcessor) Processed() []*models.Message {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]*models.Message(nil), p.messages...)
}

type fixture struct {
	persistence *memory.Persistence
	stores      *spyStores
	queue       *recordingQueue
	clock       *clockwork.FakeClock
	coordinator *subflow.Coordinator
	reporter    *subflow.Reporter
}

func newFixture(t *testing.T, opts ...subflow.Option) *fixture {
	t.Helper()

	p := memory.NewPersistence()
	ctx := context.Background()

	workflows := []*models.Workflow{
		{ID: "wf-parent", Name: "Parent", Status: models.WorkflowStatusPublished},
		{ID: "wf-child", Name: "Child", Status: models.WorkflowStatusPublished},
		{
			ID:     "wf-schema",
			Name:   "Summarize",
			Status: models.WorkflowStatusPublished,
			InputSchema: map[string]any{
				"type":       "object",
				"required":   []any{"document"},
				"properties": map[string]any{"document": map[string]any{"type": "string"}},
			},
		},
	}

	for _, workflow := range workflows {
		require.NoError(t, p.WorkflowRepository().Save(ctx, workflow))
	}

	f := &fixture{
		persistence: p,
		stores:      &spyStores{Stores: subflow.NewStores(p)},
		queue:       &recordingQueue{},
		clock:       clockwork.NewFakeClock(),
		reporter:    subflow.NewReporter(p, discardLogger()),
	}

	options := append([]subflow.Option{
		subflow.WithClock(f.clock),
		subflow.WithLogger(discardLogger()),
	}, opts...)

	f.coordinator = subflow.NewCoordinator(f.stores, f.stores, f.stores, f.queue, options...)

	return f
}

// autoAdvance moves the fake clock forward by step each time the poller starts waiting.
func (f *fixture) autoAdvance(ctx context.Context, step time.Duration) {
	go func() {
		for {
			if err := f.clock.BlockUntilContext(ctx, 1); err != nil {
				return
			}

			f.clock.Advance(step)
		}
	}()
}

func (f *fixture) run(t *testing.T, ref string) *models.Run {
	t.Helper()

	run, err := f.persistence.RunRepository().GetByID(context.Background(), ref)
	require.NoError(t, err)

	return run
}

var errBoom = errors.New("boom")
