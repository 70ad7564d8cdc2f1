package signalsfx

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotifier struct {
	mu      sync.Mutex
	ch      chan<- os.Signal
	signals []os.Signal
	stopped bool
}

func (n *fakeNotifier) Notify(ch chan<- os.Signal, sig ...os.Signal) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.ch = ch
	n.signals = sig
}

func (n *fakeNotifier) Stop(_ chan<- os.Signal) {
	n.mu.Lock()
	n.stopped = true
	n.mu.Unlock()
}

func (n *fakeNotifier) Send(sig os.Signal) {
	n.mu.Lock()
	ch := n.ch
	n.mu.Unlock()

	ch <- sig
}

type fakeSnapshot struct{ calls atomic.Int64 }

func (s *fakeSnapshot) PrintSnapshot() {
	s.calls.Add(1)
}

func newTestController(ctx context.Context, cancel context.CancelFunc, notifier Notifier, snapshot SnapshotPrinter) *Controller {
	return NewController(controllerIn{
		Ctx:      ctx,
		Cancel:   cancel,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Notifier: notifier,
		Snapshot: snapshot,
	})
}

func TestController_RoutesSignals(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	notifier := &fakeNotifier{}
	snapshot := &fakeSnapshot{}

	controller := newTestController(ctx, cancel, notifier, snapshot)

	require.NoError(t, controller.Start(context.Background()))
	require.NoError(t, controller.Start(context.Background()), "start is idempotent")

	notifier.mu.Lock()
	assert.ElementsMatch(t, []os.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1}, notifier.signals)
	notifier.mu.Unlock()

	notifier.Send(syscall.SIGUSR1)
	notifier.Send(syscall.SIGUSR1)
	notifier.Send(syscall.SIGTERM)

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("expected termination to cancel context")
	}

	require.NoError(t, controller.Stop(context.Background()))

	assert.Equal(t, int64(2), snapshot.calls.Load())

	notifier.mu.Lock()
	defer notifier.mu.Unlock()

	assert.True(t, notifier.stopped)
}

func TestController_WithoutSnapshotPrinter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	notifier := &fakeNotifier{}
	controller := newTestController(ctx, cancel, notifier, nil)

	require.NoError(t, controller.Start(context.Background()))

	notifier.Send(syscall.SIGUSR1)
	notifier.Send(syscall.SIGINT)

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("expected interrupt to cancel context")
	}

	require.NoError(t, controller.Stop(context.Background()))
}
