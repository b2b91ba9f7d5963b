package rabbitmq

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ackRecorder подменяет канал брокера при подтверждении доставок.
type ackRecorder struct {
	mu      sync.Mutex
	acked   []uint64
	nacked  []uint64
	requeue []bool
	nackAt  time.Time
}

func (a *ackRecorder) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked = append(a.acked, tag)
	return nil
}

func (a *ackRecorder) Nack(tag uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacked = append(a.nacked, tag)
	a.requeue = append(a.requeue, requeue)
	a.nackAt = time.Now()
	return nil
}

func (a *ackRecorder) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func (a *ackRecorder) snapshot() (acked, nacked []uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]uint64(nil), a.acked...), append([]uint64(nil), a.nacked...)
}

func waitDone(wg *sync.WaitGroup) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	return done
}

func TestServe_WaitsForRunningHandlers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	acks := &ackRecorder{}
	delivery := make(chan amqp.Delivery, 1)

	started := make(chan struct{})
	release := make(chan struct{})
	handler := func(context.Context, []byte) error {
		close(started)
		<-release
		return nil
	}

	wg := serve(ctx, delivery, newNoopLogger(), handler, time.Millisecond)
	delivery <- amqp.Delivery{Acknowledger: acks, DeliveryTag: 1, Body: []byte("x")}
	<-started

	cancel()
	done := waitDone(wg)
	select {
	case <-done:
		t.Fatal("wait returned while handler was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("wait did not return after handler finished")
	}
	acked, _ := acks.snapshot()
	assert.Equal(t, []uint64{1}, acked)
}

func TestServe_RequeueAfterDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	acks := &ackRecorder{}
	delivery := make(chan amqp.Delivery, 1)
	handler := func(context.Context, []byte) error { return errors.New("db down") }

	delay := 80 * time.Millisecond
	start := time.Now()
	wg := serve(ctx, delivery, newNoopLogger(), handler, delay)
	delivery <- amqp.Delivery{Acknowledger: acks, DeliveryTag: 7}

	require.Eventually(t, func() bool {
		_, nacked := acks.snapshot()
		return len(nacked) == 1
	}, time.Second, 5*time.Millisecond)

	acks.mu.Lock()
	assert.GreaterOrEqual(t, acks.nackAt.Sub(start), delay)
	assert.Equal(t, []bool{true}, acks.requeue)
	acks.mu.Unlock()

	close(delivery)
	<-waitDone(wg)
}

func TestServe_ShutdownCutsRequeueDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	acks := &ackRecorder{}
	delivery := make(chan amqp.Delivery, 1)
	failed := make(chan struct{})
	handler := func(context.Context, []byte) error {
		close(failed)
		return errors.New("db down")
	}

	wg := serve(ctx, delivery, newNoopLogger(), handler, time.Hour)
	delivery <- amqp.Delivery{Acknowledger: acks, DeliveryTag: 3}
	<-failed
	cancel()

	select {
	case <-waitDone(wg):
	case <-time.After(time.Second):
		t.Fatal("shutdown waited for the full requeue delay")
	}
	acked, nacked := acks.snapshot()
	assert.Empty(t, acked)
	assert.Equal(t, []uint64{3}, nacked)
}
