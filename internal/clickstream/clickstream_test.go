package clickstream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStream struct {
	events  []event
	deleted []string
	readErr error
	delErr  error
}

func (f *fakeStream) readAll(ctx context.Context) ([]event, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.events, nil
}

func (f *fakeStream) delete(ctx context.Context, ids []string) error {
	if f.delErr != nil {
		return f.delErr
	}
	f.deleted = append(f.deleted, ids...)
	f.events = nil
	return nil
}

type fakeSink struct {
	applied []map[string]int64
	err     error
}

func (f *fakeSink) BulkIncrementClicks(ctx context.Context, counts map[string]int64) error {
	if f.err != nil {
		return f.err
	}
	f.applied = append(f.applied, counts)
	return nil
}

func newTestConsumer(src streamSource, sink ClickSink) *Consumer {
	return &Consumer{src: src, sink: sink, interval: time.Second}
}

func TestConsumeOnceAggregatesByCode(t *testing.T) {
	src := &fakeStream{events: []event{
		{id: "1-0", shortCode: "abc"},
		{id: "2-0", shortCode: "abc"},
		{id: "3-0", shortCode: "xyz"},
		{id: "4-0", shortCode: "abc"},
	}}
	sink := &fakeSink{}
	c := newTestConsumer(src, sink)

	require.NoError(t, c.ConsumeOnce(context.Background()))

	require.Len(t, sink.applied, 1)
	assert.Equal(t, map[string]int64{"abc": 3, "xyz": 1}, sink.applied[0])
	assert.Equal(t, []string{"1-0", "2-0", "3-0", "4-0"}, src.deleted)
}

func TestConsumeOnceEmptyStreamIsNoop(t *testing.T) {
	src := &fakeStream{}
	sink := &fakeSink{}
	c := newTestConsumer(src, sink)

	require.NoError(t, c.ConsumeOnce(context.Background()))
	assert.Empty(t, sink.applied)
	assert.Empty(t, src.deleted)
}

func TestConsumeOnceKeepsEventsOnSinkFailure(t *testing.T) {
	src := &fakeStream{events: []event{{id: "1-0", shortCode: "abc"}}}
	sink := &fakeSink{err: errors.New("db down")}
	c := newTestConsumer(src, sink)

	err := c.ConsumeOnce(context.Background())
	require.Error(t, err)
	assert.Empty(t, src.deleted, "events must not be acked when the increment failed")
	assert.Len(t, src.events, 1)
}

func TestConsumeOnceKeepsEventsOnReadFailure(t *testing.T) {
	src := &fakeStream{readErr: errors.New("redis down")}
	sink := &fakeSink{}
	c := newTestConsumer(src, sink)

	require.Error(t, c.ConsumeOnce(context.Background()))
	assert.Empty(t, sink.applied)
}

func TestConsumeOnceRetryAfterFailureDeliversAtLeastOnce(t *testing.T) {
	src := &fakeStream{events: []event{
		{id: "1-0", shortCode: "abc"},
		{id: "2-0", shortCode: "abc"},
	}}
	sink := &fakeSink{err: errors.New("transient")}
	c := newTestConsumer(src, sink)

	require.Error(t, c.ConsumeOnce(context.Background()))

	sink.err = nil
	require.NoError(t, c.ConsumeOnce(context.Background()))
	require.Len(t, sink.applied, 1)
	assert.Equal(t, int64(2), sink.applied[0]["abc"])
}

func TestConsumeOnceSkipsMalformedEntries(t *testing.T) {
	src := &fakeStream{events: []event{
		{id: "1-0", shortCode: "abc"},
		{id: "2-0", shortCode: ""}, // malformed entry, still acked
	}}
	sink := &fakeSink{}
	c := newTestConsumer(src, sink)

	require.NoError(t, c.ConsumeOnce(context.Background()))
	require.Len(t, sink.applied, 1)
	assert.Equal(t, map[string]int64{"abc": 1}, sink.applied[0])
	assert.Equal(t, []string{"1-0", "2-0"}, src.deleted)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	src := &fakeStream{}
	c := newTestConsumer(src, &fakeSink{})
	c.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop after cancel")
	}
}
