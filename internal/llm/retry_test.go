package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryingReattemptsOnce(t *testing.T) {
	boom := errors.New("upstream 503")
	fake := &Fake{Replies: []FakeReply{{Err: boom}, {Text: "ok"}}}

	resp, err := Retrying(fake, 1, time.Millisecond).Complete(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
	assert.Equal(t, 2, fake.Calls())
}

func TestRetryingGivesUpAfterOneReattempt(t *testing.T) {
	boom := errors.New("upstream 503")
	fake := &Fake{Replies: []FakeReply{{Err: boom}}}

	_, err := Retrying(fake, 1, time.Millisecond).Complete(context.Background(), Request{})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 2, fake.Calls())
}

func TestRetryingDoesNotRetrySuccess(t *testing.T) {
	fake := NewFake("first")

	resp, err := Retrying(fake, 1, time.Millisecond).Complete(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "first", resp.Text)
	assert.Equal(t, 1, fake.Calls())
}

// signalingClient reports each completed call on called.
type signalingClient struct {
	next   Client
	called chan struct{}
}

func (c signalingClient) Complete(ctx context.Context, req Request) (Response, error) {
	resp, err := c.next.Complete(ctx, req)
	c.called <- struct{}{}
	return resp, err
}

func TestRetryingHonoursCancellation(t *testing.T) {
	flaky := errors.New("flaky")
	fake := &Fake{Replies: []FakeReply{{Err: flaky}, {Text: "late"}}}
	client := signalingClient{next: fake, called: make(chan struct{}, 2)}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := Retrying(client, 1, time.Hour).Complete(ctx, Request{})
		done <- err
	}()

	select {
	case <-client.called:
	case <-time.After(2 * time.Second):
		t.Fatal("first attempt never ran")
	}
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("retry did not observe cancellation")
	}
	assert.Equal(t, 1, fake.Calls())
}

func TestRetryingKeepsCauseWhenContextEnds(t *testing.T) {
	flaky := errors.New("flaky")
	ctx, cancel := context.WithCancel(context.Background())
	fake := &Fake{Replies: []FakeReply{{Err: flaky}}}
	client := cancelAfterCall{next: fake, cancel: cancel}

	_, err := Retrying(client, 1, time.Hour).Complete(ctx, Request{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, flaky)
	assert.Equal(t, 1, fake.Calls())
}

// cancelAfterCall cancels the caller's context once the call returns.
type cancelAfterCall struct {
	next   Client
	cancel context.CancelFunc
}

func (c cancelAfterCall) Complete(ctx context.Context, req Request) (Response, error) {
	resp, err := c.next.Complete(ctx, req)
	c.cancel()
	return resp, err
}

func TestRetryingZeroAttemptsIsPassthrough(t *testing.T) {
	fake := NewFake("x")
	assert.Same(t, fake, Retrying(fake, 0, time.Second))
}
