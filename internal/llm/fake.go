package llm

import (
	"context"
	"sync"
)

// Fake is a scripted Client for tests and offline runs. Each call consumes the
// next reply; once the script is exhausted the last reply repeats.
type Fake struct {
	mu       sync.Mutex
	Replies  []FakeReply
	Requests []Request
}

// FakeReply is one scripted answer.
type FakeReply struct {
	Text string
	Err  error
}

// NewFake returns a Fake that answers with texts in order.
func NewFake(texts ...string) *Fake {
	f := &Fake{}
	for _, text := range texts {
		f.Replies = append(f.Replies, FakeReply{Text: text})
	}
	return f
}

// Complete records the request and returns the next scripted reply.
func (f *Fake) Complete(ctx context.Context, req Request) (Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	idx := len(f.Requests)
	f.Requests = append(f.Requests, req)
	if len(f.Replies) == 0 {
		return Response{}, ErrEmptyCompletion
	}
	if idx >= len(f.Replies) {
		idx = len(f.Replies) - 1
	}
	reply := f.Replies[idx]
	if reply.Err != nil {
		return Response{}, reply.Err
	}
	if reply.Text == "" {
		return Response{}, ErrEmptyCompletion
	}
	return Response{Text: reply.Text, Model: resolveModel(ctx, req, "fake")}, nil
}

// Calls reports how many requests the fake has received.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Requests)
}
