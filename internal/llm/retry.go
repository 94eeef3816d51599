package llm

import (
	"context"
	"errors"
	"time"
)

// Retrying wraps a client so that a failed call is re-attempted up to
// attempts more times after delay. Cancellation and deadline errors are
// never retried.
func Retrying(client Client, attempts int, delay time.Duration) Client {
	if attempts <= 0 {
		return client
	}
	return &retryingClient{next: client, attempts: attempts, delay: delay}
}

type retryingClient struct {
	next     Client
	attempts int
	delay    time.Duration
}

func (r *retryingClient) Complete(ctx context.Context, req Request) (Response, error) {
	resp, err := r.next.Complete(ctx, req)
	for attempt := 0; err != nil && attempt < r.attempts; attempt++ {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Response{}, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Response{}, errors.Join(ctxErr, err)
		}
		timer := time.NewTimer(r.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Response{}, ctx.Err()
		case <-timer.C:
		}
		resp, err = r.next.Complete(ctx, req)
	}
	return resp, err
}
