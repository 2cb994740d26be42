package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/feedbackos/feedbackos-backend/internal/providers"
)

// fakeProvider scripts generation behavior for tests.
type fakeProvider struct {
	mu sync.Mutex

	// streaming
	streamText   string                  // emitted word by word, then Done
	streamChunks []providers.StreamChunk // overrides streamText when set
	streamErr    error                   // StreamComplete itself fails

	// single-shot
	completeText string
	completeErr  error

	lastRequest  providers.Request
	lastDeadline bool
	calls        int
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(ctx context.Context, req providers.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastRequest = req
	_, f.lastDeadline = ctx.Deadline()
	f.calls++
	if f.completeErr != nil {
		return "", f.completeErr
	}
	return f.completeText, nil
}

func (f *fakeProvider) StreamComplete(_ context.Context, req providers.Request) (<-chan providers.StreamChunk, error) {
	f.mu.Lock()
	f.lastRequest = req
	f.calls++
	f.mu.Unlock()

	if f.streamErr != nil {
		return nil, f.streamErr
	}

	chunks := f.streamChunks
	if chunks == nil {
		for _, word := range strings.SplitAfter(f.streamText, " ") {
			chunks = append(chunks, providers.StreamChunk{Delta: word})
		}
		chunks = append(chunks, providers.StreamChunk{Done: true})
	}

	out := make(chan providers.StreamChunk)
	go func() {
		defer close(out)
		for _, c := range chunks {
			out <- c
		}
	}()
	return out, nil
}

func (f *fakeProvider) request() providers.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastRequest
}

func (f *fakeProvider) sawDeadline() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastDeadline
}

var errFakeGeneration = errors.New("fake generation error")
