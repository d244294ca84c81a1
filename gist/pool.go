package gist

import (
	"context"
	"fmt"
	"net/http"
	"sync"
)

// TokenSource supplies the bearer credential for the gist API. Called on
// every handle (re)build, never cached by the pool, so rotated tokens are
// picked up on the next refresh.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenFunc adapts a function to the TokenSource interface.
type TokenFunc func(ctx context.Context) (string, error)

func (f TokenFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// StaticToken returns a TokenSource yielding a fixed token.
func StaticToken(token string) TokenSource {
	return TokenFunc(func(context.Context) (string, error) {
		return token, nil
	})
}

// Pool manages the single live authenticated handle to the gist backend.
// This is lifecycle pooling, not load distribution: building a handle
// costs a credential read plus an authenticated health check, and every
// remote call shares the result.
//
// Readers take the handle under a read lock; a refresh holds the write
// lock for the whole authenticate-and-publish sequence, so concurrent
// Get calls observe either the old handle or the new one, never a
// partially-constructed one.
type Pool struct {
	tokens  TokenSource
	http    *http.Client
	baseURL string

	mu     sync.RWMutex
	client *Client
}

// NewPool creates a Pool drawing credentials from tokens. httpClient and
// baseURL follow the [NewClient] conventions.
func NewPool(tokens TokenSource, httpClient *http.Client, baseURL string) *Pool {
	return &Pool{
		tokens:  tokens,
		http:    httpClient,
		baseURL: baseURL,
	}
}

// Get returns the current handle, building and health-checking one if
// none is published. Concurrent callers during a refresh block until the
// new handle is published.
func (p *Pool) Get(ctx context.Context) (*Client, error) {
	p.mu.RLock()
	client := p.client
	p.mu.RUnlock()
	if client != nil {
		return client, nil
	}

	return p.refresh(ctx)
}

// Invalidate drops the current handle. The next Get rebuilds it. Called
// by the orchestrator when a wrapped call reports authentication failure.
func (p *Pool) Invalidate() {
	p.mu.Lock()
	p.client = nil
	p.mu.Unlock()
}

func (p *Pool) refresh(ctx context.Context) (*Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Another caller may have completed the refresh while we waited.
	if p.client != nil {
		return p.client, nil
	}

	token, err := p.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}

	client := NewClient(token, p.http, p.baseURL)
	if _, err := client.Viewer(ctx); err != nil {
		return nil, err
	}

	p.client = client
	return client, nil
}
