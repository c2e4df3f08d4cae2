package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// Request is a network request observed leaving the browser. Headers are
// captured so they can be replayed on manually-constructed requests to
// endpoints that reject anything without a full browser fingerprint.
type Request struct {
	URL     string
	Headers map[string]string
}

// interceptor records outgoing requests from CDP network events. A scope
// substring keeps the buffer from filling with third-party noise.
type interceptor struct {
	mu       sync.Mutex
	scope    string
	captured []Request
}

func newInterceptor() *interceptor {
	return &interceptor{}
}

// listen subscribes to the session's CDP event stream. Runs for the
// lifetime of the browser context.
func (i *interceptor) listen(ctx context.Context) {
	chromedp.ListenTarget(ctx, func(ev interface{}) {
		if req, ok := ev.(*network.EventRequestWillBeSent); ok {
			i.record(req.Request.URL, req.Request.Headers)
		}
	})
}

func (i *interceptor) record(url string, headers network.Headers) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.scope != "" && !strings.Contains(url, i.scope) {
		return
	}
	req := Request{URL: url, Headers: make(map[string]string, len(headers))}
	for k, v := range headers {
		req.Headers[k] = fmt.Sprint(v)
	}
	i.captured = append(i.captured, req)
}

func (i *interceptor) reset(scope string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.scope = scope
	i.captured = nil
}

// waitFor polls the capture buffer until a request URL contains substr or
// the context expires.
func (i *interceptor) waitFor(ctx context.Context, substr string) (Request, error) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		if req, ok := i.find(substr); ok {
			return req, nil
		}
		select {
		case <-ctx.Done():
			return Request{}, fmt.Errorf("no request matching %q captured: %w", substr, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (i *interceptor) find(substr string) (Request, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	for _, req := range i.captured {
		if strings.Contains(req.URL, substr) {
			return req, true
		}
	}
	return Request{}, false
}
