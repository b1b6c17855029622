package shutdown

import (
	"context"
	"net/http"
	"sync"
)

// HTTPServerComponent stops an http.Server from accepting connections and
// waits for in-flight requests.
type HTTPServerComponent struct {
	name   string
	server *http.Server
}

// NewHTTPServerComponent creates a new HTTP server shutdown component.
func NewHTTPServerComponent(name string, server *http.Server) *HTTPServerComponent {
	return &HTTPServerComponent{name: name, server: server}
}

// Name returns the component name.
func (c *HTTPServerComponent) Name() string {
	return c.name
}

// Shutdown gracefully shuts down the HTTP server.
func (c *HTTPServerComponent) Shutdown(ctx context.Context) error {
	return c.server.Shutdown(ctx)
}

// InFlight tracks running scans so shutdown can wait for them.
// After Shutdown starts, Begin refuses new work.
type InFlight struct {
	name     string
	mu       sync.Mutex
	wg       sync.WaitGroup
	draining bool
}

// NewInFlight creates a tracker.
func NewInFlight(name string) *InFlight {
	return &InFlight{name: name}
}

// Begin registers a unit of work. It returns false once draining.
func (f *InFlight) Begin() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.draining {
		return false
	}
	f.wg.Add(1)
	return true
}

// End marks a unit of work started with Begin as finished.
func (f *InFlight) End() {
	f.wg.Done()
}

// Name returns the component name.
func (f *InFlight) Name() string {
	return f.name
}

// Shutdown refuses new work and waits for running work or ctx.
func (f *InFlight) Shutdown(ctx context.Context) error {
	f.mu.Lock()
	f.draining = true
	f.mu.Unlock()

	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FuncComponent adapts a function to a Component.
type FuncComponent struct {
	name string
	fn   func(ctx context.Context) error
}

// NewFuncComponent creates a component calling fn on shutdown.
func NewFuncComponent(name string, fn func(ctx context.Context) error) *FuncComponent {
	return &FuncComponent{name: name, fn: fn}
}

// Name returns the component name.
func (c *FuncComponent) Name() string {
	return c.name
}

// Shutdown calls the wrapped function.
func (c *FuncComponent) Shutdown(ctx context.Context) error {
	return c.fn(ctx)
}
