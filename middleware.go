package finagent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Middleware decorates a Tool. Registry.Use applies middlewares to every registered tool.
type Middleware func(Tool) Tool

// WithLogging logs every execution of the wrapped tool. Rejected input
// (ClientError) is logged at warn, any other failure at error.
func WithLogging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Tool) Tool {
		return &loggedTool{decorated: decorated{next: next}, logger: logger}
	}
}

// WithMaxArgsSize rejects argument payloads larger than n bytes with a ClientError
// before they are decoded. n <= 0 disables the check.
func WithMaxArgsSize(n int) Middleware {
	return func(next Tool) Tool {
		if n <= 0 {
			return next
		}
		return &sizeLimitedTool{decorated: decorated{next: next}, limit: n}
	}
}

// decorated forwards Tool and ToolMetadata to the wrapped tool, so per-tool
// timeouts and tags survive decoration.
type decorated struct{ next Tool }

func (d *decorated) Name() string               { return d.next.Name() }
func (d *decorated) Description() string        { return d.next.Description() }
func (d *decorated) Parameters() map[string]any { return d.next.Parameters() }

func (d *decorated) metadata() (ToolMetadata, bool) {
	tm, ok := d.next.(ToolMetadata)
	return tm, ok
}

func (d *decorated) Timeout() time.Duration {
	if tm, ok := d.metadata(); ok {
		return tm.Timeout()
	}
	return 0
}

func (d *decorated) Tags() []string {
	if tm, ok := d.metadata(); ok {
		return tm.Tags()
	}
	return nil
}

func (d *decorated) Version() string {
	if tm, ok := d.metadata(); ok {
		return tm.Version()
	}
	return ""
}

type loggedTool struct {
	decorated
	logger *slog.Logger
}

func (l *loggedTool) Execute(ctx context.Context, args []byte) ([]byte, error) {
	name := l.next.Name()
	l.logger.DebugContext(ctx, "tool start", "tool", name, "args_bytes", len(args))
	start := time.Now()
	out, err := l.next.Execute(ctx, args)
	elapsed := time.Since(start)
	switch {
	case err == nil:
		l.logger.InfoContext(ctx, "tool done", "tool", name, "duration", elapsed, "result_bytes", len(out))
	case IsClientError(err):
		l.logger.WarnContext(ctx, "tool rejected input", "tool", name, "duration", elapsed, "err", err)
	default:
		// SystemError hides its cause from the model; the log keeps it.
		l.logger.ErrorContext(ctx, "tool failed", "tool", name, "duration", elapsed, "err", causeOf(err))
	}
	return out, err
}

func causeOf(err error) error {
	var se *SystemError
	if errors.As(err, &se) && se.Err != nil {
		return se.Err
	}
	return err
}

type sizeLimitedTool struct {
	decorated
	limit int
}

func (s *sizeLimitedTool) Execute(ctx context.Context, args []byte) ([]byte, error) {
	if len(args) > s.limit {
		return nil, &ClientError{
			Reason: fmt.Sprintf("arguments are %d bytes, limit is %d", len(args), s.limit),
			Err:    ErrValidation,
		}
	}
	return s.next.Execute(ctx, args)
}

// Use installs the middleware chain, first element outermost. Each call replaces
// the previous chain: every tool, including ones registered later, is rebuilt
// from its undecorated form. Fails with ErrRegistrySealed after Seal.
func (r *Registry) Use(middlewares ...Middleware) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return fmt.Errorf("%w: cannot change middlewares", ErrRegistrySealed)
	}
	r.middlewares = middlewares
	for name, base := range r.rawTools {
		r.tools[name] = r.decorate(base)
	}
	return nil
}

// decorate applies the installed chain to t. Callers hold r.mu.
func (r *Registry) decorate(t Tool) Tool {
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		t = r.middlewares[i](t)
	}
	return t
}
