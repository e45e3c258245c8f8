package types

import "context"

// Context keys are unexported to guarantee collision-free context values.
type contextKey string

const (
	requestIDKey contextKey = "request_id"
	hostIDKey    contextKey = "host_id"
)

// WithRequestID stores the request ID in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID retrieves the request ID from the context.
// Returns the empty string if none has been set.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithHostID stores the acting league host's ID in the context. Authentication
// is owned by an upstream collaborator; this core only carries the resolved
// identity through the request.
func WithHostID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, hostIDKey, id)
}

// GetHostID retrieves the acting host's ID from the context.
func GetHostID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(hostIDKey).(string)
	return id, ok
}
