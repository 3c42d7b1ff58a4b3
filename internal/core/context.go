package core

import "context"

type sourceKey struct{}

// Source identifies who started a run. It is copied into the final report.
type Source struct {
	IP        string `json:"ip,omitempty" yaml:"ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
}

// WithSource attaches the caller's source to ctx.
func WithSource(ctx context.Context, src Source) context.Context {
	return context.WithValue(ctx, sourceKey{}, src)
}

// SourceFromContext returns the source attached by WithSource.
func SourceFromContext(ctx context.Context) (Source, bool) {
	src, ok := ctx.Value(sourceKey{}).(Source)
	return src, ok
}
