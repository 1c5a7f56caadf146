package services

import "context"

type actorKey struct{}

// WithActor attaches the caller's identity to ctx. The identity is an opaque author string;
// it pre-fills the author of new drafts and is recorded on events.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the identity attached by WithActor, or "".
func ActorFromContext(ctx context.Context) string {
	actor, _ := ctx.Value(actorKey{}).(string)

	return actor
}
