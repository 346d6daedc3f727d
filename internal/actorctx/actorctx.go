package actorctx

import "context"

type ctxKey string

const (
	keyActorEmail ctxKey = "actor_email"
	keyIP         ctxKey = "actor_ip"
	keyUserAgent  ctxKey = "actor_user_agent"
)

func WithActor(ctx context.Context, email, ip, userAgent string) context.Context {
	ctx = context.WithValue(ctx, keyActorEmail, email)
	ctx = context.WithValue(ctx, keyIP, ip)
	return context.WithValue(ctx, keyUserAgent, userAgent)
}

func ActorEmailFrom(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyActorEmail).(string)

	return v, ok && v != ""
}

func IPFrom(ctx context.Context) string {
	v, _ := ctx.Value(keyIP).(string)
	return v
}

func UserAgentFrom(ctx context.Context) string {
	v, _ := ctx.Value(keyUserAgent).(string)
	return v
}
