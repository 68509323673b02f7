package requestctx

import (
	"context"

	"hrms/internal/domain/access"
)

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	actorKey     ctxKey = "actor"
	actorSlotKey ctxKey = "actor_slot"
)

// actorSlot lets middleware outside Auth see the actor once the inner
// handlers return.
type actorSlot struct {
	actor access.Actor
	set   bool
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	if value, ok := ctx.Value(requestIDKey).(string); ok {
		return value
	}
	return ""
}

// WithActor stores the actor and fills the slot installed by WithActorSlot, if any.
func WithActor(ctx context.Context, actor access.Actor) context.Context {
	if slot, ok := ctx.Value(actorSlotKey).(*actorSlot); ok {
		slot.actor = actor
		slot.set = true
	}
	return context.WithValue(ctx, actorKey, actor)
}

func GetActor(ctx context.Context) (access.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(access.Actor)
	return actor, ok
}

func WithActorSlot(ctx context.Context) context.Context {
	return context.WithValue(ctx, actorSlotKey, &actorSlot{})
}

// SlotActor returns the actor recorded in the slot by a nested WithActor call.
func SlotActor(ctx context.Context) (access.Actor, bool) {
	slot, ok := ctx.Value(actorSlotKey).(*actorSlot)
	if !ok || !slot.set {
		return access.Actor{}, false
	}
	return slot.actor, true
}
