// Package mq publishes engagement events (likes, follows, bookmarks) to a
// redis channel for downstream consumers. Emission is fire-and-forget: a
// failed publish is logged and never fails the request that caused it.
package mq

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"quill/models"
	"quill/rdx"
)

const Channel = "engagement-events"

// Emit publishes one engagement event. Call it in a goroutine from the
// request path.
func Emit(action, entityType, entityID, actorID string) {
	event := models.EngagementEvent{
		EntityType: entityType,
		EntityID:   entityID,
		ActorID:    actorID,
		Action:     action,
		CreatedAt:  time.Now(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("mq: failed to marshal event: %v", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdx.Publish(ctx, Channel, data); err != nil {
		log.Printf("mq: failed to publish %s event: %v", action, err)
	}
}
