package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"order-core/internal/projection"
)

// subscriptionEntry is one row of the pub/sub subscription manifest that
// every event-consuming service in this platform exposes so the broker's
// sidecar can wire subjects to routes (spec §6).
type subscriptionEntry struct {
	PubsubName string `json:"pubsubName"`
	Topic      string `json:"topic"`
	Route      string `json:"route"`
}

// SubscriptionManifest handles the GET manifest endpoint enumerating every
// topic the Reference Projection consumes (spec §6).
func SubscriptionManifest(c *gin.Context) {
	entries := make([]subscriptionEntry, 0, len(projection.Topics))
	for _, topic := range projection.Topics {
		entries = append(entries, subscriptionEntry{
			PubsubName: "pubsub",
			Topic:      topic,
			Route:      "/events/" + topic,
		})
	}
	c.JSON(http.StatusOK, entries)
}
