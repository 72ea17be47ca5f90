package handlers

import (
	"context"
	"io"
	"time"

	"ambulance/middleware"
	"ambulance/models"
	"ambulance/services/feed"
	"ambulance/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// keepAlive is how often an idle stream sends a ping event.
var keepAlive = 25 * time.Second

type subscribeFunc func(ctx context.Context, actor models.Actor, onChange func(models.BookingSnapshot)) (feed.Subscription, error)

// MyBookingsLiveHandler streams the caller's bookings as server-sent events.
func (h *BookingHandler) MyBookingsLiveHandler(c *gin.Context) {
	h.stream(c, feed.ViewMyBookings, func(ctx context.Context, actor models.Actor, onChange func(models.BookingSnapshot)) (feed.Subscription, error) {
		return h.bookings.SubscribeMine(ctx, actor, onChange)
	})
}

// AdminBookingsLive streams every booking as server-sent events.
func (h *BookingHandler) AdminBookingsLive(c *gin.Context) {
	h.stream(c, feed.ViewAllBookings, func(ctx context.Context, actor models.Actor, onChange func(models.BookingSnapshot)) (feed.Subscription, error) {
		return h.bookings.SubscribeAll(ctx, actor, onChange)
	})
}

// stream holds one live view per session. Reopening the view from the same
// session ends the older stream. Each event carries the full listing; a slow
// client skips straight to the newest one but still receives every added
// booking.
func (h *BookingHandler) stream(c *gin.Context, view feed.View, subscribe subscribeFunc) {
	session := middleware.SessionFrom(c)
	if session == nil {
		respondError(c, models.ErrUnauthenticated)
		return
	}
	ctx := c.Request.Context()
	latest := feed.NewMergingLatest(models.MergeSnapshots)

	lease, err := h.feeds.Open(session.ID, view, func() (feed.Subscription, error) {
		return subscribe(ctx, session.Actor, latest.Put)
	})
	if err != nil {
		respondError(c, err)
		return
	}
	defer lease.Release()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-lease.Done():
			c.SSEvent("closed", gin.H{"reason": "session ended or view reopened"})
			return false
		case <-latest.Ready():
			if snap, ok := latest.Take(); ok {
				c.SSEvent("bookings", snap)
			}
			return true
		case t := <-ticker.C:
			c.SSEvent("ping", t.UTC().Format(time.RFC3339))
			return true
		}
	})
	utils.GetLogger().Debug("live view closed",
		zap.String("view", string(view)), zap.String("sessionID", session.ID))
}
