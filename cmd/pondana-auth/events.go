package main

import (
	"bufio"
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	auth "github.com/amami1625/pondana-sub000"
	"github.com/amami1625/pondana-sub000/session"
)

// profileCookie names the browser profile whose tabs share auth events.
const profileCookie = "pondana-profile"

// BroadcasterFactory returns the event channel shared by one browser profile.
type BroadcasterFactory func(profile string) session.Broadcaster

// EventsHandler streams the auth events of the caller's browser profile as
// server-sent events. Streams end when base is cancelled, which happens
// before the server shuts down so idle connections do not hold it open.
func EventsHandler(base context.Context, cookies auth.CookieOptions, broadcasters BroadcasterFactory, keepAlive time.Duration, logger auth.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		storage := auth.NewCookieStorage(router.NewFiberContext(c), cookies)
		profile := browserProfile(storage)
		events := broadcasters(profile)

		c.Set(fiber.HeaderContentType, "text/event-stream")
		c.Set(fiber.HeaderCacheControl, "no-cache")
		c.Set(fiber.HeaderConnection, "keep-alive")
		c.Set("X-Accel-Buffering", "no")

		c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
			ctx, cancel := context.WithCancel(base)
			defer cancel()

			if err := session.Stream(ctx, events, w, keepAlive); err != nil {
				logger.Debug("auth events stream for %s closed: %v", profile, err)
			}
		}))
		return nil
	}
}

// browserProfile reads the profile id kept next to the session, minting one
// on first use.
func browserProfile(storage session.Storage) string {
	ctx := context.Background()
	if id, err := storage.GetItem(ctx, profileCookie); err == nil && id != "" {
		return id
	}
	id := uuid.NewString()
	_ = storage.SetItem(ctx, profileCookie, id)
	return id
}
