package echoapi

import (
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

const (
	maxRateLimitedClients = 10000
	rateLimiterIdleTTL    = 10 * time.Minute
)

// rateLimiter is a per-client token bucket. Idle clients are evicted from the LRU.
type rateLimiter struct {
	limit   rate.Limit
	burst   int
	clients *expirable.LRU[string, *rate.Limiter]
}

func newRateLimiter(perSecond float64, burst int) *rateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &rateLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		clients: expirable.NewLRU[string, *rate.Limiter](maxRateLimitedClients, nil, rateLimiterIdleTTL),
	}
}

func (rl *rateLimiter) limiter(client string) *rate.Limiter {
	if lim, ok := rl.clients.Get(client); ok {
		return lim
	}
	lim := rate.NewLimiter(rl.limit, rl.burst)
	rl.clients.Add(client, lim)
	return lim
}

// middleware rejects requests over the client's rate with 429 Too Many Requests.
// Clients are identified by their IP address.
func (rl *rateLimiter) middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		lim := rl.limiter(ctx.RealIP())

		reservation := lim.Reserve()
		if !reservation.OK() {
			return errTooManyRequests
		}
		if delay := reservation.Delay(); delay > 0 {
			reservation.Cancel()
			ctx.Response().Header().Set("Retry-After", strconv.Itoa(int(delay.Seconds())+1))
			return errTooManyRequests
		}

		ctx.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.burst))
		ctx.Response().Header().Set("X-RateLimit-Remaining", strconv.Itoa(int(lim.Tokens())))
		return next(ctx)
	}
}
