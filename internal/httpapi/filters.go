package httpapi

import (
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/emicklei/go-restful/v3"
	"github.com/rs/zerolog"

	"github.com/ppiankov/promptguard/internal/ratelimit"
)

func logFilter(logger zerolog.Logger) restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		start := time.Now()
		chain.ProcessFilter(req, resp)
		logger.Info().
			Str("method", req.Request.Method).
			Str("path", req.Request.URL.Path).
			Int("status", resp.StatusCode()).
			Dur("duration", time.Since(start)).
			Msg("request")
	}
}

func recoverFilter(logger zerolog.Logger) restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error().
					Str("path", req.Request.URL.Path).
					Interface("panic", r).
					Msg("handler panic")
				writeError(resp, http.StatusInternalServerError, fmt.Errorf("internal error"))
			}
		}()
		chain.ProcessFilter(req, resp)
	}
}

func rateLimitFilter(limiter *ratelimit.Limiter, logger zerolog.Logger) restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		res := limiter.Allow(clientKey(req.Request), time.Now())
		if res.Exceeded {
			logger.Warn().
				Str("client", res.Key).
				Int("limit", res.Limit).
				Msg("rate limit exceeded")
			secs := int(math.Ceil(res.RetryAfter.Seconds()))
			resp.AddHeader("Retry-After", strconv.Itoa(secs))
			writeError(resp, http.StatusTooManyRequests, errors.New(res.Reason))
			return
		}
		chain.ProcessFilter(req, resp)
	}
}

// clientKey identifies the caller: first X-Forwarded-For hop, else the remote host.
func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
