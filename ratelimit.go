/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	apiBurst = 10

	actionRate  = 10
	actionBurst = 20

	limiterPruneAt   = 500
	limiterIdleAfter = 10 * time.Minute
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiter hands out one token bucket per client address. A nil ipLimiter
// allows everything.
type ipLimiter struct {
	mu    sync.Mutex
	ips   map[string]*limiterEntry
	limit rate.Limit
	burst int
}

func newIPLimiter(perSecond float64, burst int) *ipLimiter {
	if perSecond <= 0 {
		return nil
	}

	return &ipLimiter{
		ips:   make(map[string]*limiterEntry),
		limit: rate.Limit(perSecond),
		burst: burst,
	}
}

func (l *ipLimiter) allow(ip string) bool {
	if l == nil {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()

	if len(l.ips) > limiterPruneAt {
		cutoff := now.Add(-limiterIdleAfter)
		for k, e := range l.ips {
			if e.lastSeen.Before(cutoff) {
				delete(l.ips, k)
			}
		}
	}

	e, ok := l.ips[ip]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.ips[ip] = e
	}
	e.lastSeen = now

	return e.limiter.Allow()
}

// limiterKey is the peer address of r. Forwarding headers are only honoured
// with --trust-proxy, since any client can set them.
func limiterKey(cfg *Config, r *http.Request) string {
	if cfg.trustProxy {
		return clientHost(realIP(r))
	}

	return clientHost(r.RemoteAddr)
}

// clientHost strips the port from an address.
func clientHost(ip string) string {
	if host, _, err := net.SplitHostPort(ip); err == nil {
		return host
	}

	return strings.Trim(ip, "[]")
}

func newActionLimiter() *rate.Limiter {
	return rate.NewLimiter(actionRate, actionBurst)
}
