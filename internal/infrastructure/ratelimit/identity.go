package ratelimit

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/samvit-hq/guardrail/pkg/constants"
)

// ClientIP resolves the caller's network address for partitioning. Proxy
// headers are consulted most-specific first: CF-Connecting-IP is set by the
// edge and hardest to spoof, X-Forwarded-For carries the original client in
// its leftmost entry, X-Real-IP is the single-proxy variant. Only then does
// the peer address count, since behind any proxy it is the proxy itself.
func ClientIP(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get(constants.HeaderCFConnectingIP)); ip != "" {
		return ip
	}

	if xff := r.Header.Get(constants.HeaderXForwardedFor); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}

	if ip := strings.TrimSpace(r.Header.Get(constants.HeaderXRealIP)); ip != "" {
		return ip
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}

	return constants.IdentityUnknown
}

// IPIdentity renders a network address as a partition identity.
func IPIdentity(ip string) string {
	return constants.IdentityPrefixIP + ":" + ip
}

// UserIdentity renders an authenticated user ID as a partition identity.
// Per-user partitions survive address changes and NAT sharing, so they are
// preferred whenever authentication has already happened.
func UserIdentity(userID string) string {
	return constants.IdentityPrefixUser + ":" + userID
}

// BuildKey assembles the partition key {prefix}:{route}:{identity}. Route
// slashes become underscores so the route occupies exactly one colon-
// delimited segment and operators can split keys on ":" when inspecting the
// store.
func BuildKey(prefix, route, identity string) string {
	return fmt.Sprintf("%s:%s:%s", prefix, strings.ReplaceAll(route, "/", "_"), identity)
}
