// Package ratelimit implements the Redis-backed rate limiter of the
// guardrail service, plus an in-process fallback limiter for deployments
// without a shared store.
//
// Both algorithms run as server-side Lua so the read-check-write sequence of
// a check is atomic: two instances admitting the same partition key can never
// both observe the pre-increment count and overshoot the budget.
package ratelimit

// luaScript pairs a script body with a stable name for logs and metrics.
// The engine addresses scripts by SHA via EVALSHA and falls back to a reload
// when the server no longer caches them.
type luaScript struct {
	name string
	src  string
}

var (
	slidingWindowScript = luaScript{name: "sliding_window", src: slidingWindowSrc}
	tokenBucketScript   = luaScript{name: "token_bucket", src: tokenBucketSrc}
)

// slidingWindowSrc counts hits in a rolling window backed by a sorted set.
//
//	KEYS[1] partition key
//	ARGV[1] limit   (int, max hits per window)
//	ARGV[2] window  (int, seconds)
//	ARGV[3] now     (float, Unix seconds)
//	ARGV[4] member  (unique discriminator for this hit)
//
// Returns {allowed, remaining, reset_at}. reset_at is absolute Unix seconds:
// for an admitted hit the moment this hit slides out of the window, for a
// denied one the moment the oldest recorded hit does.
const slidingWindowSrc = `
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local member = ARGV[4]

-- Drop hits that have slid out of the window.
redis.call('ZREMRANGEBYSCORE', key, 0, now - window)

local count = redis.call('ZCARD', key)

if count < limit then
    redis.call('ZADD', key, now, member)
    redis.call('EXPIRE', key, window + 10)
    return {1, limit - count - 1, now + window}
end

-- Denied: the window opens again when the oldest hit expires.
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local reset_at = now + window
if oldest[2] then
    reset_at = tonumber(oldest[2]) + window
end
return {0, 0, reset_at}
`

// tokenBucketSrc admits one request per token from a continuously refilled
// bucket stored as a two-field hash.
//
//	KEYS[1] partition key
//	ARGV[1] capacity    (int, bucket size)
//	ARGV[2] refill_rate (float, tokens per second)
//	ARGV[3] now         (float, Unix seconds)
//	ARGV[4] requested   (int, tokens for this request)
//
// Returns {allowed, remaining, seconds}: seconds until the bucket is full
// again when admitted, seconds until enough tokens exist when denied. The
// token count keeps its fraction in the stored state and is floored only in
// the reply, so partial refills accumulate instead of being discarded.
// A denied request still persists the refilled state: the elapsed-time
// credit belongs to the bucket whether or not this request got a token.
const tokenBucketSrc = `
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local refill_rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local requested = tonumber(ARGV[4])

local state = redis.call('HMGET', key, 'tokens', 'last_refill')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if not tokens or not last_refill then
    tokens = capacity
    last_refill = now
end

local elapsed = now - last_refill
tokens = math.min(capacity, tokens + elapsed * refill_rate)

local ttl = math.ceil(capacity / refill_rate) + 10

if tokens >= requested then
    tokens = tokens - requested
    redis.call('HMSET', key, 'tokens', tokens, 'last_refill', now)
    redis.call('EXPIRE', key, ttl)
    return {1, math.floor(tokens), math.ceil((capacity - tokens) / refill_rate)}
end

redis.call('HMSET', key, 'tokens', tokens, 'last_refill', now)
redis.call('EXPIRE', key, ttl)
return {0, 0, math.ceil((requested - tokens) / refill_rate)}
`
