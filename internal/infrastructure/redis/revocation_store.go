package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/samvit-hq/guardrail/internal/domain/service"
	"github.com/samvit-hq/guardrail/pkg/constants"
	"github.com/samvit-hq/guardrail/pkg/logger"
	"github.com/samvit-hq/guardrail/pkg/utils"
)

var _ service.RevocationStore = (*RevocationStore)(nil)

// RevocationStore tracks invalidated credentials in Redis.
//
// Individual revocations live under token:revoked:{sha256(credential)} with a
// TTL matching the credential's natural expiry, so the store never carries
// entries for tokens that could no longer be used anyway. Bulk revocations
// store a Unix timestamp under user:revoked:{identity}; any credential issued
// before that timestamp is treated as revoked.
//
// Store failures never propagate. A failed write reports false so the caller
// can surface it, and a failed check reports "not revoked": during an outage
// the service keeps serving rather than locking every user out.
type RevocationStore struct {
	client redis.UniversalClient
	logger logger.Logger
}

// NewRevocationStore creates a revocation store backed by the given client.
func NewRevocationStore(client redis.UniversalClient, log logger.Logger) *RevocationStore {
	return &RevocationStore{
		client: client,
		logger: log.WithComponent("revocation_store"),
	}
}

func revocationKey(credential string) string {
	return constants.TokenRevocationKeyPrefix + utils.HashCredential(credential)
}

func identityMarkerKey(identity string) string {
	return constants.IdentityRevocationKeyPrefix + identity
}

// Revoke marks a single credential as invalid until expiresAt. A credential
// already past its expiry is reported revoked without touching the store,
// since its own expiry already makes it unusable.
func (s *RevocationStore) Revoke(ctx context.Context, credential string, expiresAt time.Time) bool {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return true
	}

	if err := s.client.Set(ctx, revocationKey(credential), "1", ttl).Err(); err != nil {
		appErr := ClassifyError(err)
		s.logger.Warn(ctx, "failed to revoke credential",
			logger.String("code", string(appErr.Code())),
			logger.String("credential", utils.MaskToken(credential)),
			logger.Error(err),
		)
		return false
	}

	s.logger.Info(ctx, "credential revoked",
		logger.String("credential", utils.MaskToken(credential)),
		logger.Duration("ttl", ttl),
	)
	return true
}

// IsRevoked reports whether a credential has been individually revoked.
// Store failures report false: an unreachable store must not reject every
// authenticated request in the system.
func (s *RevocationStore) IsRevoked(ctx context.Context, credential string) bool {
	n, err := s.client.Exists(ctx, revocationKey(credential)).Result()
	if err != nil {
		appErr := ClassifyError(err)
		s.logger.Warn(ctx, "revocation check failed, treating credential as valid",
			logger.String("code", string(appErr.Code())),
			logger.Error(err),
		)
		return false
	}
	return n == 1
}

// RevokeAllForIdentity invalidates every credential issued to identity before
// now. The marker lives for ttl; a non-positive ttl falls back to the
// configured default so a marker can never be written without an expiry.
func (s *RevocationStore) RevokeAllForIdentity(ctx context.Context, identity string, ttl time.Duration) bool {
	if ttl <= 0 {
		ttl = constants.DefaultIdentityRevocationTTL
	}

	now := strconv.FormatInt(time.Now().Unix(), 10)
	if err := s.client.Set(ctx, identityMarkerKey(identity), now, ttl).Err(); err != nil {
		appErr := ClassifyError(err)
		s.logger.Warn(ctx, "failed to revoke identity credentials",
			logger.String("code", string(appErr.Code())),
			logger.String("identity", identity),
			logger.Error(err),
		)
		return false
	}

	s.logger.Info(ctx, "all credentials revoked for identity",
		logger.String("identity", identity),
		logger.Duration("ttl", ttl),
	)
	return true
}

// IsIdentityRevokedSince reports whether a credential issued to identity at
// issuedAt (Unix seconds) falls under a bulk revocation: a marker exists and
// the credential predates it. Credentials issued in the same second as the
// marker are not caught, matching the one-second resolution of the marker.
func (s *RevocationStore) IsIdentityRevokedSince(ctx context.Context, identity string, issuedAt int64) bool {
	value, err := s.client.Get(ctx, identityMarkerKey(identity)).Result()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		appErr := ClassifyError(err)
		s.logger.Warn(ctx, "identity revocation check failed, treating credential as valid",
			logger.String("code", string(appErr.Code())),
			logger.String("identity", identity),
			logger.Error(err),
		)
		return false
	}

	revokedAt, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		s.logger.Warn(ctx, "malformed identity revocation marker",
			logger.String("identity", identity),
			logger.String("value", value),
		)
		return false
	}

	return issuedAt < revokedAt
}
