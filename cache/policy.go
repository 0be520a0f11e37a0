package cache

import "time"

// DefaultTTL is how long a resolved state is trusted without revalidation.
const DefaultTTL = 5 * time.Second

// Policy configures caching behavior.
type Policy struct {
	// TTL is the freshness window. If zero, caching is disabled.
	TTL time.Duration

	// MaxTTL caps TTL. If zero, no maximum is enforced.
	MaxTTL time.Duration
}

// DefaultPolicy returns the default policy.
// TTL: 5 seconds, MaxTTL: 1 minute
func DefaultPolicy() Policy {
	return Policy{
		TTL:    DefaultTTL,
		MaxTTL: time.Minute,
	}
}

// NoCachePolicy returns a policy under which every Get misses.
func NoCachePolicy() Policy {
	return Policy{}
}

// ShouldCache returns true if caching is enabled by this policy.
func (p Policy) ShouldCache() bool {
	return p.EffectiveTTL() > 0
}

// EffectiveTTL returns the TTL clamped to MaxTTL.
func (p Policy) EffectiveTTL() time.Duration {
	ttl := p.TTL
	if ttl < 0 {
		ttl = 0
	}
	if p.MaxTTL > 0 && ttl > p.MaxTTL {
		ttl = p.MaxTTL
	}
	return ttl
}
