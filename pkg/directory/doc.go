// Package directory resolves internal owner ids to external identities.
//
// # Overview
//
// Usage records tag events with internal owner ids; the identity directory
// (a Cognito user pool in production) is the only place those ids map to a
// real person. Directory is the lookup interface the engine consumes,
// CognitoDirectory the production implementation.
//
// Lookups are best-effort. A failed or unknown lookup degrades to the
// deterministic fallback identity from Fallback; it never blocks aggregation.
//
// # Caching
//
// The engine itself holds no identity state. Deployments that want to spare
// the user pool's rate limits wrap the directory in an explicit, TTL-bounded
// cache layer: NewCachedDirectory (in-process expirable LRU) or
// NewRedisCachedDirectory (shared Redis backend).
//
//	dir, err := directory.NewCognitoDirectory(ctx, cfg)
//	cached := directory.NewCachedDirectory(dir, 4096, 10*time.Minute)
package directory
