// Package fallback serves pre-registered, degraded-but-usable substitute
// responses when the real prediction call cannot be completed.
//
// One entry exists per category; the registry is seeded at startup
// (VerifyRegistered enforces this) and may be refreshed at runtime from
// the last successful live response. Get never fails: an unregistered
// category yields a generic entry whose reason says so explicitly.
package fallback
