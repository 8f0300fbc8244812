// Package correlation propagates a request identifier and a small metadata
// bag through a call chain.
//
// Every externally observable unit of work the gateway produces (log lines,
// metric labels, error records, fallback payloads) carries the same
// correlation id, originating at the request boundary. If the caller does
// not supply one, EnsureID generates it.
//
//	ctx, id := correlation.EnsureID(ctx)
//	ctx = correlation.WithMeta(ctx, "tenant", tenantID)
package correlation
