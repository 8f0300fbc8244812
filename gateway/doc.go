// Package gateway is the resilient front door to the external
// prediction service.
//
// One Invoke call carries a business record through mapping,
// cache lookup, token minting, the retry/circuit-breaker chain, and on
// failure degrades to a registered fallback instead of surfacing the
// outage. Record-validation failures are the one exception: they are
// caller bugs and fail loud.
package gateway
