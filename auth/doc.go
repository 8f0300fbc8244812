// Package auth mints the signed service tokens the gateway attaches to
// outbound prediction service calls. Tokens are HS256 JWTs with
// iss/sub/aud/exp claims, cached and reused until close to expiry.
package auth
