// Package cache stores successful prediction results so repeat requests
// within a freshness window skip the external call entirely.
package cache
