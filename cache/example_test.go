package cache_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mspops/predictgate/cache"
)

func ExampleNewMemoryCache() {
	c := cache.NewMemoryCache()
	ctx := context.Background()

	// Store a prediction response
	_ = c.Set(ctx, "predict:ticket-resolution:acme:2026082812:ab12", 4.5, 5*time.Minute)

	// Retrieve it
	entry, ok := c.Get(ctx, "predict:ticket-resolution:acme:2026082812:ab12")
	if ok {
		fmt.Println("Value:", entry.Value)
	}
	// Output:
	// Value: 4.5
}

func ExampleMemoryCache_Get() {
	c := cache.NewMemoryCache()
	ctx := context.Background()

	// Miss - key doesn't exist
	_, ok := c.Get(ctx, "missing")
	fmt.Println("Missing key found:", ok)

	// Set and get
	_ = c.Set(ctx, "exists", "data", time.Hour)
	entry, ok := c.Get(ctx, "exists")
	fmt.Println("Existing key found:", ok)
	fmt.Println("Value:", entry.Value)
	// Output:
	// Missing key found: false
	// Existing key found: true
	// Value: data
}

func ExampleMemoryCache_Set() {
	c := cache.NewMemoryCache()
	ctx := context.Background()

	// Normal set with TTL
	err := c.Set(ctx, "key1", "value1", 5*time.Minute)
	fmt.Println("Set error:", err)

	// Set with zero TTL is a no-op (no caching)
	err = c.Set(ctx, "key2", "value2", 0)
	fmt.Println("Zero TTL error:", err)

	// Verify zero TTL didn't cache
	_, ok := c.Get(ctx, "key2")
	fmt.Println("Zero TTL key cached:", ok)
	// Output:
	// Set error: <nil>
	// Zero TTL error: <nil>
	// Zero TTL key cached: false
}

func ExampleMemoryCache_Delete() {
	c := cache.NewMemoryCache()
	ctx := context.Background()

	_ = c.Set(ctx, "to-delete", "temporary", time.Hour)

	err := c.Delete(ctx, "to-delete")
	fmt.Println("Delete error:", err)

	_, ok := c.Get(ctx, "to-delete")
	fmt.Println("After delete:", ok)

	// Delete is idempotent - no error on missing key
	err = c.Delete(ctx, "never-existed")
	fmt.Println("Delete missing:", err)
	// Output:
	// Delete error: <nil>
	// After delete: false
	// Delete missing: <nil>
}

func ExampleDefaultPolicy() {
	policy := cache.DefaultPolicy()

	fmt.Println("Default TTL:", policy.DefaultTTL)
	fmt.Println("Max TTL:", policy.MaxTTL)
	fmt.Println("Should cache:", policy.ShouldCache())
	// Output:
	// Default TTL: 6h0m0s
	// Max TTL: 24h0m0s
	// Should cache: true
}

func ExampleNoCachePolicy() {
	policy := cache.NoCachePolicy()

	fmt.Println("Should cache:", policy.ShouldCache())
	// Output:
	// Should cache: false
}

func ExamplePolicy_TTLFor() {
	policy := cache.Policy{
		DefaultTTL: 6 * time.Hour,
		MaxTTL:     12 * time.Hour,
		PerModel: map[string]time.Duration{
			"budget-forecast": 24 * time.Hour,
		},
	}

	// No override - uses default
	fmt.Println("invoice-payment:", policy.TTLFor("invoice-payment"))

	// Excessive override - clamped to max
	fmt.Println("budget-forecast (clamped):", policy.TTLFor("budget-forecast"))
	// Output:
	// invoice-payment: 6h0m0s
	// budget-forecast (clamped): 12h0m0s
}

func ExampleValidateKey() {
	// Valid keys
	fmt.Println("normal key:", cache.ValidateKey("predict:model:tenant:hash") == nil)

	// Invalid keys
	fmt.Println("empty:", errors.Is(cache.ValidateKey(""), cache.ErrInvalidKey))
	fmt.Println("whitespace:", errors.Is(cache.ValidateKey("   "), cache.ErrInvalidKey))
	fmt.Println("with newline:", errors.Is(cache.ValidateKey("key\nvalue"), cache.ErrInvalidKey))
	// Output:
	// normal key: true
	// empty: true
	// whitespace: true
	// with newline: true
}
