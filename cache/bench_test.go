package cache

import (
	"context"
	"fmt"
	"testing"
)

// BenchmarkSchemaCache_GetABI_Hit measures resolved-store lookups.
func BenchmarkSchemaCache_GetABI_Hit(b *testing.B) {
	c := New(nil)
	if err := c.SetABI("eosio.token", tokenJSON(b), false); err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.GetABI(ctx, "eosio.token")
	}
}

// BenchmarkSchemaCache_GetABI_HitParallel measures contention on the cache mutex.
func BenchmarkSchemaCache_GetABI_HitParallel(b *testing.B) {
	c := New(nil)
	if err := c.SetABI("eosio.token", tokenJSON(b), false); err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = c.GetABI(ctx, "eosio.token")
		}
	})
}

// BenchmarkSchemaCache_GetABI_Miss measures a fetch and parse of a JSON payload.
func BenchmarkSchemaCache_GetABI_Miss(b *testing.B) {
	payload := tokenJSON(b)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c := New(StaticFetcher{"eosio.token": payload})
		_, _ = c.GetABI(ctx, "eosio.token")
	}
}

// BenchmarkSchemaCache_SetABI_Merge measures concatenating merges.
func BenchmarkSchemaCache_SetABI_Merge(b *testing.B) {
	payload := tokenJSON(b)
	for _, mode := range []MergeMode{MergeConcat, MergeDedupe} {
		b.Run(mode.String(), func(b *testing.B) {
			c := New(nil, WithPolicy(Policy{Merge: mode}))
			for i := 0; i < b.N; i++ {
				if i%64 == 0 {
					_ = c.SetABI("eosio.token", payload, false)
				}
				_ = c.SetABI("eosio.token", payload, true)
			}
		})
	}
}

// BenchmarkNameKeyer_Key measures account canonicalization.
func BenchmarkNameKeyer_Key(b *testing.B) {
	k := NewNameKeyer()
	for _, account := range []any{"eosio.token", uint64(6138663591592764928)} {
		b.Run(fmt.Sprintf("%T", account), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				_, _, _ = k.Key(account)
			}
		})
	}
}
