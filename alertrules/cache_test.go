package alertrules

import (
	"testing"
	"time"
)

func TestInMemoryRulesCacheMissUntilSet(t *testing.T) {
	cache := NewInMemoryRulesCache(DefaultCacheConfig())

	if cache.Get() != nil || cache.IsValid() {
		t.Fatal("new cache should miss")
	}

	cache.Set([]*Rule{frostRule("a")})
	if got := cache.Get(); len(got) != 1 || !cache.IsValid() {
		t.Fatalf("cache should hit after Set, got %v", got)
	}

	cache.Invalidate()
	if cache.Get() != nil || cache.IsValid() {
		t.Error("cache should miss after Invalidate")
	}
}

func TestInMemoryRulesCacheEmptyListIsAHit(t *testing.T) {
	cache := NewInMemoryRulesCache(DefaultCacheConfig())
	cache.Set([]*Rule{})

	if got := cache.Get(); got == nil {
		t.Error("an empty rule list should still be a cache hit")
	}
}

func TestInMemoryRulesCacheTTL(t *testing.T) {
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	cache := NewInMemoryRulesCache(CacheConfig{TTL: time.Minute})
	cache.now = func() time.Time { return now }

	cache.Set([]*Rule{frostRule("a")})

	now = now.Add(59 * time.Second)
	if cache.Get() == nil {
		t.Error("cache should hit inside the TTL")
	}

	now = now.Add(2 * time.Second)
	if cache.Get() != nil || cache.IsValid() {
		t.Error("cache should miss once the TTL has passed")
	}
}

func TestInMemoryRulesCacheCopiesSlice(t *testing.T) {
	cache := NewInMemoryRulesCache(DefaultCacheConfig())
	rules := []*Rule{frostRule("a"), frostRule("b")}
	cache.Set(rules)

	rules[0] = frostRule("z")
	got := cache.Get()
	got[1] = nil

	again := cache.Get()
	if again[0].ID != "a" || again[1] == nil {
		t.Errorf("cache slice was aliased: %v", again)
	}
}
