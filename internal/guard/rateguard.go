// Package guard enforces per-client rate limits and address transfer
// policies ahead of any network interaction.
package guard

import (
	"sync"
	"time"

	"github.com/dmarkin/bundler-wallet/internal/model"
)

// Category partitions rate windows by request kind.
type Category string

const (
	CategoryRequest     Category = "request"
	CategoryTransaction Category = "transaction"
)

// Limit is the ceiling for one category within its window.
type Limit struct {
	Max    int
	Window time.Duration
}

// Config carries the guard's limits and policy switches.
type Config struct {
	Limits           map[Category]Limit
	DailyVolumeLimit uint64 // lamports per sender per day; 0 disables the check
	WhitelistEnabled bool
	BanDuration      time.Duration
}

// DefaultConfig mirrors production limits: 60 requests/minute,
// 100 transactions/hour, 1h default ban.
func DefaultConfig() Config {
	return Config{
		Limits: map[Category]Limit{
			CategoryRequest:     {Max: 60, Window: time.Minute},
			CategoryTransaction: {Max: 100, Window: time.Hour},
		},
		BanDuration: time.Hour,
	}
}

// rateWindow is one sliding window. Reset is lazy: it happens only when the
// window is re-evaluated and found stale, never by a background sweep.
type rateWindow struct {
	mu    sync.Mutex
	count int
	start time.Time
}

// RateGuard holds sliding-window counters keyed by (client, category) and
// the address ban/allow/deny policy. State is partitioned per key, so
// unrelated clients never contend; each entry has its own lock and updates
// to it are atomic. Construct once at process start and share by reference.
type RateGuard struct {
	cfg Config

	windows sync.Map // "clientID|category" -> *rateWindow

	bans        sync.Map // address -> time.Time (ban expiry)
	whitelist   sync.Map // address -> struct{}
	blacklist   sync.Map // address -> struct{}
	dailyVolume sync.Map // "address|YYYY-MM-DD" -> *volumeEntry

	now func() time.Time // injectable clock for tests
}

type volumeEntry struct {
	mu    sync.Mutex
	spent uint64
}

// New creates a RateGuard with the given config.
func New(cfg Config) *RateGuard {
	if cfg.Limits == nil {
		cfg.Limits = DefaultConfig().Limits
	}
	return &RateGuard{cfg: cfg, now: time.Now}
}

// CheckAndIncrement admits one request for (clientID, category) or rejects
// it with RateLimitExceededError. A full window rejects without
// incrementing; a stale window resets to count 1.
func (g *RateGuard) CheckAndIncrement(clientID string, category Category) error {
	limit, ok := g.cfg.Limits[category]
	if !ok {
		return &model.ValidationError{Field: "category", Message: "unknown rate category " + string(category)}
	}

	now := g.now()
	key := clientID + "|" + string(category)

	v, loaded := g.windows.LoadOrStore(key, &rateWindow{count: 1, start: now})
	if !loaded {
		return nil
	}

	w := v.(*rateWindow)
	w.mu.Lock()
	defer w.mu.Unlock()

	if now.Sub(w.start) > limit.Window {
		w.count = 1
		w.start = now
		return nil
	}
	if w.count >= limit.Max {
		return &model.RateLimitExceededError{ClientID: clientID, Category: string(category)}
	}
	w.count++
	return nil
}

// Ban records an expiry of now+duration for the address. A ban stops
// rejecting as soon as its expiry passes: the check compares the stored
// expiry against the evaluation-time clock, so CleanupExpired only reclaims
// memory and is never required for a ban to decay.
func (g *RateGuard) Ban(address string, duration time.Duration) {
	if duration <= 0 {
		duration = g.cfg.BanDuration
	}
	g.bans.Store(address, g.now().Add(duration))
}

// AddToWhitelist marks an address as an allowed transfer destination.
func (g *RateGuard) AddToWhitelist(address string) {
	g.whitelist.Store(address, struct{}{})
}

// AddToBlacklist marks an address as a denied transfer destination.
func (g *RateGuard) AddToBlacklist(address string) {
	g.blacklist.Store(address, struct{}{})
}

// isBanned reports whether the address has an unexpired ban.
func (g *RateGuard) isBanned(address string, now time.Time) bool {
	v, ok := g.bans.Load(address)
	if !ok {
		return false
	}
	return now.Before(v.(time.Time))
}

// ValidateTransfer evaluates the address policy for a transfer. First match
// wins, in this exact order:
//  1. either address banned
//  2. whitelist mode on and destination absent from the whitelist
//  3. destination blacklisted
//  4. sender's daily volume ceiling exceeded
func (g *RateGuard) ValidateTransfer(from, to string, amount uint64) error {
	now := g.now()

	if g.isBanned(from, now) {
		return &model.PolicyViolationError{Rule: "ban", Address: from}
	}
	if g.isBanned(to, now) {
		return &model.PolicyViolationError{Rule: "ban", Address: to}
	}

	if g.cfg.WhitelistEnabled {
		if _, ok := g.whitelist.Load(to); !ok {
			return &model.PolicyViolationError{Rule: "whitelist", Address: to}
		}
	}

	if _, ok := g.blacklist.Load(to); ok {
		return &model.PolicyViolationError{Rule: "blacklist", Address: to}
	}

	if g.cfg.DailyVolumeLimit > 0 {
		v, _ := g.dailyVolume.LoadOrStore(g.volumeKey(from, now), &volumeEntry{})
		e := v.(*volumeEntry)
		e.mu.Lock()
		// Phrased to avoid uint64 wraparound on absurd amounts.
		exceeded := e.spent > g.cfg.DailyVolumeLimit || amount > g.cfg.DailyVolumeLimit-e.spent
		e.mu.Unlock()
		if exceeded {
			return &model.PolicyViolationError{Rule: "daily_volume", Address: from}
		}
	}

	return nil
}

// RecordTransfer adds a broadcast transfer to the sender's daily volume.
// Call it only after the transaction actually went out.
func (g *RateGuard) RecordTransfer(from string, amount uint64) {
	v, _ := g.dailyVolume.LoadOrStore(g.volumeKey(from, g.now()), &volumeEntry{})
	e := v.(*volumeEntry)
	e.mu.Lock()
	e.spent += amount
	e.mu.Unlock()
}

// CleanupExpired removes decayed ban entries and stale daily-volume
// buckets. Purely housekeeping given the evaluation-time expiry check.
func (g *RateGuard) CleanupExpired() {
	now := g.now()
	g.bans.Range(func(k, v any) bool {
		if !now.Before(v.(time.Time)) {
			g.bans.Delete(k)
		}
		return true
	})

	today := now.Format("2006-01-02")
	g.dailyVolume.Range(func(k, _ any) bool {
		key := k.(string)
		if len(key) < len(today) || key[len(key)-len(today):] != today {
			g.dailyVolume.Delete(k)
		}
		return true
	})
}

func (g *RateGuard) volumeKey(address string, now time.Time) string {
	return address + "|" + now.Format("2006-01-02")
}
