package vision

import (
	"fmt"
	"sync"
	"time"
)

// Keyring rotates between multiple API keys round-robin and benches a
// key for a cooldown window after a failure. The original deployment
// spread Gemini traffic over several personal keys this way.
type Keyring struct {
	mu       sync.Mutex
	keys     []string
	cooldown map[string]time.Time
	next     int
	bench    time.Duration
}

func NewKeyring(keys []string, bench time.Duration) *Keyring {
	if bench <= 0 {
		bench = 5 * time.Minute
	}
	return &Keyring{
		keys:     keys,
		cooldown: make(map[string]time.Time),
		bench:    bench,
	}
}

// Acquire returns the next key that is not cooling down. When every key
// is benched the least-recently-benched key is returned anyway.
func (k *Keyring) Acquire() (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if len(k.keys) == 0 {
		return "", fmt.Errorf("keyring is empty")
	}

	now := time.Now()
	for i := 0; i < len(k.keys); i++ {
		key := k.keys[k.next]
		k.next = (k.next + 1) % len(k.keys)
		if until, benched := k.cooldown[key]; !benched || now.After(until) {
			delete(k.cooldown, key)
			return key, nil
		}
	}

	// All benched: pick the one whose cooldown ends first.
	best := k.keys[0]
	for _, key := range k.keys[1:] {
		if k.cooldown[key].Before(k.cooldown[best]) {
			best = key
		}
	}
	return best, nil
}

// Report marks the outcome of a call made with key. Failures start the
// cooldown clock.
func (k *Keyring) Report(key string, success bool) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if success {
		delete(k.cooldown, key)
		return
	}
	k.cooldown[key] = time.Now().Add(k.bench)
}
