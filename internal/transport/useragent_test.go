package transport

import (
	"slices"
	"strings"
	"testing"
)

func TestUserAgentPool(t *testing.T) {
	if len(userAgents) < 20 {
		t.Errorf("userAgents has %d entries, want at least 20", len(userAgents))
	}
	seen := make(map[string]bool, len(userAgents))
	for i, ua := range userAgents {
		if !strings.HasPrefix(ua, "Mozilla/5.0 (") {
			t.Errorf("userAgents[%d] = %q does not look like a browser", i, ua)
		}
		if seen[ua] {
			t.Errorf("userAgents[%d] is a duplicate: %q", i, ua)
		}
		seen[ua] = true
	}
}

func TestRandomUserAgent(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		ua := RandomUserAgent()
		if !slices.Contains(userAgents, ua) {
			t.Fatalf("RandomUserAgent() = %q, not from the pool", ua)
		}
		seen[ua] = true
	}
	if len(seen) < 2 {
		t.Errorf("RandomUserAgent() returned %d distinct value(s) in 100 calls", len(seen))
	}
}
