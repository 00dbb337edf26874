package nlquery

import (
	"fmt"
	"os"
	"sync"
)

// KeyManager rotates between the available Gemini API keys. Keys come
// from GEMINI_API_KEY plus optional GEMINI_API_KEY_2..4.
type KeyManager struct {
	mu      sync.Mutex
	keys    []string
	current int
}

// NewKeyManager loads the available API keys from the environment.
func NewKeyManager() *KeyManager {
	var keys []string
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		keys = append(keys, key)
	}
	for i := 2; i <= 4; i++ {
		if key := os.Getenv(fmt.Sprintf("GEMINI_API_KEY_%d", i)); key != "" {
			keys = append(keys, key)
		}
	}
	return &KeyManager{keys: keys}
}

// HasKeys reports whether any key is configured.
func (km *KeyManager) HasKeys() bool {
	return len(km.keys) > 0
}

// NextKey returns the next API key in rotation, or "" when none are
// configured.
func (km *KeyManager) NextKey() string {
	km.mu.Lock()
	defer km.mu.Unlock()

	if len(km.keys) == 0 {
		return ""
	}
	key := km.keys[km.current%len(km.keys)]
	km.current++
	return key
}
