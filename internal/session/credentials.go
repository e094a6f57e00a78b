package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"sync"
	"time"
)

// tokenWindow is the credential rotation window. Tokens derived within
// the same window are identical, so the platform can validate against
// the current (and adjacent) counter values.
const tokenWindow = 300 * time.Second

// Credentials derives time-windowed broker passwords from a device
// secret. The token is an HMAC-SHA256 over the rotating window counter,
// keyed by the secret and base64-encoded. The cached token is recomputed
// whenever its window has elapsed.
//
// Thread Safety:
//   - Token is safe for concurrent use.
type Credentials struct {
	secret []byte

	mu     sync.Mutex
	window int64
	token  string
}

// NewCredentials creates a credential source for one gateway secret.
func NewCredentials(secret string) *Credentials {
	return &Credentials{secret: []byte(secret)}
}

// Token returns the password for the window containing now.
func (c *Credentials) Token(now time.Time) string {
	window := now.Unix() / int64(tokenWindow/time.Second)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.window == window {
		return c.token
	}

	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(strconv.FormatInt(window, 10)))
	c.window = window
	c.token = base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return c.token
}
