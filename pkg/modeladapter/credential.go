package modeladapter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// cloudPlatformScope is the OAuth scope required for Vertex AI access.
const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// credentialExpirySkew treats a token as expired slightly before its actual
// expiry so an in-flight request never carries a token that lapses mid-call.
const credentialExpirySkew = 10 * time.Second

// Credential is a refreshable bearer token for credential-based backends.
// It is owned by a single adapter instance and mutated in place by refresh,
// never replaced, so references held by the adapter stay consistent.
// Refresh is serialized; concurrent calls observe either the old valid token
// or the refreshed one.
type Credential struct {
	mu     sync.Mutex
	source oauth2.TokenSource
	token  string
	expiry time.Time

	// nowFunc is used for testing; defaults to time.Now.
	nowFunc func() time.Time
}

// NewCredential creates a Credential backed by the given token source. The
// first EnsureValid call fetches the initial token.
func NewCredential(source oauth2.TokenSource) *Credential {
	return &Credential{
		source:  source,
		nowFunc: time.Now,
	}
}

// GoogleCredential creates a Credential backed by Google Application Default
// Credentials, as used by Vertex AI backends.
func GoogleCredential(ctx context.Context) (*Credential, error) {
	ts, err := google.DefaultTokenSource(ctx, cloudPlatformScope)
	if err != nil {
		return nil, fmt.Errorf("credential: default token source: %w", err)
	}
	return NewCredential(ts), nil
}

// SetNowFunc overrides the time source (for testing).
func (c *Credential) SetNowFunc(fn func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nowFunc = fn
}

// Token returns the current token value. Empty until the first refresh.
func (c *Credential) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// Valid reports whether the current token exists and has not expired.
func (c *Credential) Valid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.valid()
}

// valid must be called with mu held.
func (c *Credential) valid() bool {
	if c.token == "" {
		return false
	}
	if c.expiry.IsZero() {
		return true
	}
	return c.nowFunc().Before(c.expiry.Add(-credentialExpirySkew))
}

// EnsureValid refreshes the credential in place when it is no longer valid.
// A valid credential is left untouched, so the refresh happens at most once
// per completion call. A refresh that fails, or that yields a token which is
// still invalid, is an error; the next call will attempt the refresh again.
func (c *Credential) EnsureValid() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.valid() {
		return nil
	}

	tok, err := c.source.Token()
	if err != nil {
		return fmt.Errorf("credential: refresh: %w", err)
	}

	c.token = tok.AccessToken
	c.expiry = tok.Expiry

	if !c.valid() {
		return errors.New("credential: token invalid after refresh")
	}

	return nil
}
