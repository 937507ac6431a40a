package modeladapter_test

import (
	"errors"
	"testing"
	"time"

	"github.com/queryloom/queryloom/pkg/modeladapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// fakeTokenSource is a test double for oauth2.TokenSource.
type fakeTokenSource struct {
	tokens []*oauth2.Token
	err    error
	calls  int
}

func (f *fakeTokenSource) Token() (*oauth2.Token, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	tok := f.tokens[0]
	if len(f.tokens) > 1 {
		f.tokens = f.tokens[1:]
	}
	return tok, nil
}

func TestCredential_InvalidUntilFirstRefresh(t *testing.T) {
	src := &fakeTokenSource{tokens: []*oauth2.Token{
		{AccessToken: "tok-1", Expiry: time.Now().Add(time.Hour)},
	}}
	cred := modeladapter.NewCredential(src)

	assert.False(t, cred.Valid())
	assert.Empty(t, cred.Token())

	require.NoError(t, cred.EnsureValid())
	assert.True(t, cred.Valid())
	assert.Equal(t, "tok-1", cred.Token())
	assert.Equal(t, 1, src.calls)
}

func TestCredential_ValidTokenNotRefreshed(t *testing.T) {
	src := &fakeTokenSource{tokens: []*oauth2.Token{
		{AccessToken: "tok-1", Expiry: time.Now().Add(time.Hour)},
	}}
	cred := modeladapter.NewCredential(src)

	require.NoError(t, cred.EnsureValid())
	require.NoError(t, cred.EnsureValid())
	require.NoError(t, cred.EnsureValid())

	assert.Equal(t, 1, src.calls, "a valid credential must not be refreshed")
}

func TestCredential_ExpiredTokenRefreshedInPlace(t *testing.T) {
	now := time.Now()
	src := &fakeTokenSource{tokens: []*oauth2.Token{
		{AccessToken: "tok-1", Expiry: now.Add(time.Minute)},
		{AccessToken: "tok-2", Expiry: now.Add(2 * time.Hour)},
	}}
	cred := modeladapter.NewCredential(src)
	cred.SetNowFunc(func() time.Time { return now })

	require.NoError(t, cred.EnsureValid())
	assert.Equal(t, "tok-1", cred.Token())

	// Advance past tok-1's expiry.
	now = now.Add(2 * time.Minute)
	assert.False(t, cred.Valid())

	require.NoError(t, cred.EnsureValid())
	assert.Equal(t, "tok-2", cred.Token())
	assert.True(t, cred.Valid())
	assert.Equal(t, 2, src.calls)
}

func TestCredential_ExpirySkew(t *testing.T) {
	now := time.Now()
	src := &fakeTokenSource{tokens: []*oauth2.Token{
		// Expires in 5s: inside the 10s skew, so never considered valid.
		{AccessToken: "tok-short", Expiry: now.Add(5 * time.Second)},
	}}
	cred := modeladapter.NewCredential(src)
	cred.SetNowFunc(func() time.Time { return now })

	err := cred.EnsureValid()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid after refresh")
}

func TestCredential_RefreshFailure(t *testing.T) {
	src := &fakeTokenSource{err: errors.New("metadata server unreachable")}
	cred := modeladapter.NewCredential(src)

	err := cred.EnsureValid()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refresh")

	// Failure does not poison the credential: a later refresh can succeed.
	src.err = nil
	src.tokens = []*oauth2.Token{{AccessToken: "tok-1", Expiry: time.Now().Add(time.Hour)}}
	require.NoError(t, cred.EnsureValid())
	assert.Equal(t, "tok-1", cred.Token())
}

func TestCredential_RefreshYieldsEmptyToken(t *testing.T) {
	src := &fakeTokenSource{tokens: []*oauth2.Token{{AccessToken: ""}}}
	cred := modeladapter.NewCredential(src)

	err := cred.EnsureValid()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid after refresh")
}

func TestCredential_ZeroExpiryIsStatic(t *testing.T) {
	src := &fakeTokenSource{tokens: []*oauth2.Token{{AccessToken: "static"}}}
	cred := modeladapter.NewCredential(src)
	// A token without expiry never goes stale.
	src.tokens[0].Expiry = time.Time{}

	require.NoError(t, cred.EnsureValid())
	assert.True(t, cred.Valid())
	require.NoError(t, cred.EnsureValid())
	assert.Equal(t, 1, src.calls)
}
