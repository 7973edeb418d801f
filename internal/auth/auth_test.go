package auth

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider_NilAndEmpty(t *testing.T) {
	var p *Provider
	assert.Equal(t, "", p.AccessToken(context.Background()))
	assert.Equal(t, "", NewProvider(nil).AccessToken(context.Background()))
	assert.Equal(t, "", NewProvider(Static("")).AccessToken(context.Background()))
}

func TestProvider_OpaqueToken(t *testing.T) {
	p := NewProvider(Static("opaque-token"))
	assert.Equal(t, "opaque-token", p.AccessToken(context.Background()))
}

func TestMintInspectVerify(t *testing.T) {
	tok, err := Mint("s3cret", "user-42", time.Hour)
	require.NoError(t, err)

	c, err := Inspect(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-42", c.Subject)
	assert.WithinDuration(t, time.Now().Add(time.Hour), c.Expiry, time.Minute)

	c, err = Verify(tok, "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "user-42", c.Subject)

	_, err = Verify(tok, "wrong")
	assert.Error(t, err)
}

func TestExpiredTokenCountsAsAbsent(t *testing.T) {
	tok, err := Mint("s3cret", "user", -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "", NewProvider(Static(tok)).AccessToken(context.Background()))
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(path, []byte("from-file\n"), 0o600))

	p := NewProvider(File(path))
	assert.Equal(t, "from-file", p.AccessToken(context.Background()))
}

func TestFileSource_Missing(t *testing.T) {
	p := NewProvider(File(filepath.Join(t.TempDir(), "nope")))
	assert.Equal(t, "", p.AccessToken(context.Background()))
}

func TestSetSource(t *testing.T) {
	p := NewProvider(nil)
	p.SetSource(Static("later"))
	assert.Equal(t, "later", p.AccessToken(context.Background()))
	p.SetSource(nil)
	assert.Equal(t, "", p.AccessToken(context.Background()))
}

func TestEnvSource(t *testing.T) {
	t.Setenv("QUIRE_TEST_TOKEN", "")
	p := NewProvider(Env("QUIRE_TEST_TOKEN"))
	assert.Equal(t, "", p.AccessToken(context.Background()))

	t.Setenv("QUIRE_TEST_TOKEN", " from-env ")
	assert.Equal(t, "from-env", p.AccessToken(context.Background()))
}
