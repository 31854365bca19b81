package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedmail/internal/storage"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feedmail.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	opts, err := Load(writeConfig(t, ""))
	require.NoError(t, err)

	assert.True(t, opts.Run.TrustGUID)
	assert.False(t, opts.Run.TrustLink)
	assert.Equal(t, 30*time.Second, opts.Run.Timeout)
	assert.Equal(t, "feedmail@localhost", opts.Mail.DefaultFrom)
	assert.Equal(t, "/usr/sbin/sendmail", opts.Mail.Sendmail.Path)
	assert.False(t, opts.Mail.SMTP.Enabled)
	assert.NotEmpty(t, opts.Database)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
database = "/tmp/feedmail-test.json"

[mail]
default_from = "bot@example.net"
html = true

[run]
trust_link = true
timeout = "10s"
log_level = "debug"

[mail.smtp]
enabled = true
host = "mail.example.net"
port = 465
ssl = true
`)
	opts, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/feedmail-test.json", opts.Database)
	assert.Equal(t, "bot@example.net", opts.Mail.DefaultFrom)
	assert.True(t, opts.Mail.HTML)
	assert.True(t, opts.Run.TrustLink)
	assert.Equal(t, 10*time.Second, opts.Run.Timeout)
	assert.Equal(t, "mail.example.net", opts.Mail.SMTP.Host)
	assert.Equal(t, 465, opts.Mail.SMTP.Port)
	assert.True(t, opts.Mail.SMTP.SSL)
}

func TestLoad_PartialSectionKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
[run]
trust_link = true
`)
	opts, err := Load(path)
	require.NoError(t, err)

	assert.True(t, opts.Run.TrustLink)
	assert.True(t, opts.Run.TrustGUID)
	assert.Equal(t, 30*time.Second, opts.Run.Timeout)
	assert.Equal(t, "warning", opts.Run.LogLevel)

	// Same for a partial mail section.
	path = writeConfig(t, `
[mail]
html = true
`)
	opts, err = Load(path)
	require.NoError(t, err)
	assert.True(t, opts.Mail.HTML)
	assert.Equal(t, "feedmail@localhost", opts.Mail.DefaultFrom)
	assert.Equal(t, "/usr/sbin/sendmail", opts.Mail.Sendmail.Path)
	assert.Equal(t, 587, opts.Mail.SMTP.Port)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := writeConfig(t, "this = is = not toml")
	_, err := Load(path)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestLoad_SMTPWithoutHost(t *testing.T) {
	path := writeConfig(t, `
[mail.smtp]
enabled = true
`)
	_, err := Load(path)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "mail.smtp.host", cfgErr.Setting)
}

func TestLoad_BadLogLevel(t *testing.T) {
	path := writeConfig(t, `
[run]
log_level = "chatty"
`)
	_, err := Load(path)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestForFeed_Precedence(t *testing.T) {
	path := writeConfig(t, `
[mail]
default_from = "global@example.net"

[feeds."https://a.example/feed"]
target = "override@example.net"
trust_link = true
post_process = "strip-tracking"
`)
	opts, err := Load(path)
	require.NoError(t, err)

	plain := &storage.FeedConfig{Name: "plain", URL: "https://b.example/feed"}
	res := opts.ForFeed(plain, "default@example.net")
	assert.Equal(t, "default@example.net", res.Target)
	assert.Equal(t, "global@example.net", res.From)
	assert.True(t, res.TrustGUID)
	assert.False(t, res.TrustLink)
	assert.Empty(t, res.PostProcess)

	overridden := &storage.FeedConfig{Name: "a", URL: "https://a.example/feed"}
	res = opts.ForFeed(overridden, "default@example.net")
	assert.Equal(t, "override@example.net", res.Target)
	assert.True(t, res.TrustLink)
	assert.Equal(t, "strip-tracking", res.PostProcess)

	// Registry-level overrides beat the config file.
	trustGUID := false
	overridden.Target = "registry@example.net"
	overridden.TrustGUID = &trustGUID
	res = opts.ForFeed(overridden, "default@example.net")
	assert.Equal(t, "registry@example.net", res.Target)
	assert.False(t, res.TrustGUID)
}
