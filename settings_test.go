package pokersync

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func writeSettingsFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "settings.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func Test_LoadSettings(t *testing.T) {
	path := writeSettingsFile(t, `
relays = ["wss://relay-a.example", "wss://relay-b.example"]

[nats]
url = "nats://10.0.0.5:4222"
stream = "GAMES"
`)

	settings, err := LoadSettings(path)
	assert.Nil(t, err)
	assert.Equal(t, []string{"wss://relay-a.example", "wss://relay-b.example"}, settings.Relays)
	assert.Equal(t, "nats://10.0.0.5:4222", settings.NATS.URL)
	assert.Equal(t, "GAMES", settings.NATS.Stream)
}

func Test_LoadSettings_PartialFileBackfillsDefaults(t *testing.T) {
	path := writeSettingsFile(t, `
relays = ["wss://relay-a.example"]
`)

	settings, err := LoadSettings(path)
	assert.Nil(t, err)
	assert.Equal(t, []string{"wss://relay-a.example"}, settings.Relays)
	assert.Equal(t, DefaultSettings().NATS.URL, settings.NATS.URL)
	assert.Equal(t, DefaultSettings().NATS.Stream, settings.NATS.Stream)
}

func Test_LoadSettings_MissingFile(t *testing.T) {
	_, err := LoadSettings(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	assert.NotNil(t, err)
}

func Test_DefaultSettings(t *testing.T) {
	settings := DefaultSettings()
	assert.Equal(t, 3, len(settings.Relays))
	assert.NotEmpty(t, settings.NATS.URL)
	assert.NotEmpty(t, settings.NATS.Stream)
}
