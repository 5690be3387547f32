package pokersync

import (
	"github.com/BurntSushi/toml"
)

// Settings configures the broadcast backends. Zero values fall back to
// the defaults below.
type Settings struct {
	Relays []string     `toml:"relays"`
	NATS   NATSSettings `toml:"nats"`
}

type NATSSettings struct {
	URL    string `toml:"url"`
	Stream string `toml:"stream"`
}

// DefaultSettings returns the canonical public relay set and local NATS.
func DefaultSettings() Settings {
	return Settings{
		Relays: []string{
			"wss://relay.damus.io",
			"wss://nos.lol",
			"wss://relay.nostr.band",
		},
		NATS: NATSSettings{
			URL:    "nats://127.0.0.1:4222",
			Stream: "POKER_GAMES",
		},
	}
}

// LoadSettings reads a TOML settings file, filling anything unset from the
// defaults.
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()
	if _, err := toml.DecodeFile(path, &settings); err != nil {
		return Settings{}, err
	}

	if len(settings.Relays) == 0 {
		settings.Relays = DefaultSettings().Relays
	}
	if settings.NATS.URL == "" {
		settings.NATS.URL = DefaultSettings().NATS.URL
	}
	if settings.NATS.Stream == "" {
		settings.NATS.Stream = DefaultSettings().NATS.Stream
	}

	return settings, nil
}
