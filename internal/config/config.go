package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/Another0Noob/romfilter/internal/raapi"
	"gopkg.in/ini.v1"
)

const (
	EnvUsername = "RETROACHIEVEMENTS_USERNAME"
	EnvAPIKey   = "RETROACHIEVEMENTS_API_KEY"

	section = "retroachievements"
)

// LoadAuth reads credentials from the ini file at path (when given and
// present) and lets the environment override each key.
func LoadAuth(path string) (raapi.Auth, error) {
	var a raapi.Auth
	if path = strings.TrimSpace(path); path != "" {
		if _, err := os.Stat(path); err == nil {
			cfg, err := ini.Load(path)
			if err != nil {
				return a, fmt.Errorf("load auth config %s: %w", path, err)
			}
			sec := cfg.Section(section)
			a.Username = strings.TrimSpace(sec.Key("username").String())
			a.APIKey = strings.TrimSpace(sec.Key("api_key").String())
		} else if !errors.Is(err, fs.ErrNotExist) {
			return a, fmt.Errorf("stat auth config %s: %w", path, err)
		}
	}

	if v := strings.TrimSpace(os.Getenv(EnvUsername)); v != "" {
		a.Username = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAPIKey)); v != "" {
		a.APIKey = v
	}
	return a, nil
}

// Guidance explains how to provide credentials.
func Guidance() string {
	return "Username and API key are required.\n\nYou can set them as environment variables:\n" +
		"  export " + EnvUsername + "='your_username'\n" +
		"  export " + EnvAPIKey + "='your_api_key'\n" +
		"or in the [" + section + "] section of the --config ini file (username, api_key)."
}
