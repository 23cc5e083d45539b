package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig    = "YTARCHIVER_CONFIG"
	EnvTokenFile = "YTARCHIVER_TOKEN_FILE"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath string // YTARCHIVER_CONFIG: override config file path
	TokenFile  string // YTARCHIVER_TOKEN_FILE: override token file path
}

// ReadEnvOverrides reads environment variables and returns any overrides
// found. This does not modify the Config; callers apply the relevant fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		TokenFile:  os.Getenv(EnvTokenFile),
	}
}
