package monitoring

import (
	"os"
	"runtime/debug"
	"strings"
)

// Environment returns the normalized deployment environment, read from
// ENVIRONMENT or GO_ENV, defaulting to "development".
func Environment() string {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = os.Getenv("GO_ENV")
	}

	switch strings.ToLower(env) {
	case "prod", "production":
		return "production"
	case "stage", "staging":
		return "staging"
	case "test", "testing":
		return "test"
	case "", "dev", "development":
		return "development"
	default:
		return env
	}
}

// Version returns the application version: the APP_VERSION environment
// variable when set, otherwise the VCS revision baked into the binary.
func Version() string {
	if version := os.Getenv("APP_VERSION"); version != "" {
		return version
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			return info.Main.Version
		}
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" && setting.Value != "" {
				return setting.Value
			}
		}
	}
	return "0.0.0-unknown"
}
