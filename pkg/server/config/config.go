/* Copyright 2025 Bauhub Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package config builds the process-wide configuration. The deployment mode
// is computed here exactly once; no other package reads the environment to
// decide between the embedded and the hosted store.
package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/bauhub/bauhub/pkg/dirs"
)

const (
	// ModeHosted is the deployment mode in which all reads and writes go
	// directly to the hosted store.
	ModeHosted = "hosted"
	// ModeLocalFirst is the deployment mode in which the embedded store is
	// authoritative and writes are mirrored to the hosted store.
	ModeLocalFirst = "local-first"

	// DefaultDBFilename is the default embedded database filename
	DefaultDBFilename = "bauhub.db"
)

// defaultDBPath returns the default location of the embedded database
func defaultDBPath() string {
	return filepath.Join(dirs.DataHome, "bauhub", DefaultDBFilename)
}

var (
	// ErrInvalidMode is an error for an unrecognized deployment mode
	ErrInvalidMode = errors.New("invalid deployment mode")
	// ErrDBMissingPath is an error for a local-first configuration missing the database path
	ErrDBMissingPath = errors.New("DB path is empty")
	// ErrRemoteDSNMissing is an error for a hosted configuration missing the remote DSN
	ErrRemoteDSNMissing = errors.New("remote DSN is empty")
	// ErrTokenSecretMissing is an error for a configuration missing the access token secret
	ErrTokenSecretMissing = errors.New("token secret is empty")
	// ErrPortInvalid is an error for an incomplete configuration with invalid port
	ErrPortInvalid = errors.New("invalid port")
)

// getOrEnv returns value if non-empty, otherwise env var, otherwise default
func getOrEnv(value, envKey, defaultVal string) string {
	if value != "" {
		return value
	}
	if env := os.Getenv(envKey); env != "" {
		return env
	}
	return defaultVal
}

// Config is an application configuration. Mode is evaluated once at process
// start and cached for the process lifetime.
type Config struct {
	Mode        string
	Port        string
	DBPath      string
	RemoteDSN   string
	TokenSecret string
	LogLevel    string
}

// Params are the configuration parameters for creating a new Config
type Params struct {
	Mode        string
	Port        string
	DBPath      string
	RemoteDSN   string
	TokenSecret string
	LogLevel    string
}

// New constructs and returns a new validated config.
// Empty string params will fall back to environment variables and defaults.
func New(p Params) (Config, error) {
	c := Config{
		Mode:        getOrEnv(p.Mode, "BAUHUB_MODE", ModeLocalFirst),
		Port:        getOrEnv(p.Port, "PORT", "3001"),
		DBPath:      getOrEnv(p.DBPath, "BAUHUB_DB_PATH", defaultDBPath()),
		RemoteDSN:   getOrEnv(p.RemoteDSN, "BAUHUB_REMOTE_DSN", ""),
		TokenSecret: getOrEnv(p.TokenSecret, "BAUHUB_TOKEN_SECRET", ""),
		LogLevel:    getOrEnv(p.LogLevel, "LOG_LEVEL", "info"),
	}

	if err := validate(c); err != nil {
		return Config{}, err
	}

	return c, nil
}

// IsHosted checks whether the deployment talks to the hosted store only.
func (c Config) IsHosted() bool {
	return c.Mode == ModeHosted
}

// IsLocalFirst checks whether the embedded store is the authoritative store.
func (c Config) IsLocalFirst() bool {
	return c.Mode == ModeLocalFirst
}

func validate(c Config) error {
	if c.Mode != ModeHosted && c.Mode != ModeLocalFirst {
		return errors.Wrapf(ErrInvalidMode, "'%s'", c.Mode)
	}
	if c.Port == "" {
		return ErrPortInvalid
	}
	if c.IsLocalFirst() && c.DBPath == "" {
		return ErrDBMissingPath
	}
	if c.IsHosted() && c.RemoteDSN == "" {
		return ErrRemoteDSNMissing
	}
	if c.TokenSecret == "" {
		return ErrTokenSecretMissing
	}

	return nil
}
