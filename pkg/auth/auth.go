// Package auth manages the admin API's authentication material: a
// self-signed TLS certificate and a bearer token, persisted to a YAML file
// the same way the original hujingzhi ".hjz-auth.yaml" is.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the auth config file name.
const DefaultPath = ".hjz-auth.yaml"

// tokenBytes is the size of the random token before hex encoding.
const tokenBytes = 32

// Config is the persisted auth material: a PEM certificate and private key
// for the admin API's TLS listener, and a hex token for Basic auth.
type Config struct {
	Host    string `yaml:"host,omitempty"`
	Cert    string `yaml:"cert"`
	Private string `yaml:"private,omitempty"`
	Token   string `yaml:"token"`
}

// LoadOrGenerate reads the auth config at path, or generates and persists a
// fresh self-signed certificate and random token if the file does not exist.
func LoadOrGenerate(path string, logger *zap.Logger) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err == nil {
		var cfg Config
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse auth config: %w", err)
		}
		return &cfg, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read auth config: %w", err)
	}

	logger.Warn("no auth config found, generating one")

	certPEM, keyPEM, err := generateSelfSignedCert()
	if err != nil {
		return nil, fmt.Errorf("failed to generate self-signed certificate: %w", err)
	}
	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	cfg := &Config{
		Cert:    string(certPEM),
		Private: string(keyPEM),
		Token:   token,
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize auth config: %w", err)
	}
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write auth config: %w", err)
	}

	return cfg, nil
}

func generateToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// CheckToken reports whether the given token matches the configured token,
// in constant time regardless of where a mismatch occurs.
func (c *Config) CheckToken(candidate string) bool {
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(c.Token)) == 1
}
