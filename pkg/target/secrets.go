package target

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Secrets is a flat lookup table of secret name to value, loaded from the
// file named by EZORCH_SECRETS_FILE (if set). This implements the narrow
// contract spec.md leaves external: "${SECRET:name}" placeholders in a
// Target's raw YAML text are substituted before parsing.
type Secrets map[string]string

// LoadSecrets reads the secrets file named by the given path. A missing path
// (empty string) yields an empty table; a missing file is an error, since the
// env var having been set at all signals the operator expects it to exist.
func LoadSecrets(path string) (Secrets, error) {
	if path == "" {
		return Secrets{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secrets file %s: %w", path, err)
	}
	var secrets Secrets
	if err := yaml.Unmarshal(raw, &secrets); err != nil {
		return nil, fmt.Errorf("failed to parse secrets file %s: %w", path, err)
	}
	return secrets, nil
}

// Apply substitutes every "${SECRET:name}" placeholder in text with the
// corresponding value from the table. An unresolved placeholder is an error.
func (s Secrets) Apply(text string) (string, error) {
	var b strings.Builder
	rest := text
	for {
		start := strings.Index(rest, "${SECRET:")
		if start < 0 {
			b.WriteString(rest)
			break
		}
		end := strings.IndexByte(rest[start:], '}')
		if end < 0 {
			return "", fmt.Errorf("unterminated secret placeholder in %q", rest[start:])
		}
		end += start

		b.WriteString(rest[:start])
		name := rest[start+len("${SECRET:") : end]
		value, ok := s[name]
		if !ok {
			return "", fmt.Errorf("unresolved secret %q", name)
		}
		b.WriteString(value)
		rest = rest[end+1:]
	}
	return b.String(), nil
}
