// Package identity owns the one piece of truly persistent state Resonance
// keeps across restarts outside the library database: the server's UUID.
package identity

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const uuidFileName = "server_uuid"

// LoadOrCreateServerUUID reads cacheDir/server_uuid, generating and
// persisting a fresh UUID v4 the first time Resonance runs against this
// cache directory. The value is reused verbatim by the discovery UUID TLV
// and the JSON-RPC serverstatus "uuid" field, so players and control apps
// see a stable identity across restarts.
func LoadOrCreateServerUUID(cacheDir string) (string, error) {
	path := filepath.Join(cacheDir, uuidFileName)

	if data, err := os.ReadFile(path); err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
	}

	id := uuid.New().String()
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return "", err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(id), 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", err
	}
	return id, nil
}

// Hostname returns the system hostname, falling back to a fixed default
// name if the OS call fails (e.g. in a minimal container).
func Hostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "resonance"
	}
	return h
}
