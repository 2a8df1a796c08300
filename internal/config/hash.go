package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeebo/blake3"
)

// checksumSuffix is appended to the config filename for its sidecar.
const checksumSuffix = ".checksum"

// Checksum computes the BLAKE3 hash of data as a hex string.
func Checksum(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// WriteChecksum writes the sidecar checksum file next to configPath.
func WriteChecksum(configPath string) (string, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	sum := Checksum(data)
	sidecar := configPath + checksumSuffix
	if err := os.WriteFile(sidecar, []byte(sum+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("write checksum: %w", err)
	}
	return sum, nil
}

// verifySidecar checks data against the sidecar checksum if one exists.
// A missing sidecar is not an error; integrity checking is opt-in.
func verifySidecar(configPath string, data []byte) error {
	raw, err := os.ReadFile(configPath + checksumSuffix)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read checksum sidecar: %w", err)
	}

	expected := strings.TrimSpace(string(raw))
	actual := Checksum(data)
	if actual != expected {
		return fmt.Errorf("checksum mismatch for %s: expected %s, got %s",
			filepath.Base(configPath), expected, actual)
	}
	return nil
}
