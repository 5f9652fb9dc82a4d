package config

import (
	"crypto/sha256"
	"encoding/hex"
)

// ScriptVersion returns a short content fingerprint of an install script.
// Identical scripts always produce the same value; any byte change produces
// a different one. It is a cache key for installer idempotency, not a
// security primitive.
func ScriptVersion(script string) string {
	sum := sha256.Sum256([]byte(script))
	return hex.EncodeToString(sum[:])[:8]
}

// NewInstall builds an InstallConfig with its version hash populated.
func NewInstall(image, entrypoint, script string) *InstallConfig {
	return &InstallConfig{
		Image:       image,
		Entrypoint:  entrypoint,
		Script:      script,
		VersionHash: ScriptVersion(script),
	}
}
