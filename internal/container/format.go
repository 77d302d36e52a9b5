package container

import (
	"github.com/PolarWolf314/backpack/internal/secrets"
)

const (
	// FormatVersion is written into every container.
	FormatVersion = "1.0"

	// DefaultFileName is the container file name used when no path is configured.
	DefaultFileName = "agent.lock"
)

// Layer names, as they appear in the container file.
const (
	LayerCredentials = "credentials"
	LayerPersonality = "personality"
	LayerMemory      = "memory"
)

// Well-known personality keys.
const (
	PersonalitySystemPrompt = "system_prompt"
	PersonalityTone         = "tone"
)

// File is the on-disk representation of an agent.lock.
type File struct {
	Version   string     `json:"version"`
	Layers    Layers     `json:"layers"`
	Integrity *Integrity `json:"integrity,omitempty"`
}

// Layers holds the three independently encrypted sections of a container.
type Layers struct {
	Credentials secrets.EncryptedBlob `json:"credentials"`
	Personality secrets.EncryptedBlob `json:"personality"`
	Memory      secrets.EncryptedBlob `json:"memory"`
}

// Personality holds the system prompt, tone and any further agent settings.
// Every entry is exposed to the agent process without consent.
type Personality map[string]string

// DefaultPersonality is used by init when nothing else is given.
func DefaultPersonality() Personality {
	return Personality{
		PersonalitySystemPrompt: "You are a helpful AI assistant.",
		PersonalityTone:         "professional",
	}
}

// IntegrityState describes how a container's cross-layer binding was verified.
type IntegrityState string

const (
	// IntegrityVerified means the integrity tag was present and matched.
	IntegrityVerified IntegrityState = "verified"
	// IntegrityLegacy means the container predates integrity tags and was accepted without one.
	IntegrityLegacy IntegrityState = "legacy"
)

// View is the decrypted content of a container.
type View struct {
	Version     string
	Credentials *Credentials
	Personality Personality
	Memory      any
	Integrity   IntegrityState
}
