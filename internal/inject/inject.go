// Package inject resolves a container's declared credentials against the
// vault, asks for consent one secret at a time, and builds the environment
// handed to an agent process.
package inject

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/PolarWolf314/backpack/internal/container"
	kerrors "github.com/PolarWolf314/backpack/internal/errors"
)

// Environment variables carrying the personality layer.
const (
	EnvSystemPrompt = "AGENT_SYSTEM_PROMPT"
	EnvTone         = "AGENT_TONE"
	envPrefix       = "AGENT_"
)

// ContainerReader is satisfied by *container.Lock.
type ContainerReader interface {
	Read() (*container.View, error)
}

// SecretLookup is satisfied by *vault.Vault.
type SecretLookup interface {
	Retrieve(name string) (string, bool, error)
}

// Decision is the user's answer to a consent prompt.
type Decision int

const (
	Deny Decision = iota
	Allow
)

// ConsentFunc asks whether the agent may receive the named secret. It is
// called synchronously, once per secret found in the vault.
type ConsentFunc func(name string) (Decision, error)

// WarningKind classifies why a declared credential was not injected.
type WarningKind string

const (
	WarnNotFound      WarningKind = "not_found"
	WarnDenied        WarningKind = "denied"
	WarnConsentFailed WarningKind = "consent_failed"
	WarnInvalidName   WarningKind = "invalid_name"
	WarnShadowed      WarningKind = "shadowed"
)

// Warning records a credential that was skipped. Skipped credentials do not
// fail the injection.
type Warning struct {
	Name string
	Kind WarningKind
	Err  error
}

func (w Warning) String() string {
	switch w.Kind {
	case WarnNotFound:
		return fmt.Sprintf("%s not found in vault", w.Name)
	case WarnDenied:
		return fmt.Sprintf("access denied for %s", w.Name)
	case WarnConsentFailed:
		return fmt.Sprintf("could not ask for consent for %s: %v", w.Name, w.Err)
	case WarnInvalidName:
		return fmt.Sprintf("%s is not a valid secret name", w.Name)
	case WarnShadowed:
		return fmt.Sprintf("%s is set by the personality and was not requested", w.Name)
	default:
		return w.Name
	}
}

// Result is the outcome of a successful injection.
type Result struct {
	// Env holds every variable to add to the agent's environment.
	Env map[string]string

	// Injected lists the credential names added to Env, in declaration order.
	Injected []string

	// Warnings lists credentials that were skipped, in declaration order.
	Warnings []Warning

	// View is the decrypted container the injection was based on.
	View *container.View
}

// Inject reads the container and resolves each declared credential in order.
//
// A missing container returns ErrContainerNotFound, which callers should
// report as "no container" rather than as an empty injection. A secret that
// is missing or refused is recorded as a warning and the remaining names are
// still processed. Personality fields are always added and never need consent;
// a credential whose name collides with a personality variable is skipped
// before the vault is consulted.
func Inject(src ContainerReader, lookup SecretLookup, consent ConsentFunc) (*Result, error) {
	view, err := src.Read()
	if err != nil {
		return nil, err
	}

	result := &Result{
		Env:  make(map[string]string),
		View: view,
	}
	personality := PersonalityEnv(view.Personality)

	for _, name := range view.Credentials.Names() {
		if _, taken := personality[name]; taken {
			result.Warnings = append(result.Warnings, Warning{Name: name, Kind: WarnShadowed})
			continue
		}

		value, found, err := lookup.Retrieve(name)
		if errors.Is(err, kerrors.ErrInvalidKeyName) {
			result.Warnings = append(result.Warnings, Warning{Name: name, Kind: WarnInvalidName, Err: err})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("looking up %s: %w", name, err)
		}
		if !found {
			result.Warnings = append(result.Warnings, Warning{Name: name, Kind: WarnNotFound})
			continue
		}

		decision, err := consent(name)
		if err != nil {
			result.Warnings = append(result.Warnings, Warning{Name: name, Kind: WarnConsentFailed, Err: err})
			continue
		}
		if decision != Allow {
			result.Warnings = append(result.Warnings, Warning{Name: name, Kind: WarnDenied})
			continue
		}

		result.Env[name] = value
		result.Injected = append(result.Injected, name)
	}

	for key, value := range personality {
		result.Env[key] = value
	}

	return result, nil
}

// IsNoContainer reports whether err means there was no container to inject from.
func IsNoContainer(err error) bool {
	return errors.Is(err, kerrors.ErrContainerNotFound)
}

// PersonalityEnv maps personality keys to environment variables:
// system_prompt and tone become AGENT_SYSTEM_PROMPT and AGENT_TONE, any
// other key k becomes AGENT_<K> with non-alphanumerics replaced by '_'.
func PersonalityEnv(p container.Personality) map[string]string {
	env := make(map[string]string, len(p))
	for key, value := range p {
		env[PersonalityVar(key)] = value
	}
	return env
}

// PersonalityVar returns the environment variable name for a personality key.
func PersonalityVar(key string) string {
	switch key {
	case container.PersonalitySystemPrompt:
		return EnvSystemPrompt
	case container.PersonalityTone:
		return EnvTone
	}

	var b strings.Builder
	b.WriteString(envPrefix)
	for _, r := range strings.ToUpper(key) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

// ComposeEnv returns base with injected applied on top, in os.Environ form.
// Injected values replace any existing variable of the same name. The
// result is meant for exec.Cmd.Env; the current process environment is not
// modified.
func ComposeEnv(base []string, injected map[string]string) []string {
	out := make([]string, 0, len(base)+len(injected))
	for _, kv := range base {
		name, _, _ := strings.Cut(kv, "=")
		if _, overridden := injected[name]; overridden {
			continue
		}
		out = append(out, kv)
	}

	names := make([]string, 0, len(injected))
	for name := range injected {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		out = append(out, name+"="+injected[name])
	}
	return out
}
