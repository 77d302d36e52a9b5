package workflows

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/PolarWolf314/backpack/internal/configs"
	"github.com/PolarWolf314/backpack/internal/container"
	kerrors "github.com/PolarWolf314/backpack/internal/errors"
	"github.com/PolarWolf314/backpack/internal/utils"
	"github.com/PolarWolf314/backpack/internal/vault"
)

// CheckStatus represents the result status of a health check.
type CheckStatus int

const (
	// CheckPass means the check passed.
	CheckPass CheckStatus = iota
	// CheckWarning means the check found a non-critical issue.
	CheckWarning
	// CheckError means the check found a critical issue.
	CheckError
)

// String returns a string representation of CheckStatus.
func (s CheckStatus) String() string {
	switch s {
	case CheckPass:
		return "pass"
	case CheckWarning:
		return "warning"
	case CheckError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler for CheckStatus.
func (s CheckStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON implements json.Unmarshaler for CheckStatus.
func (s *CheckStatus) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "pass":
		*s = CheckPass
	case "warning":
		*s = CheckWarning
	case "error":
		*s = CheckError
	default:
		return fmt.Errorf("unknown check status %q", name)
	}
	return nil
}

// CheckResult holds the result of a single health check.
type CheckResult struct {
	Name       string      `json:"name"`
	Status     CheckStatus `json:"status"`
	Message    string      `json:"message"`
	Suggestion string      `json:"suggestion,omitempty"`
}

// DoctorResult holds the complete result of the doctor workflow.
type DoctorResult struct {
	Checks      []CheckResult `json:"checks"`
	Summary     DoctorSummary `json:"summary"`
	Suggestions []string      `json:"suggestions,omitempty"`
}

// DoctorSummary holds counts of checks by status.
type DoctorSummary struct {
	Passed   int `json:"passed"`
	Warnings int `json:"warnings"`
	Errors   int `json:"errors"`
}

// DoctorOptions configures the doctor workflow.
type DoctorOptions struct {
	Common
}

// doctorState is shared between checks so each resource is opened once.
type doctorState struct {
	opts   DoctorOptions
	config *configs.Config
	lock   *masterLock
	view   *container.View
	vault  *vault.Vault
}

// Doctor runs health checks on the configuration, container and vault.
//
// The doctor workflow checks:
//   - Configuration file validity
//   - AGENT_MASTER_KEY is set
//   - Container existence and file permissions
//   - Container decryption and integrity tag
//   - Vault reachability
//   - Registry entries whose secret is gone
//   - Declared credentials missing from the vault
//
// Checks that depend on an earlier failed check are skipped.
func Doctor(ctx context.Context, opts DoctorOptions) (*DoctorResult, error) {
	state := &doctorState{opts: opts}
	defer func() {
		if state.lock != nil {
			state.lock.Close()
		}
	}()

	checks := []func(*doctorState) (CheckResult, bool){
		checkConfig,
		checkMasterKey,
		checkContainerExists,
		checkContainerPermissions,
		checkContainerReadable,
		checkVaultReachable,
		checkRegistry,
		checkDeclaredCredentials,
	}

	var results []CheckResult
	for _, check := range checks {
		result, ok := check(state)
		if !ok {
			continue
		}
		results = append(results, result)
	}

	// Calculate summary.
	summary := calculateDoctorSummary(results)

	// Collect suggestions (deduplicated).
	var suggestions []string
	seen := make(map[string]bool)
	for _, result := range results {
		if result.Suggestion != "" && result.Status != CheckPass && !seen[result.Suggestion] {
			suggestions = append(suggestions, result.Suggestion)
			seen[result.Suggestion] = true
		}
	}

	return &DoctorResult{
		Checks:      results,
		Summary:     summary,
		Suggestions: suggestions,
	}, nil
}

// checkConfig checks that the user config parses and validates.
func checkConfig(s *doctorState) (CheckResult, bool) {
	config, err := s.opts.config()
	if err != nil {
		return CheckResult{
			Name:       "Configuration",
			Status:     CheckError,
			Message:    err.Error(),
			Suggestion: fmt.Sprintf("Fix or remove %s", configs.ConfigPath()),
		}, true
	}
	s.config = config

	return CheckResult{
		Name:    "Configuration",
		Status:  CheckPass,
		Message: "Configuration is valid",
	}, true
}

// checkMasterKey checks that AGENT_MASTER_KEY is available.
func checkMasterKey(s *doctorState) (CheckResult, bool) {
	if s.config == nil {
		return CheckResult{}, false
	}

	lock, err := s.opts.openLock(s.config)
	if err != nil {
		return CheckResult{
			Name:       "Master key",
			Status:     CheckError,
			Message:    fmt.Sprintf("%s is not set", configs.MasterKeyEnv),
			Suggestion: fmt.Sprintf("Export %s before running backpack", configs.MasterKeyEnv),
		}, true
	}
	s.lock = lock

	return CheckResult{
		Name:    "Master key",
		Status:  CheckPass,
		Message: fmt.Sprintf("%s is set", configs.MasterKeyEnv),
	}, true
}

// checkContainerExists checks that the container file is present.
func checkContainerExists(s *doctorState) (CheckResult, bool) {
	if s.config == nil {
		return CheckResult{}, false
	}

	path := s.opts.containerPath(s.config)
	if !utils.FileExists(path) {
		return CheckResult{
			Name:       "Container",
			Status:     CheckWarning,
			Message:    fmt.Sprintf("No container at %s", path),
			Suggestion: "Run 'backpack init' to create a container",
		}, true
	}

	return CheckResult{
		Name:    "Container",
		Status:  CheckPass,
		Message: fmt.Sprintf("Found %s", path),
	}, true
}

// checkContainerPermissions checks that only the owner can read the container.
func checkContainerPermissions(s *doctorState) (CheckResult, bool) {
	if s.config == nil {
		return CheckResult{}, false
	}
	path := s.opts.containerPath(s.config)
	if !utils.FileExists(path) {
		return CheckResult{}, false
	}

	tooOpen, mode, err := utils.PermissionsTooOpen(path)
	if err != nil {
		return CheckResult{
			Name:    "Container permissions",
			Status:  CheckWarning,
			Message: err.Error(),
		}, true
	}
	if tooOpen {
		return CheckResult{
			Name:       "Container permissions",
			Status:     CheckWarning,
			Message:    fmt.Sprintf("Container is readable by others (mode %04o)", mode),
			Suggestion: fmt.Sprintf("Run 'chmod 600 %s'", path),
		}, true
	}

	return CheckResult{
		Name:    "Container permissions",
		Status:  CheckPass,
		Message: fmt.Sprintf("Container is private (mode %04o)", mode),
	}, true
}

// checkContainerReadable decrypts the container and reports its integrity state.
func checkContainerReadable(s *doctorState) (CheckResult, bool) {
	if s.lock == nil || !s.lock.Exists() {
		return CheckResult{}, false
	}

	view, err := s.lock.Read()
	if err != nil {
		suggestion := "Check AGENT_MASTER_KEY, or recreate the container with 'backpack init'"
		if errors.Is(err, kerrors.ErrIntegrityMissing) {
			suggestion = "Recreate the container with 'backpack init' to add an integrity tag"
		}
		return CheckResult{
			Name:       "Container contents",
			Status:     CheckError,
			Message:    err.Error(),
			Suggestion: suggestion,
		}, true
	}
	s.view = view

	if view.Integrity == container.IntegrityLegacy {
		return CheckResult{
			Name:       "Container contents",
			Status:     CheckWarning,
			Message:    "Container decrypts but has no integrity tag",
			Suggestion: "Run 'backpack memory clear' or 'backpack init' to rewrite the container with an integrity tag",
		}, true
	}

	return CheckResult{
		Name:    "Container contents",
		Status:  CheckPass,
		Message: fmt.Sprintf("All layers decrypt and integrity is %s", view.Integrity),
	}, true
}

// checkVaultReachable checks that the keyring opens and the registry can be read.
func checkVaultReachable(s *doctorState) (CheckResult, bool) {
	if s.config == nil {
		return CheckResult{}, false
	}

	v, err := s.opts.openVault(s.config)
	if err == nil {
		_, err = v.ListNames()
	}
	if err != nil {
		return CheckResult{
			Name:       "Vault",
			Status:     CheckError,
			Message:    err.Error(),
			Suggestion: fmt.Sprintf("Check the keyring backend, or set %s=file", configs.EnvVaultBackend),
		}, true
	}
	s.vault = v

	return CheckResult{
		Name:    "Vault",
		Status:  CheckPass,
		Message: "Vault is reachable",
	}, true
}

// checkRegistry finds registered names whose secret no longer exists.
func checkRegistry(s *doctorState) (CheckResult, bool) {
	if s.vault == nil {
		return CheckResult{}, false
	}

	dangling, err := s.vault.Reconcile()
	if err != nil {
		return CheckResult{
			Name:    "Vault registry",
			Status:  CheckError,
			Message: err.Error(),
		}, true
	}
	if len(dangling) > 0 {
		return CheckResult{
			Name:       "Vault registry",
			Status:     CheckWarning,
			Message:    fmt.Sprintf("Registered but missing from the store: %s", strings.Join(dangling, ", ")),
			Suggestion: "Run 'backpack key add NAME' to restore each missing secret",
		}, true
	}

	return CheckResult{
		Name:    "Vault registry",
		Status:  CheckPass,
		Message: "Every registered secret is present",
	}, true
}

// checkDeclaredCredentials finds credentials the container needs but the vault lacks.
func checkDeclaredCredentials(s *doctorState) (CheckResult, bool) {
	if s.vault == nil || s.view == nil {
		return CheckResult{}, false
	}

	var missing []string
	for _, name := range s.view.Credentials.Names() {
		_, found, err := s.vault.Retrieve(name)
		if err != nil {
			return CheckResult{
				Name:    "Declared credentials",
				Status:  CheckError,
				Message: err.Error(),
			}, true
		}
		if !found {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		return CheckResult{
			Name:       "Declared credentials",
			Status:     CheckWarning,
			Message:    fmt.Sprintf("Not in vault: %s", strings.Join(missing, ", ")),
			Suggestion: "Run 'backpack key add NAME' for each missing credential",
		}, true
	}

	return CheckResult{
		Name:    "Declared credentials",
		Status:  CheckPass,
		Message: fmt.Sprintf("All %d declared credential(s) are in the vault", s.view.Credentials.Len()),
	}, true
}

// calculateDoctorSummary calculates the counts of checks by status.
func calculateDoctorSummary(results []CheckResult) DoctorSummary {
	var summary DoctorSummary
	for _, result := range results {
		switch result.Status {
		case CheckPass:
			summary.Passed++
		case CheckWarning:
			summary.Warnings++
		case CheckError:
			summary.Errors++
		}
	}
	return summary
}
