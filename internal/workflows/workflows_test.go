package workflows

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/PolarWolf314/backpack/internal/configs"
	"github.com/PolarWolf314/backpack/internal/container"
	kerrors "github.com/PolarWolf314/backpack/internal/errors"
	"github.com/PolarWolf314/backpack/internal/inject"
	"github.com/PolarWolf314/backpack/internal/vault"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testCommon returns overrides pointing at a temporary container and an
// in-memory vault, with the master key set.
func testCommon(t *testing.T) Common {
	t.Helper()
	t.Setenv(configs.MasterKeyEnv, "correct horse battery staple")

	cfg := configs.DefaultConfig()
	cfg.Container.Path = filepath.Join(t.TempDir(), container.DefaultFileName)

	return Common{
		Config: cfg,
		Vault:  vault.New(vault.NewKeyringBackend(keyring.NewArrayKeyring(nil), vault.DefaultService)),
	}
}

func TestInitCreatesContainer(t *testing.T) {
	common := testCommon(t)
	ctx := context.Background()

	result, err := Init(ctx, InitOptions{
		Common:      common,
		Credentials: []string{"STRIPE_KEY", "OPENAI_API_KEY"},
		Tone:        "friendly",
	})
	require.NoError(t, err)

	assert.Equal(t, common.Config.Container.Path, result.Path)
	assert.Equal(t, []string{"STRIPE_KEY", "OPENAI_API_KEY"}, result.Credentials)
	assert.Equal(t, "friendly", result.Personality[container.PersonalityTone])
	assert.Equal(t, "You are a helpful AI assistant.", result.Personality[container.PersonalitySystemPrompt])
	assert.False(t, result.Replaced)
	assert.FileExists(t, result.Path)

	again, err := Init(ctx, InitOptions{Common: common})
	require.NoError(t, err)
	assert.True(t, again.Replaced)
	assert.Empty(t, again.Credentials)
}

func TestInitPersonalityFile(t *testing.T) {
	common := testCommon(t)

	personalityFile := filepath.Join(t.TempDir(), "personality.yaml")
	require.NoError(t, os.WriteFile(personalityFile, []byte(
		"system_prompt: You are a financial analyst.\ntone: formal\nlanguage: en\n"), 0600))

	result, err := Init(context.Background(), InitOptions{
		Common:          common,
		PersonalityFile: personalityFile,
		Tone:            "terse",
	})
	require.NoError(t, err)

	assert.Equal(t, container.Personality{
		container.PersonalitySystemPrompt: "You are a financial analyst.",
		container.PersonalityTone:         "terse",
		"language":                        "en",
	}, result.Personality)
}

func TestInitRejectsInvalidPersonalityFile(t *testing.T) {
	common := testCommon(t)

	personalityFile := filepath.Join(t.TempDir(), "personality.yaml")
	require.NoError(t, os.WriteFile(personalityFile, []byte("- not\n- a mapping\n"), 0600))

	_, err := Init(context.Background(), InitOptions{Common: common, PersonalityFile: personalityFile})
	assert.ErrorIs(t, err, kerrors.ErrInvalidConfig)
}

func TestInitRejectsInvalidCredentialName(t *testing.T) {
	common := testCommon(t)

	_, err := Init(context.Background(), InitOptions{
		Common:      common,
		Credentials: []string{"OPENAI-API-KEY"},
	})
	assert.ErrorIs(t, err, kerrors.ErrInvalidKeyName)
	assert.NoFileExists(t, common.Config.Container.Path)
}

func TestInitRejectsCredentialShadowedByPersonality(t *testing.T) {
	common := testCommon(t)

	tests := []struct {
		name        string
		personality string
		credential  string
	}{
		{name: "default tone", credential: "AGENT_TONE"},
		{name: "default system prompt", credential: "AGENT_SYSTEM_PROMPT"},
		{name: "extra key", personality: "language: en\n", credential: "AGENT_LANGUAGE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := InitOptions{Common: common, Credentials: []string{"OPENAI_API_KEY", tt.credential}}
			if tt.personality != "" {
				opts.PersonalityFile = filepath.Join(t.TempDir(), "personality.yaml")
				require.NoError(t, os.WriteFile(opts.PersonalityFile, []byte(tt.personality), 0600))
			}

			_, err := Init(context.Background(), opts)
			assert.ErrorIs(t, err, kerrors.ErrInvalidKeyName)
			assert.NoFileExists(t, common.Config.Container.Path)
		})
	}
}

func TestInitWithoutMasterKey(t *testing.T) {
	common := testCommon(t)
	t.Setenv(configs.MasterKeyEnv, "")

	_, err := Init(context.Background(), InitOptions{Common: common})
	assert.ErrorIs(t, err, kerrors.ErrMasterKeyNotSet)
	assert.NoFileExists(t, common.Config.Container.Path)
}

func TestKeyAddListRemove(t *testing.T) {
	common := testCommon(t)
	ctx := context.Background()

	added, err := KeyAdd(ctx, KeyAddOptions{Common: common, Name: "OPENAI_API_KEY", Value: "sk-1"})
	require.NoError(t, err)
	assert.False(t, added.Replaced)

	added, err = KeyAdd(ctx, KeyAddOptions{Common: common, Name: "OPENAI_API_KEY", Value: "sk-2"})
	require.NoError(t, err)
	assert.True(t, added.Replaced)

	_, err = KeyAdd(ctx, KeyAddOptions{Common: common, Name: "STRIPE_KEY", Value: "rk-1"})
	require.NoError(t, err)

	list, err := KeyList(ctx, KeyListOptions{Common: common})
	require.NoError(t, err)
	assert.Equal(t, []string{"OPENAI_API_KEY", "STRIPE_KEY"}, list.Names)

	value, found, err := common.Vault.Retrieve("OPENAI_API_KEY")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "sk-2", value)

	_, err = KeyRemove(ctx, KeyRemoveOptions{Common: common, Name: "STRIPE_KEY"})
	require.NoError(t, err)

	list, err = KeyList(ctx, KeyListOptions{Common: common})
	require.NoError(t, err)
	assert.Equal(t, []string{"OPENAI_API_KEY"}, list.Names)
}

func TestKeyAddValidation(t *testing.T) {
	common := testCommon(t)
	ctx := context.Background()

	_, err := KeyAdd(ctx, KeyAddOptions{Common: common, Name: vault.RegistryName, Value: "x"})
	assert.ErrorIs(t, err, kerrors.ErrInvalidKeyName)

	_, err = KeyAdd(ctx, KeyAddOptions{Common: common, Name: "EMPTY", Value: ""})
	assert.Error(t, err)
}

func TestKeyRemoveMissing(t *testing.T) {
	common := testCommon(t)

	_, err := KeyRemove(context.Background(), KeyRemoveOptions{Common: common, Name: "NOPE"})
	assert.ErrorIs(t, err, kerrors.ErrKeyDeletionFailed)
	assert.ErrorIs(t, err, kerrors.ErrKeyNotFound)
}

func TestMemorySetShowClear(t *testing.T) {
	common := testCommon(t)
	ctx := context.Background()

	_, err := Init(ctx, InitOptions{Common: common, Credentials: []string{"OPENAI_API_KEY"}, Tone: "formal"})
	require.NoError(t, err)

	shown, err := MemoryShow(ctx, MemoryOptions{Common: common})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, shown.Memory)

	_, err = MemorySet(ctx, MemorySetOptions{Common: common, Data: []byte(`{
		// last conversation
		"topic": "quarterly report",
		"turns": 3,
	}`)})
	require.NoError(t, err)

	shown, err = MemoryShow(ctx, MemoryOptions{Common: common})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"topic": "quarterly report", "turns": json.Number("3")}, shown.Memory)

	lock := container.New(common.Config.Container.Path, []byte("correct horse battery staple"))
	view, err := lock.Read()
	require.NoError(t, err)
	assert.Equal(t, []string{"OPENAI_API_KEY"}, view.Credentials.Names())
	assert.Equal(t, "formal", view.Personality[container.PersonalityTone])

	_, err = MemoryClear(ctx, MemoryOptions{Common: common})
	require.NoError(t, err)

	shown, err = MemoryShow(ctx, MemoryOptions{Common: common})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, shown.Memory)
}

func TestMemorySetKeepsLargeIntegers(t *testing.T) {
	common := testCommon(t)
	ctx := context.Background()

	_, err := Init(ctx, InitOptions{Common: common})
	require.NoError(t, err)

	_, err = MemorySet(ctx, MemorySetOptions{Common: common, Data: []byte(`{"id": 9007199254740993, "ratio": 0.1}`)})
	require.NoError(t, err)

	shown, err := MemoryShow(ctx, MemoryOptions{Common: common})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": json.Number("9007199254740993"), "ratio": json.Number("0.1")}, shown.Memory)
}

func TestMemorySetInvalidJSON(t *testing.T) {
	common := testCommon(t)
	ctx := context.Background()

	_, err := Init(ctx, InitOptions{Common: common})
	require.NoError(t, err)

	_, err = MemorySet(ctx, MemorySetOptions{Common: common, Data: []byte(`{"topic":`)})
	assert.Error(t, err)
}

func TestMemoryWithoutContainer(t *testing.T) {
	common := testCommon(t)
	ctx := context.Background()

	_, err := MemorySet(ctx, MemorySetOptions{Common: common, Data: []byte(`{}`)})
	assert.ErrorIs(t, err, kerrors.ErrContainerNotFound)
	assert.NoFileExists(t, common.Config.Container.Path)

	_, err = MemoryShow(ctx, MemoryOptions{Common: common})
	assert.ErrorIs(t, err, kerrors.ErrContainerNotFound)
}

func TestStatus(t *testing.T) {
	common := testCommon(t)
	ctx := context.Background()

	missing, err := Status(ctx, StatusOptions{Common: common})
	require.NoError(t, err)
	assert.False(t, missing.Exists)
	assert.Empty(t, missing.Credentials)

	_, err = Init(ctx, InitOptions{Common: common, Credentials: []string{"OPENAI_API_KEY", "STRIPE_KEY"}})
	require.NoError(t, err)
	require.NoError(t, common.Vault.Store("OPENAI_API_KEY", "sk-test"))

	result, err := Status(ctx, StatusOptions{Common: common})
	require.NoError(t, err)

	assert.True(t, result.Exists)
	assert.Equal(t, container.FormatVersion, result.Version)
	assert.Equal(t, container.IntegrityVerified, result.Integrity)
	assert.Equal(t, []CredentialStatus{
		{Name: "OPENAI_API_KEY", Placeholder: "placeholder_openai_api_key", State: CredentialStored},
		{Name: "STRIPE_KEY", Placeholder: "placeholder_stripe_key", State: CredentialMissing},
	}, result.Credentials)
	assert.Equal(t, StatusSummary{Stored: 1, Missing: 1}, result.Summary)
	assert.Equal(t, len("{}"), result.MemorySize)
}

func TestDoctorHealthy(t *testing.T) {
	common := testCommon(t)
	ctx := context.Background()

	_, err := Init(ctx, InitOptions{Common: common, Credentials: []string{"OPENAI_API_KEY"}})
	require.NoError(t, err)
	require.NoError(t, common.Vault.Store("OPENAI_API_KEY", "sk-test"))

	result, err := Doctor(ctx, DoctorOptions{Common: common})
	require.NoError(t, err)

	for _, check := range result.Checks {
		if runtime.GOOS == "windows" && check.Name == "Container permissions" {
			continue
		}
		assert.Equal(t, CheckPass, check.Status, "%s: %s", check.Name, check.Message)
	}
	assert.Zero(t, result.Summary.Errors)
	assert.Empty(t, result.Suggestions)
}

func TestDoctorFindsProblems(t *testing.T) {
	common := testCommon(t)
	ctx := context.Background()

	_, err := Init(ctx, InitOptions{Common: common, Credentials: []string{"OPENAI_API_KEY"}})
	require.NoError(t, err)

	// Registered, then deleted behind the vault's back.
	ring := keyring.NewArrayKeyring(nil)
	backend := vault.NewKeyringBackend(ring, vault.DefaultService)
	v := vault.New(backend)
	require.NoError(t, v.Store("STALE_KEY", "x"))
	require.NoError(t, ring.Remove("STALE_KEY"))
	common.Vault = v

	result, err := Doctor(ctx, DoctorOptions{Common: common})
	require.NoError(t, err)

	statuses := make(map[string]CheckStatus)
	for _, check := range result.Checks {
		statuses[check.Name] = check.Status
	}
	assert.Equal(t, CheckWarning, statuses["Vault registry"])
	assert.Equal(t, CheckWarning, statuses["Declared credentials"])
	assert.Equal(t, 2, result.Summary.Warnings)
	assert.Len(t, result.Suggestions, 2)
}

func TestDoctorWithoutMasterKey(t *testing.T) {
	common := testCommon(t)
	t.Setenv(configs.MasterKeyEnv, "")

	result, err := Doctor(context.Background(), DoctorOptions{Common: common})
	require.NoError(t, err)

	assert.Equal(t, "Master key", result.Checks[1].Name)
	assert.Equal(t, CheckError, result.Checks[1].Status)
	assert.Equal(t, 1, result.Summary.Errors)

	for _, check := range result.Checks {
		assert.NotEqual(t, "Container contents", check.Name)
	}
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agent.sh")
	require.NoError(t, os.WriteFile(path, []byte(body), 0700))
	return path
}

func TestRunInjectsEnvironment(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	common := testCommon(t)
	common.Config.Run.Interpreters[".sh"] = "sh"
	ctx := context.Background()

	_, err := Init(ctx, InitOptions{
		Common:      common,
		Credentials: []string{"OPENAI_API_KEY", "STRIPE_KEY", "MISSING_KEY"},
		Tone:        "formal",
	})
	require.NoError(t, err)
	require.NoError(t, common.Vault.Store("OPENAI_API_KEY", "sk-live"))
	require.NoError(t, common.Vault.Store("STRIPE_KEY", "rk-live"))

	script := writeScript(t, `printf 'key=%s\n' "$OPENAI_API_KEY"
printf 'denied=%s\n' "${STRIPE_KEY:-unset}"
printf 'tone=%s\n' "$AGENT_TONE"
printf 'master=%s\n' "${AGENT_MASTER_KEY:-unset}"
printf 'deploy=%s\n' "$AGENT_DEPLOYMENT_CONFIG"
printf 'run=%s\n' "$AGENT_RUN_ID"
printf 'args=%s\n' "$*"
exit 3
`)

	var asked []string
	var stdout bytes.Buffer
	result, err := Run(ctx, RunOptions{
		Common: common,
		Script: script,
		Args:   []string{"one", "two"},
		Consent: func(name string) (inject.Decision, error) {
			asked = append(asked, name)
			if name == "STRIPE_KEY" {
				return inject.Deny, nil
			}
			return inject.Allow, nil
		},
		BaseEnv: []string{
			"PATH=" + os.Getenv("PATH"),
			configs.MasterKeyEnv + "=must-not-leak",
			`AGENT_DEPLOYMENT_CONFIG={"region":"eu"}`,
		},
		Stdout: &stdout,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.ExitCode)
	assert.Equal(t, []string{"OPENAI_API_KEY", "STRIPE_KEY"}, asked)
	assert.Equal(t, []string{"OPENAI_API_KEY"}, result.Injected)
	require.Len(t, result.Warnings, 2)
	assert.Equal(t, "access denied for STRIPE_KEY", result.Warnings[0].String())
	assert.Equal(t, "MISSING_KEY not found in vault", result.Warnings[1].String())
	assert.Equal(t, []string{"sh", script, "one", "two"}, result.Command)

	output := stdout.String()
	assert.Contains(t, output, "key=sk-live\n")
	assert.Contains(t, output, "denied=unset\n")
	assert.Contains(t, output, "tone=formal\n")
	assert.Contains(t, output, "master=unset\n")
	assert.Contains(t, output, `deploy={"region":"eu"}`+"\n")
	assert.Contains(t, output, "run="+result.RunID+"\n")
	assert.Contains(t, output, "args=one two\n")
	assert.NotEmpty(t, result.RunID)
}

func TestRunErrors(t *testing.T) {
	common := testCommon(t)
	ctx := context.Background()

	_, err := Run(ctx, RunOptions{
		Common:  common,
		Script:  filepath.Join(t.TempDir(), "missing.py"),
		Consent: inject.AllowAll,
	})
	assert.ErrorIs(t, err, kerrors.ErrScriptNotFound)

	script := writeScript(t, "exit 0\n")
	_, err = Run(ctx, RunOptions{Common: common, Script: script, Consent: inject.AllowAll})
	assert.ErrorIs(t, err, kerrors.ErrContainerNotFound)
}

func TestAgentCommand(t *testing.T) {
	cfg := configs.DefaultConfig()
	sep := string(filepath.Separator)

	assert.Equal(t, []string{"python3", "agent.py", "--fast"}, agentCommand(cfg, "agent.py", []string{"--fast"}))
	assert.Equal(t, []string{"python3", "AGENT.PY"}, agentCommand(cfg, "AGENT.PY", nil))
	assert.Equal(t, []string{"." + sep + "agent"}, agentCommand(cfg, "agent", nil))

	direct := "bin" + sep + "agent"
	assert.Equal(t, []string{direct}, agentCommand(cfg, direct, nil))
}

func TestWithoutVars(t *testing.T) {
	env := []string{"A=1", "AGENT_MASTER_KEY=x", "B=2=3", "BACKPACK_VAULT_PASSWORD=y"}
	got := withoutVars(env, configs.MasterKeyEnv, configs.EnvVaultPassword)
	assert.Equal(t, []string{"A=1", "B=2=3"}, got)
}

func useConfigDir(t *testing.T) string {
	t.Helper()
	original := configs.UserBackpackSettings
	dir := t.TempDir()
	configs.UserBackpackSettings = &configs.UserSettings{
		UserConfigsPath: filepath.Join(dir, "config"),
		UserDataPath:    filepath.Join(dir, "data"),
	}
	t.Cleanup(func() { configs.UserBackpackSettings = original })
	return dir
}

func TestConfigInit(t *testing.T) {
	useConfigDir(t)
	ctx := context.Background()

	result, err := ConfigInit(ctx, ConfigInitOptions{})
	require.NoError(t, err)
	assert.Equal(t, configs.ConfigPath(), result.Path)
	assert.False(t, result.Overwritten)
	assert.FileExists(t, result.Path)

	_, err = ConfigInit(ctx, ConfigInitOptions{})
	assert.ErrorIs(t, err, kerrors.ErrConfigExists)

	result, err = ConfigInit(ctx, ConfigInitOptions{Force: true})
	require.NoError(t, err)
	assert.True(t, result.Overwritten)

	loaded, err := configs.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, configs.DefaultConfig().Vault.Service, loaded.Vault.Service)
}

func TestConfigShow(t *testing.T) {
	useConfigDir(t)
	t.Setenv(configs.EnvContainerPath, "elsewhere.lock")

	result, err := ConfigShow(context.Background(), ConfigShowOptions{})
	require.NoError(t, err)
	assert.False(t, result.FromFile)
	assert.Equal(t, "elsewhere.lock", result.Config.Container.Path)

	_, err = ConfigInit(context.Background(), ConfigInitOptions{})
	require.NoError(t, err)

	result, err = ConfigShow(context.Background(), ConfigShowOptions{})
	require.NoError(t, err)
	assert.True(t, result.FromFile)
}
