package configs

import (
	"log"
	"os"
	"path/filepath"
)

type UserSettings struct {
	UserConfigsPath string
	UserDataPath    string
}

var UserBackpackSettings *UserSettings

func init() {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Fatalf("error getting home directory: %s", err)
	}

	configDir := os.Getenv("BACKPACK_CONFIG_DIR")
	if configDir == "" {
		userConfigDir, err := os.UserConfigDir()
		if err != nil {
			log.Fatalf("error getting config directory: %s", err)
		}
		configDir = filepath.Join(userConfigDir, "backpack")
	}

	dataDir := os.Getenv("XDG_DATA_HOME")

	if dataDir == "" {
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	UserBackpackSettings = &UserSettings{
		UserConfigsPath: configDir,
		UserDataPath:    filepath.Join(dataDir, "backpack"),
	}
}
