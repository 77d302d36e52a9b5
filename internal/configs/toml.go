package configs

import (
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// SaveTOML writes data to filePath as TOML. The parent directory is created
// with mode 0700 and the file is written with mode 0600.
func SaveTOML(filePath string, data any) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0700); err != nil {
		return err
	}

	file, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}

	if err := EncodeTOML(file, data); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// EncodeTOML writes data to w as TOML.
func EncodeTOML(w io.Writer, data any) error {
	return toml.NewEncoder(w).Encode(data)
}

// LoadTOML decodes the TOML file at filePath into data.
func LoadTOML(filePath string, data any) error {
	_, err := toml.DecodeFile(filePath, data)
	return err
}
