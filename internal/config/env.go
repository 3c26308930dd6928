package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvFiles are loaded from the site root, first file wins. Variables already
// present in the process environment are never overridden.
var EnvFiles = []string{".env", ".env.local"}

// envBindings maps config keys to the environment variables that can set
// them, in precedence order. The FTP_* names are kept for older setups.
var envBindings = map[string][]string{
	"transfer.host":        {"REPOGEN_TRANSFER_HOST", "FTP_HOST"},
	"transfer.port":        {"REPOGEN_TRANSFER_PORT", "FTP_PORT"},
	"transfer.user":        {"REPOGEN_TRANSFER_USER", "FTP_USER"},
	"transfer.password":    {"REPOGEN_TRANSFER_PASSWORD", "FTP_PASS"},
	"transfer.key_file":    {"REPOGEN_TRANSFER_KEY_FILE"},
	"transfer.known_hosts": {"REPOGEN_TRANSFER_KNOWN_HOSTS"},
	"transfer.base_dir":    {"REPOGEN_TRANSFER_BASE_DIR"},
	"repository_id":        {"REPOGEN_REPOSITORY_ID"},
}

// LoadEnvFiles reads the dotenv files present in root.
func LoadEnvFiles(root string) error {
	for _, name := range EnvFiles {
		err := godotenv.Load(filepath.Join(root, name))
		if err == nil || errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return fmt.Errorf("load %s: %w", name, err)
	}
	return nil
}

// ApplyEnv overlays environment variables onto c. Only non-empty variables
// take effect.
func (c *Config) ApplyEnv() error {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, names := range envBindings {
		args := append([]string{key}, names...)
		if err := v.BindEnv(args...); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if s := v.GetString("transfer.host"); s != "" {
		c.Transfer.Host = s
	}
	if s := v.GetString("transfer.port"); s != "" {
		port := v.GetInt("transfer.port")
		if port == 0 {
			return fmt.Errorf("invalid transfer port %q", s)
		}
		c.Transfer.Port = port
	}
	if s := v.GetString("transfer.user"); s != "" {
		c.Transfer.User = s
	}
	if s := v.GetString("transfer.password"); s != "" {
		c.Transfer.Password = s
	}
	if s := v.GetString("transfer.key_file"); s != "" {
		c.Transfer.KeyFile = s
	}
	if s := v.GetString("transfer.known_hosts"); s != "" {
		c.Transfer.KnownHosts = s
	}
	if s := v.GetString("transfer.base_dir"); s != "" {
		c.Transfer.BaseDir = s
	}
	if s := v.GetString("repository_id"); s != "" {
		c.RepositoryID = s
	}
	return nil
}
