package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/meigma/ocifetch"
)

// EnvPrefix is prepended to every environment variable.
const EnvPrefix = "WASMCLOUD"

// Setting keys. Each maps to EnvPrefix + "_" + upper(key).
const (
	KeyAllowLatest       = "oci_allow_latest"
	KeyAllowedInsecure   = "oci_allowed_insecure"
	KeyRegistryUser      = "oci_registry_user"
	KeyRegistryPassword  = "oci_registry_password"
	KeyRegistryToken     = "oci_registry_token"
	KeyAdditionalCAPaths = "oci_additional_ca_paths"
	KeyCacheDir          = "oci_cache_dir"
)

var keys = []string{
	KeyAllowLatest,
	KeyAllowedInsecure,
	KeyRegistryUser,
	KeyRegistryPassword,
	KeyRegistryToken,
	KeyAdditionalCAPaths,
	KeyCacheDir,
}

// RegistryConfig is a snapshot of the host's registry settings.
type RegistryConfig struct {
	AllowLatest bool

	// AllowedInsecure lists registries that may be reached over plain HTTP.
	// Insecure access is enabled only when the list is non-empty.
	AllowedInsecure []string

	Username string
	Password string
	Token    string

	AdditionalCAPaths []string

	// CacheDir is the cache root. Empty means ocifetch.DefaultCacheDir.
	CacheDir string
}

// NewViper returns a viper instance bound to the WASMCLOUD_ environment.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	for _, key := range keys {
		// BindEnv only fails without a key.
		_ = v.BindEnv(key)
	}
	return v
}

// ReadFile merges the settings in path into v. The file uses the same keys as
// the environment, without the prefix.
func ReadFile(v *viper.Viper, path string) error {
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

// Load builds a RegistryConfig from v.
func Load(v *viper.Viper) RegistryConfig {
	return RegistryConfig{
		AllowLatest:       v.GetBool(KeyAllowLatest),
		AllowedInsecure:   stringList(v.Get(KeyAllowedInsecure)),
		Username:          v.GetString(KeyRegistryUser),
		Password:          v.GetString(KeyRegistryPassword),
		Token:             v.GetString(KeyRegistryToken),
		AdditionalCAPaths: stringList(v.Get(KeyAdditionalCAPaths)),
		CacheDir:          v.GetString(KeyCacheDir),
	}
}

// FromEnv loads the configuration from the environment alone.
func FromEnv() RegistryConfig {
	return Load(NewViper())
}

// Policy converts the configuration to a fetch policy.
func (c RegistryConfig) Policy() ocifetch.FetchPolicy {
	return ocifetch.FetchPolicy{
		AllowLatest:        c.AllowLatest,
		AllowInsecure:      len(c.AllowedInsecure) > 0,
		InsecureRegistries: c.AllowedInsecure,
		AdditionalCAPaths:  c.AdditionalCAPaths,
		Auth: ocifetch.Credentials{
			Username: c.Username,
			Password: c.Password,
			Token:    c.Token,
		},
	}
}

// Options returns the Fetcher options for this configuration.
func (c RegistryConfig) Options() []ocifetch.Option {
	opts := []ocifetch.Option{ocifetch.WithPolicy(c.Policy())}
	if c.CacheDir != "" {
		opts = append(opts, ocifetch.WithCacheDir(c.CacheDir))
	}
	return opts
}

// stringList accepts a comma-separated string, as environment variables carry
// lists, or a slice from a flag or config file.
func stringList(value any) []string {
	var raw []string
	switch val := value.(type) {
	case nil:
		return nil
	case string:
		raw = strings.Split(val, ",")
	case []string:
		raw = val
	case []any:
		for _, item := range val {
			raw = append(raw, fmt.Sprint(item))
		}
	default:
		raw = []string{fmt.Sprint(val)}
	}

	var out []string
	for _, item := range raw {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
