// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/ini.v1"
)

// Settings holds all logical keys. Tags:
// - vkey: Viper key
// - env: canonical env name. If empty, the key is not read from env
// - persist: "true" to write the key into the INI profile
// - default: optional default to set if key is unset
// - secret: "true" if sensitive (masked when printed)
type Settings struct {
	APIKey      string `vkey:"apikey"          env:"CLOUD_FILES_APIKEY"     persist:"true" secret:"true"`
	Username    string `vkey:"username"        env:"CLOUD_FILES_USERNAME"   persist:"true"`
	Container   string `vkey:"container"       env:"CLOUD_FILES_CONTAINER"  persist:"true"`
	AuthURL     string `vkey:"auth_url"        env:"CLOUD_FILES_AUTH_URL"   persist:"true"`
	UK          bool   `vkey:"uk"              env:"CLOUD_FILES_UK"         persist:"true"`
	ServiceNet  bool   `vkey:"servicenet"      env:"CLOUD_FILES_SERVICENET" persist:"true"`
	Backend     string `vkey:"backend"         env:"CFUPLOAD_BACKEND"       persist:"true" default:"cloudfiles"`
	S3Region    string `vkey:"s3_region"       env:"AWS_REGION"             persist:"true"`
	S3Endpoint  string `vkey:"s3_endpoint_url" env:"AWS_ENDPOINT_URL"       persist:"true"`
	S3PublicURL string `vkey:"s3_public_url"   env:"S3_PUBLIC_URL"          persist:"true"`
	Output      string `vkey:"output"          env:"CFUPLOAD_OUTPUT"        persist:"true" default:"short"`
	Profile     string `vkey:"profile"         env:"CFUPLOAD_PROFILE"`
	ConfigFile  string `vkey:"config"          env:"CFUPLOAD_CONFIG"`

	// per-invocation only
	Destination string `vkey:"destination"`
	ContentType string `vkey:"content_type"`
	Quiet       bool   `vkey:"quiet"`
	Verbose     bool   `vkey:"verbose"`
	Progress    bool   `vkey:"progress"`
}

// IniPath returns override, or ~/.cfupload.ini.
func IniPath(override string) string {
	if override != "" {
		return override
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, IniName)
}

// BindEnvFromStruct binds env for all fields of Settings using struct tags.
func BindEnvFromStruct(v *viper.Viper) {
	rt := reflect.TypeOf(Settings{})
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)

		key := f.Tag.Get("vkey")
		if key == "" {
			continue
		}
		if env := f.Tag.Get("env"); env != "" {
			_ = v.BindEnv(key, env)
		}
		if def := f.Tag.Get("default"); def != "" && !v.IsSet(key) {
			v.SetDefault(key, def)
		}
	}
}

// LoadSettings reads every Settings field back from v.
func LoadSettings(v *viper.Viper) Settings {
	var s Settings
	rv := reflect.ValueOf(&s).Elem()
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		key := rt.Field(i).Tag.Get("vkey")
		if key == "" {
			continue
		}
		switch rv.Field(i).Kind() {
		case reflect.Bool:
			rv.Field(i).SetBool(v.GetBool(key))
		case reflect.String:
			rv.Field(i).SetString(v.GetString(key))
		}
	}
	return s
}

// resolveEnvName: --profile > DEFAULT.current_environment > "default"
func resolveEnvName(cfg *ini.File, profile string) string {
	if profile != "" && strings.ToLower(profile) != "null" {
		return profile
	}
	if cfg != nil && cfg.Section(ini.DefaultSection).HasKey(CurrentEnvironment) {
		if v := cfg.Section(ini.DefaultSection).Key(CurrentEnvironment).String(); v != "" {
			return v
		}
	}
	return "default"
}

// LoadProfile loads [DEFAULT] + [profile] of iniPath into v as its config
// layer; flags and env still win on Get(). A missing file is not an error
// and yields an empty name.
func LoadProfile(v *viper.Viper, iniPath, profile string) (string, error) {
	cfg, err := ini.Load(iniPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read profile file %s: %w", iniPath, err)
	}

	env := resolveEnvName(cfg, profile)
	if profile != "" && !cfg.HasSection(env) {
		return "", fmt.Errorf("profile [%s] not found in %s", env, iniPath)
	}
	if err := loadIniSectionIntoViper(v, cfg, env); err != nil {
		return "", fmt.Errorf("failed to load profile into viper: %w", err)
	}
	return env, nil
}

// Merge [DEFAULT] and [env] and feed them to v as an in-memory TOML document.
func loadIniSectionIntoViper(v *viper.Viper, cfg *ini.File, env string) error {
	def := cfg.Section(ini.DefaultSection)
	merged := make(map[string]string)
	for _, k := range def.Keys() {
		merged[k.Name()] = k.Value()
	}
	// section names are case sensitive: [default] is a profile like any other
	if env != "" && env != ini.DefaultSection && cfg.HasSection(env) {
		for _, k := range cfg.Section(env).Keys() {
			merged[k.Name()] = k.Value()
		}
	}

	var buf bytes.Buffer
	for k, val := range merged {
		vSafe := strings.ReplaceAll(strings.ReplaceAll(val, `\`, `\\`), `"`, `\"`)
		_, _ = fmt.Fprintf(&buf, "%s = \"%s\"\n", k, vSafe)
	}
	v.SetConfigType("toml")
	return v.ReadConfig(&buf)
}

// WriteProfile updates or creates section env of iniPath from the current
// values in v (persist:"true" keys only) and returns the section name. The
// file is kept private to the user since it holds the API key.
func WriteProfile(v *viper.Viper, iniPath, env string) (string, error) {
	cfg, err := ini.Load(iniPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("failed to read profile file %s: %w", iniPath, err)
		}
		cfg = ini.Empty()
	}
	env = resolveEnvName(cfg, env)
	sec := cfg.Section(env)

	rt := reflect.TypeOf(Settings{})
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if f.Tag.Get("persist") != "true" {
			continue
		}
		key := f.Tag.Get("vkey")
		val := v.GetString(key)
		if val == "" || val == f.Tag.Get("default") || val == "false" {
			continue
		}
		sec.Key(key).SetValue(val)
	}

	if def := cfg.Section(ini.DefaultSection); !def.HasKey(CurrentEnvironment) || def.Key(CurrentEnvironment).String() == "" {
		def.Key(CurrentEnvironment).SetValue(env)
	}
	sec.Key(UpdatedEnvKey).SetValue(time.Now().UTC().Format(time.RFC3339))

	if err := os.MkdirAll(filepath.Dir(iniPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", filepath.Dir(iniPath), err)
	}
	f, err := os.OpenFile(iniPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return "", fmt.Errorf("failed to write profile file: %w", err)
	}
	if _, err := cfg.WriteTo(f); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("failed to write profile file: %w", err)
	}
	return env, f.Close()
}

// MaskSecret hides all but the last four characters of a secret value.
func MaskSecret(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}
