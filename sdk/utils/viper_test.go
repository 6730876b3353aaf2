// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/ini.v1"
)

const sampleIni = `[DEFAULT]
current_environment = work
container = fallback

[work]
apikey = work-key
username = work-user
uk = true

[home]
apikey = home-key
username = home-user
container = photos
`

func writeIni(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), IniName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadProfileCurrentEnvironment(t *testing.T) {
	path := writeIni(t, sampleIni)
	v := viper.New()
	BindEnvFromStruct(v)

	env, err := LoadProfile(v, path, "")
	require.NoError(t, err)
	assert.Equal(t, "work", env)

	s := LoadSettings(v)
	assert.Equal(t, "work-key", s.APIKey)
	assert.Equal(t, "work-user", s.Username)
	assert.Equal(t, "fallback", s.Container)
	assert.True(t, s.UK)
	assert.Equal(t, "cloudfiles", s.Backend)
}

func TestLoadProfileExplicitAndEnvOverride(t *testing.T) {
	path := writeIni(t, sampleIni)
	t.Setenv("CLOUD_FILES_USERNAME", "env-user")

	v := viper.New()
	BindEnvFromStruct(v)
	env, err := LoadProfile(v, path, "home")
	require.NoError(t, err)
	assert.Equal(t, "home", env)

	s := LoadSettings(v)
	assert.Equal(t, "home-key", s.APIKey)
	assert.Equal(t, "env-user", s.Username)
	assert.Equal(t, "photos", s.Container)
	assert.False(t, s.UK)
}

func TestLoadProfileMissing(t *testing.T) {
	v := viper.New()
	env, err := LoadProfile(v, filepath.Join(t.TempDir(), "none.ini"), "")
	require.NoError(t, err)
	assert.Empty(t, env)

	_, err = LoadProfile(v, writeIni(t, sampleIni), "nope")
	assert.ErrorContains(t, err, "nope")
}

func TestWriteProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", IniName)

	v := viper.New()
	BindEnvFromStruct(v)
	v.Set(APIKey, "k1")
	v.Set(Username, "u1")
	v.Set(ServiceNet, true)
	v.Set(Destination, "never-persisted")

	section, err := WriteProfile(v, path, "")
	require.NoError(t, err)
	assert.Equal(t, "default", section)

	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), st.Mode().Perm())

	cfg, err := ini.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "default", cfg.Section("DEFAULT").Key(CurrentEnvironment).String())
	sec := cfg.Section("default")
	assert.Equal(t, "k1", sec.Key(APIKey).String())
	assert.Equal(t, "u1", sec.Key(Username).String())
	assert.Equal(t, "true", sec.Key(ServiceNet).String())
	assert.False(t, sec.HasKey(Destination))
	assert.False(t, sec.HasKey(Backend))
	assert.NotEmpty(t, sec.Key(UpdatedEnvKey).String())

	// a second profile keeps the first one current
	v2 := viper.New()
	v2.Set(APIKey, "k2")
	section, err = WriteProfile(v2, path, "other")
	require.NoError(t, err)
	assert.Equal(t, "other", section)

	cfg, err = ini.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "default", cfg.Section("DEFAULT").Key(CurrentEnvironment).String())
	assert.Equal(t, "k2", cfg.Section("other").Key(APIKey).String())
	assert.Equal(t, "k1", cfg.Section("default").Key(APIKey).String())
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "***", MaskSecret("abc"))
	assert.Equal(t, "******7890", MaskSecret("1234567890"))
}

func TestWriteProfileThenLoadDefaultSection(t *testing.T) {
	path := filepath.Join(t.TempDir(), IniName)

	v := viper.New()
	v.Set(APIKey, "k1")
	v.Set(Container, "saved")
	section, err := WriteProfile(v, path, "")
	require.NoError(t, err)
	require.Equal(t, "default", section)

	v2 := viper.New()
	BindEnvFromStruct(v2)
	env, err := LoadProfile(v2, path, "")
	require.NoError(t, err)
	assert.Equal(t, "default", env)

	s := LoadSettings(v2)
	assert.Equal(t, "k1", s.APIKey)
	assert.Equal(t, "saved", s.Container)
}

func TestWriteNamedProfileBecomesCurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), IniName)

	v := viper.New()
	v.Set(Username, "work-user")
	_, err := WriteProfile(v, path, "work")
	require.NoError(t, err)

	cfg, err := ini.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "work", cfg.Section(ini.DefaultSection).Key(CurrentEnvironment).String())
	assert.False(t, cfg.HasSection("default"))

	v2 := viper.New()
	env, err := LoadProfile(v2, path, "")
	require.NoError(t, err)
	assert.Equal(t, "work", env)
	assert.Equal(t, "work-user", v2.GetString(Username))
}
