// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sigs.k8s.io/yaml"

	"github.com/cfupload/cfupload/internal/cli"
	"github.com/cfupload/cfupload/sdk/blobstore"
	"github.com/cfupload/cfupload/sdk/blobstore/swifttest"
	"github.com/cfupload/cfupload/sdk/services/transfer"
)

type harness struct {
	app    *cli.App
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	store  *blobstore.Memory
	dir    string
}

// newHarness isolates the run from the caller's environment and profile.
func newHarness(t *testing.T, stdin io.Reader) *harness {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, env := range []string{
		"CLOUD_FILES_APIKEY", "CLOUD_FILES_USERNAME", "CLOUD_FILES_CONTAINER",
		"CLOUD_FILES_AUTH_URL", "CLOUD_FILES_UK", "CLOUD_FILES_SERVICENET",
		"CFUPLOAD_BACKEND", "CFUPLOAD_PROFILE", "CFUPLOAD_CONFIG", "CFUPLOAD_OUTPUT",
	} {
		t.Setenv(env, "")
	}

	h := &harness{
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
		store:  blobstore.NewMemory(),
		dir:    t.TempDir(),
	}
	h.store.Username, h.store.APIKey = "USER", "KEY"
	h.app = &cli.App{
		Stdin:           stdin,
		Stdout:          h.stdout,
		Stderr:          h.stderr,
		StdinIsTerminal: func() bool { return stdin == nil },
		Open:            h.store.Open,
		Version:         "1.2.3",
	}
	return h
}

func (h *harness) file(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(h.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (h *harness) run(args ...string) int {
	return h.app.Run(context.Background(), args)
}

func TestUploadToPrivateContainer(t *testing.T) {
	h := newHarness(t, nil)
	h.store.AddContainer("mycontainer", "")
	a := h.file(t, "a.txt", "contents of a")

	code := h.run("-k", "KEY", "-u", "USER", "mycontainer", a)

	assert.Equal(t, cli.ExitOK, code, h.stderr.String())
	assert.Equal(t, "a.txt uploaded successfully\n", h.stdout.String())
	assert.NotContains(t, h.stdout.String(), "CDN")
	data, _, ok := h.store.Object("mycontainer", "a.txt")
	require.True(t, ok)
	assert.Equal(t, "contents of a", string(data))
	assert.Equal(t, 0, h.store.OpenSessions())
}

func TestUploadFromStdin(t *testing.T) {
	h := newHarness(t, strings.NewReader("piped bytes"))
	h.store.AddContainer("mycontainer", "")

	code := h.run("-k", "KEY", "-u", "USER", "-o", "renamed.bin", "mycontainer")

	assert.Equal(t, cli.ExitOK, code, h.stderr.String())
	assert.Equal(t, "renamed.bin uploaded successfully\n", h.stdout.String())
	data, _, ok := h.store.Object("mycontainer", "renamed.bin")
	require.True(t, ok)
	assert.Equal(t, "piped bytes", string(data))
}

func TestUploadToPublicContainer(t *testing.T) {
	h := newHarness(t, nil)
	h.store.AddContainer("mycontainer", "http://c0.cdn.example.com")
	a := h.file(t, "a.txt", "x")

	code := h.run("-k", "KEY", "-u", "USER", "mycontainer", a)

	assert.Equal(t, cli.ExitOK, code, h.stderr.String())
	assert.Equal(t, "a.txt uploaded successfully\nCDN URL: http://c0.cdn.example.com/a.txt\n", h.stdout.String())
}

func TestSilentSuppressesOutput(t *testing.T) {
	for _, flag := range []string{"-s", "--silent", "-q"} {
		t.Run(flag, func(t *testing.T) {
			h := newHarness(t, nil)
			h.store.AddContainer("mycontainer", "http://c0.cdn.example.com")
			a := h.file(t, "a.txt", "x")

			code := h.run("-k", "KEY", "-u", "USER", flag, "mycontainer", a)
			assert.Equal(t, cli.ExitOK, code)
			assert.Empty(t, h.stdout.String())
		})
	}
}

func TestMissingFileDoesNotStopSiblings(t *testing.T) {
	h := newHarness(t, nil)
	h.store.AddContainer("mycontainer", "")
	a := h.file(t, "a.txt", "a")
	b := h.file(t, "b.txt", "b")
	missing := filepath.Join(h.dir, "missing.txt")

	code := h.run("-k", "KEY", "-u", "USER", "mycontainer", a, missing, b)

	assert.Equal(t, cli.ExitError, code)
	assert.Equal(t, "a.txt uploaded successfully\nb.txt uploaded successfully\n", h.stdout.String())
	assert.Contains(t, h.stderr.String(), "Error: File "+missing+" not found.\n")
	_, _, ok := h.store.Object("mycontainer", "b.txt")
	assert.True(t, ok)
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name     string
		stdin    io.Reader
		args     []string
		contains string
	}{
		{"nothing to upload", nil, []string{"-k", "KEY", "-u", "USER", "mycontainer"}, "No input files"},
		{"stdin without destination", strings.NewReader("x"), []string{"-k", "KEY", "-u", "USER", "mycontainer"}, "Destination filename must be provided"},
		{"destination with many files", nil, []string{"-k", "KEY", "-u", "USER", "-o", "x", "mycontainer", "a", "b"}, "single input file"},
		{"unknown flag", nil, []string{"--bogus"}, "unknown flag"},
		{"bad output format", nil, []string{"--output", "xml", "mycontainer", "a"}, "xml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.stdin)
			h.store.AddContainer("mycontainer", "")

			code := h.run(tt.args...)
			assert.Equal(t, cli.ExitUsage, code)
			assert.True(t, strings.HasPrefix(h.stderr.String(), "Error: "), h.stderr.String())
			assert.Contains(t, h.stderr.String(), tt.contains)
			assert.Contains(t, h.stderr.String(), "Usage:")
			assert.Empty(t, h.stdout.String())
			assert.Equal(t, 0, h.store.OpenSessions())
		})
	}
}

func TestFatalErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing api key", []string{"-u", "USER", "mycontainer", "a.txt"}, "Error: API key is required"},
		{"missing username", []string{"-k", "KEY", "mycontainer", "a.txt"}, "Error: Username is required"},
		{"bad credentials", []string{"-k", "WRONG", "-u", "USER", "mycontainer", "a.txt"}, "Error: Cloud Files authentication failed.\n"},
		{"missing container", []string{"-k", "KEY", "-u", "USER", "other", "a.txt"}, "Error: Container other does not exist.\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			h.store.AddContainer("mycontainer", "")

			code := h.run(tt.args...)
			assert.Equal(t, cli.ExitError, code)
			assert.True(t, strings.HasPrefix(h.stderr.String(), tt.want), h.stderr.String())
			assert.NotContains(t, h.stderr.String(), "Usage:")
			assert.Equal(t, 0, h.store.OpenSessions())
		})
	}
}

func TestContainerFromEnvironment(t *testing.T) {
	h := newHarness(t, nil)
	h.store.AddContainer("fromenv", "")
	t.Setenv("CLOUD_FILES_APIKEY", "KEY")
	t.Setenv("CLOUD_FILES_USERNAME", "USER")
	t.Setenv("CLOUD_FILES_CONTAINER", "fromenv")
	a := h.file(t, "a.txt", "a")
	b := h.file(t, "b.txt", "b")

	code := h.run(a, b)

	assert.Equal(t, cli.ExitOK, code, h.stderr.String())
	_, _, ok := h.store.Object("fromenv", "a.txt")
	assert.True(t, ok)
	_, _, ok = h.store.Object("fromenv", "b.txt")
	assert.True(t, ok)
}

func TestContainerFlagWinsOverEnvironment(t *testing.T) {
	h := newHarness(t, nil)
	h.store.AddContainer("flagged", "")
	t.Setenv("CLOUD_FILES_CONTAINER", "fromenv")
	a := h.file(t, "a.txt", "a")

	code := h.run("-k", "KEY", "-u", "USER", "-c", "flagged", a)

	assert.Equal(t, cli.ExitOK, code, h.stderr.String())
	_, _, ok := h.store.Object("flagged", "a.txt")
	assert.True(t, ok)
}

func TestJSONAndYAMLOutput(t *testing.T) {
	h := newHarness(t, nil)
	h.store.AddContainer("mycontainer", "http://cdn.example.com")
	a := h.file(t, "a.txt", "abc")

	code := h.run("-k", "KEY", "-u", "USER", "--output", "json", "mycontainer", a)
	require.Equal(t, cli.ExitOK, code, h.stderr.String())

	var results []transfer.TransferResult
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "a.txt", results[0].Destination)
	assert.True(t, results[0].Success)
	assert.Equal(t, int64(3), results[0].Size)
	assert.Equal(t, "900150983cd24fb0d6963f7d28e17f72", results[0].ETag)
	assert.Equal(t, "http://cdn.example.com/a.txt", results[0].PublicURL)

	h.stdout.Reset()
	code = h.run("-k", "KEY", "-u", "USER", "--output", "yml", "mycontainer", a)
	require.Equal(t, cli.ExitOK, code, h.stderr.String())
	results = nil
	require.NoError(t, yaml.Unmarshal(h.stdout.Bytes(), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "a.txt", results[0].Destination)
}

func TestConfigureThenUpload(t *testing.T) {
	h := newHarness(t, nil)
	h.store.AddContainer("saved", "")
	profile := filepath.Join(h.dir, "cfupload.ini")

	code := h.run("configure", "--config", profile, "-k", "KEY", "-u", "USER", "-c", "saved")
	require.Equal(t, cli.ExitOK, code, h.stderr.String())
	assert.Contains(t, h.stdout.String(), "Profile [default] saved to "+profile)
	assert.NotContains(t, h.stdout.String(), "KEY\n")

	h.stdout.Reset()
	a := h.file(t, "a.txt", "a")
	code = h.run("--config", profile, a)
	require.Equal(t, cli.ExitOK, code, h.stderr.String())
	assert.Equal(t, "a.txt uploaded successfully\n", h.stdout.String())
	_, _, ok := h.store.Object("saved", "a.txt")
	assert.True(t, ok)
}

func TestConfigureRequiresSomething(t *testing.T) {
	h := newHarness(t, nil)
	code := h.run("configure", "--config", filepath.Join(h.dir, "p.ini"))
	assert.Equal(t, cli.ExitUsage, code)
}

func TestUnknownProfile(t *testing.T) {
	h := newHarness(t, nil)
	profile := filepath.Join(h.dir, "cfupload.ini")
	require.NoError(t, os.WriteFile(profile, []byte("[work]\napikey = K\n"), 0o600))

	code := h.run("--config", profile, "--profile", "home", "mycontainer", "a.txt")
	assert.Equal(t, cli.ExitError, code)
	assert.Contains(t, h.stderr.String(), "profile [home] not found")
}

func TestVersion(t *testing.T) {
	h := newHarness(t, nil)
	assert.Equal(t, cli.ExitOK, h.run("version"))
	assert.Equal(t, "cfupload 1.2.3\n", h.stdout.String())
}

func TestUploadAgainstSwiftServer(t *testing.T) {
	srv := swifttest.NewServer("USER", "KEY")
	defer srv.Close()
	srv.AddContainer("mycontainer", "http://c0.cdn.example.com")

	h := newHarness(t, nil)
	h.app.Open = nil
	a := h.file(t, "a.txt", "over the wire")

	code := h.run("-k", "KEY", "-u", "USER", "--auth-url", srv.AuthURL(), "mycontainer", a)

	assert.Equal(t, cli.ExitOK, code, h.stderr.String())
	assert.Equal(t, "a.txt uploaded successfully\nCDN URL: http://c0.cdn.example.com/a.txt\n", h.stdout.String())
	obj, ok := srv.Object("mycontainer", "a.txt")
	require.True(t, ok)
	assert.Equal(t, "over the wire", string(obj.Data))
	assert.Equal(t, "text/plain; charset=utf-8", obj.ContentType)
	assert.Regexp(t, `^cfupload-[0-9a-f]{32}$`, obj.Header.Get("X-Trans-Id-Extra"))
	assert.Equal(t, "cfupload/1.2.3", obj.Header.Get("User-Agent"))
}

func TestSwiftServerMissingContainer(t *testing.T) {
	srv := swifttest.NewServer("USER", "KEY")
	defer srv.Close()

	h := newHarness(t, nil)
	h.app.Open = nil
	a := h.file(t, "a.txt", "x")

	code := h.run("-k", "KEY", "-u", "USER", "--auth-url", srv.AuthURL(), "mycontainer", a)
	assert.Equal(t, cli.ExitError, code)
	assert.Equal(t, "Error: Container mycontainer does not exist.\n", h.stderr.String())
}

func TestConfigureUsageShowsConfigureHelp(t *testing.T) {
	h := newHarness(t, nil)
	code := h.run("configure", "--config", filepath.Join(h.dir, "p.ini"))

	assert.Equal(t, cli.ExitUsage, code)
	assert.Contains(t, h.stderr.String(), "cfupload configure [flags]")
	assert.NotContains(t, h.stderr.String(), "[container] [file...]")
}

func TestConfigureNamedProfileThenUpload(t *testing.T) {
	h := newHarness(t, nil)
	h.store.AddContainer("work", "")
	profile := filepath.Join(h.dir, "cfupload.ini")

	code := h.run("configure", "--config", profile, "--profile", "work", "-k", "KEY", "-u", "USER", "-c", "work")
	require.Equal(t, cli.ExitOK, code, h.stderr.String())
	assert.Contains(t, h.stdout.String(), "Profile [work] saved")

	h.stdout.Reset()
	a := h.file(t, "a.txt", "a")
	code = h.run("--config", profile, a)
	require.Equal(t, cli.ExitOK, code, h.stderr.String())
	_, _, ok := h.store.Object("work", "a.txt")
	assert.True(t, ok)
}
