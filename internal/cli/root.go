// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

// Package cli is the cfupload command line: flag parsing, settings
// resolution, result printing and exit codes.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/cfupload/cfupload/sdk/blobstore"
	"github.com/cfupload/cfupload/sdk/config"
	"github.com/cfupload/cfupload/sdk/services/transfer"
	"github.com/cfupload/cfupload/sdk/utils"
)

const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// errReported means every failure was already printed.
var errReported = errors.New("one or more uploads failed")

// usageError marks a malformed command line.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// App holds the process collaborators so tests can replace them.
type App struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// StdinIsTerminal reports whether nothing is piped on Stdin
	StdinIsTerminal func() bool
	// Open defaults to blobstore.Open
	Open    blobstore.Opener
	Version string
}

// Run executes one invocation and returns the process exit status.
func (a *App) Run(ctx context.Context, args []string) int {
	v := viper.New()
	cmd := a.newRootCommand(v)
	cmd.SetArgs(args)

	// failed is the command that ran or failed to parse; its usage is shown
	failed, err := cmd.ExecuteContextC(ctx)
	if failed == nil {
		failed = cmd
	}
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, errReported):
		return ExitError
	}

	fmt.Fprintf(a.stderr(), "Error: %s\n", transfer.Message(err))
	var ue *usageError
	if errors.As(err, &ue) || transfer.IsKind(err, transfer.KindUsage) {
		fmt.Fprint(a.stderr(), "\n"+failed.UsageString())
		return ExitUsage
	}
	return ExitError
}

func (a *App) newRootCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cfupload [flags] [container] [file...]",
		Short: "Upload files to a Rackspace Cloud Files container",
		Long: `Upload one or more files, or standard input, to a Cloud Files container.

The container is taken from --container, CLOUD_FILES_CONTAINER or the
profile; otherwise the first argument names it. With no files the content
of standard input is uploaded and --file must name the object.

Examples:
  cfupload -k KEY -u USER mycontainer a.txt
  cfupload -c mycontainer *.log
  tar cz dir | cfupload -o dir.tar.gz mycontainer`,
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.upload(cmd, v, args)
		},
	}
	cmd.SetIn(a.stdin())
	cmd.SetOut(a.stdout())
	cmd.SetErr(a.stderr())
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	pf := cmd.PersistentFlags()
	pf.StringP("apikey", "k", "", "API key. Defaults to env[CLOUD_FILES_APIKEY]")
	pf.StringP("user", "u", "", "Username. Defaults to env[CLOUD_FILES_USERNAME]")
	pf.StringP("container", "c", "", "Container name. Defaults to env[CLOUD_FILES_CONTAINER]")
	pf.BoolP("servicenet", "n", false, "Use the ServiceNet internal network")
	pf.Bool("uk", false, "Use the London auth endpoint")
	pf.String("auth-url", "", "Override the auth endpoint")
	pf.String("backend", "", "Blob store backend (cloudfiles, s3)")
	pf.String("region", "", "S3 region")
	pf.String("endpoint-url", "", "S3 endpoint URL")
	pf.String("public-url", "", "Public base URL of the S3 bucket")
	pf.String("profile", "", "Profile section in the config file")
	pf.String("config", "", "Config file (default ~/"+utils.IniName+")")
	pf.BoolP("verbose", "v", false, "Log requests to stderr")

	f := cmd.Flags()
	f.StringP("file", "o", "", "Destination filename")
	f.BoolP("silent", "s", false, "Silence output")
	f.BoolP("quiet", "q", false, "Alias of --silent")
	f.String("content-type", "", "Content type of the uploaded objects (sniffed by default)")
	f.Bool("progress", false, "Show transfer progress on stderr")
	f.String("output", "", "Output format (short, json, yaml)")

	cmd.AddCommand(a.newConfigureCommand(v), a.newVersionCommand())
	return cmd
}

var flagKeys = map[string]string{
	"apikey":       utils.APIKey,
	"user":         utils.Username,
	"container":    utils.Container,
	"servicenet":   utils.ServiceNet,
	"uk":           utils.UK,
	"auth-url":     utils.AuthURL,
	"backend":      utils.Backend,
	"region":       utils.S3Region,
	"endpoint-url": utils.S3Endpoint,
	"public-url":   utils.S3PublicURL,
	"profile":      utils.Profile,
	"config":       utils.ConfigFile,
	"verbose":      utils.Verbose,
	"file":         utils.Destination,
	"content-type": utils.ContentType,
	"progress":     utils.Progress,
	"output":       utils.OutputFormat,
}

// loadSettings layers flags over env over the profile file. It returns the
// loaded profile section, empty when no profile file exists.
func loadSettings(v *viper.Viper, fs *pflag.FlagSet) (utils.Settings, string, error) {
	for name, key := range flagKeys {
		if fl := fs.Lookup(name); fl != nil {
			if err := v.BindPFlag(key, fl); err != nil {
				return utils.Settings{}, "", fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}
	utils.BindEnvFromStruct(v)

	path := utils.IniPath(v.GetString(utils.ConfigFile))
	env, err := utils.LoadProfile(v, path, v.GetString(utils.Profile))
	if err != nil {
		return utils.Settings{}, "", err
	}
	return utils.LoadSettings(v), env, nil
}

func (a *App) upload(cmd *cobra.Command, v *viper.Viper, args []string) error {
	ctx := cmd.Context()
	s, profile, err := loadSettings(v, cmd.Flags())
	if err != nil {
		return err
	}
	logger := newLogger(a.stderr(), s.Verbose)
	if profile != "" {
		logger.Debug().Str("profile", profile).Msg("profile loaded")
	}
	silent, _ := cmd.Flags().GetBool("silent")
	quiet, _ := cmd.Flags().GetBool("quiet")
	s.Quiet = s.Quiet || silent || quiet

	format, err := utils.TranslateFormat(s.Output)
	if err != nil {
		return &usageError{err: err}
	}

	inv, err := transfer.Resolve(transfer.Options{
		APIKey:      s.APIKey,
		Username:    s.Username,
		Container:   s.Container,
		Destination: s.Destination,
		ContentType: s.ContentType,
		Args:        args,
		Backend:     s.Backend,
		AuthURL:     s.AuthURL,
		UK:          s.UK,
		ServiceNet:  s.ServiceNet,
		Quiet:       s.Quiet,
		S3: config.S3Config{
			Region:      s.S3Region,
			EndpointURL: s.S3Endpoint,
			PublicURL:   s.S3PublicURL,
		},
	}, a.stdin(), a.stdinIsTerminal())
	if err != nil {
		return err
	}
	inv.Config.UserAgent = "cfupload/" + a.version()

	transID := utils.TransID()
	logger = logger.With().Str("trans_id", transID).Logger()

	opts := transfer.ServiceOptions{Logger: logger, TransID: transID, Quiet: inv.Quiet}
	if s.Progress {
		opts.Progress = utils.NewProgressHook(a.stderr())
	}
	svc, err := transfer.NewTransferService(ctx, a.Open, inv.Config, inv.Container, opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close session")
		}
	}()

	p := &printer{out: a.stdout(), errOut: a.stderr(), format: format, quiet: inv.Quiet}
	results := svc.UploadAll(ctx, inv.Sources, inv.Destination, inv.ContentType, p.Result)
	if err := p.Flush(); err != nil {
		return err
	}
	for _, res := range results {
		if !res.Success {
			return errReported
		}
	}
	return nil
}

func (a *App) stdin() io.Reader {
	if a.Stdin == nil {
		return os.Stdin
	}
	return a.Stdin
}

func (a *App) stdout() io.Writer {
	if a.Stdout == nil {
		return os.Stdout
	}
	return a.Stdout
}

func (a *App) stderr() io.Writer {
	if a.Stderr == nil {
		return os.Stderr
	}
	return a.Stderr
}

func (a *App) stdinIsTerminal() bool {
	if a.StdinIsTerminal == nil {
		return true
	}
	return a.StdinIsTerminal()
}

func (a *App) version() string {
	if a.Version == "" {
		return "dev"
	}
	return a.Version
}
