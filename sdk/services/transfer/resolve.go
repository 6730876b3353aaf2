// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"io"

	"github.com/cfupload/cfupload/sdk/config"
)

// Resolve validates opts without touching the network.
//
// When opts.Container is empty the first positional argument names the
// container and the rest are files. With no files, stdin is the input
// unless it is a terminal.
func Resolve(opts Options, stdin io.Reader, stdinIsTerminal bool) (*Invocation, error) {
	container := opts.Container
	files := opts.Args
	if container == "" && len(files) > 0 {
		container = files[0]
		files = files[1:]
	}

	var sources []InputSource
	switch {
	case len(files) == 0 && (stdinIsTerminal || stdin == nil):
		return nil, newError(KindUsage, nil, "No input files given and nothing piped on standard input.")
	case len(files) == 0:
		if opts.Destination == "" {
			return nil, newError(KindUsage, nil, "Destination filename must be provided with -o when reading from standard input.")
		}
		sources = []InputSource{Stream(stdin)}
	case len(files) > 1 && opts.Destination != "":
		return nil, newError(KindUsage, nil, "Destination filename (-o) can only be used with a single input file.")
	default:
		for _, f := range files {
			sources = append(sources, FilePath(f))
		}
	}

	switch {
	case opts.APIKey == "":
		return nil, newError(KindConfiguration, nil, "API key is required (use -k or set CLOUD_FILES_APIKEY).")
	case opts.Username == "":
		return nil, newError(KindConfiguration, nil, "Username is required (use -u or set CLOUD_FILES_USERNAME).")
	case container == "":
		return nil, newError(KindConfiguration, nil, "Container name is required (use -c, a positional argument or set CLOUD_FILES_CONTAINER).")
	}

	backend := opts.Backend
	if backend == "" {
		backend = config.BackendCloudFiles
	}
	if backend != config.BackendCloudFiles && backend != config.BackendS3 {
		return nil, newError(KindConfiguration, nil, "Unsupported backend %q (use %s or %s).", backend, config.BackendCloudFiles, config.BackendS3)
	}

	return &Invocation{
		Config: config.Config{
			Backend: backend,
			Credentials: config.Credentials{
				Username: opts.Username,
				APIKey:   opts.APIKey,
			},
			CloudFiles: config.CloudFilesConfig{
				AuthURL:    opts.AuthURL,
				UK:         opts.UK,
				ServiceNet: opts.ServiceNet,
			},
			S3: opts.S3,
		},
		Container:   container,
		Sources:     sources,
		Destination: opts.Destination,
		ContentType: opts.ContentType,
		Quiet:       opts.Quiet,
	}, nil
}
