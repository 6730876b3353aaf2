// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/cfupload/cfupload/sdk/blobstore"
	"github.com/cfupload/cfupload/sdk/config"
)

type TransferService struct {
	session   blobstore.Session
	container blobstore.Container
	logger    zerolog.Logger

	transID  string
	quiet    bool
	progress *blobstore.ProgressHook
}

type ServiceOptions struct {
	Logger zerolog.Logger
	// TransID tags every object request of this run
	TransID string
	// Quiet skips the CDN lookup after each upload
	Quiet    bool
	Progress *blobstore.ProgressHook
}

// NewTransferService opens a session with open and resolves container. The
// caller must Close the returned service. On error nothing is left open.
func NewTransferService(ctx context.Context, open blobstore.Opener, conf config.Config, container string, opts ServiceOptions) (*TransferService, error) {
	if open == nil {
		open = blobstore.Open
	}
	logger := opts.Logger.With().Str("backend", conf.BackendName()).Str("container", container).Logger()

	logger.Debug().Msg("opening session")
	session, err := open(ctx, conf)
	if err != nil {
		logger.Debug().Err(err).Msg("session failed")
		return nil, connectError(err, serviceName(conf), container)
	}

	c, err := session.Container(ctx, container)
	if err != nil {
		_ = session.Close()
		logger.Debug().Err(err).Msg("container lookup failed")
		return nil, connectError(err, serviceName(conf), container)
	}
	logger.Debug().Msg("container resolved")

	return &TransferService{
		session:   session,
		container: c,
		logger:    logger,
		transID:   opts.TransID,
		quiet:     opts.Quiet,
		progress:  opts.Progress,
	}, nil
}

// Close releases the session.
func (s *TransferService) Close() error {
	s.logger.Debug().Msg("closing session")
	return s.session.Close()
}

func serviceName(conf config.Config) string {
	if conf.BackendName() == config.BackendS3 {
		return "S3"
	}
	return "Cloud Files"
}
