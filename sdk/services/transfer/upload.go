// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/cfupload/cfupload/sdk/blobstore"
	"github.com/cfupload/cfupload/sdk/utils"
)

// DestinationName returns override when set, else the base name of the
// source path. Streams have no base name.
func DestinationName(src InputSource, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if src.Kind == SourceStream {
		return "", newError(KindUsage, nil, "Destination filename must be provided with -o when reading from standard input.")
	}
	return filepath.Base(src.Path), nil
}

// Upload transfers one source into the container. The returned result is
// never nil; on failure result.Err holds the same *Error as the return.
func (s *TransferService) Upload(ctx context.Context, src InputSource, override, contentType string) (*TransferResult, error) {
	res := &TransferResult{Source: src.String()}

	dest, err := DestinationName(src, override)
	if err != nil {
		return res.fail(err)
	}
	res.Destination = dest
	logger := s.logger.With().Str("source", src.String()).Str("object", dest).Logger()

	var info *blobstore.ObjectInfo
	switch src.Kind {
	case SourceStream:
		br := bufio.NewReaderSize(src.Stream, 4096)
		if contentType == "" {
			header, _ := br.Peek(512)
			contentType = utils.ContentTypeFor(dest, header)
		}
		obj := s.container.CreateObject(dest, s.objectOptions(contentType))
		logger.Info().Str("content_type", contentType).Msg("streaming upload")
		info, err = obj.WriteFromStream(ctx, br)

	case SourceFile:
		st, statErr := os.Stat(src.Path)
		switch {
		case errors.Is(statErr, os.ErrNotExist):
			return res.fail(newError(KindFileNotFound, statErr, "File %s not found.", src.Path))
		case statErr != nil:
			return res.fail(newError(KindTransfer, statErr, "Cannot access %s.", src.Path))
		case st.IsDir():
			return res.fail(newError(KindTransfer, nil, "%s is a directory.", src.Path))
		}
		if contentType == "" {
			contentType, err = sniffFile(dest, src.Path)
			if err != nil {
				return res.fail(newError(KindTransfer, err, "Cannot read %s.", src.Path))
			}
		}
		obj := s.container.CreateObject(dest, s.objectOptions(contentType))
		logger.Info().Int64("bytes", st.Size()).Str("content_type", contentType).Msg("uploading file")
		info, err = obj.WriteFromFile(ctx, src.Path)

	default:
		return res.fail(newError(KindUsage, nil, "Unsupported input source."))
	}
	if err != nil {
		logger.Debug().Err(err).Msg("upload failed")
		return res.fail(newError(KindTransfer, err, "Upload of %s failed.", dest))
	}

	res.Success = true
	res.Size = info.Size
	res.ETag = info.ETag
	res.ContentType = info.ContentType
	logger.Info().Int64("bytes", info.Size).Str("etag", info.ETag).Msg("upload complete")

	if !s.quiet {
		s.resolvePublicURL(ctx, res)
	}
	return res, nil
}

// UploadAll uploads every source in order. A failing source does not stop
// the ones after it. each, when set, sees every result as soon as it is
// known.
func (s *TransferService) UploadAll(ctx context.Context, sources []InputSource, override, contentType string, each func(*TransferResult)) []*TransferResult {
	results := make([]*TransferResult, 0, len(sources))
	for _, src := range sources {
		var res *TransferResult
		if ctx.Err() != nil {
			res = &TransferResult{Source: src.String()}
			res.fail(newError(KindTransfer, ctx.Err(), "Upload of %s cancelled.", src.String()))
		} else {
			res, _ = s.Upload(ctx, src, override, contentType)
		}
		if each != nil {
			each(res)
		}
		results = append(results, res)
	}
	return results
}

// resolvePublicURL fills the CDN fields. A failed lookup is logged and the
// object stays reported as private.
func (s *TransferService) resolvePublicURL(ctx context.Context, res *TransferResult) {
	public, err := s.container.IsPublic(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("unable to query CDN status")
		return
	}
	if !public {
		return
	}
	base, err := s.container.PublicURL(ctx)
	if err != nil || base == "" {
		s.logger.Warn().Err(err).Msg("container is public but has no CDN URI")
		return
	}
	res.Public = true
	res.PublicURL = utils.JoinObjectURL(base, res.Destination)
}

func (s *TransferService) objectOptions(contentType string) blobstore.ObjectOptions {
	return blobstore.ObjectOptions{
		ContentType: contentType,
		TransID:     s.transID,
		Progress:    s.progress,
	}
}

func sniffFile(name, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	header := make([]byte, 512)
	n, err := io.ReadFull(f, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	return utils.ContentTypeFor(name, header[:n]), nil
}

func (r *TransferResult) fail(err error) (*TransferResult, error) {
	r.Success = false
	r.Err = err
	r.Error = Message(err)
	return r, err
}
