// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/ncw/swift/v2"

	"github.com/cfupload/cfupload/sdk/config"
)

const defaultUserAgent = "cfupload/1.0"

// CloudFilesSession is an authenticated Cloud Files (Swift v1 auth)
// connection.
type CloudFilesSession struct {
	conn      *swift.Connection
	transport *http.Transport
	cdn       *cdnClient
	closed    bool
}

// OpenCloudFiles authenticates immediately so that credential problems
// surface before any container lookup.
func OpenCloudFiles(ctx context.Context, conf config.Config) (*CloudFilesSession, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	userAgent := conf.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	conn := &swift.Connection{
		UserName:    conf.Credentials.Username,
		ApiKey:      conf.Credentials.APIKey,
		AuthUrl:     conf.CloudFiles.ResolvedAuthURL(),
		AuthVersion: 1,
		Internal:    conf.CloudFiles.ServiceNet,
		UserAgent:   userAgent,
		Transport:   transport,
	}

	if err := conn.Authenticate(ctx); err != nil {
		transport.CloseIdleConnections()
		if isAuthFailure(err) {
			return nil, fmt.Errorf("%w: %v", ErrAuthentication, err)
		}
		return nil, fmt.Errorf("failed to authenticate against %s: %w", conn.AuthUrl, err)
	}

	s := &CloudFilesSession{conn: conn, transport: transport}
	if conn.Auth != nil {
		if cdnURL := conn.Auth.CdnUrl(); cdnURL != "" {
			s.cdn = newCDNClient(&http.Client{Transport: transport}, cdnURL, conn.AuthToken, userAgent)
		}
	}
	return s, nil
}

func isAuthFailure(err error) bool {
	if errors.Is(err, swift.AuthorizationFailed) {
		return true
	}
	var serr *swift.Error
	if errors.As(err, &serr) {
		return serr.StatusCode == http.StatusUnauthorized || serr.StatusCode == http.StatusForbidden
	}
	return false
}

func (s *CloudFilesSession) Container(ctx context.Context, name string) (Container, error) {
	if _, _, err := s.conn.Container(ctx, name); err != nil {
		if errors.Is(err, swift.ContainerNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrContainerNotFound, name)
		}
		if isAuthFailure(err) {
			return nil, fmt.Errorf("%w: %v", ErrAuthentication, err)
		}
		return nil, fmt.Errorf("failed to read container %s: %w", name, err)
	}
	return &cloudFilesContainer{session: s, name: name}, nil
}

// Close drops the auth token and the pooled connections.
func (s *CloudFilesSession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.conn.UnAuthenticate()
	s.transport.CloseIdleConnections()
	return nil
}

type cloudFilesContainer struct {
	session *CloudFilesSession
	name    string

	cdnInfo *cdnInfo
}

func (c *cloudFilesContainer) CreateObject(name string, opts ObjectOptions) Object {
	return &cloudFilesObject{container: c, name: name, opts: opts}
}

func (c *cloudFilesContainer) lookupCDN(ctx context.Context) (*cdnInfo, error) {
	if c.cdnInfo != nil {
		return c.cdnInfo, nil
	}
	if c.session.cdn == nil {
		c.cdnInfo = &cdnInfo{}
		return c.cdnInfo, nil
	}
	info, err := c.session.cdn.containerInfo(ctx, c.name)
	if err != nil {
		return nil, err
	}
	c.cdnInfo = info
	return info, nil
}

func (c *cloudFilesContainer) IsPublic(ctx context.Context) (bool, error) {
	info, err := c.lookupCDN(ctx)
	if err != nil {
		return false, err
	}
	return info.Enabled, nil
}

func (c *cloudFilesContainer) PublicURL(ctx context.Context) (string, error) {
	info, err := c.lookupCDN(ctx)
	if err != nil {
		return "", err
	}
	if !info.Enabled {
		return "", nil
	}
	return strings.TrimSuffix(info.URI, "/"), nil
}

type cloudFilesObject struct {
	container *cloudFilesContainer
	name      string
	opts      ObjectOptions
}

func (o *cloudFilesObject) headers() swift.Headers {
	h := swift.Headers{}
	if o.opts.TransID != "" {
		h["X-Trans-Id-Extra"] = o.opts.TransID
	}
	return h
}

// WriteFromStream pushes r as a chunked PUT; nothing is buffered beyond the
// copy buffer.
func (o *cloudFilesObject) WriteFromStream(ctx context.Context, r io.Reader) (*ObjectInfo, error) {
	conn := o.container.session.conn
	f, err := conn.ObjectCreate(ctx, o.container.name, o.name, false, "", o.opts.ContentType, o.headers())
	if err != nil {
		return nil, fmt.Errorf("failed to create object %s: %w", o.name, err)
	}

	reader, pw, finish := tracked(r, o.name, -1, o.opts.Progress)
	if _, err := io.Copy(f, reader); err != nil {
		// abort the chunked PUT so no truncated object is committed
		_ = f.CloseWithError(err)
		return nil, fmt.Errorf("stream error: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("upload error: %w", err)
	}
	finish()

	info := &ObjectInfo{Name: o.name, Size: pw.written, ContentType: o.opts.ContentType}
	if h, err := f.Headers(); err == nil {
		info.ETag = h["Etag"]
	}
	return info, nil
}

// WriteFromFile uploads path with a single PUT; the library checks the
// returned ETag against the MD5 it computes while sending.
func (o *cloudFilesObject) WriteFromFile(ctx context.Context, path string) (*ObjectInfo, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open local file: %w", err)
	}
	defer file.Close()

	st, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat error: %w", err)
	}

	h := o.headers()
	h["Content-Length"] = fmt.Sprint(st.Size())

	reader, pw, finish := tracked(file, o.name, st.Size(), o.opts.Progress)
	conn := o.container.session.conn
	out, err := conn.ObjectPut(ctx, o.container.name, o.name, reader, true, "", o.opts.ContentType, h)
	if err != nil {
		return nil, fmt.Errorf("upload error: %w", err)
	}
	finish()

	return &ObjectInfo{
		Name:        o.name,
		Size:        pw.written,
		ETag:        out["Etag"],
		ContentType: o.opts.ContentType,
	}, nil
}
