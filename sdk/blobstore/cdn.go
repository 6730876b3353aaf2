// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package blobstore

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// cdnClient talks to the Cloud Files CDN management endpoint returned by
// the v1 auth response (X-Cdn-Management-Url).
type cdnClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
	userAgent  string
}

type cdnInfo struct {
	Enabled bool
	URI     string
}

func newCDNClient(httpClient *http.Client, baseURL, token, userAgent string) *cdnClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &cdnClient{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		userAgent:  userAgent,
	}
}

func (c *cdnClient) buildURL(container string) string {
	return c.baseURL + "/" + url.PathEscape(container)
}

// containerInfo HEADs the container on the CDN endpoint. A 404 means the
// container was never CDN-enabled.
func (c *cdnClient) containerInfo(ctx context.Context, container string) (*cdnInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.buildURL(container), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Auth-Token", c.token)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cdn request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &cdnInfo{}, nil
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: cdn responded with: %s", ErrAuthentication, resp.Status)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("cdn responded with: %s", resp.Status)
	}

	return &cdnInfo{
		Enabled: strings.EqualFold(resp.Header.Get("X-Cdn-Enabled"), "true"),
		URI:     resp.Header.Get("X-Cdn-Uri"),
	}, nil
}
