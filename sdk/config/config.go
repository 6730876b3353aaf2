// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package config

// Backends understood by blobstore.Open.
const (
	BackendCloudFiles = "cloudfiles"
	BackendS3         = "s3"
)

// Rackspace v1 auth endpoints. The UK endpoint is the alternate region.
const (
	USAuthURL = "https://auth.api.rackspacecloud.com/v1.0"
	UKAuthURL = "https://lon.auth.api.rackspacecloud.com/v1.0"
)

// Config is everything the sdk needs to open a blob store session.
// It is built once per invocation and passed by value (no viper/INI here).
type Config struct {
	Backend     string
	Credentials Credentials
	CloudFiles  CloudFilesConfig
	S3          S3Config
	UserAgent   string
}

type Credentials struct {
	Username string
	APIKey   string
}

type CloudFilesConfig struct {
	// AuthURL overrides the regional endpoint when set
	AuthURL    string
	UK         bool
	ServiceNet bool
}

// ResolvedAuthURL returns the auth endpoint honouring the override and the
// alternate region flag.
func (c CloudFilesConfig) ResolvedAuthURL() string {
	switch {
	case c.AuthURL != "":
		return c.AuthURL
	case c.UK:
		return UKAuthURL
	default:
		return USAuthURL
	}
}

type S3Config struct {
	Region      string
	EndpointURL string
	PublicURL   string
}

// BackendName defaults an empty backend to Cloud Files.
func (c Config) BackendName() string {
	if c.Backend == "" {
		return BackendCloudFiles
	}
	return c.Backend
}
