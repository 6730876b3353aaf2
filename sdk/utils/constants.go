// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils

const (
	IniName            = ".cfupload.ini"
	CurrentEnvironment = "current_environment"
	UpdatedEnvKey      = "updated_environment"

	// viper keys; see Settings for env names and defaults
	APIKey       = "apikey"
	Username     = "username"
	Container    = "container"
	AuthURL      = "auth_url"
	UK           = "uk"
	ServiceNet   = "servicenet"
	Backend      = "backend"
	S3Region     = "s3_region"
	S3Endpoint   = "s3_endpoint_url"
	S3PublicURL  = "s3_public_url"
	Destination  = "destination"
	ContentType  = "content_type"
	Quiet        = "quiet"
	Verbose      = "verbose"
	Progress     = "progress"
	OutputFormat = "output"
	Profile      = "profile"
	ConfigFile   = "config"
)

var Formats = map[string][]string{
	"short": {"text", ""},
	"json":  {},
	"yaml":  {"yml"},
}
