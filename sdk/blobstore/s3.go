// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/cfupload/cfupload/sdk/config"
)

// Files above this size go through the multipart uploader.
const multipartThreshold = 100 * 1024 * 1024

const defaultS3Region = "us-east-1"

// S3Session is the S3-compatible backend. The username is the access key id
// and the API key the secret.
type S3Session struct {
	s3     *s3.Client
	conf   config.S3Config
	region string
}

func OpenS3(ctx context.Context, conf config.Config) (*S3Session, error) {
	region := conf.S3.Region
	if region == "" {
		region = defaultS3Region
	}

	creds := aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
		conf.Credentials.Username,
		conf.Credentials.APIKey,
		"",
	))

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(creds),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Options := func(o *s3.Options) {
		if conf.S3.EndpointURL != "" {
			o.BaseEndpoint = aws.String(conf.S3.EndpointURL)
			o.UsePathStyle = true // required by most S3-compatible stores
		}
	}

	return &S3Session{
		s3:     s3.NewFromConfig(cfg, s3Options),
		conf:   conf.S3,
		region: region,
	}, nil
}

func (s *S3Session) Container(ctx context.Context, name string) (Container, error) {
	_, err := s.s3.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(name)})
	if err != nil {
		return nil, classifyS3Error(err, name)
	}
	return &s3Container{session: s, name: name}, nil
}

// Close is a no-op: the AWS client holds no session state to release.
func (s *S3Session) Close() error {
	return nil
}

var (
	s3NotFoundCodes = []string{"NotFound", "NoSuchBucket"}
	s3AuthCodes     = []string{"InvalidAccessKeyId", "SignatureDoesNotMatch", "Forbidden", "AccessDenied", "ExpiredToken"}
)

func classifyS3Error(err error, bucket string) error {
	var ae smithy.APIError
	if errors.As(err, &ae) {
		code := ae.ErrorCode()
		for _, c := range s3NotFoundCodes {
			if code == c {
				return fmt.Errorf("%w: %s", ErrContainerNotFound, bucket)
			}
		}
		for _, c := range s3AuthCodes {
			if code == c {
				return fmt.Errorf("%w: %s", ErrAuthentication, ae.ErrorMessage())
			}
		}
	}
	return fmt.Errorf("failed to read bucket %s: %w", bucket, err)
}

type s3Container struct {
	session *S3Session
	name    string
}

func (c *s3Container) CreateObject(name string, opts ObjectOptions) Object {
	return &s3Object{container: c, key: name, opts: opts}
}

// IsPublic reports the bucket policy status. A bucket without a policy is
// private.
func (c *s3Container) IsPublic(ctx context.Context) (bool, error) {
	out, err := c.session.s3.GetBucketPolicyStatus(ctx, &s3.GetBucketPolicyStatusInput{
		Bucket: aws.String(c.name),
	})
	if err != nil {
		var ae smithy.APIError
		if errors.As(err, &ae) && ae.ErrorCode() == "NoSuchBucketPolicy" {
			return false, nil
		}
		return false, fmt.Errorf("failed to read bucket policy status: %w", err)
	}
	if out.PolicyStatus == nil {
		return false, nil
	}
	return aws.ToBool(out.PolicyStatus.IsPublic), nil
}

func (c *s3Container) PublicURL(ctx context.Context) (string, error) {
	public, err := c.IsPublic(ctx)
	if err != nil || !public {
		return "", err
	}
	return s3PublicBase(c.session.conf, c.session.region, c.name), nil
}

// s3PublicBase picks, in order: the configured public URL, the custom
// endpoint in path style, the AWS virtual-hosted URL.
func s3PublicBase(conf config.S3Config, region, bucket string) string {
	if conf.PublicURL != "" {
		return strings.TrimSuffix(conf.PublicURL, "/")
	}
	if conf.EndpointURL != "" {
		return strings.TrimSuffix(conf.EndpointURL, "/") + "/" + url.PathEscape(bucket)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
}

type s3Object struct {
	container *s3Container
	key       string
	opts      ObjectOptions
}

func (o *s3Object) putInput(body io.Reader) *s3.PutObjectInput {
	input := &s3.PutObjectInput{
		Bucket: aws.String(o.container.name),
		Key:    aws.String(o.key),
		Body:   body,
	}
	if o.opts.ContentType != "" {
		input.ContentType = aws.String(o.opts.ContentType)
	}
	if o.opts.TransID != "" {
		input.Metadata = map[string]string{"trans-id": o.opts.TransID}
	}
	return input
}

// WriteFromStream always goes through the multipart uploader, which reads
// part by part and never needs the total length.
func (o *s3Object) WriteFromStream(ctx context.Context, r io.Reader) (*ObjectInfo, error) {
	reader, pw, finish := tracked(r, o.key, -1, o.opts.Progress)
	out, err := manager.NewUploader(o.container.session.s3).Upload(ctx, o.putInput(reader))
	if err != nil {
		return nil, fmt.Errorf("upload error: %w", err)
	}
	finish()
	return &ObjectInfo{
		Name:        o.key,
		Size:        pw.written,
		ETag:        aws.ToString(out.ETag),
		ContentType: o.opts.ContentType,
	}, nil
}

func (o *s3Object) WriteFromFile(ctx context.Context, path string) (*ObjectInfo, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open local file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat error: %w", err)
	}
	size := info.Size()

	var etag string
	if size > multipartThreshold {
		reader, _, finish := tracked(file, o.key, size, o.opts.Progress)
		out, err := manager.NewUploader(o.container.session.s3).Upload(ctx, o.putInput(reader))
		if err != nil {
			return nil, fmt.Errorf("upload error: %w", err)
		}
		finish()
		etag = aws.ToString(out.ETag)
	} else {
		// PutObject needs a seekable body to sign the payload, so the
		// file goes as is and progress only sees start and end.
		_, _, finish := tracked(nil, o.key, size, o.opts.Progress)
		input := o.putInput(file)
		input.ContentLength = aws.Int64(size)
		out, err := o.container.session.s3.PutObject(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("upload error: %w", err)
		}
		finish()
		etag = aws.ToString(out.ETag)
	}

	return &ObjectInfo{
		Name:        o.key,
		Size:        size,
		ETag:        etag,
		ContentType: o.opts.ContentType,
	}, nil
}
