package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/labassist/backend/internal/core/ports"
)

// S3Opener serves s3://bucket/key sources. The client is built on first use so
// hosts without AWS credentials only fail when an s3 source is requested.
type S3Opener struct {
	region   string
	endpoint string

	once    sync.Once
	client  *s3.Client
	initErr error
}

func NewS3Opener(region, endpoint string) *S3Opener {
	return &S3Opener{region: region, endpoint: endpoint}
}

func (o *S3Opener) getClient(ctx context.Context) (*s3.Client, error) {
	o.once.Do(func() {
		var opts []func(*awsconfig.LoadOptions) error
		if o.region != "" {
			opts = append(opts, awsconfig.WithRegion(o.region))
		}
		cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			o.initErr = fmt.Errorf("source: load aws config: %w", err)
			return
		}
		o.client = s3.NewFromConfig(cfg, func(so *s3.Options) {
			if o.endpoint != "" {
				so.BaseEndpoint = aws.String(o.endpoint)
				so.UsePathStyle = true
			}
		})
	})
	return o.client, o.initErr
}

func (o *S3Opener) Open(ctx context.Context, u *url.URL) (*ports.Artifact, error) {
	bucket := u.Host
	key := strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return nil, fmt.Errorf("%w: s3 url needs bucket and key: %s", ErrInvalidURL, u.String())
	}

	client, err := o.getClient(ctx)
	if err != nil {
		return nil, err
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("source: s3 get %s/%s: %w", bucket, key, err)
	}

	size := int64(-1)
	if out.ContentLength != nil {
		size = aws.ToInt64(out.ContentLength)
	}
	return &ports.Artifact{Body: out.Body, Size: size}, nil
}
