package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"github.com/labassist/backend/internal/core/ports"
	"google.golang.org/api/option"
)

// GCSOpener serves gs://bucket/object sources.
type GCSOpener struct {
	credentialsFile string

	once    sync.Once
	client  *storage.Client
	initErr error
}

func NewGCSOpener(credentialsFile string) *GCSOpener {
	return &GCSOpener{credentialsFile: credentialsFile}
}

func (o *GCSOpener) getClient(ctx context.Context) (*storage.Client, error) {
	o.once.Do(func() {
		var opts []option.ClientOption
		if o.credentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(o.credentialsFile))
		}
		c, err := storage.NewClient(context.WithoutCancel(ctx), opts...)
		if err != nil {
			o.initErr = fmt.Errorf("source: gcs client: %w", err)
			return
		}
		o.client = c
	})
	return o.client, o.initErr
}

func (o *GCSOpener) Open(ctx context.Context, u *url.URL) (*ports.Artifact, error) {
	bucket := u.Host
	object := strings.TrimPrefix(u.Path, "/")
	if bucket == "" || object == "" {
		return nil, fmt.Errorf("%w: gs url needs bucket and object: %s", ErrInvalidURL, u.String())
	}

	client, err := o.getClient(ctx)
	if err != nil {
		return nil, err
	}

	r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("source: gcs read %s/%s: %w", bucket, object, err)
	}
	return &ports.Artifact{Body: r, Size: r.Attrs.Size}, nil
}

func (o *GCSOpener) Close() error {
	if o.client != nil {
		return o.client.Close()
	}
	return nil
}
