package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

type objectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
}

// MinioUploader resizes images locally and stores them in an S3 bucket.
type MinioUploader struct {
	client    objectPutter
	bucket    string
	publicURL string
	log       *zerolog.Logger
}

func NewMinioUploader(cfg MinioConfig, log *zerolog.Logger) (*MinioUploader, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return newMinioUploader(client, cfg, log), nil
}

func newMinioUploader(client objectPutter, cfg MinioConfig, log *zerolog.Logger) *MinioUploader {
	public := cfg.PublicURL
	if public == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		public = scheme + "://" + cfg.Endpoint + "/" + cfg.Bucket
	}
	return &MinioUploader{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(public, "/"),
		log:       log,
	}
}

func (u *MinioUploader) Name() string { return "minio" }

func (u *MinioUploader) Upload(ctx context.Context, imageData string, opts UploadOptions) (*UploadResult, error) {
	img, err := DecodeDataURI(imageData)
	if err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	body, mime, ext := u.bound(img, opts.MaxEdge)
	key := path.Join(opts.Folder, uuid.NewString()+"."+ext)

	info, err := u.client.PutObject(ctx, u.bucket, key, bytes.NewReader(body), int64(len(body)),
		minio.PutObjectOptions{ContentType: mime})
	if err != nil {
		return nil, &UploadError{Provider: u.Name(), Err: err}
	}

	size := info.Size
	if size == 0 {
		size = int64(len(body))
	}
	return &UploadResult{
		SecureURL: u.publicURL + "/" + key,
		Bytes:     size,
		Format:    ext,
	}, nil
}

// bound shrinks the image so its longest edge fits maxEdge. Formats the
// decoder does not know are stored untouched.
func (u *MinioUploader) bound(img *Image, maxEdge int) ([]byte, string, string) {
	src, err := imaging.Decode(bytes.NewReader(img.Data), imaging.AutoOrientation(true))
	if err != nil {
		if u.log != nil {
			u.log.Debug().Err(err).Str("mime", img.MIME).Msg("storing image without resizing")
		}
		return img.Data, img.MIME, img.Ext
	}

	dst := imaging.Fit(src, maxEdge, maxEdge, imaging.Lanczos)

	var buf bytes.Buffer
	if img.MIME == "image/png" {
		if err := imaging.Encode(&buf, dst, imaging.PNG); err == nil {
			return buf.Bytes(), "image/png", "png"
		}
		buf.Reset()
	}
	if err := imaging.Encode(&buf, dst, imaging.JPEG, imaging.JPEGQuality(82)); err != nil {
		return img.Data, img.MIME, img.Ext
	}
	return buf.Bytes(), "image/jpeg", "jpg"
}
