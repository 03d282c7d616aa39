package media

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	DefaultFolder  = "wedding-photos"
	DefaultMaxEdge = 1200
)

var ErrInvalidImage = errors.New("image data is not a base64-encoded image")

type UploadOptions struct {
	Folder  string
	MaxEdge int
}

type UploadResult struct {
	SecureURL string
	Bytes     int64
	Format    string
}

// Uploader stores an image with a public host and returns where it lives.
type Uploader interface {
	Name() string
	Upload(ctx context.Context, imageData string, opts UploadOptions) (*UploadResult, error)
}

// UploadError wraps any failure of the remote host.
type UploadError struct {
	Provider string
	Err      error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("%s upload: %v", e.Provider, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// Image is a decoded upload payload.
type Image struct {
	Data []byte
	MIME string
	Ext  string
}

// DataURI renders the image back as a data URI.
func (i *Image) DataURI() string {
	return "data:" + i.MIME + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// DecodeDataURI accepts raw base64 or a data:<mime>;base64, URI and checks the
// payload really is an image. The declared MIME type is ignored.
func DecodeDataURI(s string) (*Image, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		idx := strings.Index(s, ",")
		if idx < 0 || !strings.HasSuffix(s[:idx], ";base64") {
			return nil, ErrInvalidImage
		}
		s = s[idx+1:]
	}
	if s == "" {
		return nil, ErrInvalidImage
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		if data, err = base64.RawStdEncoding.DecodeString(s); err != nil {
			return nil, ErrInvalidImage
		}
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, ErrInvalidImage
	}
	return &Image{Data: data, MIME: mt.String(), Ext: strings.TrimPrefix(mt.Extension(), ".")}, nil
}

func (o UploadOptions) withDefaults() UploadOptions {
	if o.Folder == "" {
		o.Folder = DefaultFolder
	}
	if o.MaxEdge <= 0 {
		o.MaxEdge = DefaultMaxEdge
	}
	return o
}
