package storage

import (
	apperrors "carrental/pkg/errors"
	"carrental/pkg/logger"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

const sniffLen = 512

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

// AllowedContentType reports whether images of this type can be stored.
func AllowedContentType(contentType string) bool {
	_, ok := extensions[contentType]
	return ok
}

// Sniff detects the type of r from its leading bytes. The returned reader
// yields the full content, including the bytes consumed for detection.
func Sniff(r io.Reader) (string, io.Reader, error) {
	if r == nil {
		return "", nil, errors.New("empty image body")
	}
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", nil, err
	}
	head = head[:n]
	return mimetype.Detect(head).String(), io.MultiReader(bytes.NewReader(head), r), nil
}

// Image is an upload. ContentType is advisory; Upload stores the type it
// detects from Body.
type Image struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

type ImageStore interface {
	Upload(ctx context.Context, prefix string, image Image) (string, error)
	Delete(ctx context.Context, url string) error
}

type ObjectClient interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type S3ImageStore struct {
	client  ObjectClient
	bucket  string
	baseURL string
	log     *logger.Logger
}

// NewS3ImageStore stores images in bucket. Without a public base URL the
// virtual-hosted S3 URL for region is used.
func NewS3ImageStore(client ObjectClient, bucket, region, publicBaseURL string, log *logger.Logger) *S3ImageStore {
	baseURL := strings.TrimSuffix(publicBaseURL, "/")
	if baseURL == "" && bucket != "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}
	return &S3ImageStore{
		client:  client,
		bucket:  bucket,
		baseURL: baseURL,
		log:     log,
	}
}

// Upload writes the image under cars/<prefix>/ and returns its public URL.
func (s *S3ImageStore) Upload(ctx context.Context, prefix string, image Image) (string, error) {
	if s.client == nil || s.bucket == "" {
		return "", apperrors.Unavailable("Image storage")
	}

	contentType, body, err := Sniff(image.Body)
	if err != nil {
		return "", apperrors.InvalidInput(fmt.Sprintf("cannot read %s", image.Name))
	}
	ext, ok := extensions[contentType]
	if !ok {
		s.log.Warn("Rejected image upload", "name", image.Name, "declared", image.ContentType, "detected", contentType)
		return "", apperrors.InvalidInput(fmt.Sprintf("unsupported image type: %s", contentType))
	}

	key := ObjectKey(prefix, image.Name, ext)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(image.Size),
		CacheControl:  aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		s.log.Error("Failed to upload image", "bucket", s.bucket, "key", key, "error", err)
		return "", apperrors.Internal("Failed to upload image", err)
	}

	s.log.Info("Image uploaded", "bucket", s.bucket, "key", key, "size", image.Size)
	return s.baseURL + "/" + key, nil
}

// Delete removes an object previously returned by Upload.
func (s *S3ImageStore) Delete(ctx context.Context, url string) error {
	if s.client == nil || s.bucket == "" {
		return apperrors.Unavailable("Image storage")
	}

	key, ok := strings.CutPrefix(url, s.baseURL+"/")
	if !ok || key == "" {
		return apperrors.InvalidInput(fmt.Sprintf("not a stored image: %s", url))
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		s.log.Error("Failed to delete image", "bucket", s.bucket, "key", key, "error", err)
		return apperrors.Internal("Failed to delete image", err)
	}

	s.log.Info("Image deleted", "bucket", s.bucket, "key", key)
	return nil
}

// ObjectKey builds cars/<prefix>/<slug>-<uuid><ext>. The random suffix keeps
// re-uploads of the same file name from overwriting each other.
func ObjectKey(prefix, name, ext string) string {
	base := slug.Make(strings.TrimSuffix(name, path.Ext(name)))
	if base == "" {
		base = "image"
	}
	return fmt.Sprintf("cars/%s/%s-%s%s", prefix, base, uuid.NewString(), ext)
}
