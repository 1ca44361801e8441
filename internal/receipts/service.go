// Package receipts stores the receipt image a coordinator attaches when a
// gift is bought.
package receipts

import (
	"context"
	"io"
	"strings"

	"giftcircle/internal/domain/domainerr"
	"github.com/google/uuid"
)

const DefaultMaxSize = 5 << 20

var (
	ErrUnsupportedType = domainerr.New(domainerr.KindValidation, "unsupported_receipt_type", "receipt must be a jpeg, png, webp or heic image")
	ErrTooLarge        = domainerr.New(domainerr.KindValidation, "receipt_too_large", "receipt image is too large")
	ErrEmpty           = domainerr.New(domainerr.KindValidation, "receipt_empty", "receipt image is empty")
)

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/heic": ".heic",
}

// Uploader writes an object and returns its public URL.
type Uploader interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
}

type Receipt struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

type Service struct {
	uploader Uploader
	maxSize  int64
	newID    func() string
}

func NewService(uploader Uploader, maxSize int64) *Service {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Service{uploader: uploader, maxSize: maxSize, newID: uuid.NewString}
}

func (s *Service) MaxSize() int64 {
	return s.maxSize
}

// Upload stores the image under receipts/<gift id>/<random><ext>.
func (s *Service) Upload(ctx context.Context, giftID, contentType string, size int64, body io.Reader) (Receipt, error) {
	giftID = strings.TrimSpace(giftID)
	if giftID == "" {
		return Receipt{}, domainerr.Validation("gift id is required")
	}
	contentType = normalizeContentType(contentType)
	ext, ok := extensions[contentType]
	if !ok {
		return Receipt{}, ErrUnsupportedType
	}
	if size <= 0 {
		return Receipt{}, ErrEmpty
	}
	if size > s.maxSize {
		return Receipt{}, ErrTooLarge
	}

	key := "receipts/" + giftID + "/" + s.newID() + ext
	url, err := s.uploader.Put(ctx, key, io.LimitReader(body, size), size, contentType)
	if err != nil {
		return Receipt{}, err
	}
	return Receipt{Key: key, URL: url}, nil
}

func normalizeContentType(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if i := strings.IndexByte(value, ';'); i >= 0 {
		value = strings.TrimSpace(value[:i])
	}
	if value == "image/jpg" {
		return "image/jpeg"
	}
	return value
}
