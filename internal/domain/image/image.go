package image

import (
	"context"
	"errors"
	"fmt"
	"io"
)

const (
	// MaxFileSize is the largest accepted upload, 10 MiB.
	MaxFileSize int64 = 10 << 20
	// MaxPerEntity is the image limit for one item or ad-hoc offer entry.
	MaxPerEntity = 5
)

var (
	ErrTooMany         = errors.New("too many images")
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrEmpty           = errors.New("image is empty")
	ErrStoreDisabled   = errors.New("image storage is not configured")
)

// TooLargeError reports a single file above MaxFileSize.
type TooLargeError struct {
	Name  string
	Size  int64
	Limit int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("image %q is %d bytes, limit is %d", e.Name, e.Size, e.Limit)
}

// Upload is an image received from a client and not yet stored.
type Upload struct {
	Name string
	Data []byte
}

func (u Upload) Size() int64 {
	return int64(len(u.Data))
}

// CheckBatch validates the count and sizes of one entity's uploads.
// Every oversize file is reported; the errors are joined.
func CheckBatch(uploads []Upload) error {
	var errs []error
	if len(uploads) > MaxPerEntity {
		errs = append(errs, fmt.Errorf("%w: %d given, at most %d allowed", ErrTooMany, len(uploads), MaxPerEntity))
	}
	for _, u := range uploads {
		if u.Size() > MaxFileSize {
			errs = append(errs, &TooLargeError{Name: u.Name, Size: u.Size(), Limit: MaxFileSize})
		}
	}
	return errors.Join(errs...)
}

// Store persists image bytes and returns a public reference.
type Store interface {
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
}

// Processor prepares an upload (type check, downscale) and stores it.
type Processor interface {
	Process(ctx context.Context, folder string, upload Upload) (string, error)
}
