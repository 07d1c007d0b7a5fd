package imagestore

import (
	"bytes"
	"context"
	"fmt"
	stdimage "image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"path"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/barter-hub/barter-hub/internal/domain/image"
)

const jpegQuality = 85

var allowedTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// Processor checks an upload, shrinks it to fit maxDimension and hands the
// result to a Store.
type Processor struct {
	store        image.Store
	maxDimension int
	logger       zerolog.Logger
}

// NewProcessor creates a processor. A maxDimension of zero keeps originals.
func NewProcessor(store image.Store, maxDimension int, logger zerolog.Logger) *Processor {
	return &Processor{
		store:        store,
		maxDimension: maxDimension,
		logger:       logger.With().Str("service", "imagestore").Logger(),
	}
}

// Process stores upload under folder and returns its public reference.
func (p *Processor) Process(ctx context.Context, folder string, upload image.Upload) (string, error) {
	if upload.Size() == 0 {
		return "", fmt.Errorf("%w: %s", image.ErrEmpty, upload.Name)
	}
	if upload.Size() > image.MaxFileSize {
		return "", &image.TooLargeError{Name: upload.Name, Size: upload.Size(), Limit: image.MaxFileSize}
	}
	mt := mimetype.Detect(upload.Data)
	if !mimetype.EqualsAny(mt.String(), allowedTypes...) {
		return "", fmt.Errorf("%w: %s is %s", image.ErrUnsupportedType, upload.Name, mt.String())
	}

	data, contentType, ext, err := p.fit(upload.Data, mt)
	if err != nil {
		return "", fmt.Errorf("resize %q: %w", upload.Name, err)
	}
	key := path.Join(folder, uuid.NewString()+ext)
	ref, err := p.store.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), contentType)
	if err != nil {
		return "", err
	}
	p.logger.Debug().Str("key", key).Int("bytes", len(data)).Msg("image stored")
	return ref, nil
}

// fit returns the bytes to store. Images within bounds are kept as sent;
// larger ones are scaled down and re-encoded as JPEG or PNG.
func (p *Processor) fit(data []byte, mt *mimetype.MIME) ([]byte, string, string, error) {
	if p.maxDimension <= 0 {
		return data, mt.String(), mt.Extension(), nil
	}
	cfg, _, err := stdimage.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", "", err
	}
	w, h := scaledSize(cfg.Width, cfg.Height, p.maxDimension)
	if w == cfg.Width && h == cfg.Height {
		return data, mt.String(), mt.Extension(), nil
	}

	src, _, err := stdimage.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", "", err
	}
	dst := stdimage.NewRGBA(stdimage.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if mt.Is("image/jpeg") {
		if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return nil, "", "", err
		}
		return buf.Bytes(), "image/jpeg", ".jpg", nil
	}
	if err := png.Encode(&buf, dst); err != nil {
		return nil, "", "", err
	}
	return buf.Bytes(), "image/png", ".png", nil
}

// scaledSize shrinks w x h so the longer side is at most limit, keeping the
// aspect ratio.
func scaledSize(w, h, limit int) (int, int) {
	if w <= limit && h <= limit {
		return w, h
	}
	if w >= h {
		return limit, max(1, h*limit/w)
	}
	return max(1, w*limit/h), limit
}

var _ image.Processor = (*Processor)(nil)
