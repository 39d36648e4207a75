package services

import (
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"ripple/internal/config"
	"ripple/internal/core/domain"
)

// MediaEncoder validates an attachment against the configured limits and
// encodes it into the transportable data-URL form. The input byte source is
// consumed exactly once; there are no retries at this layer.
type MediaEncoder struct {
	allowed  map[string]struct{}
	maxBytes int64
	log      *slog.Logger
}

func NewMediaEncoder(log *slog.Logger, cfg config.MediaConfig) *MediaEncoder {
	allowed := make(map[string]struct{}, len(cfg.AllowedTypes))
	for _, t := range cfg.AllowedTypes {
		allowed[t] = struct{}{}
	}
	return &MediaEncoder{
		allowed:  allowed,
		maxBytes: cfg.MaxBytes,
		log:      log,
	}
}

func (e *MediaEncoder) Encode(raw *domain.RawMedia) (*domain.EncodedMedia, error) {
	if _, ok := e.allowed[raw.MimeType]; !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedMediaType, raw.MimeType)
	}
	if raw.SizeBytes > e.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes", domain.ErrMediaTooLarge, raw.SizeBytes)
	}
	// Trust the declared size only up to a point; read one byte past the
	// limit to catch sources that lied about it.
	data, err := io.ReadAll(io.LimitReader(raw.Data, e.maxBytes+1))
	if err != nil {
		e.log.Error("media - encode - source read failed", "mime_type", raw.MimeType, "err", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrMediaRead, err)
	}
	if int64(len(data)) > e.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes", domain.ErrMediaTooLarge, len(data))
	}
	return &domain.EncodedMedia{
		Kind:      mediaKind(raw.MimeType),
		MimeType:  raw.MimeType,
		SizeBytes: int64(len(data)),
		Payload:   "data:" + raw.MimeType + ";base64," + base64.StdEncoding.EncodeToString(data),
	}, nil
}

func mediaKind(mimeType string) domain.MediaKind {
	if strings.HasPrefix(mimeType, "video/") {
		return domain.MediaVideo
	}
	return domain.MediaImage
}

// ParseDataURL turns a browser-produced "data:<mime>;base64,<payload>"
// string back into a raw attachment for encoding.
func ParseDataURL(s string) (*domain.RawMedia, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return nil, fmt.Errorf("%w: missing data prefix", domain.ErrMediaRead)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, fmt.Errorf("%w: missing payload", domain.ErrMediaRead)
	}
	mimeType, enc, ok := strings.Cut(meta, ";")
	if !ok || enc != "base64" {
		return nil, fmt.Errorf("%w: unsupported data url encoding", domain.ErrMediaRead)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMediaRead, err)
	}
	return &domain.RawMedia{
		MimeType:  mimeType,
		SizeBytes: int64(len(data)),
		Data:      strings.NewReader(string(data)),
	}, nil
}
