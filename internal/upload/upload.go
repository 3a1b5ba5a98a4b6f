// Package upload stages multipart file uploads on local disk for handlers
package upload

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Aidin1998/visitante_sonoro/internal/media"
	apierrors "github.com/Aidin1998/visitante_sonoro/pkg/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const fileContextKey = "upload.file"

// MsgUnsupportedType is returned for files that are not png or jpeg
const MsgUnsupportedType = "Only .png, .jpg and .jpeg format allowed"

var allowedTypes = map[string]bool{
	"image/png":  true,
	"image/jpg":  true,
	"image/jpeg": true,
}

type Config struct {
	Dir      string
	MaxBytes int64
}

// Stager parses a single optional file field into Dir
type Stager struct {
	cfg    Config
	logger *zap.Logger
}

func NewStager(cfg Config, logger *zap.Logger) (*Stager, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &Stager{cfg: cfg, logger: logger}, nil
}

// Single stages the file posted under field, if any, and removes it once
// the rest of the chain has run. Requests without the field pass through.
func (s *Stager) Single(field string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !strings.HasPrefix(c.ContentType(), "multipart/form-data") {
			c.Next()
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxBytes+1<<20)
		header, err := c.FormFile(field)
		if errors.Is(err, http.ErrMissingFile) {
			c.Next()
			return
		}
		if err != nil {
			s.reject(c, fmt.Sprintf("invalid multipart body: %v", err))
			return
		}
		if header.Size > s.cfg.MaxBytes {
			s.reject(c, fmt.Sprintf("file exceeds %d bytes", s.cfg.MaxBytes))
			return
		}

		mimeType := header.Header.Get("Content-Type")
		if !allowedTypes[mimeType] {
			s.reject(c, MsgUnsupportedType)
			return
		}

		name := filepath.Base(header.Filename)
		dst := filepath.Join(s.cfg.Dir, fmt.Sprintf("%d-%s", time.Now().UnixNano(), name))
		if err := c.SaveUploadedFile(header, dst); err != nil {
			s.logger.Error("Failed to stage upload", zap.String("file", name), zap.Error(err))
			_ = c.Error(apierrors.Internal.Explain("failed to store upload").Wrap(err))
			c.Abort()
			return
		}
		defer func() {
			if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
				s.logger.Warn("Failed to remove staged upload", zap.String("path", dst), zap.Error(err))
			}
		}()

		c.Set(fileContextKey, &media.File{
			OriginalName: name,
			Path:         dst,
			MimeType:     mimeType,
			Size:         header.Size,
		})
		c.Next()
	}
}

func (s *Stager) reject(c *gin.Context, detail string) {
	_ = c.Error(apierrors.Invalid.Explain("%s", detail))
	c.Abort()
}

// File returns the staged file of the request, or nil
func File(c *gin.Context) *media.File {
	v, ok := c.Get(fileContextKey)
	if !ok {
		return nil
	}
	f, _ := v.(*media.File)
	return f
}
