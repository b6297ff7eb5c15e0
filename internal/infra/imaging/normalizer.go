// Package imaging приводит фотографии к единому виду перед загрузкой и анализом.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	_ "image/png" // регистрирует декодер PNG
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"

	"food-diary/internal/domain"
)

const (
	// DefaultMaxWidth максимальная ширина после нормализации.
	DefaultMaxWidth = 800
	// DefaultQuality качество JPEG после нормализации.
	DefaultQuality = 80
	// DefaultMaxPixels предел ширина×высота до декодирования.
	DefaultMaxPixels = 40_000_000
	// ContentTypeJPEG тип результата.
	ContentTypeJPEG = "image/jpeg"
)

// Normalizer уменьшает изображение до MaxWidth и перекодирует в JPEG.
// Результат зависит только от входных байтов. Снимки больше MaxPixels
// отклоняются по заголовку, без декодирования пикселей.
type Normalizer struct {
	MaxWidth  int
	Quality   int
	MaxPixels int
}

var _ domain.ImageNormalizer = (*Normalizer)(nil)

// NewNormalizer создаёт нормализатор с параметрами по умолчанию.
func NewNormalizer() *Normalizer {
	return &Normalizer{MaxWidth: DefaultMaxWidth, Quality: DefaultQuality, MaxPixels: DefaultMaxPixels}
}

// Normalize декодирует изображение, уменьшает ширину до MaxWidth без увеличения
// маленьких снимков, заливает прозрачность белым и кодирует JPEG.
func (n *Normalizer) Normalize(img domain.Image) (domain.Image, error) {
	if img.Empty() {
		return domain.Image{}, domain.Normalization(errors.New("image is empty"))
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(img.Data))
	if err != nil {
		return domain.Image{}, domain.Normalization(fmt.Errorf("decode config: %w", err))
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return domain.Image{}, domain.Normalization(errors.New("image has zero dimensions"))
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(n.maxPixels()) {
		return domain.Image{}, domain.Normalization(fmt.Errorf("image %dx%d exceeds %d pixels", cfg.Width, cfg.Height, n.maxPixels()))
	}

	src, _, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return domain.Image{}, domain.Normalization(fmt.Errorf("decode: %w", err))
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return domain.Image{}, domain.Normalization(errors.New("image has zero dimensions"))
	}
	targetW, targetH := width, height
	if maxW := n.maxWidth(); width > maxW {
		targetW = maxW
		targetH = height * maxW / width
		if targetH < 1 {
			targetH = 1
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	if targetW == width && targetH == height {
		draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: n.quality()}); err != nil {
		return domain.Image{}, domain.Normalization(fmt.Errorf("encode: %w", err))
	}

	return domain.Image{
		Data:        buf.Bytes(),
		Size:        int64(buf.Len()),
		Filename:    jpegName(img.Filename),
		ContentType: ContentTypeJPEG,
	}, nil
}

func (n *Normalizer) maxWidth() int {
	if n.MaxWidth <= 0 {
		return DefaultMaxWidth
	}
	return n.MaxWidth
}

func (n *Normalizer) maxPixels() int {
	if n.MaxPixels <= 0 {
		return DefaultMaxPixels
	}
	return n.MaxPixels
}

func (n *Normalizer) quality() int {
	if n.Quality <= 0 || n.Quality > 100 {
		return DefaultQuality
	}
	return n.Quality
}

func jpegName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "image.jpg"
	}
	return strings.TrimSuffix(name, filepath.Ext(name)) + ".jpg"
}
