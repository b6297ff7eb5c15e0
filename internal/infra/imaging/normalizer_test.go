package imaging

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"food-diary/internal/domain"
)

func pngImage(t *testing.T, w, h int, alpha uint8) domain.Image {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x % 256), G: uint8(y % 256), B: 120, A: alpha})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return domain.Image{Data: buf.Bytes(), Size: int64(buf.Len()), Filename: "lunch.png", ContentType: "image/png"}
}

func decodeJPEG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err, "результат должен быть JPEG")
	return img
}

func TestNormalizeDownscalesWideImage(t *testing.T) {
	n := NewNormalizer()
	out, err := n.Normalize(pngImage(t, 1600, 900, 255))
	require.NoError(t, err)

	img := decodeJPEG(t, out.Data)
	assert.Equal(t, 800, img.Bounds().Dx())
	assert.Equal(t, 450, img.Bounds().Dy())
	assert.Equal(t, "image/jpeg", out.ContentType)
	assert.Equal(t, "lunch.jpg", out.Filename)
	assert.Equal(t, int64(len(out.Data)), out.Size)
}

func TestNormalizeDoesNotEnlarge(t *testing.T) {
	out, err := NewNormalizer().Normalize(pngImage(t, 320, 240, 255))
	require.NoError(t, err)

	img := decodeJPEG(t, out.Data)
	assert.Equal(t, 320, img.Bounds().Dx())
	assert.Equal(t, 240, img.Bounds().Dy())
}

func TestNormalizeIsDeterministic(t *testing.T) {
	in := pngImage(t, 1024, 768, 255)
	n := NewNormalizer()

	first, err := n.Normalize(in)
	require.NoError(t, err)
	second, err := n.Normalize(in)
	require.NoError(t, err)

	assert.True(t, bytes.Equal(first.Data, second.Data), "одинаковый вход должен давать одинаковые байты")
}

func TestNormalizeFlattensTransparency(t *testing.T) {
	out, err := NewNormalizer().Normalize(pngImage(t, 16, 16, 0))
	require.NoError(t, err)

	r, g, b, _ := decodeJPEG(t, out.Data).At(8, 8).RGBA()
	assert.Greater(t, r>>8, uint32(240))
	assert.Greater(t, g>>8, uint32(240))
	assert.Greater(t, b>>8, uint32(240))
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	n := NewNormalizer()

	_, err := n.Normalize(domain.Image{Data: []byte("definitely not an image"), Filename: "x.jpg"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNormalization)

	_, err = n.Normalize(domain.Image{})
	assert.ErrorIs(t, err, domain.ErrNormalization)
}

func TestNormalizeCustomLimits(t *testing.T) {
	n := &Normalizer{MaxWidth: 100, Quality: 50}
	out, err := n.Normalize(pngImage(t, 400, 400, 255))
	require.NoError(t, err)
	assert.Equal(t, 100, decodeJPEG(t, out.Data).Bounds().Dx())
}

// pngHeader собирает PNG только из сигнатуры и IHDR: заголовок заявляет
// размеры, а пиксельных данных нет.
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], w)
	binary.BigEndian.PutUint32(ihdr[4:8], h)
	ihdr[8] = 8 // глубина
	ihdr[9] = 0 // grayscale

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	chunk := append([]byte("IHDR"), ihdr...)
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestNormalizeRejectsHugeDimensions(t *testing.T) {
	data := pngHeader(60000, 60000)
	_, err := NewNormalizer().Normalize(domain.Image{Data: data, Size: int64(len(data)), Filename: "bomb.png"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNormalization)
	assert.Contains(t, err.Error(), "exceeds")
}

func TestNormalizeRejectsOverPixelBudget(t *testing.T) {
	n := &Normalizer{MaxPixels: 100 * 100}

	_, err := n.Normalize(pngImage(t, 101, 100, 255))
	assert.ErrorIs(t, err, domain.ErrNormalization)

	out, err := n.Normalize(pngImage(t, 100, 100, 255))
	require.NoError(t, err)
	assert.Equal(t, 100, decodeJPEG(t, out.Data).Bounds().Dx())
}

func TestJPEGName(t *testing.T) {
	assert.Equal(t, "image.jpg", jpegName(""))
	assert.Equal(t, "photo.jpg", jpegName("photo.jpeg"))
	assert.Equal(t, "a.b.jpg", jpegName("a.b.png"))
	assert.Equal(t, "noext.jpg", jpegName("noext"))
}
