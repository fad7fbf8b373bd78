// Package watermark защищает сгенерированные изображения видимыми водяными знаками.
package watermark

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/nfnt/resize"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"
)

const (
	captionText = "WoodCraft Studio - Confidential"
	previewText = "PREVIEW ONLY"

	dataURLPrefix = "data:image/png;base64,"
	maxImageSize  = 20 << 20
)

var (
	captionColor = color.NRGBA{R: 255, G: 255, B: 255, A: 128}
	previewColor = color.NRGBA{R: 255, G: 255, B: 255, A: 26}

	// ErrUnsupportedSource возвращается для адресов, которые нельзя загрузить.
	ErrUnsupportedSource = errors.New("unsupported image source")
)

// Options задаёт параметры загрузки и обработки изображения.
type Options struct {
	Client      *http.Client
	LoadTimeout time.Duration
	// MaxWidth ограничивает ширину результата; 0 отключает уменьшение.
	MaxWidth uint
	Logger   *zap.Logger
}

// Protector накладывает водяные знаки и возвращает результат как data URL.
type Protector struct {
	client   *http.Client
	timeout  time.Duration
	maxWidth uint
	logger   *zap.Logger
}

// NewProtector создаёт Protector.
func NewProtector(opts Options) *Protector {
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}
	timeout := opts.LoadTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Protector{
		client:   client,
		timeout:  timeout,
		maxWidth: opts.MaxWidth,
		logger:   logger,
	}
}

// Protect загружает изображение, накладывает подпись и диагональную надпись
// и возвращает PNG в виде data URL. При любой ошибке возвращается исходный адрес.
func (p *Protector) Protect(ctx context.Context, imageURL string) string {
	out, err := p.apply(ctx, imageURL)
	if err != nil {
		p.logger.Warn("watermark skipped, using original image", zap.Error(err))
		return imageURL
	}
	return out
}

func (p *Protector) apply(ctx context.Context, imageURL string) (string, error) {
	src, err := p.load(ctx, imageURL)
	if err != nil {
		return "", err
	}

	if p.maxWidth > 0 && uint(src.Bounds().Dx()) > p.maxWidth {
		src = resize.Resize(p.maxWidth, 0, src, resize.Lanczos3)
	}

	canvas := Apply(src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}

	return dataURLPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Apply рисует водяные знаки поверх копии src.
func Apply(src image.Image) *image.RGBA {
	b := src.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(canvas, canvas.Bounds(), src, b.Min, draw.Src)

	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(captionColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(50, 50),
	}
	d.DrawString(captionText)

	drawPreview(canvas)

	return canvas
}

// drawPreview рисует крупную надпись, повёрнутую на -45° вокруг центра изображения.
func drawPreview(dst *image.RGBA) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, previewText).Ceil()
	height := face.Metrics().Height.Ceil()

	label := image.NewNRGBA(image.Rect(0, 0, width, height))
	d := &font.Drawer{
		Dst:  label,
		Src:  image.NewUniform(previewColor),
		Face: face,
		Dot:  fixed.Point26_6{Y: face.Metrics().Ascent},
	}
	d.DrawString(previewText)

	scale := 48.0 / float64(height)
	angle := -math.Pi / 4
	cos, sin := math.Cos(angle)*scale, math.Sin(angle)*scale

	lx, ly := float64(width)/2, float64(height)/2
	cx, cy := float64(dst.Bounds().Dx())/2, float64(dst.Bounds().Dy())/2

	m := f64.Aff3{
		cos, -sin, cx - (cos*lx - sin*ly),
		sin, cos, cy - (sin*lx + cos*ly),
	}
	draw.BiLinear.Transform(dst, m, label, label.Bounds(), draw.Over, nil)
}

func (p *Protector) load(ctx context.Context, imageURL string) (image.Image, error) {
	var r io.Reader

	switch {
	case strings.HasPrefix(imageURL, "data:"):
		raw, err := decodeDataURL(imageURL)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(raw)
	case strings.HasPrefix(imageURL, "http://"), strings.HasPrefix(imageURL, "https://"):
		ctx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		resp, err := p.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("load image: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("load image: unexpected status %d", resp.StatusCode)
		}
		raw, err := io.ReadAll(io.LimitReader(resp.Body, maxImageSize))
		if err != nil {
			return nil, fmt.Errorf("read image: %w", err)
		}
		r = bytes.NewReader(raw)
	default:
		return nil, ErrUnsupportedSource
	}

	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

func decodeDataURL(s string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(s, "data:"), ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return nil, fmt.Errorf("%w: data url must be base64 encoded", ErrUnsupportedSource)
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode data url: %w", err)
	}
	return raw, nil
}
