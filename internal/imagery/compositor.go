package imagery

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	_ "image/gif"
	_ "image/png"
)

const (
	// cropSide is the canonical square side of a published frame.
	cropSide = 400
	// iconWidth and iconYBias position the marker so its tip sits on the
	// frame center. Fixed visual-centering constants for the stock icon,
	// not derived from the icon dimensions.
	iconWidth = 19
	iconYBias = 26

	jpegQuality = 90
)

// Compositor overlays the marker icon on a snapshot and crops it to the
// canonical square. The icon is fetched once and reused across cities.
type Compositor struct {
	client  *http.Client
	iconURL string
	log     zerolog.Logger

	mu   sync.Mutex
	icon image.Image
}

// NewCompositor creates a Compositor using the shared short-timeout client.
func NewCompositor(client *http.Client, iconURL string, log zerolog.Logger) *Compositor {
	return &Compositor{
		client:  client,
		iconURL: iconURL,
		log:     log,
	}
}

// Compose decodes raw snapshot bytes, pastes the marker icon centered on
// the frame, crops to the canonical square, and re-encodes as JPEG.
//
// An unavailable icon degrades to returning the cropped frame without a
// marker; only an undecodable input is fatal.
func (c *Compositor) Compose(ctx context.Context, raw []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	canvas := toRGBA(src)

	icon, err := c.markerIcon(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("marker icon unavailable, publishing frame without marker")
	} else {
		b := canvas.Bounds()
		pos := image.Pt((b.Dx()-iconWidth)/2, b.Dy()/2-iconYBias)
		draw.Draw(canvas, icon.Bounds().Add(pos), icon, icon.Bounds().Min, draw.Over)
	}

	cropped := centerCrop(canvas, cropSide)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, cropped, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// markerIcon returns the cached icon, fetching it on first use. Fetch
// failures are not cached so a later run can recover.
func (c *Compositor) markerIcon(ctx context.Context) (image.Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.icon != nil {
		return c.icon, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.iconURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIconUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrIconUnavailable, resp.StatusCode)
	}

	icon, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIconUnavailable, err)
	}

	c.icon = icon
	return icon, nil
}

func toRGBA(src image.Image) *image.RGBA {
	if rgba, ok := src.(*image.RGBA); ok {
		return rgba
	}
	rgba := image.NewRGBA(src.Bounds())
	draw.Draw(rgba, rgba.Bounds(), src, src.Bounds().Min, draw.Src)
	return rgba
}

// centerCrop crops a centered side×side square, clamped to the image
// extents so inputs smaller than the crop never go out of range.
func centerCrop(img *image.RGBA, side int) image.Image {
	b := img.Bounds()

	left := b.Min.X + (b.Dx()-side)/2
	top := b.Min.Y + (b.Dy()-side)/2
	rect := image.Rect(left, top, left+side, top+side).Intersect(b)

	return img.SubImage(rect)
}
