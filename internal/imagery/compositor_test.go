package imagery

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func encodePNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding test image: %v", err)
	}
	return buf.Bytes()
}

func newIconServer(t *testing.T) *httptest.Server {
	t.Helper()
	icon := encodePNG(t, 19, 30, color.RGBA{R: 255, A: 255})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(icon)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// TestComposeCropsToSquare verifies that a large snapshot is cropped to
// the canonical 400x400 frame and re-encoded as a decodable JPEG.
func TestComposeCropsToSquare(t *testing.T) {
	srv := newIconServer(t)
	c := NewCompositor(srv.Client(), srv.URL, zerolog.Nop())

	raw := encodePNG(t, 1000, 800, color.RGBA{B: 200, A: 255})
	out, err := c.Compose(context.Background(), raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	img, format, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output not decodable: %v", err)
	}
	if format != "jpeg" {
		t.Fatalf("expected jpeg output, got %s", format)
	}
	if img.Bounds().Dx() != 400 || img.Bounds().Dy() != 400 {
		t.Fatalf("expected 400x400 frame, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

// TestComposeSmallInputClamped verifies that inputs smaller than the crop
// square pass through at their own size instead of going out of range.
func TestComposeSmallInputClamped(t *testing.T) {
	srv := newIconServer(t)
	c := NewCompositor(srv.Client(), srv.URL, zerolog.Nop())

	raw := encodePNG(t, 120, 90, color.RGBA{G: 150, A: 255})
	out, err := c.Compose(context.Background(), raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	img, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output not decodable: %v", err)
	}
	if img.Bounds().Dx() != 120 || img.Bounds().Dy() != 90 {
		t.Fatalf("expected 120x90 frame, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

// TestComposeIconUnavailable verifies that an unreachable marker icon
// degrades to a plain frame instead of failing the city.
func TestComposeIconUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewCompositor(srv.Client(), srv.URL, zerolog.Nop())

	raw := encodePNG(t, 500, 500, color.RGBA{R: 10, G: 10, B: 10, A: 255})
	out, err := c.Compose(context.Background(), raw)
	if err != nil {
		t.Fatalf("expected graceful fallback, got error: %v", err)
	}

	img, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output not decodable: %v", err)
	}
	if img.Bounds().Dx() != 400 || img.Bounds().Dy() != 400 {
		t.Fatalf("expected 400x400 frame, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

// TestComposeUndecodableInput verifies that non-image bytes map to the
// decode error.
func TestComposeUndecodableInput(t *testing.T) {
	srv := newIconServer(t)
	c := NewCompositor(srv.Client(), srv.URL, zerolog.Nop())

	_, err := c.Compose(context.Background(), []byte("<html>this is not an image</html>"))
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

// TestMarkerIconCached verifies that the icon is fetched once and reused.
func TestMarkerIconCached(t *testing.T) {
	var hits int
	icon := encodePNG(t, 19, 30, color.RGBA{R: 255, A: 255})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write(icon)
	}))
	defer srv.Close()

	c := NewCompositor(srv.Client(), srv.URL, zerolog.Nop())

	raw := encodePNG(t, 500, 500, color.RGBA{A: 255})
	for i := 0; i < 3; i++ {
		if _, err := c.Compose(context.Background(), raw); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if hits != 1 {
		t.Fatalf("expected a single icon fetch, got %d", hits)
	}
}
