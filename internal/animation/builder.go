// Package animation assembles the rolling animated timeline published per
// city from its most recent satellite frames.
package animation

import (
	"bytes"
	"context"
	"image"
	"sort"
	"strings"
	"time"

	"github.com/kettek/apng"
	"github.com/rs/zerolog"
	xdraw "golang.org/x/image/draw"

	"github.com/rcastellanos/climawatch/internal/artifact"
	"github.com/rcastellanos/climawatch/internal/metrics"

	_ "image/jpeg"
	_ "image/png"
)

const (
	frameExt      = ".jpg"
	animationName = "animation.png"
)

// Builder rebuilds a city's animation artifact from its frame window.
//
// Rebuild never panics past its boundary: every internal error degrades to
// a logged failure result.
type Builder struct {
	store   artifact.Store
	window  int           // how many recent frames make up the animation
	delay   time.Duration // inter-frame delay
	maxSide int           // decoded frames larger than this are downscaled
	log     zerolog.Logger
}

// NewBuilder creates a Builder. window and maxSide fall back to 10 and
// 600 when non-positive; delay falls back to 400ms.
func NewBuilder(store artifact.Store, window int, delay time.Duration, maxSide int, log zerolog.Logger) *Builder {
	if window <= 0 {
		window = 10
	}
	if maxSide <= 0 {
		maxSide = 600
	}
	if delay <= 0 {
		delay = 400 * time.Millisecond
	}
	return &Builder{
		store:   store,
		window:  window,
		delay:   delay,
		maxSide: maxSide,
		log:     log,
	}
}

// Rebuild regenerates and publishes {code}/animation.png from the city's
// most recent frames. Returns false when no animation was published:
// fewer than two usable frames, or a store/encode failure.
func (b *Builder) Rebuild(ctx context.Context, code string) bool {
	log := b.log.With().Str("city", code).Logger()

	infos, err := b.store.List(ctx, code+"/")
	if err != nil {
		log.Error().Err(err).Msg("listing frames failed")
		metrics.AnimationsBuilt.WithLabelValues("failure").Inc()
		return false
	}

	keys := selectWindow(infos, b.window)
	if len(keys) < 2 {
		log.Info().Int("frames", len(keys)).Msg("not enough frames for an animation")
		metrics.AnimationsBuilt.WithLabelValues("failure").Inc()
		return false
	}

	delayMS := b.delay.Milliseconds()
	anim := apng.APNG{Frames: make([]apng.Frame, 0, len(keys))}

	// Frames are streamed one at a time: the raw bytes and the full-size
	// decode of each frame are released before the next download, so the
	// working set stays bounded by window × maxSide².
	for _, key := range keys {
		img, err := b.loadFrame(ctx, key)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("skipping frame")
			continue
		}

		anim.Frames = append(anim.Frames, apng.Frame{
			Image:            img,
			DelayNumerator:   uint16(delayMS),
			DelayDenominator: 1000,
		})
	}

	if len(anim.Frames) < 2 {
		log.Warn().Int("frames", len(anim.Frames)).Msg("not enough usable frames after processing")
		metrics.AnimationsBuilt.WithLabelValues("failure").Inc()
		return false
	}

	var buf bytes.Buffer
	if err := apng.Encode(&buf, anim); err != nil || buf.Len() == 0 {
		log.Error().Err(err).Msg("encoding animation failed")
		metrics.AnimationsBuilt.WithLabelValues("failure").Inc()
		return false
	}

	key := code + "/" + animationName
	if err := b.store.Put(ctx, key, buf.Bytes(), "image/png"); err != nil {
		log.Error().Err(err).Msg("publishing animation failed")
		metrics.AnimationsBuilt.WithLabelValues("failure").Inc()
		return false
	}

	log.Info().Int("frames", len(anim.Frames)).Int("bytes", buf.Len()).Msg("animation published")
	metrics.AnimationsBuilt.WithLabelValues("success").Inc()
	return true
}

func (b *Builder) loadFrame(ctx context.Context, key string) (image.Image, error) {
	data, err := b.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	return b.bound(img), nil
}

// bound downscales img so neither side exceeds maxSide, preserving aspect
// ratio. CatmullRom keeps the cloud texture crisp at animation scale.
func (b *Builder) bound(img image.Image) image.Image {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	if w <= b.maxSide && h <= b.maxSide {
		return img
	}

	scale := float64(b.maxSide) / float64(w)
	if h > w {
		scale = float64(b.maxSide) / float64(h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, int(float64(w)*scale), int(float64(h)*scale)))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return dst
}

// selectWindow picks the n most recently modified frame keys and returns
// them in chronological order, the animation's playback order. The
// animation artifact itself and non-frame objects are excluded.
func selectWindow(infos []artifact.ObjectInfo, n int) []string {
	frames := make([]artifact.ObjectInfo, 0, len(infos))
	for _, info := range infos {
		if strings.HasSuffix(info.Key, frameExt) {
			frames = append(frames, info)
		}
	}

	sort.Slice(frames, func(i, j int) bool {
		return frames[i].LastModified.After(frames[j].LastModified)
	})
	if len(frames) > n {
		frames = frames[:n]
	}

	keys := make([]string, len(frames))
	for i, info := range frames {
		keys[len(frames)-1-i] = info.Key
	}
	return keys
}
