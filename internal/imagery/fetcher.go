// Package imagery acquires satellite snapshots for tracked cities and
// composites the marker overlay onto them.
package imagery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/PuerkitoBio/goquery"
)

var (
	// ErrUpstreamUnavailable indicates a non-success status from the
	// imagery service or the icon source.
	ErrUpstreamUnavailable = errors.New("imagery upstream unavailable")
	// ErrMalformedResponse indicates the imagery page did not contain the
	// expected image reference.
	ErrMalformedResponse = errors.New("malformed imagery page")
	// ErrDecode indicates bytes that are not a decodable raster image.
	ErrDecode = errors.New("image not decodable")
	// ErrIconUnavailable indicates the marker icon could not be fetched.
	// Recoverable: the compositor falls back to the plain frame.
	ErrIconUnavailable = errors.New("marker icon unavailable")
)

// Fetcher retrieves satellite snapshots for geographic points. The imagery
// service serves an HTML page per point; the actual image URL is discovered
// from the page's first <img> reference.
//
// No retries happen at this layer; callers isolate failures per city.
type Fetcher struct {
	pageClient  *http.Client // page + small payloads
	imageClient *http.Client // image download, longer timeouts
	baseURL     string
	satellite   string
	palette     string
}

// NewFetcher creates a Fetcher. pageClient and imageClient are shared
// process-wide and injected; imageClient should carry the longer timeout
// pair since image payloads are larger.
func NewFetcher(pageClient, imageClient *http.Client, baseURL, satellite, palette string) *Fetcher {
	return &Fetcher{
		pageClient:  pageClient,
		imageClient: imageClient,
		baseURL:     baseURL,
		satellite:   satellite,
		palette:     palette,
	}
}

// Snapshot returns the raw bytes of the current satellite snapshot
// centered on the given coordinates.
func (f *Fetcher) Snapshot(ctx context.Context, lat, lon float64) ([]byte, error) {
	pageURL := f.pageURL(lat, lon)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.pageClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: page status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}

	imgURL, err := f.discoverImageURL(resp.Body)
	if err != nil {
		return nil, err
	}

	return f.download(ctx, imgURL)
}

func (f *Fetcher) pageURL(lat, lon float64) string {
	values := url.Values{}
	values.Set("satellite", f.satellite)
	values.Set("lat", fmt.Sprintf("%f", lat))
	values.Set("lon", fmt.Sprintf("%f", lon))
	values.Set("quality", "100")
	values.Set("palette", f.palette)
	values.Set("colorbar", "0")
	values.Set("mapcolor", "white")

	return fmt.Sprintf("%s/cgi-bin/get-abi?%s", f.baseURL, values.Encode())
}

// discoverImageURL parses the page HTML and resolves the first <img>
// reference against the service origin; references are usually root-relative.
func (f *Fetcher) discoverImageURL(body io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	src, ok := doc.Find("img").First().Attr("src")
	if !ok || src == "" {
		return "", fmt.Errorf("%w: no image tag found", ErrMalformedResponse)
	}

	base, err := url.Parse(f.baseURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	ref, err := url.Parse(src)
	if err != nil {
		return "", fmt.Errorf("%w: bad image reference %q", ErrMalformedResponse, src)
	}

	return base.ResolveReference(ref).String(), nil
}

func (f *Fetcher) download(ctx context.Context, imgURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imgURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.imageClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: image status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
