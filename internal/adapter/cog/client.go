// Package cog fetches image crops from a cloud-optimized GeoTIFF tiler.
//
// The tiler (e.g. titiler) serves per-band PNG crops for a bounding box. The
// client requests each spectral band separately and stacks the planes into a
// single [C, H, W] tensor.
package cog

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/carbonwatch/emissions-dataprep/internal/domain"
	"github.com/carbonwatch/emissions-dataprep/internal/observability"
)

// defaultBands is the true-color band order used when a row does not name
// its own bands.
var defaultBands = []string{"B04", "B03", "B02"}

// Client implements domain.ImageFetcher against a COG tiler's crop endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a tiler client.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		logger:  logger,
		metrics: metrics,
	}
}

// Fetch requests one crop per band and stacks them into a [C, H, W] tensor.
// The crop window comes from the row geometry's bounding box.
func (c *Client) Fetch(ctx context.Context, src domain.ImageSource, geom domain.Geometry, sizePx int) (domain.Tensor, error) {
	if src.URL == "" {
		return domain.Tensor{}, fmt.Errorf("image source has no URL")
	}
	if geom.IsZero() {
		return domain.Tensor{}, fmt.Errorf("image source %s has no geometry", src.URL)
	}

	bands := src.Bands
	if len(bands) == 0 {
		bands = defaultBands
	}

	minLon, minLat, maxLon, maxLat := geom.Bounds()
	bbox := fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", minLon, minLat, maxLon, maxLat)

	start := time.Now()
	img := domain.NewTensor(len(bands), sizePx, sizePx)
	for i, band := range bands {
		plane, err := c.fetchBand(ctx, src.URL, band, bbox, sizePx)
		if err != nil {
			c.metrics.FetchRequests.WithLabelValues("error").Inc()
			return domain.Tensor{}, fmt.Errorf("band %s: %w", band, err)
		}
		copy(img.Data[i*sizePx*sizePx:(i+1)*sizePx*sizePx], plane)
	}

	c.metrics.FetchRequests.WithLabelValues("success").Inc()
	c.metrics.FetchDuration.Observe(time.Since(start).Seconds())
	return img, nil
}

func (c *Client) fetchBand(ctx context.Context, cogURL, band, bbox string, sizePx int) ([]float32, error) {
	params := url.Values{
		"url":    {cogURL},
		"bidx":   {band},
		"bbox":   {bbox},
		"width":  {strconv.Itoa(sizePx)},
		"height": {strconv.Itoa(sizePx)},
	}
	fullURL := c.baseURL + "/crop?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "image/png")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("crop request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("tiler error: status %d: %s", resp.StatusCode, body)
	}

	decoded, err := png.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode crop: %w", err)
	}
	return flattenPlane(decoded, sizePx)
}

// flattenPlane converts a single-band crop to row-major float32 pixel values.
// Sentinel-2 reflectance arrives as 16-bit grayscale; 8-bit crops are kept on
// their native 0-255 scale.
func flattenPlane(img image.Image, sizePx int) ([]float32, error) {
	b := img.Bounds()
	if b.Dx() != sizePx || b.Dy() != sizePx {
		return nil, fmt.Errorf("crop is %dx%d, want %dx%d", b.Dx(), b.Dy(), sizePx, sizePx)
	}

	plane := make([]float32, sizePx*sizePx)
	switch typed := img.(type) {
	case *image.Gray:
		for y := 0; y < sizePx; y++ {
			for x := 0; x < sizePx; x++ {
				plane[y*sizePx+x] = float32(typed.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
	case *image.Gray16:
		for y := 0; y < sizePx; y++ {
			for x := 0; x < sizePx; x++ {
				plane[y*sizePx+x] = float32(typed.Gray16At(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
	default:
		for y := 0; y < sizePx; y++ {
			for x := 0; x < sizePx; x++ {
				g := color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
				plane[y*sizePx+x] = float32(g.Y)
			}
		}
	}
	return plane, nil
}
