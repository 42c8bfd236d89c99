package domain

import "context"

// ImageFetcher crops satellite imagery for one observation.
type ImageFetcher interface {
	// Fetch resolves the image source, crops it to the row's geometry, and
	// returns a CHW float32 tensor of sizePx x sizePx pixels on the raw
	// 8-bit intensity scale.
	Fetch(ctx context.Context, src ImageSource, geom Geometry, sizePx int) (Tensor, error)
}
