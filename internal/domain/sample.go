package domain

// Sample is the unit yielded by a dataset stream: a CHW image tensor, the
// scalar training target, and the row's metadata. Samples are assembled
// lazily at iteration time and never persisted.
type Sample struct {
	Image    Tensor
	Target   float32
	Metadata map[string]any
}
