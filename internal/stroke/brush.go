package stroke

import "sync/atomic"

// Brush size limits, in pixels.
const (
	MinBrushSize     = 2
	MaxBrushSize     = 30
	DefaultBrushSize = 6
)

// ClampBrushSize constrains n to [MinBrushSize, MaxBrushSize].
func ClampBrushSize(n int) int {
	if n < MinBrushSize {
		return MinBrushSize
	}
	if n > MaxBrushSize {
		return MaxBrushSize
	}
	return n
}

// Brush holds the externally controlled brush size.
// Writers and the drawing goroutine may race; reads are always whole values.
type Brush struct {
	size atomic.Int32
}

// NewBrush creates a Brush with the given size, clamped into range.
func NewBrush(size int) *Brush {
	b := &Brush{}
	b.Set(size)
	return b
}

// Size returns the current brush size.
func (b *Brush) Size() int {
	return int(b.size.Load())
}

// Set stores size clamped into range and returns the applied value and
// whether clamping changed it.
func (b *Brush) Set(size int) (applied int, clamped bool) {
	applied = ClampBrushSize(size)
	b.size.Store(int32(applied))
	return applied, applied != size
}

// Step adjusts the size by delta and returns the applied value.
func (b *Brush) Step(delta int) int {
	for {
		cur := b.size.Load()
		next := int32(ClampBrushSize(int(cur) + delta))
		if b.size.CompareAndSwap(cur, next) {
			return int(next)
		}
	}
}
