// Package grid holds the raster algorithms that run on plain row-major
// slices: focal sums, connected component labelling, Horn slope, Sobel
// derivatives and external contour tracing.
package grid
