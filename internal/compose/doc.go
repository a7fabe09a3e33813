// Package compose renders comic pages from panel images.
//
// A page starts as a white canvas; each panel image is letterboxed into the
// placement the layout engine assigned it (scaled to fit, never cropped,
// centered on both axes) and a fixed-width black border is stroked around
// every placement. Pages are written as PNG files in the job's staging
// directory.
package compose
