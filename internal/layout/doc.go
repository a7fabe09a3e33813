// Package layout computes panel placements on a comic page.
//
// A page is a fixed canvas with outer margins; panels occupy the usable area
// according to a named scheme. All arithmetic is integer pixel math so the
// same inputs always produce the same placements.
package layout
