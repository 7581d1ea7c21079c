package diagram

import "github.com/mattn/go-runewidth"

// Footprint returns the box size of a node showing label in a monospace
// font whose cells are px wide.
func Footprint(label string, px float64) (w, h float64) {
	return float64(runewidth.StringWidth(label)+4) * px, 4.8 * px
}
