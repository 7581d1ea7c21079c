package layout

// Hint presets per node family. Function boxes pack their tags in wide
// rows, ADT boxes in even wider ones so access-kind groups sit side by
// side, and the column-like groups stack their members.
var (
	FnHints     = Hints{Direction: Right, AspectRatio: 5, Center: true, Padding: 8, Spacing: 8}
	TagHints    = Hints{Direction: Right, AspectRatio: 5, Center: true, Padding: 6, Spacing: 6}
	AdtHints    = Hints{Direction: Right, AspectRatio: 10, Padding: 12, Spacing: 16}
	GroupHints  = Hints{Direction: Down, AspectRatio: 1.5, Center: true, Padding: 10, Spacing: 10}
	FieldsHints = Hints{Direction: Down, AspectRatio: 1.5, Padding: 10, Spacing: 10}
)

// Top-level spacing shared by the native engines.
const (
	RankSpacing = 50
	NodeSpacing = 50
)
