package filter

import "errors"

// ErrNoIndex is reported in Visible.SearchErr when a search is requested
// but no full-text index is available.
var ErrNoIndex = errors.New("full-text index unavailable")
