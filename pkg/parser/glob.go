package parser

import (
	"fmt"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
)

// ExpandGlobs turns source arguments into a sorted, deduplicated list of
// files. Arguments may be plain paths or doublestar patterns. An argument
// that matches nothing is kept verbatim so the loader reports it as missing.
func ExpandGlobs(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		if !doublestar.ValidatePathPattern(arg) {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", arg, doublestar.ErrBadPattern)
		}

		matches, err := doublestar.FilepathGlob(arg, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("expanding %q: %w", arg, err)
		}
		if len(matches) == 0 {
			matches = []string{arg}
		}
		files = append(files, matches...)
	}

	slices.Sort(files)
	return slices.Compact(files), nil
}
