package loader

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/klauspost/compress/zip"
)

// MemberType narrows archive members by basename prefix.
type MemberType string

const (
	MemberAll       MemberType = "all"
	MemberApp       MemberType = "app"
	MemberErrorLogs MemberType = "error"
)

// ParseMemberType converts a name to a MemberType. Empty means all.
func ParseMemberType(s string) (MemberType, error) {
	switch t := MemberType(strings.ToLower(strings.TrimSpace(s))); t {
	case "", MemberAll:
		return MemberAll, nil
	case MemberApp, MemberErrorLogs:
		return t, nil
	default:
		return "", fmt.Errorf("unknown member type %q (must be all, app, or error)", s)
	}
}

// Selection decides which archive members are loaded when the caller does
// not name them explicitly.
type Selection struct {
	// Prefixes are accepted basename prefixes (case-insensitive). Empty
	// accepts every basename.
	Prefixes []string

	// Include holds doublestar patterns a member name must match.
	Include []string

	// Skip holds doublestar patterns that exclude a member.
	Skip []string

	// From and To bound the member date, inclusive. Zero means unbounded.
	From time.Time
	To   time.Time

	Type MemberType
}

// DefaultSelection returns the selection used when nothing is configured.
func DefaultSelection() Selection {
	return Selection{
		Prefixes: []string{"app", "error"},
		Include:  []string{"**/*.log", "**/*.log.gz"},
		Skip:     []string{"__MACOSX/**", "**/._*"},
		Type:     MemberAll,
	}
}

// Member describes one loadable file inside an archive.
type Member struct {
	Name string `json:"name"`

	// Date is the first YYYY-MM-DD found in the name. Members without a
	// valid date are dated the day after the listing was made.
	Date    time.Time `json:"date"`
	HasDate bool      `json:"has_date"`

	Size int64 `json:"size"`
}

var memberDatePattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

// memberDate extracts the date embedded in name.
func memberDate(name string, now time.Time) (time.Time, bool) {
	if m := memberDatePattern.FindString(name); m != "" {
		if d, err := time.Parse("2006-01-02", m); err == nil {
			return d, true
		}
	}
	y, mo, d := now.UTC().Date()
	return time.Date(y, mo, d+1, 0, 0, 0, 0, time.UTC), false
}

// eligible reports whether name is a log file that is not skipped and
// matches the include patterns.
func (s Selection) eligible(name string) bool {
	for _, p := range s.Skip {
		if ok, _ := doublestar.Match(p, name); ok {
			return false
		}
	}
	for _, p := range s.Include {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}

// accepts applies the prefix, type and date constraints to an eligible
// member.
func (s Selection) accepts(m Member) bool {
	base := strings.ToLower(path.Base(m.Name))

	if len(s.Prefixes) > 0 && !hasAnyPrefix(base, s.Prefixes) {
		return false
	}

	switch s.Type {
	case MemberApp, MemberErrorLogs:
		if !strings.HasPrefix(base, string(s.Type)) {
			return false
		}
	}

	if !s.From.IsZero() && m.Date.Before(s.From) {
		return false
	}
	if !s.To.IsZero() && m.Date.After(s.To) {
		return false
	}
	return true
}

func hasAnyPrefix(base string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(base, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// Select returns the names of the members accepted by s, in input order.
func (s Selection) Select(members []Member) []string {
	var names []string
	for _, m := range members {
		if s.accepts(m) {
			names = append(names, m.Name)
		}
	}
	return names
}

// ListMembers lists the regular log files in the archive at path that the
// selection's include and skip patterns allow, in archive order.
func (l *Loader) ListMembers(path string) ([]Member, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, &ArchiveError{Path: path, Err: err}
	}
	defer zr.Close()

	return l.listMembers(zr.File), nil
}

func (l *Loader) listMembers(files []*zip.File) []Member {
	now := l.now()
	var members []Member
	for _, f := range files {
		if f.FileInfo().IsDir() || !l.selection.eligible(f.Name) {
			continue
		}
		date, ok := memberDate(f.Name, now)
		members = append(members, Member{
			Name:    f.Name,
			Date:    date,
			HasDate: ok,
			Size:    int64(f.UncompressedSize64),
		})
	}
	return members
}
