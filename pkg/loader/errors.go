package loader

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoMembers is wrapped in an ArchiveError when an archive yields no
// loadable member.
var ErrNoMembers = errors.New("no log members selected")

// ArchiveError reports an archive that could not be used at all. Nothing
// is loaded when it is returned.
type ArchiveError struct {
	Path string
	Err  error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("archive %s: %v", e.Path, e.Err)
}

func (e *ArchiveError) Unwrap() error {
	return e.Err
}

// DecodeError reports a source that none of the candidate encodings could
// decode.
type DecodeError struct {
	Name  string
	Tried []string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s: no candidate encoding fits (tried %s)",
		e.Name, strings.Join(e.Tried, ", "))
}

// MemberError reports one unreadable source within a multi-source load.
type MemberError struct {
	Name string
	Err  error
}

func (e *MemberError) Error() string {
	return fmt.Sprintf("member %s: %v", e.Name, e.Err)
}

func (e *MemberError) Unwrap() error {
	return e.Err
}

// MemberFailure is the recorded outcome of a MemberError.
type MemberFailure struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

func failure(err *MemberError) MemberFailure {
	return MemberFailure{Name: err.Name, Reason: err.Err.Error()}
}
