package types

import (
	"strings"
	"time"
)

// Header is the tracking block embedded at the top of every tracked text
// file. A file without a well-formed header is untracked and invisible to
// every operation except fix.
type Header struct {
	File    string    // project-relative path, "./" prefixed
	Version Version   // current version identifier
	Log     string    // project-relative path of the history log
	Update  time.Time // time of the last recorded event
	Refs    []string  // related-file lineage links (branch/copy sources)
}

// RefsValue renders the refs set in its persisted pipe-delimited form.
func (h Header) RefsValue() string {
	if len(h.Refs) == 0 {
		return ""
	}
	return strings.Join(h.Refs, "|") + "|"
}

// ParseRefs splits a persisted refs value into its path list. Empty
// segments are dropped, so both "a|b|" and "a|b" parse to [a b].
func ParseRefs(value string) []string {
	if value == "" {
		return nil
	}
	var refs []string
	for _, r := range strings.Split(value, "|") {
		r = strings.TrimSpace(r)
		if r != "" {
			refs = append(refs, r)
		}
	}
	return refs
}

// AddRef appends ref to the set if not already present.
func (h *Header) AddRef(ref string) {
	for _, r := range h.Refs {
		if r == ref {
			return
		}
	}
	h.Refs = append(h.Refs, ref)
}
