package types

import (
	"fmt"
	"regexp"
	"strconv"
)

// versionPattern matches the <base>v<major>r<revision> identifier format,
// e.g. "av1r1" or "bv3r12".
var versionPattern = regexp.MustCompile(`^([a-z])v([0-9]+)r([0-9]+)$`)

// Version is a three-part revision identifier. Base is the lineage marker
// (advanced only by a rebase), Major increments on a merge from a branch
// file, Revision increments on every bump.
type Version struct {
	Base     byte
	Major    int
	Revision int
}

// InitialVersion is the identifier every freshly tracked file starts at.
var InitialVersion = Version{Base: 'a', Major: 1, Revision: 1}

// ParseVersion parses a version identifier string. Returns
// ErrVersionMalformed if the string does not match <base>v<major>r<revision>.
func ParseVersion(s string) (Version, error) {
	m := versionPattern.FindStringSubmatch(s)
	if m == nil {
		return Version{}, fmt.Errorf("%w: %q", ErrVersionMalformed, s)
	}
	major, err := strconv.Atoi(m[2])
	if err != nil {
		return Version{}, fmt.Errorf("%w: %q", ErrVersionMalformed, s)
	}
	revision, err := strconv.Atoi(m[3])
	if err != nil {
		return Version{}, fmt.Errorf("%w: %q", ErrVersionMalformed, s)
	}
	return Version{Base: m[1][0], Major: major, Revision: revision}, nil
}

// IsValidVersion reports whether s parses as a version identifier.
func IsValidVersion(s string) bool {
	_, err := ParseVersion(s)
	return err == nil
}

// String renders the identifier in its canonical <base>v<major>r<revision>
// form.
func (v Version) String() string {
	return fmt.Sprintf("%cv%dr%d", v.Base, v.Major, v.Revision)
}

// IsZero reports whether v is the zero value (not a parsed identifier).
func (v Version) IsZero() bool {
	return v.Base == 0
}

// BumpRevision returns the next revision within the same major:
// av1r1 -> av1r2.
func (v Version) BumpRevision() Version {
	v.Revision++
	return v
}

// BumpMajor returns the next major with the revision reset, used when
// merging content back from a branch file: av1r5 -> av2r1.
func (v Version) BumpMajor() Version {
	v.Major++
	v.Revision = 1
	return v
}

// NextBase returns the start of a new lineage: base letter advanced, major
// and revision reset. After 'z' the base wraps back to 'a'.
func (v Version) NextBase() Version {
	if v.Base == 'z' {
		v.Base = 'a'
	} else {
		v.Base++
	}
	v.Major = 1
	v.Revision = 1
	return v
}

// SameLineage reports whether two identifiers share a base letter. A base
// change between the header and the log signals an out-of-band rebase.
func (v Version) SameLineage(o Version) bool {
	return v.Base == o.Base
}
