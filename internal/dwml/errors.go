package dwml

import "fmt"

// MalformedBlockError reports a block or tag sequence whose closing token
// was not found. The error is localized: parsing continues past the
// offending opener, so well-formed sibling blocks still land in the
// document.
type MalformedBlockError struct {
	// Offset is the byte offset of the unterminated opener in the input.
	Offset int

	// Expected is the closing token that was not found, e.g. "=q=meta=e=".
	Expected string
}

func (e *MalformedBlockError) Error() string {
	return fmt.Sprintf("malformed block at byte %d: expected closer %q", e.Offset, e.Expected)
}
