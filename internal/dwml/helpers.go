package dwml

import (
	"regexp"
	"strings"
)

// BlockSpan locates the full span of the first block with the given name,
// delimiters included. Used for in-place header edits that must leave the
// surrounding document text untouched.
func BlockSpan(content, name string) (start, end int, ok bool) {
	opener := tokBlockOpenPre + name + tokBlockOpenPost
	closer := tokBlockClosePre + name + tokBlockClosePost

	i := strings.Index(content, opener)
	if i < 0 {
		return 0, 0, false
	}
	j := strings.Index(content[i:], closer)
	if j < 0 {
		return 0, 0, false
	}
	return i, i + j + len(closer), true
}

// HasBlock reports whether content contains a complete block with the
// given name.
func HasBlock(content, name string) bool {
	_, _, ok := BlockSpan(content, name)
	return ok
}

// ExtractBlock returns the raw inner content of the first block with the
// given name, without the delimiters.
func ExtractBlock(content, name string) (string, bool) {
	start, end, ok := BlockSpan(content, name)
	if !ok {
		return "", false
	}
	opener := tokBlockOpenPre + name + tokBlockOpenPost
	closer := tokBlockClosePre + name + tokBlockClosePost
	return content[start+len(opener) : end-len(closer)], true
}

// StripBlock returns content with the first block of the given name
// removed, along with any blank lines immediately following it.
func StripBlock(content, name string) string {
	start, end, ok := BlockSpan(content, name)
	if !ok {
		return content
	}
	rest := content[end:]
	for strings.HasPrefix(rest, "\n") {
		rest = rest[1:]
	}
	return content[:start] + rest
}

// UpdateFieldValue rewrites a single field inside the named block, leaving
// every other byte of content as-is. If the field is absent it is inserted
// before the block's first group closer (or before the block closer when
// the block has no groups). Returns the updated content and whether
// anything changed.
func UpdateFieldValue(content, blockName, key, value string) (string, bool) {
	start, end, ok := BlockSpan(content, blockName)
	if !ok {
		return content, false
	}
	block := content[start:end]
	line := tokFieldOpen + " " + key + ";|" + value + "|; " + tokFieldClose

	fieldRe := regexp.MustCompile(
		regexp.QuoteMeta(tokFieldOpen) + `\s*` + regexp.QuoteMeta(key) +
			`;\|.*?\|;(?:,;\|.*?\|;)*\s*` + regexp.QuoteMeta(tokFieldClose))

	var updated string
	if loc := fieldRe.FindStringIndex(block); loc != nil {
		updated = block[:loc[0]] + line + block[loc[1]:]
	} else if at := strings.Index(block, tokGroupClose); at >= 0 {
		updated = block[:at] + line + "\n" + block[at:]
	} else {
		closer := tokBlockClosePre + blockName + tokBlockClosePost
		at := strings.LastIndex(block, closer)
		updated = block[:at] + line + "\n" + block[at:]
	}

	if updated == block {
		return content, false
	}
	return content[:start] + updated + content[end:], true
}
