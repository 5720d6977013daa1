package dwml

import (
	"errors"
	"strings"
)

// Parse reads DWML content into a document. Arbitrary literal text outside
// blocks (tracked prose) is ignored; value content inside fields is taken
// verbatim, so parsing never fails on document text.
//
// An opener with no matching closer yields a *MalformedBlockError carrying
// the byte offset of the opener and the expected closing token. The failure
// is localized: parsing resumes after the opener, so every well-formed
// block still lands in the returned document. Multiple failures are joined.
func Parse(content string) (*Document, error) {
	doc := NewDocument()
	var errs []error

	pos := 0
	for {
		i := strings.Index(content[pos:], tokBlockOpenPre)
		if i < 0 {
			break
		}
		openAt := pos + i
		name, ok := scanName(content[openAt+len(tokBlockOpenPre):])
		if !ok {
			// A stray "=d=" in prose, not a block opener.
			pos = openAt + len(tokBlockOpenPre)
			continue
		}

		bodyStart := openAt + len(tokBlockOpenPre) + len(name) + len(tokBlockOpenPost)
		closer := tokBlockClosePre + name + tokBlockClosePost
		j := strings.Index(content[bodyStart:], closer)
		if j < 0 {
			errs = append(errs, &MalformedBlockError{Offset: openAt, Expected: closer})
			pos = bodyStart
			continue
		}

		block := doc.AddBlock(name)
		errs = append(errs, parseBlockBody(block, content[bodyStart:bodyStart+j], bodyStart)...)
		pos = bodyStart + j + len(closer)
	}

	return doc, errors.Join(errs...)
}

// scanName reads the block name immediately following "=d=". The name is a
// run of word characters terminated by "=w=".
func scanName(s string) (string, bool) {
	end := 0
	for end < len(s) && isWordByte(s[end]) {
		end++
	}
	if end == 0 || !strings.HasPrefix(s[end:], tokBlockOpenPost) {
		return "", false
	}
	return s[:end], true
}

func isWordByte(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}

// parseBlockBody splits the body into groups and block-level lines. base is
// the byte offset of body within the original input.
func parseBlockBody(b *Block, body string, base int) []error {
	var errs []error

	pos := 0
	for {
		i := strings.Index(body[pos:], tokGroupOpen)
		if i < 0 {
			errs = append(errs, parseLines(&b.Fields, &b.Comments, nil, nil, body[pos:], base+pos)...)
			break
		}
		at := pos + i
		errs = append(errs, parseLines(&b.Fields, &b.Comments, nil, nil, body[pos:at], base+pos)...)

		gStart := at + len(tokGroupOpen)
		j := strings.Index(body[gStart:], tokGroupClose)
		if j < 0 {
			errs = append(errs, &MalformedBlockError{Offset: base + at, Expected: tokGroupClose})
			pos = gStart
			continue
		}
		g := b.AddGroup()
		errs = append(errs, parseLines(&g.Fields, &g.Comments, &g.Added, &g.Removed, body[gStart:gStart+j], base+gStart)...)
		pos = gStart + j + len(tokGroupClose)
	}

	return errs
}

// parseLines parses line-oriented content (fields, comments, diff lines)
// into the given targets. added and removed are nil at block level, where
// diff lines cannot occur.
func parseLines(fields *[]Field, comments *[]string, added, removed *[]string, s string, base int) []error {
	var errs []error

	at := base
	for _, raw := range strings.Split(s, "\n") {
		lineAt := at
		at += len(raw) + 1

		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, tokComment):
			text, ok := strings.CutSuffix(line[len(tokComment):], tokLineClose)
			if !ok {
				errs = append(errs, &MalformedBlockError{Offset: lineAt, Expected: tokLineClose})
				break
			}
			*comments = append(*comments, strings.TrimSpace(text))

		case strings.HasPrefix(line, tokAdded):
			text, ok := strings.CutSuffix(line[len(tokAdded):], tokLineClose)
			if !ok {
				errs = append(errs, &MalformedBlockError{Offset: lineAt, Expected: tokLineClose})
				break
			}
			if added != nil {
				// Content between the markers is verbatim; diff lines keep
				// their own leading and trailing spaces.
				*added = append(*added, text)
			}

		case strings.HasPrefix(line, tokRemoved):
			text, ok := strings.CutSuffix(line[len(tokRemoved):], tokLineClose)
			if !ok {
				errs = append(errs, &MalformedBlockError{Offset: lineAt, Expected: tokLineClose})
				break
			}
			if removed != nil {
				*removed = append(*removed, text)
			}

		case strings.HasPrefix(line, tokFieldOpen):
			inner, ok := strings.CutSuffix(line[len(tokFieldOpen):], tokFieldClose)
			if !ok {
				errs = append(errs, &MalformedBlockError{Offset: lineAt, Expected: tokFieldClose})
				break
			}
			if f, ok := parseFieldLine(strings.TrimSpace(inner)); ok {
				*fields = append(*fields, f)
			}
		}
	}

	return errs
}

// parseFieldLine parses "key;|value|;" with optional ",;|value|;"
// repetitions for list values. The key is everything up to the first ";|"
// (history entries key fields by timestamp, so keys are not plain words).
// Values are taken verbatim up to the "|;" terminator; the grammar has no
// escaping.
func parseFieldLine(inner string) (Field, bool) {
	idx := strings.Index(inner, ";|")
	if idx <= 0 {
		return Field{}, false
	}
	key := strings.TrimSpace(inner[:idx])
	if key == "" || strings.ContainsAny(key, " \t") {
		return Field{}, false
	}
	f := Field{Key: key}

	rest := inner[idx:]
	for strings.HasPrefix(rest, ";|") {
		idx := strings.Index(rest[2:], "|;")
		if idx < 0 {
			return Field{}, false
		}
		f.Values = append(f.Values, rest[2:2+idx])
		rest = rest[2+idx+2:]
		if !strings.HasPrefix(rest, ",") {
			break
		}
		rest = rest[1:]
	}
	if len(f.Values) == 0 {
		return Field{}, false
	}
	return f, true
}
