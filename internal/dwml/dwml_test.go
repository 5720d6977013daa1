package dwml

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLog = `=d=meta=w=
=x= file;|./notes.txt|; =z=
=x= version;|av1r2|; =z=
=x= saves;|3|; =z=
=x= updated;|2026-01-15T10:00:00Z|; =z=
=q=meta=e=

=d=history=w=
=dw=
=x= 2026-01-15T09:00:00Z;|initialized|; =z=
=wd=
=dw=
=#= burst of edits =o=
=x= 2026-01-15T09:05:00Z;|save:1|; =z=
=+=new line one=o=
=+=  indented line=o=
=-=old line=o=
=wd=
=q=history=e=
`

func TestParseBlocksAndFields(t *testing.T) {
	doc, err := Parse(sampleLog)
	require.NoError(t, err)
	require.Len(t, doc.Blocks, 2)

	meta := doc.Block("meta")
	require.NotNil(t, meta)
	assert.Equal(t, "./notes.txt", meta.Get("file"))
	assert.Equal(t, "av1r2", meta.Get("version"))
	assert.Equal(t, "3", meta.Get("saves"))
	assert.Empty(t, meta.Groups)

	history := doc.Block("history")
	require.NotNil(t, history)
	require.Len(t, history.Groups, 2)

	save := history.Groups[1]
	assert.Equal(t, "save:1", save.Get("2026-01-15T09:05:00Z"))
	assert.Equal(t, []string{"new line one", "  indented line"}, save.Added)
	assert.Equal(t, []string{"old line"}, save.Removed)
	assert.Equal(t, []string{"burst of edits"}, save.Comments)
}

func TestParseListValues(t *testing.T) {
	content := "=d=meta=w=\n=x= watchers;|/a|12|t1|;,;|/b|34|t2|; =z=\n=q=meta=e=\n"
	doc, err := Parse(content)
	require.NoError(t, err)

	got := doc.Block("meta").GetList("watchers")
	// Values containing "|" survive because only the "|;" terminator ends
	// a value.
	assert.Equal(t, []string{"/a|12|t1", "/b|34|t2"}, got)
}

func TestParseEmptyValue(t *testing.T) {
	content := "=d=meta=w=\n=x= refs;||; =z=\n=q=meta=e=\n"
	doc, err := Parse(content)
	require.NoError(t, err)
	assert.Equal(t, []string{""}, doc.Block("meta").GetList("refs"))
}

func TestParseIgnoresSurroundingProse(t *testing.T) {
	content := "Dear diary, today =d= happened.\n\n" + sampleLog + "\nThe end.\n"
	doc, err := Parse(content)
	require.NoError(t, err)
	assert.Len(t, doc.Blocks, 2)
}

// Round-trip: parse(render(parse(x))) must be structurally equal to
// parse(x) for anything this codec produced.
func TestRoundTrip(t *testing.T) {
	first, err := Parse(sampleLog)
	require.NoError(t, err)

	second, err := Parse(first.Render())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// And render is idempotent from there on.
	assert.Equal(t, first.Render(), second.Render())
}

func TestRoundTripBuiltDocument(t *testing.T) {
	doc := NewDocument()
	meta := doc.AddBlock("meta")
	meta.Comments = append(meta.Comments, "tracked file")
	meta.Set("file", "./a b.txt")
	meta.Set("refs", "")
	meta.Set("tracked", "./a.txt=av1r1", "./b.txt=bv2r3")

	history := doc.AddBlock("history")
	g := history.AddGroup()
	g.Set("2026-01-15T10:00:00Z", "save:1")
	g.Added = []string{"a line with ;| inside", "trailing spaces  "}
	g.Removed = []string{""}

	parsed, err := Parse(doc.Render())
	require.NoError(t, err)
	assert.Equal(t, doc, parsed)
}

func TestMalformedBlockLocalized(t *testing.T) {
	content := "=d=meta=w=\n=x= a;|1|; =z=\n" + // no closer
		"=d=history=w=\n=dw=\n=wd=\n=q=history=e=\n"
	doc, err := Parse(content)

	var mbe *MalformedBlockError
	require.ErrorAs(t, err, &mbe)
	assert.Equal(t, 0, mbe.Offset)
	assert.Equal(t, "=q=meta=e=", mbe.Expected)

	// The well-formed sibling still parses.
	require.Len(t, doc.Blocks, 1)
	assert.Equal(t, "history", doc.Blocks[0].Name)
}

func TestMalformedGroupAndField(t *testing.T) {
	content := "=d=history=w=\n=dw=\n=x= a;|1|;\n=q=history=e=\n"
	_, err := Parse(content)
	require.Error(t, err)

	var mbe *MalformedBlockError
	require.ErrorAs(t, err, &mbe)
	assert.Equal(t, "=wd=", mbe.Expected)
}

func TestMalformedFieldLine(t *testing.T) {
	content := "=d=meta=w=\n=x= a;|1|;\n=q=meta=e=\n"
	doc, err := Parse(content)
	require.Error(t, err)

	var mbe *MalformedBlockError
	require.ErrorAs(t, err, &mbe)
	assert.Equal(t, "=z=", mbe.Expected)

	// The block itself still exists; only the field line was dropped.
	require.NotNil(t, doc.Block("meta"))
	assert.Empty(t, doc.Block("meta").Fields)
}

func TestHasAndExtractBlock(t *testing.T) {
	assert.True(t, HasBlock(sampleLog, "meta"))
	assert.True(t, HasBlock(sampleLog, "history"))
	assert.False(t, HasBlock(sampleLog, "config"))

	inner, ok := ExtractBlock(sampleLog, "meta")
	require.True(t, ok)
	assert.Contains(t, inner, "file;|./notes.txt|;")
	assert.NotContains(t, inner, "=d=meta=w=")
}

func TestStripBlock(t *testing.T) {
	content := "=d=meta=w=\n=x= a;|1|; =z=\n=q=meta=e=\n\nbody text\n"
	assert.Equal(t, "body text\n", StripBlock(content, "meta"))
	assert.Equal(t, content, StripBlock(content, "other"))
}

func TestUpdateFieldValue(t *testing.T) {
	content := "=d=meta=w=\n=dw=\n=x= version;|av1r1|; =z=\n=x= refs;||; =z=\n=wd=\n=q=meta=e=\n\nbody\n"

	updated, changed := UpdateFieldValue(content, "meta", "version", "av1r2")
	assert.True(t, changed)
	assert.Contains(t, updated, "version;|av1r2|;")
	assert.NotContains(t, updated, "av1r1")
	// The rest of the document is untouched.
	assert.True(t, strings.HasSuffix(updated, "body\n"))

	// Absent field is inserted inside the group.
	updated, changed = UpdateFieldValue(updated, "meta", "update", "2026-01-15T10:00:00Z")
	assert.True(t, changed)
	doc, err := Parse(updated)
	require.NoError(t, err)
	assert.Equal(t, "2026-01-15T10:00:00Z", doc.Block("meta").Groups[0].Get("update"))

	// Unknown block is a no-op.
	_, changed = UpdateFieldValue(content, "config", "version", "x")
	assert.False(t, changed)
}

func TestMalformedErrorsJoined(t *testing.T) {
	content := "=d=a=w=\n" + "=d=b=w=\n"
	_, err := Parse(content)
	require.Error(t, err)

	// Both unterminated blocks are reported.
	count := 0
	for _, e := range strings.Split(err.Error(), "\n") {
		if strings.Contains(e, "expected closer") {
			count++
		}
	}
	assert.Equal(t, 2, count)
	assert.True(t, errors.As(err, new(*MalformedBlockError)))
}
