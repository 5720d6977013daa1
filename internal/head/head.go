// Package head manages the meta block embedded at the top of tracked text
// files: detection, parsing, creation and single-field rewrites that leave
// the user's prose untouched.
package head

import (
	"fmt"
	"os"
	"time"

	"github.com/dukaforge/docwire/internal/dwml"
	"github.com/dukaforge/docwire/pkg/types"
)

// BlockName is the name of the header block.
const BlockName = "meta"

// Header field keys.
const (
	KeyFile    = "file"
	KeyVersion = "version"
	KeyLog     = "log"
	KeyUpdate  = "update"
	KeyRefs    = "refs"
)

// headerComment is written into every new header group.
const headerComment = "docwire tracked file | edit content below"

// Has reports whether content carries a complete header block.
func Has(content string) bool {
	return dwml.HasBlock(content, BlockName)
}

// Parse extracts the header from content. It returns types.ErrHeaderMissing
// when no header block is present and types.ErrVersionMalformed (wrapped)
// when the version field does not parse.
func Parse(content string) (types.Header, error) {
	if !Has(content) {
		return types.Header{}, types.ErrHeaderMissing
	}
	doc, err := dwml.Parse(content)
	if err != nil {
		return types.Header{}, fmt.Errorf("parse header: %w", err)
	}
	block := doc.Block(BlockName)
	if block == nil {
		return types.Header{}, types.ErrHeaderMissing
	}

	get := func(key string) string {
		if v := block.Get(key); v != "" {
			return v
		}
		for _, g := range block.Groups {
			if v := g.Get(key); v != "" {
				return v
			}
		}
		return ""
	}

	h := types.Header{
		File: get(KeyFile),
		Log:  get(KeyLog),
		Refs: types.ParseRefs(get(KeyRefs)),
	}
	h.Version, err = types.ParseVersion(get(KeyVersion))
	if err != nil {
		return types.Header{}, fmt.Errorf("header version: %w", err)
	}
	if raw := get(KeyUpdate); raw != "" {
		h.Update, err = time.Parse(types.TimeLayout, raw)
		if err != nil {
			return types.Header{}, fmt.Errorf("header update time: %w", err)
		}
	}
	return h, nil
}

// Render produces the DWML text of a header block for h. The fields sit in
// a single group behind a marker comment, so the block reads as one logical
// record at the top of the file.
func Render(h types.Header) string {
	doc := dwml.NewDocument()
	block := doc.AddBlock(BlockName)
	g := block.AddGroup()
	g.Comments = append(g.Comments, headerComment)
	g.Set(KeyFile, h.File)
	g.Set(KeyVersion, h.Version.String())
	g.Set(KeyLog, h.Log)
	g.Set(KeyUpdate, types.FormatTime(h.Update))
	g.Set(KeyRefs, h.RefsValue())
	return dwml.RenderBlock(block)
}

// Prepend returns content with a rendered header for h placed at the top,
// separated from the original text by one blank line.
func Prepend(content string, h types.Header) string {
	return Render(h) + "\n" + content
}

// Strip returns content with the header block removed.
func Strip(content string) string {
	return dwml.StripBlock(content, BlockName)
}

// SetField rewrites one header field in content, preserving every
// surrounding byte. Returns the new content and whether anything changed.
func SetField(content, key, value string) (string, bool) {
	return dwml.UpdateFieldValue(content, BlockName, key, value)
}

// Read loads and parses the header of the file at path.
func Read(path string) (types.Header, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Header{}, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(string(data))
}

// Add prepends a header for h to the file at path. It reports false without
// touching the file when a header is already present.
func Add(path string, h types.Header) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	content := string(data)
	if Has(content) {
		return false, nil
	}
	if err := os.WriteFile(path, []byte(Prepend(content, h)), 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}

// UpdateFile rewrites one header field of the file at path. It reports
// whether the file changed; a file without a header is left untouched.
func UpdateFile(path, key, value string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	updated, changed := SetField(string(data), key, value)
	if !changed {
		return false, nil
	}
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}
