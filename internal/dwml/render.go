package dwml

import "strings"

// Render serializes the document back to DWML text. Rendering a parsed
// document reproduces every block, field, group, diff line and comment, so
// parse(render(parse(x))) is structurally equal to parse(x).
func (d *Document) Render() string {
	var sb strings.Builder
	for i, b := range d.Blocks {
		if i > 0 {
			sb.WriteByte('\n')
		}
		renderBlock(&sb, b)
	}
	return sb.String()
}

// RenderBlock serializes a single block, delimiters included.
func RenderBlock(b *Block) string {
	var sb strings.Builder
	renderBlock(&sb, b)
	return sb.String()
}

func renderBlock(sb *strings.Builder, b *Block) {
	sb.WriteString(tokBlockOpenPre)
	sb.WriteString(b.Name)
	sb.WriteString(tokBlockOpenPost)
	sb.WriteByte('\n')

	renderComments(sb, b.Comments)
	renderFields(sb, b.Fields)

	for _, g := range b.Groups {
		sb.WriteString(tokGroupOpen)
		sb.WriteByte('\n')
		renderComments(sb, g.Comments)
		renderFields(sb, g.Fields)
		for _, line := range g.Added {
			sb.WriteString(tokAdded)
			sb.WriteString(line)
			sb.WriteString(tokLineClose)
			sb.WriteByte('\n')
		}
		for _, line := range g.Removed {
			sb.WriteString(tokRemoved)
			sb.WriteString(line)
			sb.WriteString(tokLineClose)
			sb.WriteByte('\n')
		}
		sb.WriteString(tokGroupClose)
		sb.WriteByte('\n')
	}

	sb.WriteString(tokBlockClosePre)
	sb.WriteString(b.Name)
	sb.WriteString(tokBlockClosePost)
	sb.WriteByte('\n')
}

func renderComments(sb *strings.Builder, comments []string) {
	for _, c := range comments {
		sb.WriteString(tokComment)
		sb.WriteByte(' ')
		sb.WriteString(c)
		sb.WriteByte(' ')
		sb.WriteString(tokLineClose)
		sb.WriteByte('\n')
	}
}

func renderFields(sb *strings.Builder, fields []Field) {
	for _, f := range fields {
		sb.WriteString(tokFieldOpen)
		sb.WriteByte(' ')
		sb.WriteString(f.Key)
		for i, v := range f.Values {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(";|")
			sb.WriteString(v)
			sb.WriteString("|;")
		}
		sb.WriteByte(' ')
		sb.WriteString(tokFieldClose)
		sb.WriteByte('\n')
	}
}
