// Package dwml implements the DWML block/tag serialization grammar used by
// every persisted docwire artifact: tracked-file headers, history logs, the
// watcher registry, project config, and compact summaries.
//
// The grammar is deliberately escaping-free: delimiter sequences such as
// "=x=" and "=z=" are reserved multi-character tokens assumed not to appear
// in tracked prose. That trade-off buys a format that is human-inspectable
// and trivially greppable at the cost of robustness against adversarial
// content. Do not add escaping here; it would break compatibility with
// every file already on disk.
package dwml

// Grammar tokens.
const (
	tokBlockOpenPre   = "=d=" // =d=<name>=w=
	tokBlockOpenPost  = "=w="
	tokBlockClosePre  = "=q=" // =q=<name>=e=
	tokBlockClosePost = "=e="
	tokGroupOpen      = "=dw="
	tokGroupClose     = "=wd="
	tokFieldOpen      = "=x=" // =x= key;|value|; =z=
	tokFieldClose     = "=z="
	tokAdded          = "=+=" // =+=line=o=
	tokRemoved        = "=-=" // =-=line=o=
	tokComment        = "=#=" // =#= text =o=
	tokLineClose      = "=o="
)

// Document is an ordered sequence of named blocks.
type Document struct {
	Blocks []*Block
}

// Block is a named container holding ordered key/value fields, entry
// groups, and comments.
type Block struct {
	Name     string
	Comments []string
	Fields   []Field
	Groups   []*Group
}

// Group is one logical entry inside a block: its own fields plus the
// added/removed diff lines of a history record.
type Group struct {
	Comments []string
	Fields   []Field
	Added    []string
	Removed  []string
}

// Field is one key with its ordered value list. A single-valued field has
// exactly one entry in Values.
type Field struct {
	Key    string
	Values []string
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{}
}

// Block returns the first block with the given name, or nil.
func (d *Document) Block(name string) *Block {
	for _, b := range d.Blocks {
		if b.Name == name {
			return b
		}
	}
	return nil
}

// HasBlock reports whether a block with the given name exists.
func (d *Document) HasBlock(name string) bool {
	return d.Block(name) != nil
}

// AddBlock appends a new empty block and returns it.
func (d *Document) AddBlock(name string) *Block {
	b := &Block{Name: name}
	d.Blocks = append(d.Blocks, b)
	return b
}

// AddGroup appends a new empty group to the block and returns it.
func (b *Block) AddGroup() *Group {
	g := &Group{}
	b.Groups = append(b.Groups, g)
	return g
}

// Get returns the first value of the field with the given key, or "".
func (b *Block) Get(key string) string { return fieldGet(b.Fields, key) }

// GetList returns all values of the field with the given key.
func (b *Block) GetList(key string) []string { return fieldGetList(b.Fields, key) }

// Set replaces the field with the given key, appending it if absent.
func (b *Block) Set(key string, values ...string) {
	b.Fields = fieldSet(b.Fields, key, values)
}

// Get returns the first value of the group field with the given key, or "".
func (g *Group) Get(key string) string { return fieldGet(g.Fields, key) }

// GetList returns all values of the group field with the given key.
func (g *Group) GetList(key string) []string { return fieldGetList(g.Fields, key) }

// Set replaces the group field with the given key, appending it if absent.
func (g *Group) Set(key string, values ...string) {
	g.Fields = fieldSet(g.Fields, key, values)
}

func fieldGet(fields []Field, key string) string {
	for _, f := range fields {
		if f.Key == key {
			if len(f.Values) == 0 {
				return ""
			}
			return f.Values[0]
		}
	}
	return ""
}

func fieldGetList(fields []Field, key string) []string {
	for _, f := range fields {
		if f.Key == key {
			return f.Values
		}
	}
	return nil
}

func fieldSet(fields []Field, key string, values []string) []Field {
	for i := range fields {
		if fields[i].Key == key {
			fields[i].Values = values
			return fields
		}
	}
	return append(fields, Field{Key: key, Values: values})
}
