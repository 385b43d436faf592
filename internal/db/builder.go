package db

import (
	"strconv"
	"strings"
)

// IndexBuilder is a fluent builder for FT index definitions.
type IndexBuilder struct {
	def IndexDefinition
}

// NewIndex starts building an FT index definition over JSON documents.
func NewIndex(name string) *IndexBuilder {
	return &IndexBuilder{
		def: IndexDefinition{
			Name:        name,
			StorageType: StorageJSON,
		},
	}
}

// Prefix adds key prefixes to the index.
func (b *IndexBuilder) Prefix(prefixes ...string) *IndexBuilder {
	b.def.Prefixes = append(b.def.Prefixes, prefixes...)
	return b
}

// JSONTag adds a TAG field read from $.name and queried as name.
func (b *IndexBuilder) JSONTag(name string) *IndexBuilder {
	return b.field(IndexField{Name: "$." + name, Alias: name, Type: IndexFieldTag})
}

// JSONText adds a TEXT field read from $.name and queried as name.
func (b *IndexBuilder) JSONText(name string) *IndexBuilder {
	return b.field(IndexField{Name: "$." + name, Alias: name, Type: IndexFieldText})
}

// JSONNumeric adds a NUMERIC field read from $.name and queried as name.
func (b *IndexBuilder) JSONNumeric(name string) *IndexBuilder {
	return b.field(IndexField{Name: "$." + name, Alias: name, Type: IndexFieldNumeric})
}

// Sortable marks the most recently added field SORTABLE.
func (b *IndexBuilder) Sortable() *IndexBuilder {
	if n := len(b.def.Fields); n > 0 {
		b.def.Fields[n-1].Sortable = true
	}
	return b
}

// CaseSensitive makes the most recently added TAG field match case-sensitively.
func (b *IndexBuilder) CaseSensitive() *IndexBuilder {
	if n := len(b.def.Fields); n > 0 && b.def.Fields[n-1].Type == IndexFieldTag {
		b.def.Fields[n-1].TagCaseSensitive = true
	}
	return b
}

func (b *IndexBuilder) field(f IndexField) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, f)
	return b
}

// Build validates and returns the index definition.
func (b *IndexBuilder) Build() (*IndexDefinition, error) {
	if err := b.def.Validate(); err != nil {
		return nil, err
	}
	return &b.def, nil
}

// Args returns the FT.CREATE arguments following the index name.
func (idx *IndexDefinition) Args() []string {
	var args []string
	if idx.StorageType != "" {
		args = append(args, "ON", string(idx.StorageType))
	}
	if len(idx.Prefixes) > 0 {
		args = append(args, "PREFIX", strconv.Itoa(len(idx.Prefixes)))
		args = append(args, idx.Prefixes...)
	}
	args = append(args, "SCHEMA")
	for i := range idx.Fields {
		f := &idx.Fields[i]
		args = append(args, f.Name)
		if f.Alias != "" {
			args = append(args, "AS", f.Alias)
		}
		switch f.Type {
		case IndexFieldTag:
			args = append(args, "TAG")
			if f.TagCaseSensitive {
				args = append(args, "CASESENSITIVE")
			}
		case IndexFieldNumeric:
			args = append(args, "NUMERIC")
		case IndexFieldText:
			args = append(args, "TEXT")
		}
		if f.Sortable {
			args = append(args, "SORTABLE")
		}
	}
	return args
}

// String returns a debug representation resembling the FT.CREATE command.
func (idx *IndexDefinition) String() string {
	return strings.Join(append([]string{"FT.CREATE", idx.Name}, idx.Args()...), " ")
}
