package schema

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/fieldkv/internal/value"
)

//go:embed defs.cue
var defsCUE string

//go:embed default.cue
var defaultCUE string

// FieldKind is the declared kind of a field.
type FieldKind string

const (
	KindString    FieldKind = "string"
	KindInt       FieldKind = "int"
	KindDecimal   FieldKind = "decimal"
	KindTimestamp FieldKind = "timestamp"
	KindRef       FieldKind = "ref"
	KindRefs      FieldKind = "refs"
)

// ValueKind returns the stored value kind for fields of this kind.
// Single references are stored as integers.
func (k FieldKind) ValueKind() value.Kind {
	switch k {
	case KindInt, KindRef:
		return value.KindInteger
	case KindDecimal:
		return value.KindDecimal
	case KindTimestamp:
		return value.KindTimestamp
	case KindRefs:
		return value.KindIdentifierList
	default:
		return value.KindString
	}
}

// IsReference reports whether fields of this kind point at other nodes.
func (k FieldKind) IsReference() bool {
	return k == KindRef || k == KindRefs
}

// Field is a named attribute of a variant.
type Field struct {
	Name     string    `json:"name"`
	Variant  string    `json:"variant"`
	Shard    string    `json:"shard"`
	Kind     FieldKind `json:"kind"`
	Target   string    `json:"target,omitempty"` // variant referenced by ref/refs fields
	Optional bool      `json:"optional,omitempty"`
}

// Variant is a node type and its fields in declaration order.
type Variant struct {
	Name   string
	Fields []Field
	byName map[string]int
}

// Field looks up a field by name.
func (v *Variant) Field(name string) (Field, bool) {
	i, ok := v.byName[name]
	if !ok {
		return Field{}, false
	}
	return v.Fields[i], true
}

// Catalog holds every variant and indexes fields by shard.
type Catalog struct {
	variants []*Variant
	byName   map[string]*Variant
	byShard  map[string]Field
}

var defaultCatalog = sync.OnceValues(func() (*Catalog, error) {
	return Parse("default.cue", []byte(defaultCUE))
})

// Default returns the embedded claims graph catalog.
func Default() *Catalog {
	c, err := defaultCatalog()
	if err != nil {
		panic(fmt.Sprintf("schema: embedded catalog: %v", err))
	}
	return c
}

// Load reads a catalog from a CUE file.
func Load(path string) (*Catalog, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(path, src)
}

// Parse compiles CUE source into a catalog after unifying it with the
// catalog constraints.
func Parse(filename string, src []byte) (*Catalog, error) {
	ctx := cuecontext.New()

	defs := ctx.CompileString(defsCUE, cue.Filename("defs.cue"))
	if err := defs.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	v = defs.Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	variantsVal := v.LookupPath(cue.ParsePath("variants"))
	if !variantsVal.Exists() {
		return nil, &CatalogError{Field: "variants", Message: "no variants declared", Pos: v.Pos()}
	}

	c := &Catalog{
		byName:  make(map[string]*Variant),
		byShard: make(map[string]Field),
	}

	iter, err := variantsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		variant, err := parseVariant(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		c.variants = append(c.variants, variant)
		c.byName[variant.Name] = variant
	}

	if len(c.variants) == 0 {
		return nil, &CatalogError{Field: "variants", Message: "no variants declared", Pos: v.Pos()}
	}
	if err := c.check(); err != nil {
		return nil, err
	}
	return c, nil
}

func parseVariant(name string, v cue.Value) (*Variant, error) {
	variant := &Variant{Name: name, byName: make(map[string]int)}

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return variant, nil
	}

	iter, err := fieldsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		f, err := parseField(name, iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		variant.byName[f.Name] = len(variant.Fields)
		variant.Fields = append(variant.Fields, f)
	}
	return variant, nil
}

func parseField(variant, name string, v cue.Value) (Field, error) {
	f := Field{Name: name, Variant: variant}

	shard, err := v.LookupPath(cue.ParsePath("shard")).String()
	if err != nil {
		return f, formatCUEError(err)
	}
	f.Shard = shard

	kind, err := v.LookupPath(cue.ParsePath("kind")).String()
	if err != nil {
		return f, formatCUEError(err)
	}
	f.Kind = FieldKind(kind)

	if targetVal := v.LookupPath(cue.ParsePath("target")); targetVal.Exists() {
		if f.Target, err = targetVal.String(); err != nil {
			return f, formatCUEError(err)
		}
	}

	if optVal := v.LookupPath(cue.ParsePath("optional")); optVal.Exists() {
		if f.Optional, err = optVal.Bool(); err != nil {
			return f, formatCUEError(err)
		}
	}

	return f, nil
}

// check enforces the cross-variant rules CUE cannot express locally.
func (c *Catalog) check() error {
	for _, v := range c.variants {
		for _, f := range v.Fields {
			where := v.Name + "." + f.Name
			if prev, dup := c.byShard[f.Shard]; dup {
				return &CatalogError{
					Field:   where,
					Message: fmt.Sprintf("shard %q already backs %s.%s", f.Shard, prev.Variant, prev.Name),
				}
			}
			if f.Kind.IsReference() {
				if _, ok := c.byName[f.Target]; !ok {
					return &CatalogError{Field: where, Message: fmt.Sprintf("unknown target variant %q", f.Target)}
				}
			} else if f.Target != "" {
				return &CatalogError{Field: where, Message: "target is only valid on ref and refs fields"}
			}
			c.byShard[f.Shard] = f
		}
	}
	return nil
}

// Variants returns every variant in declaration order.
func (c *Catalog) Variants() []*Variant {
	return c.variants
}

// Variant looks up a variant by name. An exact match wins, otherwise names
// are compared case-insensitively.
func (c *Catalog) Variant(name string) (*Variant, bool) {
	if v, ok := c.byName[name]; ok {
		return v, true
	}
	for _, v := range c.variants {
		if strings.EqualFold(v.Name, name) {
			return v, true
		}
	}
	return nil, false
}

// FieldForShard returns the field stored in the named shard.
func (c *Catalog) FieldForShard(shard string) (Field, bool) {
	f, ok := c.byShard[shard]
	return f, ok
}

// KindOf returns the stored value kind of a shard.
func (c *Catalog) KindOf(shard string) (value.Kind, bool) {
	f, ok := c.byShard[shard]
	if !ok {
		return "", false
	}
	return f.Kind.ValueKind(), true
}

// Shards returns every shard named by the catalog, in declaration order.
func (c *Catalog) Shards() []string {
	var out []string
	for _, v := range c.variants {
		for _, f := range v.Fields {
			out = append(out, f.Shard)
		}
	}
	return out
}
