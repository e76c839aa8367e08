package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/fieldkv/internal/pool"
	"github.com/roach88/fieldkv/internal/schema"
	"github.com/roach88/fieldkv/internal/store"
	"github.com/roach88/fieldkv/internal/value"
)

// Meta fields every node answers without a lookup.
const (
	TypenameField = "__typename"
	IDField       = "id"
)

// Selection names one field to resolve and, for reference fields, what
// to resolve on the referenced nodes.
//
// In YAML a selection is either a field name or a single-key mapping from
// a reference field to its sub-selections:
//
//	- claim_type_code
//	- transactions:
//	    - amount
type Selection struct {
	Field      string
	Selections []Selection
}

// UnmarshalYAML accepts the scalar and single-key mapping forms.
func (s *Selection) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		s.Field = strings.TrimSpace(node.Value)
		if s.Field == "" {
			return fmt.Errorf("line %d: empty field name", node.Line)
		}
		return nil
	case yaml.MappingNode:
		if len(node.Content) != 2 {
			return fmt.Errorf("line %d: a selection mapping must have exactly one field", node.Line)
		}
		key, sub := node.Content[0], node.Content[1]
		s.Field = strings.TrimSpace(key.Value)
		if s.Field == "" {
			return fmt.Errorf("line %d: empty field name", key.Line)
		}
		if sub.Kind != yaml.SequenceNode {
			return fmt.Errorf("line %d: sub-selections of %q must be a list", sub.Line, s.Field)
		}
		return sub.Decode(&s.Selections)
	default:
		return fmt.Errorf("line %d: selection must be a field name or a mapping", node.Line)
	}
}

// Query is a selection rooted at one node.
type Query struct {
	Node   string      `yaml:"node"`
	ID     int64       `yaml:"id"`
	Select []Selection `yaml:"select"`
}

// ParseQuery reads a YAML query document.
func ParseQuery(r io.Reader) (*Query, error) {
	var q Query
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&q); err != nil {
		return nil, fmt.Errorf("parse query: %w", err)
	}
	if q.Node == "" {
		return nil, fmt.Errorf("parse query: missing node")
	}
	if len(q.Select) == 0 {
		return nil, fmt.Errorf("parse query: empty select")
	}
	return &q, nil
}

// Object is a response object whose keys keep selection order.
type Object struct {
	keys []string
	vals map[string]any
}

func newObject() *Object {
	return &Object{vals: make(map[string]any)}
}

func (o *Object) set(key string, v any) {
	if _, ok := o.vals[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = v
}

// Get returns the value at key.
func (o *Object) Get(key string) (any, bool) {
	v, ok := o.vals[key]
	return v, ok
}

// Keys returns the keys in selection order.
func (o *Object) Keys() []string {
	return o.keys
}

// MarshalJSON writes the keys in selection order.
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(o.vals[k])
		if err != nil {
			return nil, fmt.Errorf("object[%q]: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Response is partial data plus the field errors that kept it partial.
type Response struct {
	Data   *Object       `json:"data"`
	Errors []*FieldError `json:"errors,omitempty"`
}

// task is one node awaiting its selections.
type task struct {
	typename string
	id       int64
	obj      *Object
	sels     []Selection
	path     []any
}

// pending is one dispatched lookup.
type pending struct {
	task  task
	sel   Selection
	field schema.Field
	fut   *pool.Future[value.Value]
}

// Select resolves sels on node. Every lookup at one depth is dispatched
// before any is awaited; referenced nodes are resolved at the next depth.
// The returned error is non-nil only if ctx ended or node's type is not in
// the catalog; field failures are reported in Response.Errors.
func (r *Resolver) Select(ctx context.Context, node Node, sels []Selection) (*Response, error) {
	if _, ok := r.catalog.Variant(node.Typename()); !ok {
		return nil, fmt.Errorf("graph: unknown node type %q", node.Typename())
	}

	resp := &Response{Data: newObject()}
	level := []task{{
		typename: node.Typename(),
		id:       node.NodeID(),
		obj:      resp.Data,
		sels:     sels,
	}}

	for len(level) > 0 {
		var inflight []pending
		for _, t := range level {
			inflight = append(inflight, r.dispatch(ctx, t, resp)...)
		}

		var next []task
		for _, p := range inflight {
			v, err := p.fut.Await(ctx)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return resp, ctxErr
			}
			next = append(next, r.place(p, v, err, resp)...)
		}
		level = next
	}
	return resp, nil
}

// dispatch fills meta fields and launches a lookup for every other
// selection of t.
func (r *Resolver) dispatch(ctx context.Context, t task, resp *Response) []pending {
	variant, _ := r.catalog.Variant(t.typename)

	var out []pending
	for _, sel := range t.sels {
		switch sel.Field {
		case TypenameField:
			t.obj.set(sel.Field, variant.Name)
			continue
		case IDField:
			if _, declared := variant.Field(IDField); !declared {
				t.obj.set(sel.Field, t.id)
				continue
			}
		}

		t.obj.set(sel.Field, nil)
		f, ok := variant.Field(sel.Field)
		if !ok {
			resp.Errors = append(resp.Errors, r.fieldError(t, sel.Field, errUnknownField(variant.Name, sel.Field)))
			continue
		}
		if len(sel.Selections) > 0 && !f.Kind.IsReference() {
			resp.Errors = append(resp.Errors, r.fieldError(t, sel.Field,
				fmt.Errorf("graph: %s.%s is a scalar and takes no sub-selections", variant.Name, sel.Field)))
			continue
		}
		out = append(out, pending{task: t, sel: sel, field: f, fut: r.fetch(ctx, f, t.id)})
	}
	return out
}

// place writes one lookup result into its object and returns the
// referenced nodes that still need their sub-selections resolved.
func (r *Resolver) place(p pending, v value.Value, err error, resp *Response) []task {
	f := p.field
	if store.IsNotFound(err) {
		if f.Optional || f.Kind == schema.KindRefs {
			return nil
		}
	}
	if err != nil {
		resp.Errors = append(resp.Errors, r.fieldError(p.task, p.sel.Field, err))
		return nil
	}

	path := append(append([]any{}, p.task.path...), p.sel.Field)

	switch f.Kind {
	case schema.KindRef:
		id, err := asInt(f, v)
		if err != nil {
			resp.Errors = append(resp.Errors, r.fieldError(p.task, p.sel.Field, err))
			return nil
		}
		if len(p.sel.Selections) == 0 {
			p.task.obj.set(p.sel.Field, id)
			return nil
		}
		child := newObject()
		p.task.obj.set(p.sel.Field, child)
		return []task{{typename: f.Target, id: id, obj: child, sels: p.sel.Selections, path: path}}

	case schema.KindRefs:
		ids, err := asIDs(f, v)
		if err != nil {
			resp.Errors = append(resp.Errors, r.fieldError(p.task, p.sel.Field, err))
			return nil
		}
		if len(ids) == 0 {
			return nil
		}
		list := make([]any, len(ids))
		if len(p.sel.Selections) == 0 {
			for i, id := range ids {
				list[i] = id
			}
			p.task.obj.set(p.sel.Field, list)
			return nil
		}
		var next []task
		for i, id := range ids {
			child := newObject()
			list[i] = child
			childPath := append(append([]any{}, path...), i)
			next = append(next, task{typename: f.Target, id: id, obj: child, sels: p.sel.Selections, path: childPath})
		}
		p.task.obj.set(p.sel.Field, list)
		return next

	default:
		if v.Kind() != f.Kind.ValueKind() {
			resp.Errors = append(resp.Errors, r.fieldError(p.task, p.sel.Field, wrongKind(f, v)))
			return nil
		}
		p.task.obj.set(p.sel.Field, scalarJSON(v))
		return nil
	}
}

// scalarJSON is the response form of a scalar: integers as numbers,
// everything else (money included) as its string form.
func scalarJSON(v value.Value) any {
	if i, ok := v.(value.Integer); ok {
		return int64(i)
	}
	return v.String()
}

func (r *Resolver) fieldError(t task, field string, err error) *FieldError {
	r.logger.Debug("field resolution failed",
		"node", t.typename, "id", t.id, "field", field, "error", err)
	return &FieldError{
		Path:  append(append([]any{}, t.path...), field),
		Node:  t.typename,
		ID:    t.id,
		Field: field,
		Err:   err,
	}
}
