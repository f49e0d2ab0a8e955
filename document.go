package profile

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Sections are the top-level sections of every Document, in display order.
var Sections = []string{"demographics", "economics", "families", "housing", "social"}

// *********** Node ***********

// Node is a group of nodes or a single item in a Document. A group may carry Metadata shared by its items.
type Node struct {
	key      string
	metadata *Metadata

	item     *MetricItem
	enhanced *EnhancedMetricItem

	children []*Node
}

func (n *Node) Key() string {
	return n.key
}

func (n *Node) IsItem() bool {
	return n.item != nil || n.enhanced != nil
}

// Item is the raw item of the node, nil for a group.
func (n *Node) Item() *MetricItem {
	return n.item
}

// Enhanced is the item after Enhance, nil before.
func (n *Node) Enhanced() *EnhancedMetricItem {
	return n.enhanced
}

func (n *Node) Metadata() *Metadata {
	return n.metadata
}

func (n *Node) Children() []*Node {
	return n.children
}

// Child returns the child with key, or nil.
func (n *Node) Child(key string) *Node {
	for _, c := range n.children {
		if c.key == key {
			return c
		}
	}

	return nil
}

func (n *Node) copy() *Node {
	out := &Node{key: n.key}

	if n.metadata != nil {
		md := *n.metadata
		out.metadata = &md
	}

	if n.item != nil {
		out.item = n.item.Copy()
	}

	if n.enhanced != nil {
		out.enhanced = n.enhanced.Copy()
	}

	for _, c := range n.children {
		out.children = append(out.children, c.copy())
	}

	return out
}

func (n *Node) MarshalJSON() ([]byte, error) {
	if n.enhanced != nil {
		return json.Marshal(n.enhanced)
	}

	if n.item != nil {
		return json.Marshal(n.item)
	}

	var kv []keyValue
	for _, c := range n.children {
		kv = append(kv, keyValue{key: c.key, value: c})
	}

	if n.metadata != nil {
		kv = append(kv, keyValue{key: "metadata", value: n.metadata})
	}

	return marshalOrdered(kv)
}

// *********** Document ***********

// Document is the output tree for one geography. It is not modified once built.
type Document struct {
	geography   Geography
	geoMetadata *GeoMetadata
	sections    []*Node
}

func (d *Document) Geography() Geography {
	return d.geography.copy()
}

func (d *Document) GeoMetadata() *GeoMetadata {
	return d.geoMetadata
}

func (d *Document) Sections() []*Node {
	return d.sections
}

// Lookup follows path from the sections down, e.g. Lookup("demographics", "child_gender", "percent_male").
func (d *Document) Lookup(path ...string) *Node {
	if len(path) == 0 {
		return nil
	}

	var node *Node
	for _, s := range d.sections {
		if s.key == path[0] {
			node = s
			break
		}
	}

	for ind := 1; node != nil && ind < len(path); ind++ {
		node = node.Child(path[ind])
	}

	return node
}

// ItemRef locates an item node in a Document.
type ItemRef struct {
	Path []string
	Node *Node
}

// Items returns every item node in document order.
func (d *Document) Items() []ItemRef {
	var refs []ItemRef

	var walk func(n *Node, path []string)
	walk = func(n *Node, path []string) {
		p := append(append([]string(nil), path...), n.key)
		if n.IsItem() {
			refs = append(refs, ItemRef{Path: p, Node: n})
			return
		}

		for _, c := range n.children {
			walk(c, p)
		}
	}

	for _, s := range d.sections {
		walk(s, nil)
	}

	return refs
}

func (d *Document) MarshalJSON() ([]byte, error) {
	kv := []keyValue{{key: "geography", value: d.geography}}
	for _, s := range d.sections {
		kv = append(kv, keyValue{key: s.key, value: s})
	}

	if d.geoMetadata != nil {
		kv = append(kv, keyValue{key: "geo_metadata", value: d.geoMetadata})
	}

	return marshalOrdered(kv)
}

// Enhance returns a copy of doc in which every item is replaced by its SelectComparatives result. The
// comparatives are recorded once, in the geography header, from the last item in document order; all items
// of a document share the relations supplied for its geography. The header's derived fields are filled in.
func Enhance(doc *Document) *Document {
	out := doc.copy()

	var comparatives []string
	for _, ref := range out.Items() {
		if ref.Node.item == nil {
			continue
		}

		ref.Node.enhanced, comparatives = SelectComparatives(ref.Node.item)
		ref.Node.item = nil
	}

	if comparatives != nil {
		out.geography.Comparatives = comparatives
	}

	out.geography.Derive()

	return out
}

func (d *Document) copy() *Document {
	out := &Document{geography: d.geography.copy()}
	if d.geoMetadata != nil {
		gm := *d.geoMetadata
		out.geoMetadata = &gm
	}

	for _, s := range d.sections {
		out.sections = append(out.sections, s.copy())
	}

	return out
}

// *********** Builder ***********

// Builder accumulates sections, groups and items. Build returns an independent Document, so a Builder can
// keep being used afterwards.
type Builder struct {
	sections []*GroupBuilder
}

// GroupBuilder adds nodes to one group.
type GroupBuilder struct {
	node *Node
}

// NewBuilder returns a Builder with the standard Sections in place.
func NewBuilder() *Builder {
	b := &Builder{}
	for _, s := range Sections {
		b.Section(s)
	}

	return b
}

// Section returns the named section, creating it at the end if needed.
func (b *Builder) Section(name string) *GroupBuilder {
	for _, s := range b.sections {
		if s.node.key == name {
			return s
		}
	}

	g := &GroupBuilder{node: &Node{key: name}}
	b.sections = append(b.sections, g)

	return g
}

// Build copies the accumulated tree into a Document.
func (b *Builder) Build(geo Geography, geoMetadata *GeoMetadata) *Document {
	doc := &Document{geography: geo.copy()}
	if geoMetadata != nil {
		gm := *geoMetadata
		doc.geoMetadata = &gm
	}

	for _, s := range b.sections {
		doc.sections = append(doc.sections, s.node.copy())
	}

	return doc
}

// Group returns the child group key, creating it if needed. It panics if key already holds an item.
func (g *GroupBuilder) Group(key string) *GroupBuilder {
	if c := g.node.Child(key); c != nil {
		if c.IsItem() {
			panic(fmt.Errorf("%s/%s is an item, not a group", g.node.key, key))
		}

		return &GroupBuilder{node: c}
	}

	c := &Node{key: key}
	g.node.children = append(g.node.children, c)

	return &GroupBuilder{node: c}
}

// Item adds item under key, replacing any node already there.
func (g *GroupBuilder) Item(key string, item *MetricItem) *GroupBuilder {
	n := &Node{key: key, item: item}
	for ind, c := range g.node.children {
		if c.key == key {
			g.node.children[ind] = n
			return g
		}
	}

	g.node.children = append(g.node.children, n)

	return g
}

// SetMetadata attaches metadata to the group.
func (g *GroupBuilder) SetMetadata(md Metadata) *GroupBuilder {
	g.node.metadata = &md
	return g
}

// *********** ordered JSON ***********

type keyValue struct {
	key   string
	value any
}

func marshalOrdered(kv []keyValue) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for ind, x := range kv {
		if ind > 0 {
			buf.WriteByte(',')
		}

		k, _ := json.Marshal(x.key)
		buf.Write(k)
		buf.WriteByte(':')

		v, e := json.Marshal(x.value)
		if e != nil {
			return nil, fmt.Errorf("%s: %w", x.key, e)
		}
		buf.Write(v)
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}
