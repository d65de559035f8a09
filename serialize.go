package cart

import (
	"fmt"
	"io"
	"strings"
)

// serialize.go: a development/debugging dump of the tree structure, one
// line per node, indented by depth.

// String returns a human-readable dump of the whole tree. Useful in tests
// and at a debugger breakpoint; not meant for parsing.
func (m *Map[V]) String() string {
	var sb strings.Builder
	if err := m.Dump(&sb); err != nil {
		panic(err)
	}
	return sb.String()
}

// Dump writes a depth-indented listing of every node to w:
//
//	[SKIP] depth:0 leaf skip:[74 65 61] value:1
//	[BINARY] depth:1 eos:2 children:[72 73]
//	.[SKIP] depth:2 leaf skip:[] value:3
func (m *Map[V]) Dump(w io.Writer) error {
	root := m.root.load()
	if root == nil {
		_, err := fmt.Fprintln(w, "(empty)")
		return err
	}
	return dumpNode[V](w, root, 0)
}

// ShapeHistogram walks the whole tree and counts live nodes per shape,
// keyed by shape.String() ("SKIP", "BINARY", "LIST", "POP", "FULL"). Used
// by cmd/cartdump to report how a corpus of keys distributes across node
// shapes.
func (m *Map[V]) ShapeHistogram() map[string]int {
	hist := make(map[string]int, 5)
	root := m.root.load()
	if root != nil {
		countShapes[V](root, hist)
	}
	return hist
}

func countShapes[V any](n *node[V], hist map[string]int) {
	hist[n.shp.String()]++
	if n.isLeaf {
		return
	}
	fo := asFanout[V](n)
	for _, b := range fo.bytes() {
		e, _ := fo.entryFor(b)
		if child := e.child.Load(); child != nil {
			countShapes(child, hist)
		}
	}
}

func dumpNode[V any](w io.Writer, n *node[V], depth int) error {
	prefix := strings.Repeat(".", depth)
	if n.isLeaf {
		if n.shp == shapeSkip {
			v, present, _ := n.asSkip().ent.value.tryRead()
			_, err := fmt.Fprintf(w, "%s[%s] depth:%d leaf skip:%v value:%v present:%v\n",
				prefix, n.shp, depth, n.skipBytes(), v, present)
			return err
		}
		fo := asFanout[V](n)
		if _, err := fmt.Fprintf(w, "%s[%s] depth:%d leaf skip:%v entries:%d\n",
			prefix, n.shp, depth, n.skipBytes(), fo.count()); err != nil {
			return err
		}
		for _, b := range fo.bytes() {
			e, _ := fo.entryFor(b)
			v, present, _ := e.value.tryRead()
			if _, err := fmt.Fprintf(w, "%s byte:%d value:%v present:%v\n", prefix, b, v, present); err != nil {
				return err
			}
		}
		return nil
	}

	eosStr := ""
	if n.hasEOS {
		v, present, _ := n.eos.tryRead()
		eosStr = fmt.Sprintf(" eos:%v eos-present:%v", v, present)
	}
	fo := asFanout[V](n)
	if _, err := fmt.Fprintf(w, "%s[%s] depth:%d skip:%v%s children:%v\n",
		prefix, n.shp, depth, n.skipBytes(), eosStr, fo.bytes()); err != nil {
		return err
	}
	for _, b := range fo.bytes() {
		e, _ := fo.entryFor(b)
		child := e.child.Load()
		if child == nil {
			continue
		}
		if err := dumpNode[V](w, child, depth+1); err != nil {
			return err
		}
	}
	return nil
}
