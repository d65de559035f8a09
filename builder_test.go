package cart

import "testing"

func TestGrowFromSkipLeafToBinary(t *testing.T) {
	n := newSkipLeaf[int]([]byte("x"), 7).asNode()
	grown := growFrom[int](n)
	if grown.shp != shapeBinary {
		t.Fatalf("grown shape = %v, want BINARY", grown.shp)
	}
	if !grown.poisoned {
		t.Fatalf("growFrom result should be marked poisoned until committed")
	}
	if string(grown.skipBytes()) != "x" {
		t.Fatalf("skip bytes not preserved across grow")
	}
}

func TestGrowFromPreservesEOS(t *testing.T) {
	n := newSkipInterior[int]([]byte("ab"), 'z', nil).asNode()
	n.hasEOS = true
	n.eos.write(42)
	grown := growFrom[int](n)
	if !grown.hasEOS {
		t.Fatalf("EOS flag lost across grow")
	}
	v, present, _ := grown.eos.tryRead()
	if !present || v != 42 {
		t.Fatalf("EOS value = %v, %v; want 42, true", v, present)
	}
}

func TestShrinkIntoBinaryCollapsesToSkip(t *testing.T) {
	bn := newBinaryNode[int](nil, true)
	e := bn.addInPlace('x')
	e.value.write(9)
	shrunk := shrinkInto[int](bn.asNode())
	if shrunk.shp != shapeSkip {
		t.Fatalf("shrunk shape = %v, want SKIP", shrunk.shp)
	}
	if string(shrunk.skipBytes()) != "x" {
		t.Fatalf("shrunk skip = %q, want %q", shrunk.skipBytes(), "x")
	}
	v, present, _ := shrunk.asSkip().ent.value.tryRead()
	if !present || v != 9 {
		t.Fatalf("shrunk leaf value = %v, %v; want 9, true", v, present)
	}
}

func TestShrinkIntoListToBinary(t *testing.T) {
	ln := newListNode[int](nil, true)
	for _, b := range []byte{1, 2, 3} {
		e := ln.addInPlace(b)
		e.value.write(int(b))
	}
	// drop one entry to get below the LIST threshold, as erase.go would
	ln.removeInPlace(3)
	shrunk := shrinkInto[int](ln.asNode())
	if shrunk.shp != shapeBinary {
		t.Fatalf("shrunk shape = %v, want BINARY", shrunk.shp)
	}
	fo := asFanout[int](shrunk)
	if fo.count() != 2 {
		t.Fatalf("shrunk count = %d, want 2", fo.count())
	}
}

func TestCloneDeepIsIndependentCopy(t *testing.T) {
	leaf := newSkipLeaf[int]([]byte("c"), 3)
	root := newSkipInterior[int]([]byte("ab"), 'c', leaf.asNode())
	root.hasEOS = true
	root.eos.write(1)

	clone := cloneDeep[int](root.asNode())
	if clone == root.asNode() {
		t.Fatalf("cloneDeep returned the same pointer")
	}
	cloneChild := clone.asSkip().ent.child.Load()
	if cloneChild == leaf.asNode() {
		t.Fatalf("cloneDeep shared the child pointer instead of copying it")
	}
	v, present, _ := cloneChild.asSkip().ent.value.tryRead()
	if !present || v != 3 {
		t.Fatalf("cloned child value = %v, %v; want 3, true", v, present)
	}
}

func TestPromoteLeafToInteriorPreservesEntries(t *testing.T) {
	ln := newListNode[int]([]byte("p"), true)
	for _, b := range []byte{5, 9} {
		e := ln.addInPlace(b)
		e.value.write(int(b) * 10)
	}
	promoted := promoteLeafToInterior[int](ln.asNode(), []byte("p"))
	if promoted.isLeaf {
		t.Fatalf("promoted node should be an interior")
	}
	fo := asFanout[int](promoted)
	for _, b := range []byte{5, 9} {
		e, ok := fo.entryFor(b)
		if !ok {
			t.Fatalf("promoted interior missing edge %d", b)
		}
		child := e.child.Load()
		if child == nil || child.shp != shapeSkip || !child.isLeaf {
			t.Fatalf("edge %d should lead to a singleton SKIP leaf", b)
		}
		v, present, _ := child.asSkip().ent.value.tryRead()
		if !present || v != int(b)*10 {
			t.Fatalf("promoted leaf value for edge %d = %v, %v; want %d, true", b, v, present, int(b)*10)
		}
	}
}
