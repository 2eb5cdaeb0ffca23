package http2

import "testing"

func TestPriorityTreeDefaultParent(t *testing.T) {
	tr := newPriorityTree()
	tr.Reprioritize(1, 0, false, 16)
	tr.Reprioritize(3, 0, false, 16)

	root, ok := tr.nodes[0]
	if !ok {
		t.Fatalf("expected implicit root node")
	}
	if len(root.children) != 2 {
		t.Fatalf("expected 2 children of root, got %d", len(root.children))
	}
}

func TestPriorityTreeExclusive(t *testing.T) {
	tr := newPriorityTree()
	tr.Reprioritize(1, 0, false, 16)
	tr.Reprioritize(3, 0, false, 16)
	tr.Reprioritize(5, 0, true, 16) // exclusive: 1 and 3 become children of 5

	if tr.nodes[1].parent != 5 || tr.nodes[3].parent != 5 {
		t.Fatalf("expected streams 1 and 3 reparented under 5")
	}
	if len(tr.nodes[0].children) != 1 || tr.nodes[0].children[0] != 5 {
		t.Fatalf("expected root to have exactly stream 5 as a child")
	}
}

func TestPriorityTreeSelfDependency(t *testing.T) {
	tr := newPriorityTree()
	tr.Reprioritize(1, 0, false, 16)
	tr.Reprioritize(1, 1, false, 32) // depending on itself: falls back to 1's prior parent (0)

	if tr.nodes[1].parent != 0 {
		t.Fatalf("expected self-dependency to resolve to former parent, got %d", tr.nodes[1].parent)
	}
}

func TestPriorityTreeRemoveReparentsChildren(t *testing.T) {
	tr := newPriorityTree()
	tr.Reprioritize(1, 0, false, 16)
	tr.Reprioritize(3, 1, false, 16)

	tr.Remove(1)

	if tr.nodes[3].parent != 0 {
		t.Fatalf("expected stream 3 reparented to former grandparent 0, got %d", tr.nodes[3].parent)
	}
	if _, ok := tr.nodes[1]; ok {
		t.Fatalf("expected stream 1 removed")
	}
}

func TestPriorityTreeNextPicksReady(t *testing.T) {
	tr := newPriorityTree()
	tr.Reprioritize(1, 0, false, 16)
	tr.Reprioritize(3, 0, false, 16)

	if got := tr.Next(); got != 0 {
		t.Fatalf("expected no ready stream, got %d", got)
	}

	tr.SetReady(3, true)
	if got := tr.Next(); got != 3 {
		t.Fatalf("expected stream 3 picked, got %d", got)
	}
}

func TestPriorityTreeIdleHistoryBounded(t *testing.T) {
	tr := newPriorityTree()
	for i := uint32(1); i <= 2*(idleHistoryLimit+10); i += 2 {
		tr.Reprioritize(i, 0, false, 16)
		tr.Remove(i)
	}
	if len(tr.idleHistory) != idleHistoryLimit {
		t.Fatalf("expected idleHistory capped at %d, got %d", idleHistoryLimit, len(tr.idleHistory))
	}
}
