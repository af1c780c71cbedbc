package ast

import (
	"testing"
)

// buildAssign creates `name = name2;` attached under a compound in a fresh tree
// and returns the tree plus the statement.
func buildAssign(lhs, rhs string) (*Tree, NodeID) {
	t := New()
	a := t.NewNode(KindIdent, lhs)
	b := t.NewNode(KindIdent, rhs)
	stmt := t.NewNode(KindExprStmt, "", t.NewNode(KindAssign, "=", a, b))
	t.Append(t.Root(), t.NewNode(KindCompound, "", stmt))
	return t, stmt
}

// ----------------------------------------------------------------------------
// NodeID Tests
// ----------------------------------------------------------------------------

func TestNoNodeInvalid(t *testing.T) {
	var id NodeID
	if id.IsValid() {
		t.Error("zero NodeID should be invalid")
	}
	tree := New()
	if !tree.Root().IsValid() {
		t.Error("root should be valid")
	}
	if tree.Kind(NoNode) != KindInvalid {
		t.Error("Kind(NoNode) should be KindInvalid")
	}
}

// ----------------------------------------------------------------------------
// Identifier Index Tests
// ----------------------------------------------------------------------------

func TestIndexTracksAttach(t *testing.T) {
	tree := New()
	a := tree.NewNode(KindIdent, "gl_Vertex")
	if tree.HasIdent("gl_Vertex") {
		t.Fatal("detached identifier must not be indexed")
	}
	tree.Append(tree.Root(), tree.NewNode(KindExprStmt, "", a))
	if got := tree.Occurrences("gl_Vertex"); len(got) != 1 || got[0] != a {
		t.Fatalf("Occurrences = %v, want [%d]", got, a)
	}
}

func TestIndexTracksDetach(t *testing.T) {
	tree, stmt := buildAssign("x", "y")
	tree.Detach(stmt)
	if tree.HasIdent("x") || tree.HasIdent("y") {
		t.Error("detached subtree identifiers must leave the index")
	}
	if tree.Attached(stmt) {
		t.Error("detached statement reported as attached")
	}
}

func TestReplaceUpdatesIndex(t *testing.T) {
	tree, stmt := buildAssign("x", "y")
	assign := tree.Child(stmt, 0)
	rhs := tree.Child(assign, 1)
	repl := tree.NewNode(KindIdent, "z")
	old := tree.Replace(rhs, repl)

	if old != rhs {
		t.Errorf("Replace returned %d, want %d", old, rhs)
	}
	if tree.HasIdent("y") {
		t.Error("replaced identifier still indexed")
	}
	if tree.Count("z") != 1 {
		t.Error("replacement identifier not indexed")
	}
	if tree.Parent(repl) != assign {
		t.Error("replacement parent not set")
	}
	if tree.Parent(old).IsValid() {
		t.Error("replaced node keeps a parent")
	}
}

func TestSetTextRenamesInIndex(t *testing.T) {
	tree, stmt := buildAssign("x", "x")
	lhs := tree.Child(tree.Child(stmt, 0), 0)
	tree.SetText(lhs, "w")
	if tree.Count("x") != 1 || tree.Count("w") != 1 {
		t.Errorf("counts x=%d w=%d, want 1 and 1", tree.Count("x"), tree.Count("w"))
	}
}

func TestNamesWithPrefix(t *testing.T) {
	tree := New()
	for _, name := range []string{"iris_b", "ir", "iris_a", "irisX", "j"} {
		tree.Append(tree.Root(), tree.NewNode(KindExprStmt, "", tree.NewNode(KindIdent, name)))
	}
	got := tree.NamesWithPrefix("iris_")
	if len(got) != 2 || got[0] != "iris_a" || got[1] != "iris_b" {
		t.Errorf("NamesWithPrefix = %v", got)
	}
}

// ----------------------------------------------------------------------------
// Structure Tests
// ----------------------------------------------------------------------------

func TestInsertOrder(t *testing.T) {
	tree := New()
	a := tree.NewNode(KindEmpty, "a")
	b := tree.NewNode(KindEmpty, "b")
	c := tree.NewNode(KindEmpty, "c")
	tree.Append(tree.Root(), a)
	tree.Append(tree.Root(), c)
	tree.Insert(tree.Root(), 1, b)

	kids := tree.Children(tree.Root())
	if len(kids) != 3 || kids[0] != a || kids[1] != b || kids[2] != c {
		t.Errorf("children = %v", kids)
	}
	if tree.IndexOf(c) != 2 {
		t.Errorf("IndexOf(c) = %d", tree.IndexOf(c))
	}
}

func TestDoubleParentPanics(t *testing.T) {
	tree := New()
	a := tree.NewNode(KindIdent, "a")
	tree.NewNode(KindExprStmt, "", a)
	defer func() {
		if recover() == nil {
			t.Error("adopting an owned node should panic")
		}
	}()
	tree.NewNode(KindExprStmt, "", a)
}

func TestWalkEnterOrder(t *testing.T) {
	tree, _ := buildAssign("x", "y")
	var kinds []Kind
	tree.Walk(tree.Root(), func(id NodeID) bool {
		kinds = append(kinds, tree.Kind(id))
		return true
	})
	want := []Kind{KindTranslationUnit, KindCompound, KindExprStmt, KindAssign, KindIdent, KindIdent}
	if len(kinds) != len(want) {
		t.Fatalf("walk = %v", kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("walk[%d] = %v, want %v", i, kinds[i], want[i])
		}
	}
}

func TestImportAndEqual(t *testing.T) {
	src, stmt := buildAssign("a", "b")
	dst := New()
	cp := dst.Import(src, stmt)
	if !Equal(src, stmt, dst, cp) {
		t.Error("imported subtree differs")
	}
	if dst.HasIdent("a") {
		t.Error("import must yield a detached subtree")
	}
	dst.Append(dst.Root(), cp)
	if !dst.HasIdent("a") || !dst.HasIdent("b") {
		t.Error("attached import must be indexed")
	}
	if src.Count("a") != 1 {
		t.Error("import modified the source tree")
	}
}

func TestEqualDetectsDifferences(t *testing.T) {
	a, s1 := buildAssign("a", "b")
	b, s2 := buildAssign("a", "c")
	if Equal(a, s1, b, s2) {
		t.Error("subtrees with different identifiers compared equal")
	}
}

func TestParseIntLiteral(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"0", 0, true},
		{"12", 12, true},
		{"3u", 3, true},
		{"0x1F", 31, true},
		{"017", 15, true},
		{"09", 0, false},
		{"1.0", 0, false},
	}
	for _, c := range cases {
		got, ok := ParseIntLiteral(c.in)
		if ok != c.ok || got != c.want {
			t.Errorf("ParseIntLiteral(%q) = %d,%v want %d,%v", c.in, got, ok, c.want, c.ok)
		}
	}
}
