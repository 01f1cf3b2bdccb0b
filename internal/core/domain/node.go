package domain

import "go.trai.ch/zerr"

// maxWalkDepth bounds the descendant, visibility and refer walks. Exceeding it
// means the tree has been corrupted into a cycle, which is reported rather
// than looped on. Package and CommonAncestor climb without this bound.
const maxWalkDepth = 100

// Node is a vertex in the package ownership tree. Packages, source files and
// built files are all Nodes; the trail is the stable identifier.
type Node struct {
	Name      string
	Trail     string
	Parent    *Node
	Privacy   Privacy
	Number    int
	IsPackage bool
	Children  []*Node
	Refers    []*Node
}

// AddChild appends child in declaration order and links it to n.
func (n *Node) AddChild(child *Node) {
	child.Parent = n
	n.Children = append(n.Children, child)
}

// IsDescendantOf reports whether n is anc or lies beneath it.
func (n *Node) IsDescendantOf(anc *Node) bool {
	depth := 0
	for cur := n; cur != nil; cur = cur.Parent {
		if cur == anc {
			return true
		}
		depth++
		if depth > maxWalkDepth {
			return false
		}
	}
	return false
}

// Package returns the nearest enclosing package, or the node itself if it is
// one.
func (n *Node) Package() *Node {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.IsPackage {
			return cur
		}
	}
	return nil
}

// CommonAncestor returns the deepest node containing both n and other.
func (n *Node) CommonAncestor(other *Node) *Node {
	for cur := n; cur != nil; cur = cur.Parent {
		if other.IsDescendantOf(cur) {
			return cur
		}
	}
	return nil
}

// VisibleFrom reports whether n may be seen from view's viewpoint. The walk
// climbs from n toward view accumulating an effective privacy: each node
// raises it to its own declared privacy, and every level climbed past a
// non-public accumulation narrows it one more notch (n's own level sets the
// privacy but does not notch). n is visible iff the accumulated privacy has
// not reached private by the time view is met.
//
// A public node is therefore visible globally; a protected node within its
// parent's interior; and the contents of a non-public node never escape it.
func (n *Node) VisibleFrom(view *Node) bool {
	eff := Public
	depth := 0
	for cur := n; cur != nil; cur = cur.Parent {
		if cur == view {
			return eff < Private
		}
		if cur.Privacy > eff {
			eff = cur.Privacy
		}
		if cur != n && eff >= Protected {
			eff++
		}
		depth++
		if depth > maxWalkDepth {
			return false
		}
	}
	return eff < Private
}

// AddRefer records an outbound non-ownership edge from n to target. The edge
// is validated against the visibility calculus by the caller before
// insertion; AddRefer itself only guards against reference cycles.
func (n *Node) AddRefer(target *Node) error {
	for _, r := range n.Refers {
		if r == target {
			return nil
		}
	}
	if refersBack(target, n, 0) {
		return zerr.With(zerr.With(ErrCircularReference, "from", n.Trail), "to", target.Trail)
	}
	n.Refers = append(n.Refers, target)
	return nil
}

// refersBack reports whether from's refer edges lead to to. The depth bound
// doubles as the cycle detector: a walk that deep is treated as circular.
func refersBack(from, to *Node, depth int) bool {
	if depth > maxWalkDepth {
		return true
	}
	if from == to {
		return true
	}
	for _, r := range from.Refers {
		if refersBack(r, to, depth+1) {
			return true
		}
	}
	return false
}
