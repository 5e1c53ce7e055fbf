package lumen

// MaxBVHDepth bounds the recursion depth of the builder and the traversal
// stack size.
const MaxBVHDepth = 64

// BVHNode is one packed node of the hierarchy, 32 bytes. Inner nodes have
// NumLeaves == 0 and ChildIndex pointing at the left child; the right child
// immediately follows it. Leaf nodes have NumLeaves > 0 and ChildIndex
// pointing into the leaf permutation.
type BVHNode struct {
	MinX, MinY, MinZ float32
	ChildIndex       uint32
	MaxX, MaxY, MaxZ float32
	NumLeaves        uint8
	SplitAxis        uint8 // build axis, a traversal order hint; 0..2
	_                [2]byte
}

// Box returns the node's bounding box.
func (n *BVHNode) Box() Box {
	return Box{
		Min: Vec3{n.MinX, n.MinY, n.MinZ},
		Max: Vec3{n.MaxX, n.MaxY, n.MaxZ},
	}
}

// IsLeaf reports whether the node is a leaf.
func (n *BVHNode) IsLeaf() bool { return n.NumLeaves > 0 }

func (n *BVHNode) setBox(b Box) {
	n.MinX, n.MinY, n.MinZ = b.Min.X, b.Min.Y, b.Min.Z
	n.MaxX, n.MaxY, n.MaxZ = b.Max.X, b.Max.Y, b.Max.Z
}

// BVH is a binary bounding-volume hierarchy stored as a packed node array
// in depth-first pre-order. Children are referenced by index, never by
// pointer. The node array and the accompanying leaf permutation are
// read-only during rendering.
type BVH struct {
	nodes     []BVHNode
	numLeaves uint32
}

// Nodes exposes the packed node array.
func (b *BVH) Nodes() []BVHNode { return b.nodes }

// NumNodes returns the number of generated nodes.
func (b *BVH) NumNodes() uint32 { return uint32(len(b.nodes)) }

// NumLeaves returns the total number of input leaves referenced by the
// tree.
func (b *BVH) NumLeaves() uint32 { return b.numLeaves }
