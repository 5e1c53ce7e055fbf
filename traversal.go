package lumen

// LeafIntersector narrows a ray against the primitives a BVH leaf covers.
// The traversal hands over the leaf-permutation slice
// [firstLeaf, firstLeaf+numLeaves); the intersector looks up geometry
// through the permutation returned by BuildBVH. The core never interprets
// primitive geometry itself.
type LeafIntersector interface {
	// IntersectLeaf narrows hit to the closest accepted intersection, if
	// any, updating hit.Distance, object ids, and UV.
	IntersectLeaf(ray *Ray, firstLeaf, numLeaves uint32, hit *HitPoint)
	// IntersectLeafShadow reports whether any primitive intersects the ray
	// closer than maxDist.
	IntersectLeafShadow(ray *Ray, firstLeaf, numLeaves uint32, maxDist float32) bool
}

// TraverseClosest walks the tree and records the closest intersection in
// hit. hit.Distance doubles as the search bound and must be initialized
// (DefaultHitDistance for an unbounded query).
func (b *BVH) TraverseClosest(ray *Ray, hit *HitPoint, isect LeafIntersector) {
	if len(b.nodes) == 0 {
		return
	}

	var stack [MaxBVHDepth]uint32
	stackSize := 0
	nodeIndex := uint32(0)

	for {
		node := &b.nodes[nodeIndex]
		box := node.Box()

		if _, ok := box.Intersect(ray, hit.Distance); ok {
			if node.IsLeaf() {
				isect.IntersectLeaf(ray, node.ChildIndex, uint32(node.NumLeaves), hit)
			} else {
				// visit the near child first, using the build axis and the
				// ray direction sign on it
				near := node.ChildIndex
				far := node.ChildIndex + 1
				if ray.Dir.Axis(int(node.SplitAxis)) < 0 {
					near, far = far, near
				}
				stack[stackSize] = far
				stackSize++
				nodeIndex = near
				continue
			}
		}

		if stackSize == 0 {
			return
		}
		stackSize--
		nodeIndex = stack[stackSize]
	}
}

// TraverseShadow walks the tree and reports whether any primitive
// intersects the ray closer than maxDist, terminating on the first hit.
func (b *BVH) TraverseShadow(ray *Ray, maxDist float32, isect LeafIntersector) bool {
	if len(b.nodes) == 0 {
		return false
	}

	var stack [MaxBVHDepth]uint32
	stackSize := 0
	nodeIndex := uint32(0)

	for {
		node := &b.nodes[nodeIndex]
		box := node.Box()

		if _, ok := box.Intersect(ray, maxDist); ok {
			if node.IsLeaf() {
				if isect.IntersectLeafShadow(ray, node.ChildIndex, uint32(node.NumLeaves), maxDist) {
					return true
				}
			} else {
				stack[stackSize] = node.ChildIndex + 1
				stackSize++
				nodeIndex = node.ChildIndex
				continue
			}
		}

		if stackSize == 0 {
			return false
		}
		stackSize--
		nodeIndex = stack[stackSize]
	}
}
