package lumen

// TraversePacket walks the tree for 8 coherent rays at once, using the
// 8-wide box test per node. If the lanes' direction signs disagree on any
// axis, the whole group falls back to per-ray traversal; coherent primary
// ray groups almost never do.
//
// hits must hold 8 entries, each initialized like a TraverseClosest query.
func (b *BVH) TraversePacket(group *RayGroup8, hits *[8]HitPoint, isect LeafIntersector) {
	if len(b.nodes) == 0 {
		return
	}

	// the packet traversal order is decided by lane 0; if any lane
	// disagrees on any axis, every lane retraverses alone
	signX := group.SignMask(0)
	signY := group.SignMask(1)
	signZ := group.SignMask(2)
	coherent := uint32(0xff)
	for _, m := range [3]uint32{signX, signY, signZ} {
		agree := m
		if m&1 == 0 {
			agree = ^m
		}
		coherent &= agree & 0xff
	}

	if coherent != 0xff {
		// incoherent packet: per-ray fallback for every lane
		for i := 0; i < 8; i++ {
			ray := group.Ray(i)
			b.TraverseClosest(&ray, &hits[i], isect)
		}
		return
	}

	var stack [MaxBVHDepth]uint32
	stackSize := 0
	nodeIndex := uint32(0)

	negX := signX&1 != 0
	negY := signY&1 != 0
	negZ := signZ&1 != 0

	for {
		node := &b.nodes[nodeIndex]

		maxDist := Float8{
			hits[0].Distance, hits[1].Distance, hits[2].Distance, hits[3].Distance,
			hits[4].Distance, hits[5].Distance, hits[6].Distance, hits[7].Distance,
		}

		if _, mask := IntersectBox8(node.Box(), group, maxDist); !mask.None() {
			if node.IsLeaf() {
				active := mask.MoveMask()
				for i := 0; i < 8; i++ {
					if active&(1<<uint(i)) == 0 {
						continue
					}
					ray := group.Ray(i)
					isect.IntersectLeaf(&ray, node.ChildIndex, uint32(node.NumLeaves), &hits[i])
				}
			} else {
				neg := negX
				switch node.SplitAxis {
				case 1:
					neg = negY
				case 2:
					neg = negZ
				}
				near := node.ChildIndex
				far := node.ChildIndex + 1
				if neg {
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
