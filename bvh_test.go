package lumen

import "testing"

// boxLeafIntersector treats the input boxes themselves as primitives: the
// hit distance is the slab entry point.
type boxLeafIntersector struct {
	boxes []Box
	perm  []uint32
}

func (bi *boxLeafIntersector) IntersectLeaf(ray *Ray, firstLeaf, numLeaves uint32, hit *HitPoint) {
	for slot := firstLeaf; slot < firstLeaf+numLeaves; slot++ {
		index := bi.perm[slot]
		if tNear, ok := bi.boxes[index].Intersect(ray, hit.Distance); ok && tNear < hit.Distance {
			hit.Distance = tNear
			hit.ObjectID = index
		}
	}
}

func (bi *boxLeafIntersector) IntersectLeafShadow(ray *Ray, firstLeaf, numLeaves uint32, maxDist float32) bool {
	for slot := firstLeaf; slot < firstLeaf+numLeaves; slot++ {
		if _, ok := bi.boxes[bi.perm[slot]].Intersect(ray, maxDist); ok {
			return true
		}
	}
	return false
}

// boxContains reports outer ⊇ inner with a small tolerance.
func boxContains(outer, inner Box) bool {
	const eps = 1e-4
	return outer.Min.X <= inner.Min.X+eps && outer.Min.Y <= inner.Min.Y+eps && outer.Min.Z <= inner.Min.Z+eps &&
		outer.Max.X >= inner.Max.X-eps && outer.Max.Y >= inner.Max.Y-eps && outer.Max.Z >= inner.Max.Z-eps
}

// checkBVHInvariants verifies the structural properties of a built tree.
func checkBVHInvariants(t *testing.T, bvh *BVH, boxes []Box, perm []uint32) {
	t.Helper()

	if len(boxes) == 0 {
		if bvh.NumNodes() != 0 {
			t.Fatalf("empty input built %d nodes, want 0", bvh.NumNodes())
		}
		return
	}

	if len(perm) != len(boxes) {
		t.Fatalf("permutation length = %d, want %d", len(perm), len(boxes))
	}
	seen := make([]bool, len(boxes))
	for _, p := range perm {
		if int(p) >= len(boxes) || seen[p] {
			t.Fatalf("leaf order is not a permutation of [0, %d)", len(boxes))
		}
		seen[p] = true
	}

	if bvh.NumNodes() > 2*uint32(len(boxes)) {
		t.Fatalf("node count %d exceeds 2n = %d", bvh.NumNodes(), 2*len(boxes))
	}

	nodes := bvh.Nodes()
	var totalLeaves uint32

	var walk func(index uint32, depth int)
	walk = func(index uint32, depth int) {
		if depth > MaxBVHDepth {
			t.Fatalf("depth exceeds %d", MaxBVHDepth)
		}
		node := &nodes[index]

		if node.IsLeaf() {
			totalLeaves += uint32(node.NumLeaves)
			union := EmptyBox()
			for slot := node.ChildIndex; slot < node.ChildIndex+uint32(node.NumLeaves); slot++ {
				union = union.Union(boxes[perm[slot]])
			}
			if !boxContains(node.Box(), union) || !boxContains(union, node.Box()) {
				t.Fatalf("leaf %d box %v != union of covered leaves %v", index, node.Box(), union)
			}
			return
		}

		left := &nodes[node.ChildIndex]
		right := &nodes[node.ChildIndex+1]
		if !boxContains(node.Box(), left.Box()) || !boxContains(node.Box(), right.Box()) {
			t.Fatalf("inner node %d does not enclose its children", index)
		}
		walk(node.ChildIndex, depth+1)
		walk(node.ChildIndex+1, depth+1)
	}
	walk(0, 0)

	if totalLeaves != uint32(len(boxes)) {
		t.Fatalf("tree references %d leaves, want %d", totalLeaves, len(boxes))
	}
}

func TestBuildBVHEmpty(t *testing.T) {
	bvh, perm, err := BuildBVH(nil, BVHBuildParams{MaxLeafSize: 4})
	if err != nil {
		t.Fatalf("empty build failed: %v", err)
	}
	if bvh.NumNodes() != 0 || perm != nil {
		t.Errorf("empty build: nodes = %d, perm = %v; want 0, nil", bvh.NumNodes(), perm)
	}
}

func TestBuildBVHSingleLeaf(t *testing.T) {
	boxes := []Box{{Min: Vec3{0, 0, 0}, Max: Vec3{1, 1, 1}}}
	bvh, perm, err := BuildBVH(boxes, BVHBuildParams{MaxLeafSize: 4})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if bvh.NumNodes() != 1 {
		t.Fatalf("nodes = %d, want 1", bvh.NumNodes())
	}
	checkBVHInvariants(t, bvh, boxes, perm)
}

func TestBuildBVHInvariants(t *testing.T) {
	var rng Random
	rng.Seed(42)

	boxes := make([]Box, 500)
	for i := range boxes {
		min := Vec3{rng.Float() * 50, rng.Float() * 50, rng.Float() * 50}
		size := Vec3{rng.Float()*2 + 0.1, rng.Float()*2 + 0.1, rng.Float()*2 + 0.1}
		boxes[i] = Box{Min: min, Max: min.Add(size)}
	}

	for _, heuristic := range []BuildHeuristic{HeuristicSurfaceArea, HeuristicVolume} {
		bvh, perm, err := BuildBVH(boxes, BVHBuildParams{MaxLeafSize: 4, Heuristic: heuristic})
		if err != nil {
			t.Fatalf("heuristic %d: %v", heuristic, err)
		}
		checkBVHInvariants(t, bvh, boxes, perm)
	}
}

func TestSAHSplitsSeparatedClusters(t *testing.T) {
	// two tight clusters of two boxes, far apart on X: the root split must
	// be axis 0 between them
	boxes := []Box{
		{Min: Vec3{0, 0, 0}, Max: Vec3{1, 1, 1}},
		{Min: Vec3{0.2, 0, 0}, Max: Vec3{1.2, 1, 1}},
		{Min: Vec3{50, 0, 0}, Max: Vec3{51, 1, 1}},
		{Min: Vec3{50.2, 0, 0}, Max: Vec3{51.2, 1, 1}},
	}

	bvh, perm, err := BuildBVH(boxes, BVHBuildParams{MaxLeafSize: 2})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	checkBVHInvariants(t, bvh, boxes, perm)

	root := &bvh.Nodes()[0]
	if root.IsLeaf() {
		t.Fatal("root is a leaf, want an inner node")
	}
	if root.SplitAxis != 0 {
		t.Errorf("root split axis = %d, want 0", root.SplitAxis)
	}

	left := &bvh.Nodes()[root.ChildIndex]
	right := &bvh.Nodes()[root.ChildIndex+1]
	if left.NumLeaves != 2 || right.NumLeaves != 2 {
		t.Fatalf("split sizes = %d/%d, want 2/2", left.NumLeaves, right.NumLeaves)
	}
	if left.MaxX > 2 {
		t.Errorf("left child covers %f..%f, want the near cluster", left.MinX, left.MaxX)
	}
	if right.MinX < 50 {
		t.Errorf("right child starts at %f, want >= 50", right.MinX)
	}
}

func TestBVHRoundTripMatchesBruteForce(t *testing.T) {
	var rng Random
	rng.Seed(1234)

	const n = 10000
	boxes := make([]Box, n)
	for i := range boxes {
		min := Vec3{rng.Float() * 99, rng.Float() * 99, rng.Float() * 99}
		boxes[i] = Box{Min: min, Max: min.Add(Vec3{1, 1, 1})}
	}

	bvh, perm, err := BuildBVH(boxes, BVHBuildParams{MaxLeafSize: 4})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	checkBVHInvariants(t, bvh, boxes, perm)

	isect := &boxLeafIntersector{boxes: boxes, perm: perm}

	// a fixed grid of origins and axis-aligned directions through the
	// volume
	var rays []Ray
	for i := 0; i < 5; i++ {
		for j := 0; j < 5; j++ {
			a := float32(i)*20 + 10
			b := float32(j)*20 + 10
			rays = append(rays,
				NewRay(Vec3{a, b, -10}, Vec3{0, 0, 1}),
				NewRay(Vec3{a, -10, b}, Vec3{0, 1, 0}),
				NewRay(Vec3{-10, a, b}, Vec3{1, 0, 0}),
				NewRay(Vec3{a, b, 110}, Vec3{0.01, 0.01, -1}),
			)
		}
	}

	for ri := range rays {
		var hit HitPoint
		hit.Reset()
		bvh.TraverseClosest(&rays[ri], &hit, isect)

		// brute force reference
		var brute HitPoint
		brute.Reset()
		for i := range boxes {
			if tNear, ok := boxes[i].Intersect(&rays[ri], brute.Distance); ok && tNear < brute.Distance {
				brute.Distance = tNear
				brute.ObjectID = uint32(i)
			}
		}

		if hit.ObjectID != brute.ObjectID {
			t.Fatalf("ray %d: closest = %d (t=%f), brute force = %d (t=%f)",
				ri, hit.ObjectID, hit.Distance, brute.ObjectID, brute.Distance)
		}
	}
}

func TestTraverseShadow(t *testing.T) {
	boxes := []Box{
		{Min: Vec3{0, 0, 0}, Max: Vec3{1, 1, 1}},
		{Min: Vec3{0, 0, 5}, Max: Vec3{1, 1, 6}},
	}
	bvh, perm, err := BuildBVH(boxes, BVHBuildParams{MaxLeafSize: 1})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	isect := &boxLeafIntersector{boxes: boxes, perm: perm}

	ray := NewRay(Vec3{0.5, 0.5, -3}, Vec3{0, 0, 1})
	if !bvh.TraverseShadow(&ray, 100, isect) {
		t.Error("shadow ray through both boxes reported unoccluded")
	}
	if bvh.TraverseShadow(&ray, 2, isect) {
		t.Error("shadow ray bounded before the first box reported occluded")
	}

	miss := NewRay(Vec3{5, 5, -3}, Vec3{0, 0, 1})
	if bvh.TraverseShadow(&miss, 100, isect) {
		t.Error("missing shadow ray reported occluded")
	}
}

func TestTraversePacketMatchesSingle(t *testing.T) {
	var rng Random
	rng.Seed(99)

	boxes := make([]Box, 300)
	for i := range boxes {
		min := Vec3{rng.Float() * 20, rng.Float() * 20, rng.Float() * 20}
		boxes[i] = Box{Min: min, Max: min.Add(Vec3{1, 1, 1})}
	}
	bvh, perm, err := BuildBVH(boxes, BVHBuildParams{MaxLeafSize: 4})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	isect := &boxLeafIntersector{boxes: boxes, perm: perm}

	// coherent group: a 4x2 pixel footprint
	var group RayGroup8
	rays := make([]Ray, 8)
	for i := range rays {
		origin := Vec3{float32(i%4) * 0.5, float32(i/4) * 0.5, -5}
		rays[i] = NewRay(origin, Vec3{0.4, 0.4, 1})
		group.SetRay(i, &rays[i])
	}

	var packetHits [8]HitPoint
	for i := range packetHits {
		packetHits[i].Reset()
	}
	bvh.TraversePacket(&group, &packetHits, isect)

	for i := range rays {
		var single HitPoint
		single.Reset()
		bvh.TraverseClosest(&rays[i], &single, isect)
		if packetHits[i].ObjectID != single.ObjectID {
			t.Errorf("lane %d: packet hit %d, single hit %d", i, packetHits[i].ObjectID, single.ObjectID)
		}
	}

	// incoherent group: mixed direction signs force the per-ray fallback
	for i := range rays {
		dir := Vec3{0.4, 0.4, 1}
		if i%2 == 1 {
			dir.Z = -1
		}
		rays[i] = NewRay(Vec3{10, 10, 10}, dir)
		group.SetRay(i, &rays[i])
	}
	for i := range packetHits {
		packetHits[i].Reset()
	}
	bvh.TraversePacket(&group, &packetHits, isect)
	for i := range rays {
		var single HitPoint
		single.Reset()
		bvh.TraverseClosest(&rays[i], &single, isect)
		if packetHits[i].ObjectID != single.ObjectID {
			t.Errorf("incoherent lane %d: packet hit %d, single hit %d", i, packetHits[i].ObjectID, single.ObjectID)
		}
	}
}
