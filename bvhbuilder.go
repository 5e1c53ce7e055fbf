package lumen

import (
	"fmt"
	"sort"
)

// BuildHeuristic selects the cost measure of the split sweep.
type BuildHeuristic uint8

const (
	// HeuristicSurfaceArea is the classic SAH cost.
	HeuristicSurfaceArea BuildHeuristic = iota
	// HeuristicVolume weighs children by box volume instead.
	HeuristicVolume
)

const numAxes = 3

// BVHBuildParams configures a build.
type BVHBuildParams struct {
	// MaxLeafSize is the largest leaf the builder emits. Must be in
	// [1, 255]; a zero value defaults to 4.
	MaxLeafSize uint32
	// Heuristic selects the split cost measure.
	Heuristic BuildHeuristic
}

// BuildBVH constructs a hierarchy over the given leaf bounding boxes. It
// returns the tree and the leaf permutation: leavesOrder[slot] is the input
// index referenced by that leaf slot. An empty input produces an empty tree
// and a nil permutation, reported as success.
func BuildBVH(leafBoxes []Box, params BVHBuildParams) (*BVH, []uint32, error) {
	if params.MaxLeafSize == 0 {
		params.MaxLeafSize = 4
	}
	if params.MaxLeafSize > 255 {
		return nil, nil, fmt.Errorf("%w: max leaf size %d exceeds 255", ErrInvalidParams, params.MaxLeafSize)
	}

	numLeaves := uint32(len(leafBoxes))
	target := &BVH{numLeaves: numLeaves}
	if numLeaves == 0 {
		return target, nil, nil
	}

	b := bvhBuilder{
		leafBoxes:  leafBoxes,
		params:     params,
		nodes:      make([]BVHNode, 2*numLeaves),
		leftBoxes:  make([]Box, numLeaves),
		rightBoxes: make([]Box, numLeaves),
		order:      make([]uint32, 0, numLeaves),
	}

	overall := EmptyBox()
	for i := range leafBoxes {
		overall = overall.Union(leafBoxes[i])
	}

	root := workSet{
		box:         overall,
		leafIndices: make([]uint32, numLeaves),
		sortedBy:    -1,
	}
	for i := range root.leafIndices {
		root.leafIndices[i] = uint32(i)
	}

	b.numGeneratedNodes = 1
	b.buildNode(&root, &b.nodes[0])

	if b.numGeneratedLeaves != numLeaves {
		return nil, nil, fmt.Errorf("%w: generated %d leaves, expected %d", ErrBVHInvariant, b.numGeneratedLeaves, numLeaves)
	}

	target.nodes = b.nodes[:b.numGeneratedNodes]
	return target, b.order, nil
}

// workSet is the builder's per-node state: the subset's enclosing box, its
// leaf indices, the recursion depth, and the axis the index list is already
// sorted along (-1 if unsorted).
type workSet struct {
	box         Box
	leafIndices []uint32
	depth       uint32
	sortedBy    int
}

type bvhBuilder struct {
	leafBoxes []Box
	params    BVHBuildParams

	nodes             []BVHNode
	order             []uint32
	numGeneratedNodes uint32
	numGeneratedLeaves uint32

	// split sweep scratch, allocated once and reused across the recursion
	leftBoxes  []Box
	rightBoxes []Box
}

func (b *bvhBuilder) generateLeaf(ws *workSet, node *BVHNode) {
	node.NumLeaves = uint8(len(ws.leafIndices))
	node.ChildIndex = b.numGeneratedLeaves
	b.order = append(b.order, ws.leafIndices...)
	b.numGeneratedLeaves += uint32(len(ws.leafIndices))
}

func (b *bvhBuilder) buildNode(ws *workSet, node *BVHNode) {
	node.setBox(ws.box)
	node.SplitAxis = 0

	if uint32(len(ws.leafIndices)) <= b.params.MaxLeafSize || ws.depth >= MaxBVHDepth-1 {
		b.generateLeaf(ws, node)
		return
	}

	sorted := b.sortLeaves(ws)

	count := len(ws.leafIndices)
	bestAxis, bestSplitPos := 0, 0
	bestCost := float32(-1)
	var bestLeft, bestRight Box

	for axis := 0; axis < numAxes; axis++ {
		indices := sorted[axis]

		// left-prefix boxes per split position
		acc := EmptyBox()
		for i := 0; i < count; i++ {
			acc = acc.Union(b.leafBoxes[indices[i]])
			b.leftBoxes[i] = acc
		}

		// right-suffix boxes per split position
		acc = EmptyBox()
		for i := count - 1; i >= 0; i-- {
			acc = acc.Union(b.leafBoxes[indices[i]])
			b.rightBoxes[i] = acc
		}

		for splitPos := 0; splitPos < count-1; splitPos++ {
			left := b.leftBoxes[splitPos]
			right := b.rightBoxes[splitPos+1]

			var leftCost, rightCost float32
			if b.params.Heuristic == HeuristicVolume {
				leftCost = left.Volume()
				rightCost = right.Volume()
			} else {
				leftCost = left.SurfaceArea()
				rightCost = right.SurfaceArea()
			}

			leftCount := splitPos + 1
			rightCount := count - leftCount
			cost := leftCost*float32(leftCount) + rightCost*float32(rightCount)

			if bestCost < 0 || cost < bestCost {
				bestCost = cost
				bestAxis = axis
				bestSplitPos = splitPos
				bestLeft = left
				bestRight = right
			}
		}
	}

	leftCount := bestSplitPos + 1
	indices := sorted[bestAxis]

	leftIndices := make([]uint32, leftCount)
	rightIndices := make([]uint32, count-leftCount)
	copy(leftIndices, indices[:leftCount])
	copy(rightIndices, indices[leftCount:])

	leftNodeIndex := b.numGeneratedNodes
	b.numGeneratedNodes += 2

	node.ChildIndex = leftNodeIndex
	node.NumLeaves = 0
	node.SplitAxis = uint8(bestAxis)

	left := workSet{
		box:         bestLeft,
		leafIndices: leftIndices,
		depth:       ws.depth + 1,
		sortedBy:    bestAxis,
	}
	b.buildNode(&left, &b.nodes[leftNodeIndex])

	right := workSet{
		box:         bestRight,
		leafIndices: rightIndices,
		depth:       ws.depth + 1,
		sortedBy:    bestAxis,
	}
	b.buildNode(&right, &b.nodes[leftNodeIndex+1])
}

// sortLeaves produces the three per-axis centroid orderings of the work
// set. The ordering the parent already produced is inherited by ownership
// transfer; only the other two axes are sorted.
func (b *bvhBuilder) sortLeaves(ws *workSet) [numAxes][]uint32 {
	var sorted [numAxes][]uint32

	for axis := 0; axis < numAxes; axis++ {
		if ws.sortedBy == axis {
			sorted[axis] = ws.leafIndices
			continue
		}

		indices := make([]uint32, len(ws.leafIndices))
		copy(indices, ws.leafIndices)

		sort.Slice(indices, func(i, j int) bool {
			a := &b.leafBoxes[indices[i]]
			c := &b.leafBoxes[indices[j]]
			// min+max is twice the centroid, which sorts identically
			return a.Min.Axis(axis)+a.Max.Axis(axis) < c.Min.Axis(axis)+c.Max.Axis(axis)
		})
		sorted[axis] = indices
	}

	return sorted
}
