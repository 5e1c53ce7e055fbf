package geom

import "github.com/phanxgames/lumen"

// Object pairs a shape with its surface description.
type Object struct {
	Shape    Shape
	Material lumen.Material
	// Light is non-nil for emissive geometry (area lights).
	Light *AreaLight
}

// Scene is a BVH-backed implementation of lumen.Scene (and the packet
// capability) over the kit's shapes. Populate it with AddObject,
// AddAreaLight, and AddLight, then call Build before rendering.
type Scene struct {
	objects      []Object
	lights       []lumen.Light
	globalLights []lumen.Light

	bvh    *lumen.BVH
	leaves []uint32 // leaf permutation: BVH slot -> object index
	bounds lumen.Box
	built  bool
}

// NewScene creates an empty scene.
func NewScene() *Scene {
	return &Scene{bounds: lumen.EmptyBox()}
}

// AddObject appends a non-emissive object.
func (s *Scene) AddObject(shape Shape, material lumen.Material) {
	s.objects = append(s.objects, Object{Shape: shape, Material: material})
	s.built = false
}

// AddAreaLight appends an emissive object and registers it as a light.
// Camera rays hitting the shape see the emitter.
func (s *Scene) AddAreaLight(shape Shape, radiance lumen.Color) *AreaLight {
	light := NewAreaLight(shape, radiance)
	s.objects = append(s.objects, Object{Shape: shape, Material: &Lambert{}, Light: light})
	s.lights = append(s.lights, light)
	s.built = false
	return light
}

// AddLight registers a non-geometric light. A BackgroundLight becomes a
// global light, evaluated when rays escape; every other type is local.
func (s *Scene) AddLight(light lumen.Light) {
	switch light.(type) {
	case *BackgroundLight:
		s.globalLights = append(s.globalLights, light)
	default:
		s.lights = append(s.lights, light)
	}
	// directional lights are sampled locally but never hit
	s.built = false
}

// Build compiles the BVH and installs the scene bounds into the lights that
// need them. Must be called after the last mutation and before rendering.
func (s *Scene) Build(params lumen.BVHBuildParams) error {
	boxes := make([]lumen.Box, len(s.objects))
	s.bounds = lumen.EmptyBox()
	for i := range s.objects {
		boxes[i] = s.objects[i].Shape.Bounds()
		s.bounds = s.bounds.Union(boxes[i])
	}

	bvh, leaves, err := lumen.BuildBVH(boxes, params)
	if err != nil {
		return err
	}
	s.bvh = bvh
	s.leaves = leaves

	for _, l := range s.lights {
		if sb, ok := l.(interface{ setSceneBounds(lumen.Box) }); ok {
			sb.setSceneBounds(s.bounds)
		}
	}
	for _, l := range s.globalLights {
		if sb, ok := l.(interface{ setSceneBounds(lumen.Box) }); ok {
			sb.setSceneBounds(s.bounds)
		}
	}

	s.built = true
	return nil
}

// Bounds returns the union of all object bounds.
func (s *Scene) Bounds() lumen.Box { return s.bounds }

// BVH exposes the compiled hierarchy.
func (s *Scene) BVH() *lumen.BVH { return s.bvh }

// Traverse implements lumen.Scene.
func (s *Scene) Traverse(ray *lumen.Ray, hit *lumen.HitPoint, ctx *lumen.RenderingContext) {
	if s.bvh == nil {
		return
	}
	s.bvh.TraverseClosest(ray, hit, s)
}

// TraverseShadow implements lumen.Scene.
func (s *Scene) TraverseShadow(ray *lumen.Ray, maxDist float32, ctx *lumen.RenderingContext) bool {
	if s.bvh == nil {
		return false
	}
	return s.bvh.TraverseShadow(ray, maxDist, s)
}

// TraversePacket implements lumen.PacketScene.
func (s *Scene) TraversePacket(group *lumen.RayGroup8, hits *[8]lumen.HitPoint, ctx *lumen.RenderingContext) {
	if s.bvh == nil {
		return
	}
	s.bvh.TraversePacket(group, hits, s)
}

// IntersectLeaf implements lumen.LeafIntersector.
func (s *Scene) IntersectLeaf(ray *lumen.Ray, firstLeaf, numLeaves uint32, hit *lumen.HitPoint) {
	for slot := firstLeaf; slot < firstLeaf+numLeaves; slot++ {
		objIndex := s.leaves[slot]
		t, u, v, ok := s.objects[objIndex].Shape.Intersect(ray, hit.Distance)
		if ok {
			hit.Distance = t
			hit.ObjectID = objIndex
			hit.U, hit.V = u, v
		}
	}
}

// IntersectLeafShadow implements lumen.LeafIntersector.
func (s *Scene) IntersectLeafShadow(ray *lumen.Ray, firstLeaf, numLeaves uint32, maxDist float32) bool {
	for slot := firstLeaf; slot < firstLeaf+numLeaves; slot++ {
		objIndex := s.leaves[slot]
		if _, _, _, ok := s.objects[objIndex].Shape.Intersect(ray, maxDist); ok {
			return true
		}
	}
	return false
}

// EvaluateIntersection implements lumen.Scene.
func (s *Scene) EvaluateIntersection(ray *lumen.Ray, hit *lumen.HitPoint, time float32, out *lumen.IntersectionData) {
	obj := &s.objects[hit.ObjectID]

	out.Position = ray.At(hit.Distance)
	normal := obj.Shape.NormalAt(out.Position)
	// double-sided shading: the frame always faces the incoming ray
	if normal.Dot(ray.Dir) > 0 {
		normal = normal.Neg()
	}
	out.Normal = normal
	out.Tangent, out.Binormal = lumen.OrthonormalBasis(normal)
	out.U, out.V = hit.U, hit.V
	out.Material = obj.Material
	if obj.Light != nil {
		out.HitLight = obj.Light
	} else {
		out.HitLight = nil
	}
}

// Lights implements lumen.Scene.
func (s *Scene) Lights() []lumen.Light { return s.lights }

// GlobalLights implements lumen.Scene.
func (s *Scene) GlobalLights() []lumen.Light { return s.globalLights }
