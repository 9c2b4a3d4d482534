// Copyright © 2013-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package world

// scenegraph.go holds the hierarchical transform tree shared by every
// spawned unit. It replaces the pointer based pov/part tree of earlier
// engine generations with an arena of dense, index linked nodes so that
// the tree survives swap-on-remove compaction without any pointer
// fixup: http://bitsquid.blogspot.ca/2014/08/building-data-oriented-entity-system.html

import (
	"github.com/galvanized/worldcore/math/lin"
)

// TransformInstance is a dense index into the SceneGraph's node arrays.
// nilTransform means "no such instance".
type TransformInstance uint32

const nilTransform = TransformInstance(0xffffffff)
const nilNode = uint32(0xffffffff)

// sgNode is one entry in the scene graph arena. The tree is expressed
// purely as indices (parent/firstChild/nextSibling) so that moving
// entries during swap-on-remove never invalidates a sibling's link.
type sgNode struct {
	unit UnitId

	local  lin.T  // position + rotation, local to parent.
	scale  lin.V3 // local scale.
	world  lin.M4 // cached world transform; valid iff not stale.
	changed bool

	parent      uint32
	firstChild  uint32
	nextSibling uint32
}

// SceneGraph owns the hierarchical transform tree for every live unit.
// Invariants:
//   - no cycles: a node's ancestor chain never revisits itself.
//   - world(n) == local(n) * world(parent(n)) for non-root n, else local(n).
//   - changed is set on a node and its whole subtree whenever its local
//     transform or any ancestor's world transform changes.
type SceneGraph struct {
	nodes    []sgNode
	byUnit   map[UnitId]TransformInstance
	changed  []TransformInstance // append-only dirty list; see GetChanged.
}

// NewSceneGraph creates an empty scene graph.
func NewSceneGraph() *SceneGraph {
	return &SceneGraph{
		nodes:  []sgNode{},
		byUnit: map[UnitId]TransformInstance{},
	}
}

// SpawnOverrideFlags mirror the spawn-flags bit field from the unit
// resource: they let the root-most transform (index 0) of a spawned
// batch be overridden instead of taken verbatim from the resource.
type SpawnOverrideFlags uint32

const (
	OverridePosition SpawnOverrideFlags = 1 << 0
	OverrideRotation SpawnOverrideFlags = 1 << 1
	OverrideScale    SpawnOverrideFlags = 1 << 2
)

// TransformDesc is one compiled transform component, as it appears in a
// UnitResource's transform block.
type TransformDesc struct {
	Pos   lin.V3
	Rot   lin.Q
	Scale lin.V3
}

// CreateInstances bulk-creates len(data) transforms. unitLookup[unitIndex[i]]
// is the owning unit of data[i]; parents[i] is an index into unitLookup,
// or nilNode for a root. Only data[0] (the root-most transform in a
// resource) is eligible for override by flags/overridePos/overrideRot/overrideScale.
func (g *SceneGraph) CreateInstances(data []TransformDesc, unitLookup []UnitId, unitIndex []uint32, parents []uint32,
	flags SpawnOverrideFlags, overridePos lin.V3, overrideRot lin.Q, overrideScale lin.V3) []TransformInstance {

	out := make([]TransformInstance, len(data))
	for i, d := range data {
		unit := unitLookup[unitIndex[i]]
		pos, rot, scale := d.Pos, d.Rot, d.Scale
		if i == 0 {
			if flags&OverridePosition != 0 {
				pos = overridePos
			}
			if flags&OverrideRotation != 0 {
				rot = overrideRot
			}
			if flags&OverrideScale != 0 {
				scale = overrideScale
			}
		}

		ti := TransformInstance(len(g.nodes))
		n := sgNode{
			unit:        unit,
			local:       *lin.NewT(),
			scale:       scale,
			parent:      nilNode,
			firstChild:  nilNode,
			nextSibling: nilNode,
			changed:     true,
		}
		n.local.SetVQ(&pos, &rot)

		if i > 0 && parents[i] != nilNode {
			parentUnit := unitLookup[parents[i]]
			if parentTi, ok := g.byUnit[parentUnit]; ok {
				n.parent = uint32(parentTi)
			}
		}

		g.nodes = append(g.nodes, n)
		g.byUnit[unit] = ti
		out[i] = ti

		if n.parent != nilNode {
			g.attachChild(n.parent, uint32(ti))
		}
	}
	for _, ti := range out {
		g.markChanged(ti)
	}
	return out
}

// attachChild links child onto parent's child list, at the head for O(1).
func (g *SceneGraph) attachChild(parent, child uint32) {
	g.nodes[child].nextSibling = g.nodes[parent].firstChild
	g.nodes[parent].firstChild = child
}

// Instance returns the TransformInstance for unit, or nilTransform.
func (g *SceneGraph) Instance(unit UnitId) TransformInstance {
	if ti, ok := g.byUnit[unit]; ok {
		return ti
	}
	return nilTransform
}

func (g *SceneGraph) Owner(ti TransformInstance) UnitId   { return g.nodes[ti].unit }
func (g *SceneGraph) Parent(ti TransformInstance) uint32   { return g.nodes[ti].parent }
func (g *SceneGraph) FirstChild(ti TransformInstance) uint32 { return g.nodes[ti].firstChild }
func (g *SceneGraph) NextSibling(ti TransformInstance) uint32 { return g.nodes[ti].nextSibling }

// SetLocalPosition mutates the node's local position and marks the
// node and its whole subtree changed.
func (g *SceneGraph) SetLocalPosition(ti TransformInstance, pos lin.V3) {
	g.nodes[ti].local.Loc = &pos
	g.markChanged(ti)
}

// SetLocalRotation mutates the node's local rotation (unit quaternion)
// and marks the node and its whole subtree changed.
func (g *SceneGraph) SetLocalRotation(ti TransformInstance, rot lin.Q) {
	g.nodes[ti].local.Rot = &rot
	g.markChanged(ti)
}

// SetLocalScale mutates the node's local scale and marks the node and
// its whole subtree changed.
func (g *SceneGraph) SetLocalScale(ti TransformInstance, scale lin.V3) {
	g.nodes[ti].scale = scale
	g.markChanged(ti)
}

// LocalPosition returns the node's local position.
func (g *SceneGraph) LocalPosition(ti TransformInstance) lin.V3 { return *g.nodes[ti].local.Loc }

// LocalRotation returns the node's local rotation.
func (g *SceneGraph) LocalRotation(ti TransformInstance) lin.Q { return *g.nodes[ti].local.Rot }

// SetWorldPose overwrites a node's world transform directly (used by
// physics transform events) and re-derives the local transform from
// the parent's current world pose, preserving the invariant
// world(n) == local(n) * world(parent).
func (g *SceneGraph) SetWorldPose(ti TransformInstance, world lin.M4) {
	n := &g.nodes[ti]
	n.world = world
	var local *lin.M4
	if n.parent == nilNode {
		local = &world
	} else {
		parentWorld := g.WorldPose(TransformInstance(n.parent))
		local = lin.NewM4().Mult(&world, invertRigid(&parentWorld))
	}
	n.local.Loc = &lin.V3{X: local.Wx, Y: local.Wy, Z: local.Wz}
	rot3 := lin.NewM3().SetM4(local)
	n.local.Rot = lin.NewQ().SetM(rot3)
	g.markChangedKeepWorld(ti)
}

// invertRigid inverts a rigid (rotation+translation, no scale)
// transform. Physics delivers exactly such matrices: the top-left 3x3
// block is orthonormal so its inverse is its transpose.
func invertRigid(m *lin.M4) *lin.M4 {
	rot := lin.NewM3().SetM4(m)
	rotT := lin.NewM3().Transpose(rot)
	out := lin.NewM4I()
	out.Xx, out.Xy, out.Xz = rotT.Xx, rotT.Xy, rotT.Xz
	out.Yx, out.Yy, out.Yz = rotT.Yx, rotT.Yy, rotT.Yz
	out.Zx, out.Zy, out.Zz = rotT.Zx, rotT.Zy, rotT.Zz
	tx, ty, tz := -m.Wx, -m.Wy, -m.Wz
	out.Wx = tx*rotT.Xx + ty*rotT.Yx + tz*rotT.Zx
	out.Wy = tx*rotT.Xy + ty*rotT.Yy + tz*rotT.Zy
	out.Wz = tx*rotT.Xz + ty*rotT.Yz + tz*rotT.Zz
	return out
}

// modelMatrix composes local's scale, then rotation, then translation
// into a single 4x4 matrix, following the row-vector convention where
// a point is transformed by v' = v*M and translation lives in the
// Wx,Wy,Wz row.
func modelMatrix(local *lin.T, scale lin.V3) lin.M4 {
	m := lin.NewM4().SetQ(local.Rot)
	m.ScaleSM(scale.X, scale.Y, scale.Z)
	m.TranslateMT(local.Loc.X, local.Loc.Y, local.Loc.Z)
	return *m
}

// WorldPose recomputes (if necessary) and returns the cached world
// transform: world = local * parent.world for non-root, else local.
func (g *SceneGraph) WorldPose(ti TransformInstance) lin.M4 {
	n := &g.nodes[ti]
	local := modelMatrix(&n.local, n.scale)
	if n.parent == nilNode {
		n.world = local
		return n.world
	}
	parentWorld := g.WorldPose(TransformInstance(n.parent))
	n.world.Mult(&local, &parentWorld)
	return n.world
}

// markChanged sets changed on ti and recursively on every descendant,
// because an ancestor's world transform changing dirties the whole
// subtree's cached world matrices.
func (g *SceneGraph) markChanged(ti TransformInstance) {
	g.nodes[ti].changed = true
	g.changed = append(g.changed, ti)
	child := g.nodes[ti].firstChild
	for child != nilNode {
		g.markChanged(TransformInstance(child))
		child = g.nodes[child].nextSibling
	}
}

// markChangedKeepWorld is identical to markChanged but used after the
// world matrix has already been written directly (physics writeback),
// so descendants are dirtied without recomputing this node's own world.
func (g *SceneGraph) markChangedKeepWorld(ti TransformInstance) {
	if !g.nodes[ti].changed {
		g.nodes[ti].changed = true
		g.changed = append(g.changed, ti)
	}
	child := g.nodes[ti].firstChild
	for child != nilNode {
		g.markChanged(TransformInstance(child))
		child = g.nodes[child].nextSibling
	}
}

// GetChanged appends, in stable DFS order over every root, each changed
// node's (UnitId, world matrix) to the output slices. It does not clear
// the changed set: call ClearChanged first if a fresh pass is wanted.
func (g *SceneGraph) GetChanged() (units []UnitId, worlds []lin.M4) {
	seen := map[TransformInstance]bool{}
	for i := range g.nodes {
		ti := TransformInstance(i)
		if g.nodes[i].parent != nilNode {
			continue // only walk from roots, to get a stable DFS order.
		}
		g.collectChanged(ti, seen, &units, &worlds)
	}
	return units, worlds
}

func (g *SceneGraph) collectChanged(ti TransformInstance, seen map[TransformInstance]bool, units *[]UnitId, worlds *[]lin.M4) {
	if seen[ti] {
		return
	}
	seen[ti] = true
	if g.nodes[ti].changed {
		*units = append(*units, g.nodes[ti].unit)
		*worlds = append(*worlds, g.WorldPose(ti))
	}
	child := g.nodes[ti].firstChild
	for child != nilNode {
		g.collectChanged(TransformInstance(child), seen, units, worlds)
		child = g.nodes[child].nextSibling
	}
}

// ClearChanged clears the dirty set. Callers must call this before the
// next mutation pass to avoid accumulating stale entries; GetChanged is
// idempotent between calls to ClearChanged.
func (g *SceneGraph) ClearChanged() {
	for _, ti := range g.changed {
		g.nodes[ti].changed = false
	}
	g.changed = g.changed[:0]
}

// Destroy detaches ti (and, transitively, its subtree) from the scene
// graph and returns the UnitIds of every node removed, in DFS order
// starting with ti itself. Nodes are removed with swap-on-remove so
// the dense array stays compact; byUnit and sibling/child links are
// fixed up for the node that was moved into the freed slot.
func (g *SceneGraph) Destroy(ti TransformInstance) []UnitId {
	subtree := []uint32{}
	g.collectSubtree(uint32(ti), &subtree)

	// detach ti from its parent's child list first.
	if p := g.nodes[ti].parent; p != nilNode {
		g.detachChild(p, uint32(ti))
	}

	removed := make([]UnitId, len(subtree))
	for i, idx := range subtree {
		removed[i] = g.nodes[idx].unit
	}

	// remove subtree nodes; sort descending so repeated swap-remove
	// from the tail never disturbs an index we have yet to remove.
	sortDescending(subtree)
	for _, idx := range subtree {
		g.removeNode(idx)
	}
	return removed
}

func (g *SceneGraph) collectSubtree(idx uint32, out *[]uint32) {
	*out = append(*out, idx)
	child := g.nodes[idx].firstChild
	for child != nilNode {
		g.collectSubtree(child, out)
		child = g.nodes[child].nextSibling
	}
}

func (g *SceneGraph) detachChild(parent, child uint32) {
	if g.nodes[parent].firstChild == child {
		g.nodes[parent].firstChild = g.nodes[child].nextSibling
		return
	}
	cur := g.nodes[parent].firstChild
	for cur != nilNode {
		next := g.nodes[cur].nextSibling
		if next == child {
			g.nodes[cur].nextSibling = g.nodes[child].nextSibling
			return
		}
		cur = next
	}
}

// removeNode swap-removes the node at idx with the last node in the
// dense array, fixing up the moved node's parent/children/siblings and
// the unit map.
func (g *SceneGraph) removeNode(idx uint32) {
	last := uint32(len(g.nodes) - 1)
	delete(g.byUnit, g.nodes[idx].unit)
	if idx != last {
		g.nodes[idx] = g.nodes[last]
		g.byUnit[g.nodes[idx].unit] = TransformInstance(idx)
		g.fixupReferences(last, idx)
	}
	g.nodes = g.nodes[:last]
}

// fixupReferences retargets every link that pointed at "from" (the old
// index of the node that was just moved) to "to" (its new index).
func (g *SceneGraph) fixupReferences(from, to uint32) {
	if g.nodes[to].parent != nilNode {
		p := g.nodes[to].parent
		if g.nodes[p].firstChild == from {
			g.nodes[p].firstChild = to
		} else {
			cur := g.nodes[p].firstChild
			for cur != nilNode {
				if g.nodes[cur].nextSibling == from {
					g.nodes[cur].nextSibling = to
					break
				}
				cur = g.nodes[cur].nextSibling
			}
		}
	}
	for i := range g.nodes {
		if g.nodes[i].parent == from {
			g.nodes[i].parent = to
		}
	}
	child := g.nodes[to].firstChild
	for child != nilNode {
		g.nodes[child].parent = to
		child = g.nodes[child].nextSibling
	}
}

func sortDescending(s []uint32) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] < s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
