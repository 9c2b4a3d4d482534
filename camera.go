// Copyright © 2013-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package world

// camera.go implements the dense, swap-on-remove Camera component
// keyed by UnitId (spec data model §3), and the view/projection matrix
// builders it depends on. View transform convention: the camera looks
// down its local +Y axis, so the view matrix is the inverse of a 90°
// rotation about X composed with the camera unit's world pose.

import "github.com/galvanized/worldcore/math/lin"

// ProjectionType selects how a Camera's projection matrix is built.
type ProjectionType int

const (
	Perspective ProjectionType = iota
	Orthographic
)

// CameraInstance is a dense index into the camera component arrays.
type CameraInstance uint32

const nilCamera = CameraInstance(0xffffffff)

type cameraData struct {
	unit     UnitId
	kind     ProjectionType
	fov      float64 // degrees, perspective only.
	near     float64
	far      float64
	halfSize float64 // orthographic half-extent.
}

// CameraManager owns every live Camera component.
type CameraManager struct {
	data   []cameraData
	byUnit map[UnitId]CameraInstance
}

// NewCameraManager creates an empty camera manager.
func NewCameraManager() *CameraManager {
	return &CameraManager{byUnit: map[UnitId]CameraInstance{}}
}

// CreateInstances bulk-creates one camera per unit, every camera
// sharing the given projection settings.
func (m *CameraManager) CreateInstances(units []UnitId, kind ProjectionType, fov, near, far, halfSize float64) []CameraInstance {
	out := make([]CameraInstance, len(units))
	for i, u := range units {
		ci := CameraInstance(len(m.data))
		m.data = append(m.data, cameraData{unit: u, kind: kind, fov: fov, near: near, far: far, halfSize: halfSize})
		m.byUnit[u] = ci
		out[i] = ci
	}
	return out
}

// Instance returns the CameraInstance for unit, or nilCamera.
func (m *CameraManager) Instance(unit UnitId) CameraInstance {
	if ci, ok := m.byUnit[unit]; ok {
		return ci
	}
	return nilCamera
}

// Destroy swap-removes ci, the standard structure-of-arrays pattern
// used by every component system (spec data model §3).
func (m *CameraManager) Destroy(ci CameraInstance) {
	last := CameraInstance(len(m.data) - 1)
	delete(m.byUnit, m.data[ci].unit)
	if ci != last {
		m.data[ci] = m.data[last]
		m.byUnit[m.data[ci].unit] = ci
	}
	m.data = m.data[:last]
}

// Projection builds the camera's projection matrix for the given
// aspect ratio (width/height).
func (m *CameraManager) Projection(ci CameraInstance, aspect float64) *lin.M4 {
	c := &m.data[ci]
	p := lin.NewM4()
	if c.kind == Perspective {
		p.Persp(c.fov, aspect, c.near, c.far)
	} else {
		h := c.halfSize
		p.Ortho(-h*aspect, h*aspect, -h, h, c.near, c.far)
	}
	return p
}

// ViewMatrix returns invert(rotate_x_90 · world), the spec's view
// convention reflecting a camera whose forward axis is +Y in local
// space (spec.md §4.8).
func ViewMatrix(world *lin.M4) *lin.M4 {
	rotX90 := lin.NewM4().SetQ(lin.NewQ().SetAa(1, 0, 0, lin.Rad(90)))
	composed := lin.NewM4().Mult(rotX90, world)
	return invertRigid(composed)
}

// Ray applies the inverse projection and inverse view transforms to
// derive a world space direction for a ray cast from the camera
// through the mouse's mx, my screen position given window width and
// height ww, wh. invProj is built once per camera resize via
// M4.PerspInv; invView is the inverse of the camera's current view
// matrix (the 90° X rotation composed with the camera's world pose,
// i.e. the matrix that ViewMatrix inverts).
func Ray(invView, invProj *lin.M4, mx, my, ww, wh int) (x, y, z float64) {
	if mx < 0 || mx > ww || my < 0 || my > wh {
		return 0, 0, 0
	}
	clipx := float64(2*mx)/float64(ww) - 1
	clipy := float64(2*my)/float64(wh) - 1
	clip := lin.NewV4().SetS(clipx, clipy, -1, 1)

	eye := clip.MultvM(clip, invProj)
	eye.Z = -1
	eye.W = 0

	world := eye.MultvM(eye, invView)
	ray := lin.NewV3().SetS(world.X, world.Y, world.Z)
	ray.Unit()
	return ray.X, ray.Y, ray.Z
}

// Screen projects a 3D world point through view and proj, returning
// the 2D screen coordinate for a ww x wh window.
func Screen(view, proj *lin.M4, wx, wy, wz float64, ww, wh int) (sx, sy int) {
	vec := lin.NewV4().SetS(wx, wy, wz, 1)
	vec.MultvM(vec, view)
	vec.MultvM(vec, proj)
	clipx := vec.X/vec.W + 1
	clipy := vec.Y/vec.W + 1
	sx = int(lin.Round(clipx*0.5*float64(ww), 0))
	sy = int(lin.Round(clipy*0.5*float64(wh), 0))
	return sx, sy
}
