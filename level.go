// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package world

// level.go holds Level, a loaded group of units kept in a doubly
// linked list owned by the World (spec.md §3 Level).

// Level is one loaded group of units. Units is the flattened array of
// every UnitId spawned for this level, in resource order.
type Level struct {
	resource *LevelResource
	units    []UnitId

	prev, next *Level
}

// Resource returns the compiled LevelResource this Level was loaded
// from.
func (l *Level) Resource() *LevelResource { return l.resource }

// Units returns every unit spawned for this level.
func (l *Level) Units() []UnitId { return l.units }

// pushLevel links lvl at the head of the World's level list.
func (w *World) pushLevel(lvl *Level) {
	lvl.next = w.levels
	if w.levels != nil {
		w.levels.prev = lvl
	}
	w.levels = lvl
}

// unlinkLevel removes lvl from the World's level list.
func (w *World) unlinkLevel(lvl *Level) {
	if lvl.prev != nil {
		lvl.prev.next = lvl.next
	} else {
		w.levels = lvl.next
	}
	if lvl.next != nil {
		lvl.next.prev = lvl.prev
	}
	lvl.prev, lvl.next = nil, nil
}

// LoadLevel spawns every unit resource in res, in order, and links the
// resulting Level into the World's level list.
func (w *World) LoadLevel(res *LevelResource) *Level {
	lvl := &Level{resource: res}
	for _, ur := range res.Units {
		ids := w.SpawnUnit(ur, 0, Pose{})
		lvl.units = append(lvl.units, ids...)
	}
	w.pushLevel(lvl)
	return lvl
}

// UnloadLevel destroys every unit the level spawned and unlinks it.
func (w *World) UnloadLevel(lvl *Level) {
	for _, id := range lvl.units {
		w.DestroyUnit(id)
	}
	w.unlinkLevel(lvl)
}

// Levels returns every currently loaded level, head first.
func (w *World) Levels() []*Level {
	out := []*Level{}
	for l := w.levels; l != nil; l = l.next {
		out = append(out, l)
	}
	return out
}
