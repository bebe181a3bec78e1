package geom

import "github.com/tidwall/rtree"

// PointObject ties a spatial point to an object id (a pilot callsign
// or an airport compound id). Identity is the id alone; the geometry
// travels along so the owner can delete from the tree later — the tree
// itself cannot be searched by id.
type PointObject struct {
	ID    string
	Point Point
}

// RectObject ties a bounding rectangle to an object id (a FIR ICAO).
type RectObject struct {
	ID   string
	Rect Rect
}

// PointIndex is an R-tree of PointObjects keyed by id. Not safe for
// concurrent use; the owner locks around it.
type PointIndex struct {
	tree rtree.RTreeG[string]
}

func (ix *PointIndex) Insert(o PointObject) {
	ix.tree.Insert(o.Point.Coord(), o.Point.Coord(), o.ID)
}

// Delete removes the object by its exact stored geometry and id.
func (ix *PointIndex) Delete(o PointObject) {
	ix.tree.Delete(o.Point.Coord(), o.Point.Coord(), o.ID)
}

// Search returns ids of points inside the envelope. The envelope must
// not be wrapped; split first.
func (ix *PointIndex) Search(b Bounds) []string {
	var ids []string
	ix.tree.Search(b.Min, b.Max, func(_, _ [2]float64, id string) bool {
		ids = append(ids, id)
		return true
	})
	return ids
}

func (ix *PointIndex) Len() int {
	return ix.tree.Len()
}

// RectIndex is an R-tree of RectObjects keyed by id.
type RectIndex struct {
	tree rtree.RTreeG[string]
}

func (ix *RectIndex) Insert(o RectObject) {
	ix.tree.Insert(o.Rect.SouthWest.Coord(), o.Rect.NorthEast.Coord(), o.ID)
}

func (ix *RectIndex) Delete(o RectObject) {
	ix.tree.Delete(o.Rect.SouthWest.Coord(), o.Rect.NorthEast.Coord(), o.ID)
}

// Search returns ids of rectangles intersecting the envelope.
func (ix *RectIndex) Search(b Bounds) []string {
	var ids []string
	ix.tree.Search(b.Min, b.Max, func(_, _ [2]float64, id string) bool {
		ids = append(ids, id)
		return true
	})
	return ids
}

func (ix *RectIndex) Len() int {
	return ix.tree.Len()
}
