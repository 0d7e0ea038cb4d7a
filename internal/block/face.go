package block

import (
	"github.com/df-mc/dragonfly/server/block/cube"
)

var faceNames = map[cube.Face]string{
	cube.FaceDown:  "down",
	cube.FaceUp:    "up",
	cube.FaceNorth: "north",
	cube.FaceSouth: "south",
	cube.FaceWest:  "west",
	cube.FaceEast:  "east",
}

// FaceName returns the wire name of a face.
func FaceName(f cube.Face) string {
	if n, ok := faceNames[f]; ok {
		return n
	}
	return "invalid"
}

// ParseFace maps a wire name to a face.
func ParseFace(name string) (cube.Face, bool) {
	for f, n := range faceNames {
		if n == name {
			return f, true
		}
	}
	return cube.FaceDown, false
}

// Horizontal reports whether f lies in the x/z plane.
func Horizontal(f cube.Face) bool {
	switch f {
	case cube.FaceNorth, cube.FaceSouth, cube.FaceWest, cube.FaceEast:
		return true
	}
	return false
}

// ComparePos orders positions by x, then y, then z.
func ComparePos(a, b cube.Pos) int {
	for i := 0; i < 3; i++ {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	return 0
}

// ChunkColumn returns the 16x16 column containing pos.
func ChunkColumn(pos cube.Pos) [2]int {
	return [2]int{pos[0] >> 4, pos[2] >> 4}
}
