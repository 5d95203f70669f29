package ik

import (
	"github.com/golang/geo/r3"

	"go.viam.com/finalik/rotationlimit"
	"go.viam.com/finalik/skeleton"
)

// Point is a solver's record of one bone in its chain.
type Point struct {
	Bone skeleton.BoneID
	// Weight scales how much of the solver's correction this bone takes, in [0, 1].
	Weight float64
	// Length is the distance to the next point, measured at Initiate. Zero for the last point.
	Length float64
	Limit  rotationlimit.Limit

	// solverPosition is the working position used by position based solvers.
	solverPosition r3.Vector
}

func newPoints(bones []skeleton.BoneID) []Point {
	points := make([]Point, len(bones))
	for i, b := range bones {
		points[i] = Point{Bone: b, Weight: 1}
	}
	return points
}
