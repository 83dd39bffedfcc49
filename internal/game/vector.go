package game

import (
	"fmt"
	"math"
)

// Vec3 is a position in world units.
type Vec3 [3]float64

// DistanceTo returns the Euclidean distance between two positions.
func (v Vec3) DistanceTo(o Vec3) float64 {
	dx := v[0] - o[0]
	dy := v[1] - o[1]
	dz := v[2] - o[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%.1f, %.1f, %.1f)", v[0], v[1], v[2])
}

// ParseVec3 accepts exactly three finite components.
func ParseVec3(c []float64) (Vec3, error) {
	if len(c) != 3 {
		return Vec3{}, fmt.Errorf("position must have 3 components, got %d", len(c))
	}
	if err := checkFinite(c); err != nil {
		return Vec3{}, err
	}
	return Vec3{c[0], c[1], c[2]}, nil
}

// Rotation is either euler angles (3 components) or a quaternion (4 components).
type Rotation []float64

// ParseRotation accepts 3 or 4 finite components. An empty rotation is the identity.
func ParseRotation(c []float64) (Rotation, error) {
	switch len(c) {
	case 0:
		return Rotation{0, 0, 0}, nil
	case 3, 4:
	default:
		return nil, fmt.Errorf("rotation must have 3 or 4 components, got %d", len(c))
	}
	if err := checkFinite(c); err != nil {
		return nil, err
	}
	return Rotation(append([]float64(nil), c...)), nil
}

func checkFinite(c []float64) error {
	for i, f := range c {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("component %d is not finite", i)
		}
	}
	return nil
}

// PlayerState is the latest known transform of a player in an instance.
type PlayerState struct {
	UserId   UserId
	ConnId   ConnectionId
	Position Vec3
	Rotation Rotation
}
