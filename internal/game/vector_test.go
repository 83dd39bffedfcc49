package game

import (
	"math"
	"testing"

	"github.com/pixil98/go-testutil"
)

func TestParseVec3(t *testing.T) {
	tests := map[string]struct {
		in     []float64
		exp    Vec3
		expErr string
	}{
		"three components": {
			in:  []float64{1, 2, 3},
			exp: Vec3{1, 2, 3},
		},
		"too few": {
			in:     []float64{1, 2},
			expErr: "must have 3 components",
		},
		"too many": {
			in:     []float64{1, 2, 3, 4},
			expErr: "must have 3 components",
		},
		"nan": {
			in:     []float64{1, math.NaN(), 3},
			expErr: "component 1 is not finite",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := ParseVec3(tt.in)
			if tt.expErr != "" {
				testutil.AssertErrorContains(t, err, tt.expErr)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "vec", got, tt.exp)
		})
	}
}

func TestParseRotation(t *testing.T) {
	tests := map[string]struct {
		in     []float64
		expLen int
		expErr string
	}{
		"empty is identity": {in: nil, expLen: 3},
		"euler":             {in: []float64{0, 1, 0}, expLen: 3},
		"quaternion":        {in: []float64{0, 0, 0, 1}, expLen: 4},
		"two":               {in: []float64{0, 1}, expErr: "3 or 4 components"},
		"infinite":          {in: []float64{0, math.Inf(-1), 0}, expErr: "not finite"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := ParseRotation(tt.in)
			if tt.expErr != "" {
				testutil.AssertErrorContains(t, err, tt.expErr)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "len", len(got), tt.expLen)
		})
	}
}

func TestVec3_DistanceTo(t *testing.T) {
	testutil.AssertEqual(t, "distance", Vec3{0, 0, 0}.DistanceTo(Vec3{3, 4, 0}), 5.0)
	testutil.AssertEqual(t, "symmetric", Vec3{3, 4, 0}.DistanceTo(Vec3{0, 0, 0}), 5.0)
}
