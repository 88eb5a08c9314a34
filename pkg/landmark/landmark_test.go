package landmark

import (
	"errors"
	"math"
	"testing"
)

func fullFace() Face {
	f := make(Face, MeshSize)
	for i := range f {
		f[i] = Point{X: 0.5, Y: 0.5}
	}
	return f
}

func TestValidate(t *testing.T) {
	nan := fullFace()
	nan[100].X = math.NaN()

	inf := fullFace()
	inf[NoseTip] = Point{Y: math.Inf(1)}

	tests := []struct {
		name    string
		face    Face
		wantErr error
	}{
		{"full mesh", fullFace(), nil},
		{"nil", nil, ErrEmptyFace},
		{"empty", Face{}, ErrEmptyFace},
		{"short", make(Face, MeshSize-1), ErrShortFace},
		{"extra points allowed", make(Face, MeshSize+10), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.face.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if err := nan.Validate(); err == nil {
		t.Error("NaN coordinate passed validation")
	}
	if err := inf.Validate(); err == nil {
		t.Error("Inf coordinate passed validation")
	}
}

func TestIrisIndicesInsideMesh(t *testing.T) {
	for name, idx := range map[string]int{
		"nose":       NoseTip,
		"chin":       Chin,
		"right iris": RightIrisCenter,
		"left iris":  LeftIrisCenter,
	} {
		if idx < 0 || idx >= MeshSize {
			t.Errorf("%s index %d outside mesh", name, idx)
		}
	}
}
