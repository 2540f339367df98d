package pipeline

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestErrorKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"geometry", &GeometryError{Region: "a"}, "geometry"},
		{"no imagery", &NoImageryError{Region: "a"}, "no_imagery"},
		{"no samples", &NoSamplesError{Region: "a"}, "no_samples"},
		{"unmapped category", &UnmappedCategoryError{Region: "a", Codes: []int{45}}, "unmapped_category"},
		{"training", &TrainingError{Region: "a"}, "training"},
		{"band mismatch", &BandMismatchError{}, "band_mismatch"},
		{"wrapped", eris.Wrap(&NoImageryError{Region: "a"}, "composite"), "no_imagery"},
		{"unknown", eris.New("boom"), "internal"},
		{"nil", nil, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorKind(tt.err))
		})
	}
}

func TestUnmappedCategoryError_Message(t *testing.T) {
	err := &UnmappedCategoryError{Region: "alpha", Codes: []int{45, 73}}
	assert.Contains(t, err.Error(), "45, 73")
	assert.Contains(t, err.Error(), "alpha")
}

func TestBandMismatchError_Message(t *testing.T) {
	err := &BandMismatchError{Want: []string{"B2", "NDVI"}, Got: []string{"B2"}}
	assert.Contains(t, err.Error(), "B2 NDVI")
}
