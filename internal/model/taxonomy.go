package model

import (
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Target land-cover classes predicted by the pipeline.
const (
	ClassWater      = 0
	ClassBuiltUp    = 1
	ClassVegetation = 2
	ClassCropland   = 3
	ClassBare       = 4
)

// classNames maps target class codes to display names.
var classNames = map[int]string{
	ClassWater:      "water",
	ClassBuiltUp:    "built_up",
	ClassVegetation: "vegetation",
	ClassCropland:   "cropland",
	ClassBare:       "bare",
}

// Classes returns the target class codes in ascending order.
func Classes() []int {
	return []int{ClassWater, ClassBuiltUp, ClassVegetation, ClassCropland, ClassBare}
}

// ClassName returns the display name for a target class code, or "unknown".
func ClassName(code int) string {
	if name, ok := classNames[code]; ok {
		return name
	}
	return "unknown"
}

// ValidClass reports whether code is one of the target classes.
func ValidClass(code int) bool {
	_, ok := classNames[code]
	return ok
}

// Taxonomy binds the reference-raster remap table to the target class set
// and its display palette.
type Taxonomy struct {
	// Remap maps reference land-cover category codes to target classes
	// (many-to-one). Codes absent from the table are rejected during
	// sampling, never silently defaulted.
	Remap map[int]int `yaml:"remap"`

	// Palette holds one hex color per target class, indexed by class code.
	Palette []string `yaml:"palette"`
}

// DefaultTaxonomy returns the built-in reference remap and palette.
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		Remap: map[int]int{
			10: ClassVegetation, // tree cover
			20: ClassVegetation, // shrubland
			30: ClassVegetation, // grassland
			40: ClassCropland,
			60: ClassBare,
			70: ClassBare, // snow and ice
			80: ClassBuiltUp,
			90: ClassWater,
			95: ClassWater, // wetland
		},
		Palette: []string{"#419bdf", "#c4281b", "#397d49", "#e49635", "#a59b8f"},
	}
}

// LoadTaxonomy reads a YAML remap/palette override from path.
func LoadTaxonomy(path string) (Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Taxonomy{}, eris.Wrapf(err, "taxonomy: read %s", path)
	}

	var t Taxonomy
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Taxonomy{}, eris.Wrapf(err, "taxonomy: parse %s", path)
	}
	if err := t.Validate(); err != nil {
		return Taxonomy{}, err
	}
	return t, nil
}

// Validate checks that every remap target is a known class and the palette
// covers the full class set.
func (t Taxonomy) Validate() error {
	if len(t.Remap) == 0 {
		return eris.New("taxonomy: empty remap table")
	}
	for from, to := range t.Remap {
		if !ValidClass(to) {
			return eris.Errorf("taxonomy: reference code %d maps to unknown class %d", from, to)
		}
	}
	if len(t.Palette) != len(Classes()) {
		return eris.Errorf("taxonomy: palette has %d entries, want %d", len(t.Palette), len(Classes()))
	}
	return nil
}

// RemapPairs returns the remap table as parallel from/to slices, ordered by
// reference code so expression construction is deterministic.
func (t Taxonomy) RemapPairs() (from, to []int) {
	from = make([]int, 0, len(t.Remap))
	for code := range t.Remap {
		from = append(from, code)
	}
	sort.Ints(from)
	to = make([]int, len(from))
	for i, code := range from {
		to[i] = t.Remap[code]
	}
	return from, to
}

// Mapped reports whether the reference code has a remap entry.
func (t Taxonomy) Mapped(code int) bool {
	_, ok := t.Remap[code]
	return ok
}
