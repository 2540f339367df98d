// Package regions loads region boundaries from shapefiles.
package regions

import (
	"fmt"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"

	"github.com/terrastat/landcover-cli/internal/model"
)

// LoadShapefile reads region boundaries from a shapefile. Names come from
// the given DBF attribute field; DBF text is decoded as Latin-1, which is
// what boundary products commonly ship. Records without a usable polygon
// are skipped.
func LoadShapefile(path, nameField string) ([]model.Region, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "regions: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	nameIdx := -1
	for i, f := range reader.Fields() {
		name := strings.TrimRight(f.String(), "\x00")
		if strings.EqualFold(name, nameField) {
			nameIdx = i
			break
		}
	}
	if nameIdx < 0 {
		return nil, eris.Errorf("regions: field %q not found in %s", nameField, path)
	}

	decoder := charmap.ISO8859_1.NewDecoder()

	var regions []model.Region
	var skipped int

	for i := 0; reader.Next(); i++ {
		_, shape := reader.Shape()

		poly, ok := shape.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}
		boundary := polygonToMultiPolygon(poly)
		if boundary == nil {
			skipped++
			continue
		}

		name := strings.TrimSpace(strings.TrimRight(reader.Attribute(nameIdx), "\x00"))
		if decoded, decErr := decoder.String(name); decErr == nil {
			name = decoded
		}
		if name == "" {
			name = fmt.Sprintf("region-%d", i)
		}

		regions = append(regions, model.Region{Name: name, Boundary: boundary})
	}

	if skipped > 0 {
		zap.L().Debug("regions: skipped shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	if len(regions) == 0 {
		return nil, eris.Errorf("regions: no polygon records in %s", path)
	}

	return regions, nil
}

// polygonToMultiPolygon converts a shapefile Polygon to a geom.MultiPolygon.
func polygonToMultiPolygon(p *shp.Polygon) geom.T {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		var end int32
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		} else {
			end = int32(len(p.Points))
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		ring := geom.NewLinearRingFlat(geom.XY, flat)
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("regions: skipping malformed polygon ring", zap.Int32("part", i), zap.Error(err))
			continue
		}

		if err := mp.Push(poly); err != nil {
			zap.L().Debug("regions: skipping malformed polygon part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}
