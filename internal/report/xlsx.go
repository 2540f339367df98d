// Package report writes classification results to spreadsheet workbooks.
package report

import (
	"sort"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/terrastat/landcover-cli/internal/model"
)

// WriteWorkbook writes run records to an XLSX workbook at path. The Runs
// sheet has one row per run; the Class Areas sheet breaks completed runs
// out by predicted class, with pixel counts converted to square kilometers
// at the given composite scale (meters per pixel).
func WriteWorkbook(runs []model.Run, scaleM float64, path string) error {
	f := xlsx.NewFile()

	if err := writeRunsSheet(f, runs); err != nil {
		return err
	}
	if err := writeAreasSheet(f, runs, scaleM); err != nil {
		return err
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save workbook %s", path)
	}

	zap.L().Info("wrote report workbook",
		zap.String("path", path),
		zap.Int("runs", len(runs)),
	)
	return nil
}

func writeRunsSheet(f *xlsx.File, runs []model.Run) error {
	sheet, err := f.AddSheet("Runs")
	if err != nil {
		return eris.Wrap(err, "report: add runs sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"Run ID", "Region", "Status", "Samples", "Error Kind", "Error", "Created", "Updated"} {
		header.AddCell().SetString(h)
	}

	for _, run := range runs {
		row := sheet.AddRow()
		row.AddCell().SetString(run.ID)
		row.AddCell().SetString(run.Region)
		row.AddCell().SetString(string(run.Status))

		samples, errKind, errMsg := "", "", ""
		if run.Result != nil {
			samples = strconv.Itoa(run.Result.SampleCount)
			errKind = run.Result.ErrorKind
			errMsg = run.Result.Error
		}
		row.AddCell().SetString(samples)
		row.AddCell().SetString(errKind)
		row.AddCell().SetString(errMsg)
		row.AddCell().SetString(run.CreatedAt.UTC().Format("2006-01-02 15:04:05"))
		row.AddCell().SetString(run.UpdatedAt.UTC().Format("2006-01-02 15:04:05"))
	}
	return nil
}

func writeAreasSheet(f *xlsx.File, runs []model.Run, scaleM float64) error {
	sheet, err := f.AddSheet("Class Areas")
	if err != nil {
		return eris.Wrap(err, "report: add areas sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"Region", "Class", "Pixels", "Area (km2)"} {
		header.AddCell().SetString(h)
	}

	kmPerPixel := scaleM * scaleM / 1e6

	for _, run := range runs {
		if run.Result == nil || len(run.Result.ClassPixels) == 0 {
			continue
		}

		classes := make([]string, 0, len(run.Result.ClassPixels))
		for name := range run.Result.ClassPixels {
			classes = append(classes, name)
		}
		sort.Strings(classes)

		for _, name := range classes {
			pixels := run.Result.ClassPixels[name]
			row := sheet.AddRow()
			row.AddCell().SetString(run.Region)
			row.AddCell().SetString(name)
			row.AddCell().SetFloat(pixels)
			row.AddCell().SetFloat(pixels * kmPerPixel)
		}
	}
	return nil
}
