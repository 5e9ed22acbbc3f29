package mapview

import (
	"io"
	"time"

	"github.com/mbolis/geo-survey/model"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Records"

var fixedColumns = []any{
	"id", "questionnaire_id", "submission_date", "submitter_name",
	"latitude", "longitude", "additional_info",
}

// ExportXLSX writes one row per record: fixed columns first, then one column
// per answer label in the order labels are first seen.
func ExportXLSX(w io.Writer, objs []model.DataObject) error {
	f := excelize.NewFile()
	defer f.Close()

	err := f.SetSheetName("Sheet1", sheetName)
	if err != nil {
		return err
	}

	var labels []string
	seen := map[string]bool{}
	for _, obj := range objs {
		for _, label := range obj.DataValues.Labels() {
			if !seen[label] {
				seen[label] = true
				labels = append(labels, label)
			}
		}
	}

	header := append([]any{}, fixedColumns...)
	for _, label := range labels {
		header = append(header, label)
	}
	err = f.SetSheetRow(sheetName, "A1", &header)
	if err != nil {
		return err
	}

	for i, obj := range objs {
		row := []any{
			obj.ID,
			obj.QuestionnaireID,
			obj.SubmissionDate.UTC().Format(time.RFC3339),
			deref(obj.SubmitterName),
			floatCell(obj.Latitude),
			floatCell(obj.Longitude),
			deref(obj.AdditionalInfo),
		}
		for _, label := range labels {
			v, _ := obj.DataValues.Get(label)
			row = append(row, v)
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		err = f.SetSheetRow(sheetName, cell, &row)
		if err != nil {
			return err
		}
	}

	return f.Write(w)
}

func floatCell(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
