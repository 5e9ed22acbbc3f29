package routes

import (
	"fmt"
	"strings"

	"github.com/mbolis/geo-survey/model"
	"github.com/montanaflynn/stats"
)

const idsPlaceholder = "%IDS%"

// mergeDataObjects folds sources into one new record. For every label the
// first non-null value decides: numbers are averaged, strings are joined
// with " | ", anything else keeps the first value.
func mergeDataObjects(req model.MergeRequest, sources []model.DataObject, mergedBy string) model.DataObjectCreate {
	merged := model.DataObjectCreate{DataValues: model.Values{}}

	var labels []string
	seen := map[string]bool{}
	for _, src := range sources {
		for _, label := range src.DataValues.Labels() {
			if !seen[label] {
				seen[label] = true
				labels = append(labels, label)
			}
		}
	}

	for _, label := range labels {
		var values []any
		for _, src := range sources {
			if v, ok := src.DataValues.Get(label); ok && v != nil {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			merged.DataValues.Set(label, nil)
			continue
		}
		merged.DataValues.Set(label, mergeValues(values))
	}

	var lats, lngs []float64
	for _, src := range sources {
		if src.Latitude != nil {
			lats = append(lats, *src.Latitude)
		}
		if src.Longitude != nil {
			lngs = append(lngs, *src.Longitude)
		}
	}
	merged.Latitude = req.NewLatitude
	if merged.Latitude == nil {
		merged.Latitude = mean(lats)
	}
	merged.Longitude = req.NewLongitude
	if merged.Longitude == nil {
		merged.Longitude = mean(lngs)
	}

	ids := fmt.Sprint(req.DataObjectIDs)
	ids = "[" + strings.Join(strings.Fields(ids[1:len(ids)-1]), ", ") + "]"

	submitter := "Merged by " + mergedBy
	if req.NewSubmitterName != nil {
		submitter = *req.NewSubmitterName
	}
	merged.SubmitterName = &submitter

	info := "Merged from DataObjects: " + ids
	if req.NewAdditionalInfo != nil {
		info = strings.ReplaceAll(*req.NewAdditionalInfo, idsPlaceholder, ids)
	}
	merged.AdditionalInfo = &info

	return merged
}

func mergeValues(values []any) any {
	switch values[0].(type) {
	case float64:
		var nums []float64
		for _, v := range values {
			if n, ok := v.(float64); ok {
				nums = append(nums, n)
			}
		}
		if m := mean(nums); m != nil {
			return *m
		}
		return values[0]
	case string:
		parts := make([]string, len(values))
		for i, v := range values {
			parts[i] = fmt.Sprint(v)
		}
		return strings.Join(parts, " | ")
	default:
		return values[0]
	}
}

func mean(xs []float64) *float64 {
	m, err := stats.Mean(xs)
	if err != nil {
		return nil
	}
	return &m
}
