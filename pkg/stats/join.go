package stats

// JoinReport lists the statistics rows that did not end up in the
// merged dataset.
type JoinReport struct {
	// Keys present in the statistics table but not in the geometry.
	UnmatchedStats []string
	// Geometry keys with no statistics row.
	UnmatchedRegions []string
	// Statistics keys seen more than once; only the first row is used.
	DuplicateStats []string
}

// LeftJoin merges statistics rows into geometry features on their
// normalized key. Every feature yields exactly one region, in input
// order; features without a statistics row get nil values.
func LeftJoin(features []*GeoFeature, rows []*StatRow) ([]*Region, JoinReport) {
	var report JoinReport

	byKey := make(map[string]*StatRow, len(rows))
	var order []string
	for _, row := range rows {
		if _, dup := byKey[row.Key]; dup {
			report.DuplicateStats = append(report.DuplicateStats, row.Key)
			continue
		}
		byKey[row.Key] = row
		order = append(order, row.Key)
	}

	used := make(map[string]bool, len(byKey))
	regions := make([]*Region, 0, len(features))
	for _, f := range features {
		r := &Region{
			Name:       f.Name,
			Key:        f.Key,
			Attributes: f.Attributes,
			Geometry:   f.Geometry,
		}
		if row, ok := byKey[f.Key]; ok {
			r.ProgramCount = row.ProgramCount
			r.AverageEnrollment = row.AverageEnrollment
			used[f.Key] = true
		} else {
			report.UnmatchedRegions = append(report.UnmatchedRegions, f.Key)
		}
		regions = append(regions, r)
	}

	for _, k := range order {
		if !used[k] {
			report.UnmatchedStats = append(report.UnmatchedStats, k)
		}
	}

	return regions, report
}
