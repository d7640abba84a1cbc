// =============================================================================
// Budget Report - Hierarchy Joiner
// =============================================================================
//
// This module joins the three record sets into the flat row sequence shown in
// the report.
//
// JOIN PROCESS:
//   1. Index activities by id_program and sub-activities by id_giat,
//      keeping source order within each bucket
//   2. Sort programs by id_program
//   3. For each program: emit a program row, add its amounts to the totals
//   4. For each of its activities (sorted by id_giat): emit an activity row
//   5. For each of the activity's sub-activities (sorted by id_sub_giat):
//      emit a sub-activity row
//   6. Append the total row
//
// Children whose parent id matches nothing are never reached. Totals come from
// program amounts only, so a report whose children do not add up to their
// parent still shows the budget as declared at program level.
//
// =============================================================================

package hierarchy

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/budget-report/internal/format"
	"github.com/ginjaninja78/budget-report/internal/types"
)

// DefaultTotalLabel is the label of the trailing total row.
const DefaultTotalLabel = "Jumlah"

// Dataset holds one run's decoded inputs.
type Dataset struct {
	Programs      []types.Program
	Activities    []types.Activity
	SubActivities []types.SubActivity
}

// Join builds the report rows for a dataset.
//
// PARAMETERS:
//   - ds: decoded records; the slices are not modified
//   - totalLabel: text for the total row (DefaultTotalLabel when empty)
//
// RETURNS:
//   - The report. An empty program list yields a report with no rows.
func Join(ds Dataset, totalLabel string) *types.Report {
	if totalLabel == "" {
		totalLabel = DefaultTotalLabel
	}

	activitiesByProgram := make(map[string][]types.Activity)
	for _, a := range ds.Activities {
		k := a.ProgramID.Key()
		activitiesByProgram[k] = append(activitiesByProgram[k], a)
	}

	subsByActivity := make(map[string][]types.SubActivity)
	for _, s := range ds.SubActivities {
		k := s.ActivityID.Key()
		subsByActivity[k] = append(subsByActivity[k], s)
	}

	programs := append([]types.Program(nil), ds.Programs...)
	sort.SliceStable(programs, func(i, j int) bool {
		return types.Compare(programs[i].ID, programs[j].ID) < 0
	})

	report := &types.Report{
		TotalAnggaran:  decimal.Zero,
		TotalRealisasi: decimal.Zero,
	}

	for _, p := range programs {
		report.Rows = append(report.Rows, types.DisplayRow{
			Program:     format.TitleCase(p.Name),
			Activity:    format.Placeholder,
			SubActivity: format.Placeholder,
			Anggaran:    format.DisplayAmount(p.Anggaran),
			Realisasi:   format.DisplayAmount(p.Realisasi),
			Kind:        types.RowProgram,
		})
		report.Programs++
		report.TotalAnggaran = report.TotalAnggaran.Add(format.ParseAmount(p.Anggaran))
		report.TotalRealisasi = report.TotalRealisasi.Add(format.ParseAmount(p.Realisasi))

		activities := append([]types.Activity(nil), activitiesByProgram[p.ID.Key()]...)
		sort.SliceStable(activities, func(i, j int) bool {
			return types.Compare(activities[i].ID, activities[j].ID) < 0
		})

		for _, a := range activities {
			report.Rows = append(report.Rows, types.DisplayRow{
				Activity:    format.TitleCase(a.Name),
				SubActivity: format.Placeholder,
				Anggaran:    format.DisplayAmount(a.Anggaran),
				Realisasi:   format.DisplayAmount(a.Realisasi),
				Kind:        types.RowActivity,
			})

			subs := append([]types.SubActivity(nil), subsByActivity[a.ID.Key()]...)
			sort.SliceStable(subs, func(i, j int) bool {
				return types.Compare(subs[i].ID, subs[j].ID) < 0
			})

			for _, s := range subs {
				report.Rows = append(report.Rows, types.DisplayRow{
					SubActivity: format.TitleCase(s.Name),
					Anggaran:    format.DisplayAmount(s.Anggaran),
					Realisasi:   format.DisplayAmount(s.Realisasi),
					Kind:        types.RowSubActivity,
				})
			}
		}
	}

	report.Total = types.DisplayRow{
		Program:   totalLabel,
		Anggaran:  format.DisplayDecimal(report.TotalAnggaran),
		Realisasi: format.DisplayDecimal(report.TotalRealisasi),
		Kind:      types.RowTotal,
	}

	return report
}
