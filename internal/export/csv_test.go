package export_test

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/jjenkins/orgadmin/internal/export"
	"github.com/jjenkins/orgadmin/internal/hierarchy"
	"github.com/jjenkins/orgadmin/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func unit(id, parent, name string) model.UnitRecord {
	return model.UnitRecord{ID: id, ParentID: model.StringPtr(parent), Name: name}
}

func division(positions ...model.PositionRecord) []*model.UnitNode {
	roots := hierarchy.BuildHierarchy([]model.UnitRecord{
		unit("1", "", "1st Division"),
		unit("2", "1", "1st Brigade"),
		unit("3", "1", "2nd Brigade"),
		unit("4", "2", "Alpha Company"),
	})
	return hierarchy.AttachPositions(roots, positions)
}

func lines(s string) []string {
	return strings.Split(s, "\n")
}

func TestExportCSV_FilledPosition(t *testing.T) {
	roots := division(model.PositionRecord{
		ID:            "10",
		UnitID:        "2",
		DisplayTitle:  "XO",
		CurrentHolder: &model.Holder{Rank: "CPT", Username: "Smith"},
	})

	out := lines(export.ExportCSV(roots))

	require.Len(t, out, 2)
	assert.Equal(t, "Position,Role,Holder,Service Number,Unit,Branch,Status", out[0])
	assert.Equal(t, "XO,,CPT Smith,-,1st Brigade,-,Filled", out[1])
}

func TestExportCSV_VacantPosition(t *testing.T) {
	roots := division(model.PositionRecord{ID: "11", UnitID: "4", DisplayTitle: "CO", IsVacant: true})

	rows := export.PositionRows(roots)

	require.Len(t, rows, 1)
	assert.Equal(t, "VACANT", rows[0][2])
	assert.Equal(t, "-", rows[0][3])
	assert.Equal(t, "Vacant", rows[0][6])
}

func TestExportCSV_VacantKeepsServiceNumber(t *testing.T) {
	roots := division(model.PositionRecord{
		ID:            "12",
		UnitID:        "4",
		DisplayTitle:  "1SG",
		IsVacant:      true,
		CurrentHolder: &model.Holder{Rank: "SFC", Username: "Ortiz", ServiceNumber: "B-7"},
	})

	rows := export.PositionRows(roots)

	require.Len(t, rows, 1)
	assert.Equal(t, "VACANT", rows[0][2])
	assert.Equal(t, "B-7", rows[0][3])
}

func TestPositionRows_Fallbacks(t *testing.T) {
	roots := hierarchy.AttachPositions(
		hierarchy.BuildHierarchy([]model.UnitRecord{{
			ID:           "1",
			Name:         "1st Division",
			Abbreviation: "1ID",
			Branch:       &model.BranchRef{ID: "b", Name: "Army"},
		}}),
		[]model.PositionRecord{
			{ID: "a", UnitID: "1", Title: "Chief of Staff", Role: &model.RoleRef{ID: "r1"}},
			{ID: "b", UnitID: "1", CurrentHolder: &model.Holder{ServiceNumber: "123"}},
			{ID: "c", UnitID: "1", Role: &model.RoleRef{ID: "r2", Name: "Commander"},
				CurrentHolder: &model.Holder{Rank: "COL", Username: "Doe", ServiceNumber: "A-1"}},
		},
	)

	rows := export.PositionRows(roots)

	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Chief of Staff", "Unknown", "Unknown", "-", "1ID", "Army", "Filled"}, rows[0])
	assert.Equal(t, []string{"Unknown", "", "Unknown", "123", "1ID", "Army", "Filled"}, rows[1])
	assert.Equal(t, []string{"Unknown", "Commander", "COL Doe", "A-1", "1ID", "Army", "Filled"}, rows[2])
}

func TestExportCSV_DepthFirstOrder(t *testing.T) {
	roots := division(
		model.PositionRecord{ID: "p3", UnitID: "3", DisplayTitle: "S3"},
		model.PositionRecord{ID: "p4", UnitID: "4", DisplayTitle: "CO"},
		model.PositionRecord{ID: "p1", UnitID: "1", DisplayTitle: "CG"},
		model.PositionRecord{ID: "p2", UnitID: "2", DisplayTitle: "XO"},
	)

	rows := export.PositionRows(roots)

	var titles []string
	for _, r := range rows {
		titles = append(titles, r[0])
	}
	assert.Equal(t, []string{"CG", "XO", "CO", "S3"}, titles)
}

func TestExportCSV_LineCountAndQuoting(t *testing.T) {
	roots := division(
		model.PositionRecord{ID: "p1", UnitID: "1", DisplayTitle: "Commander, 1st Division"},
		model.PositionRecord{ID: "p2", UnitID: "2", DisplayTitle: `The "Old Man"`, IsVacant: true},
		model.PositionRecord{ID: "p3", UnitID: "4", DisplayTitle: "First Sergeant", IsVacant: true},
	)

	out := export.ExportCSV(roots)

	assert.Len(t, lines(out), 4)
	assert.False(t, strings.HasSuffix(out, "\n"))
	assert.Contains(t, out, `"Commander, 1st Division"`)
	assert.Contains(t, out, `"The ""Old Man"""`)

	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, export.Header, records[0])
	assert.Equal(t, "Commander, 1st Division", records[1][0])
	assert.Equal(t, `The "Old Man"`, records[2][0])
}

func TestExportCSV_QuotesOnlyCommasAndQuotes(t *testing.T) {
	roots := division(
		model.PositionRecord{ID: "p1", UnitID: "1", DisplayTitle: " Alpha Lead", IsVacant: true},
		model.PositionRecord{ID: "p2", UnitID: "1", DisplayTitle: `\.`, IsVacant: true},
		model.PositionRecord{ID: "p3", UnitID: "1", DisplayTitle: "\tTabbed", IsVacant: true},
		model.PositionRecord{ID: "p4", UnitID: "1", DisplayTitle: `Say "Hooah"`, IsVacant: true},
	)

	out := lines(export.ExportCSV(roots))

	require.Len(t, out, 5)
	assert.Equal(t, " Alpha Lead,,VACANT,-,1st Division,-,Vacant", out[1])
	assert.Equal(t, `\.,,VACANT,-,1st Division,-,Vacant`, out[2])
	assert.Equal(t, "\tTabbed,,VACANT,-,1st Division,-,Vacant", out[3])
	assert.Equal(t, `"Say ""Hooah""",,VACANT,-,1st Division,-,Vacant`, out[4])
}

func TestExportCSV_NoPositions(t *testing.T) {
	assert.Equal(t, strings.Join(export.Header, ","), export.ExportCSV(division()))
	assert.Equal(t, strings.Join(export.Header, ","), export.ExportCSV(nil))
}

func TestWriteCSV_TrailingNewline(t *testing.T) {
	var buf bytes.Buffer
	roots := division(model.PositionRecord{ID: "p1", UnitID: "1", DisplayTitle: "CG"})

	require.NoError(t, export.WriteCSV(&buf, roots))

	assert.Equal(t, export.ExportCSV(roots)+"\n", buf.String())
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	roots := division(
		model.PositionRecord{ID: "p1", UnitID: "1", DisplayTitle: "CG"},
		model.PositionRecord{ID: "p2", UnitID: "4", DisplayTitle: "CO", IsVacant: true},
	)

	require.NoError(t, export.WriteXLSX(&buf, roots))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Positions")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, export.Header, rows[0])
	assert.Equal(t, export.PositionRows(roots), rows[1:])
}
