package loader

import (
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/dshills/simcheck/internal/schema"
)

func TestReadCSV_KeepsValuesUntyped(t *testing.T) {
	in := "\ufeffRun_ID, max_stress_MPa,displacement_mm,convergence_iters,status_text\n" +
		"R001,320,1.2,18,Converged successfully\n" +
		"R004,,2.1,15,Converged successfully\n" +
		"\n" +
		"R009,N/A,1.5\n"

	recs, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, recs, 3)

	first := recs[0]
	assert.Equal(t, 1, first.Row)
	assert.Equal(t, schema.Text("R001"), first.Get("run_id"))
	assert.Equal(t, schema.Text("320"), first.Get("max_stress_mpa"), "numeric-looking cells stay text")
	assert.Equal(t, schema.Text("Converged successfully"), first.Get("status_text"))

	assert.Equal(t, schema.KindEmpty, recs[1].Get("max_stress_mpa").Kind)

	last := recs[2]
	assert.Equal(t, 4, last.Row, "rows are numbered by position in the file")
	assert.Equal(t, schema.Text("N/A"), last.Get("max_stress_mpa"))
	assert.Equal(t, schema.KindEmpty, last.Get("convergence_iters").Kind, "short rows are padded")
	assert.Equal(t, schema.KindEmpty, last.Get("status_text").Kind)
}

func TestReadCSV_RowsFollowSourcePosition(t *testing.T) {
	in := "run_id,v\nA,1\n,\n\nB,2\n\"C\nD\",3\nE,4\n"
	recs, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, recs, 4)

	rows := map[string]int{}
	for _, r := range recs {
		rows[r.Get("run_id").Text] = r.Row
	}
	assert.Equal(t, map[string]int{"A": 1, "B": 4, "C\nD": 5, "E": 7}, rows,
		"blank rows are skipped but keep their place; multi-line cells report their first line")
}

func TestReadCSV_PreservesOrder(t *testing.T) {
	in := "run_id\nR3\nR1\nR2\n"
	recs, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	var ids []string
	for _, r := range recs {
		ids = append(ids, r.Get("run_id").Text)
	}
	assert.Equal(t, []string{"R3", "R1", "R2"}, ids)
}

func TestReadCSV_Empty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrNoHeader)
}

func TestReadCSV_HeaderOnly(t *testing.T) {
	recs, err := ReadCSV(strings.NewReader("run_id,max_stress_mpa\n"))
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestHeaderKeys(t *testing.T) {
	got := headerKeys([]string{" Run_ID ", "", "run_id", "Status_Text"})
	assert.Equal(t, []string{"run_id", "column_2", "", "status_text"}, got)
}

func TestLoad_CSVFile(t *testing.T) {
	recs, err := Load("../../testdata/runs.csv")
	require.NoError(t, err)
	require.Len(t, recs, 15)
	assert.Equal(t, "R001", recs[0].Get("run_id").Text)
	assert.Equal(t, "R015", recs[14].Get("run_id").Text)
	assert.Equal(t, schema.KindEmpty, recs[3].Get("max_stress_mpa").Kind, "R004 has no stress value")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestLoadXLSX_CellTypes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"run_id", "max_stress_mpa", "max_displacement_mm", "iteration_count", "solver_status_text"},
		{"R001", 120, 1.0, 10, "Converged"},
		{"R002", "N/A", 1.2, "12", "Converged Successfully"},
		{},
		{"R003", nil, 0.4, 8},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		if len(row) > 0 {
			require.NoError(t, f.SetSheetRow(sheet, cell, &row))
		}
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	recs, err := Load(path)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Equal(t, schema.Text("R001"), recs[0].Get("run_id"))
	assert.Equal(t, schema.Number(120), recs[0].Get("max_stress_mpa"))
	assert.Equal(t, schema.Number(10), recs[0].Get("iteration_count"))
	assert.Equal(t, schema.Text("Converged"), recs[0].Get("solver_status_text"))

	assert.Equal(t, schema.Text("N/A"), recs[1].Get("max_stress_mpa"))
	assert.Equal(t, schema.Text("12"), recs[1].Get("iteration_count"), "string cells are not coerced")

	assert.Equal(t, 4, recs[2].Row, "blank sheet rows still count")
	assert.Equal(t, schema.KindEmpty, recs[2].Get("max_stress_mpa").Kind)
	assert.Equal(t, schema.KindEmpty, recs[2].Get("solver_status_text").Kind)
}

func TestXLSXValue(t *testing.T) {
	assert.Equal(t, schema.Number(2.5), xlsxValue(excelize.CellTypeNumber, "2.5"))
	assert.Equal(t, schema.Number(7), xlsxValue(excelize.CellTypeUnset, "7"))
	assert.Equal(t, schema.Text("7"), xlsxValue(excelize.CellTypeSharedString, "7"))
	assert.Equal(t, schema.Text("abc"), xlsxValue(excelize.CellTypeUnset, "abc"))
}
