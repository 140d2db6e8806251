package table

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sample() *Table {
	return New(
		[]string{"a", "b", "c"},
		[][]string{
			{"1", "x", "10"},
			{"2", "", "20"},
			{"3", "z"},
		},
	)
}

func TestNewPadsRows(t *testing.T) {
	tbl := sample()
	assert.Equal(t, []string{"3", "z", ""}, tbl.Rows[2])
	assert.Equal(t, 3, tbl.Len())
}

func TestRename(t *testing.T) {
	t.Run("positional rename", func(t *testing.T) {
		renamed, err := sample().Rename([]string{"field_id", "section", "fallowed_acreage"})
		require.NoError(t, err)
		values, err := renamed.Column("section")
		require.NoError(t, err)
		assert.Equal(t, []string{"x", "", "z"}, values)
	})

	t.Run("two columns mapped to one name", func(t *testing.T) {
		_, err := sample().Rename([]string{"parcel_id", "farm_id", "parcel_id"})
		require.ErrorIs(t, err, ErrDuplicateColumn)
		assert.Contains(t, err.Error(), "columns 1 and 3")
	})

	t.Run("length mismatch", func(t *testing.T) {
		_, err := sample().Rename([]string{"a", "b"})
		require.Error(t, err)
	})
}

func TestDropEmptyAndFilter(t *testing.T) {
	tbl := sample()
	kept, err := tbl.DropEmpty("b")
	require.NoError(t, err)
	assert.Equal(t, 2, kept.Len())
	assert.Equal(t, 3, tbl.Len(), "source table is left untouched")

	_, err = tbl.DropEmpty("missing")
	require.ErrorIs(t, err, ErrMissingColumn)
}

func TestKeyedBy(t *testing.T) {
	keyed, err := sample().KeyedBy("c")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, keyed.Columns)
	assert.Equal(t, []string{"10", "1", "x"}, keyed.Rows[0])
}

func TestWithColumns(t *testing.T) {
	out, err := sample().WithColumns([]string{"d"}, [][]string{{"p"}, {"q"}, {"r"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, out.Columns)
	assert.Equal(t, "r", out.Rows[2][3])

	_, err = sample().WithColumns([]string{"a"}, [][]string{{""}, {""}, {""}})
	require.ErrorIs(t, err, ErrDuplicateColumn)

	_, err = sample().WithColumns([]string{"d"}, [][]string{{""}})
	require.Error(t, err)
}

func TestCSVRoundTrip(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("\ufefffield_id, ndvi_20200501\nA,0.1\nB\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"field_id", "ndvi_20200501"}, tbl.Columns)
	assert.Equal(t, []string{"B", ""}, tbl.Rows[1])

	var buf bytes.Buffer
	require.NoError(t, tbl.WriteCSV(&buf))
	assert.Equal(t, "field_id,ndvi_20200501\nA,0.1\nB,\n", buf.String())

	_, err = ReadCSV(strings.NewReader(""))
	require.Error(t, err)
}

func TestWriteSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "selection.xlsx")

	require.NoError(t, WriteSheet(path, "Inspections", sample()))
	require.NoError(t, WriteSheet(path, "Selected_Fields", sample()))

	replacement := New([]string{"field_id"}, [][]string{{"007"}})
	require.NoError(t, WriteSheet(path, "Selected_Fields", replacement))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.ElementsMatch(t, []string{"Inspections", "Selected_Fields"}, f.GetSheetList())

	read, err := ReadXLSX(path, "Selected_Fields", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"field_id"}, read.Columns)
	assert.Equal(t, [][]string{{"007"}}, read.Rows)

	kept, err := ReadXLSX(path, "Inspections", 1)
	require.NoError(t, err)
	assert.Equal(t, 3, kept.Len())
	assert.Equal(t, "20", kept.Rows[1][2])
}

func TestReadXLSXSkipsPreamble(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inspection.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "USBR INSP FALLOW"))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]interface{}{"Field", "", "Acres"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A4", &[]interface{}{"F1", "x", 12.5}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	tbl, err := ReadXLSX(path, "", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"Field", "Unnamed: 1", "Acres"}, tbl.Columns)
	assert.Equal(t, [][]string{{"F1", "x", "12.5"}}, tbl.Rows)

	_, err = ReadXLSX(path, "", 10)
	require.Error(t, err)
}

func TestDropColumns(t *testing.T) {
	out := sample().DropColumns(func(c string) bool { return c == "b" })
	assert.Equal(t, []string{"a", "c"}, out.Columns)
	assert.Equal(t, []string{"3", ""}, out.Rows[2])
}
