package ui

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tschilb252/fallowing-verification/internal/delivery"
	"github.com/tschilb252/fallowing-verification/internal/properties"
)

func withInput(t *testing.T, input string) *bytes.Buffer {
	t.Helper()
	prevIn, prevOut := in, out
	buf := &bytes.Buffer{}
	in, out = bufio.NewReader(strings.NewReader(input)), buf
	t.Cleanup(func() { in, out = prevIn, prevOut })
	return buf
}

func TestReadHelpers(t *testing.T) {
	withInput(t, "  hello \n\n7\n12\n2020-05-17\nsoon\ny\n\n")

	s, err := ReadString("> ")
	require.NoError(t, err)
	assert.Equal(t, "hello", s)

	s, err = ReadStringDefault("Region", "imperial")
	require.NoError(t, err)
	assert.Equal(t, "imperial", s)

	n, err := ReadInt("> ", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = ReadInt("> ", 1, 10)
	require.Error(t, err)

	d, err := ReadDate("> ")
	require.NoError(t, err)
	assert.Equal(t, "2020-05-17", d.Format("2006-01-02"))

	_, err = ReadDate("> ")
	require.Error(t, err)

	yes, err := ReadYesNo("ok?", false)
	require.NoError(t, err)
	assert.True(t, yes)

	yes, err = ReadYesNo("ok?", false)
	require.NoError(t, err)
	assert.False(t, yes)

	_, err = ReadString("> ")
	require.ErrorIs(t, err, errInputClosed)
}

func TestShowMenu(t *testing.T) {
	output := withInput(t, "9\n4\n5\n")
	ShowMenu(context.Background(), &delivery.Service{Params: properties.DefaultParameters()})

	text := output.String()
	assert.Contains(t, text, "value must be between 1 and 5")
	assert.Contains(t, text, "target_fraction: 0.05")
	assert.Contains(t, text, "Exiting...")
}

func TestShowMenuStopsAtEOF(t *testing.T) {
	output := withInput(t, "")
	ShowMenu(context.Background(), &delivery.Service{Params: properties.DefaultParameters()})
	assert.NotContains(t, output.String(), "Exiting...")
}

func TestShowMenuStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	output := withInput(t, "4\n5\n")
	ShowMenu(ctx, &delivery.Service{Params: properties.DefaultParameters()})
	assert.NotContains(t, output.String(), "target_fraction")
}

func TestSelectFieldsHonoursCancelledContext(t *testing.T) {
	input := filepath.Join(t.TempDir(), "inspections.csv")
	content := "field_id,section,fallowed_acreage\n"
	for i := range 40 {
		content += fmt.Sprintf("F%02d,S%02d,10\n", i, i)
	}
	require.NoError(t, os.WriteFile(input, []byte(content), 0644))

	params := properties.DefaultParameters()
	params.Sampler.Columns = nil
	params.Sampler.RequiredColumn = ""

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	output := withInput(t, input+"\n\n")
	SelectFields(ctx, &delivery.Service{Params: params})
	assert.Contains(t, output.String(), "context canceled")
}
