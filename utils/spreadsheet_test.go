package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestColumnLetter(t *testing.T) {
	cases := map[int]string{1: "A", 8: "H", 15: "O", 26: "Z", 27: "AA", 52: "AZ", 53: "BA", 0: ""}
	for in, want := range cases {
		assert.Equal(t, want, ColumnLetter(in), "column %d", in)
	}
}

func TestParseCell(t *testing.T) {
	col, row, err := ParseCell("C12")
	require.NoError(t, err)
	assert.Equal(t, 3, col)
	assert.Equal(t, 12, row)

	col, row, err = ParseCell("aa1")
	require.NoError(t, err)
	assert.Equal(t, 27, col)
	assert.Equal(t, 1, row)

	for _, bad := range []string{"", "A", "12", "A0", "A1B", "A-1"} {
		_, _, err := ParseCell(bad)
		assert.Error(t, err, bad)
	}
}

func TestRangeStart(t *testing.T) {
	col, row, err := RangeStart("'Leads'!A1:Z1000")
	require.NoError(t, err)
	assert.Equal(t, 1, col)
	assert.Equal(t, 1, row)

	col, row, err = RangeStart("'Bob''s!x'!C3:H9")
	require.NoError(t, err)
	assert.Equal(t, 3, col)
	assert.Equal(t, 3, row)

	_, _, err = RangeStart("Leads!A:ZZ")
	assert.Error(t, err)
}

func TestSheetRange(t *testing.T) {
	assert.Equal(t, "'Leads'", SheetRange("Leads"))
	assert.Equal(t, "'Bob''s'", SheetRange("Bob's"))
	assert.Equal(t, "'Leads'!1:1", A1("Leads", "1:1"))
}

func TestRowRange(t *testing.T) {
	assert.Equal(t, "'Leads'!A1:O1", RowRange("Leads", 1, 15))
	assert.Equal(t, "'Bob''s'!A3:H3", RowRange("Bob's", 3, 8))
}

func TestHexColor(t *testing.T) {
	c := HexColor(HeaderBackground)
	assert.InDelta(t, 139.0/255, c.Red, 1e-9)
	assert.InDelta(t, 115.0/255, c.Green, 1e-9)
	assert.InDelta(t, 85.0/255, c.Blue, 1e-9)

	white := HexColor("#ffffff")
	assert.Equal(t, 1.0, white.Red)
	assert.Equal(t, 0.0, HexColor("zz").Red)
}

func TestHeaderStyleRequests(t *testing.T) {
	reqs := HeaderStyleRequests(42, 15)
	require.Len(t, reqs, 2)
	rc := reqs[0].RepeatCell
	require.NotNil(t, rc)
	assert.EqualValues(t, 42, rc.Range.SheetId)
	assert.EqualValues(t, 15, rc.Range.EndColumnIndex)
	assert.True(t, rc.Cell.UserEnteredFormat.TextFormat.Bold)
	assert.Equal(t, "CENTER", rc.Cell.UserEnteredFormat.HorizontalAlignment)
	assert.EqualValues(t, 15, reqs[1].AutoResizeDimensions.Dimensions.EndIndex)
}

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds", "token.json")

	_, err := tokenFromFile(path)
	assert.ErrorIs(t, err, ErrNoToken)

	want := &oauth2.Token{AccessToken: "a", RefreshToken: "r", Expiry: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, saveToken(path, want))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := tokenFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, want.AccessToken, got.AccessToken)
	assert.Equal(t, want.RefreshToken, got.RefreshToken)
}

func TestIsServiceAccount(t *testing.T) {
	assert.True(t, isServiceAccount([]byte(`{"type":"service_account"}`)))
	assert.False(t, isServiceAccount([]byte(`{"installed":{}}`)))
	assert.False(t, isServiceAccount([]byte(`not json`)))
}
