package cards

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	db := testDatabase(t)

	tests := []struct {
		name    string
		line    string
		want    ParsedLine
		wantErr bool
	}{
		{
			name: "name only takes preferred printing",
			line: "Bolt",
			want: ParsedLine{Count: 1, CardID: "tst-1"},
		},
		{
			name: "count prefix",
			line: "4 Bolt",
			want: ParsedLine{Count: 4, CardID: "tst-1"},
		},
		{
			name: "set narrows the printing",
			line: "Bolt (OTH)",
			want: ParsedLine{Count: 1, CardID: "oth-9"},
		},
		{
			name: "set and collector number",
			line: "2 Bolt (OTH) 9",
			want: ParsedLine{Count: 2, CardID: "oth-9"},
		},
		{
			name: "foil suffix",
			line: "Bolt +F",
			want: ParsedLine{Count: 1, CardID: "tst-1", Foil: true},
		},
		{
			name:    "unknown card",
			line:    "Totally Unknown",
			wantErr: true,
		},
		{
			name:    "wrong set",
			line:    "Wrath (OTH)",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLine(db, tt.line)
			if tt.wantErr {
				var parseErr *ParseError
				require.ErrorAs(t, err, &parseErr)
				assert.NotEmpty(t, parseErr.Title)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLineDoubleFacedFallsBackToFrontFace(t *testing.T) {
	// The database stores the front face only; a list naming the full
	// double-faced name should still resolve.
	records := testRecords()
	records = append(records, Card{ID: "tst-40", Name: "Delver", Set: "tst", CollectorNumber: "40", Rarity: RarityCommon, Colors: []Color{Blue}})
	db := NewDatabase(records)

	parsed, err := ParseLine(db, "Delver // Aberration (TST)")
	require.NoError(t, err)
	assert.Equal(t, CardID("tst-40"), parsed.CardID)
}

func TestParseCardListDefaultSlot(t *testing.T) {
	db := testDatabase(t)

	list, err := ParseCardList(db, "4 Bolt\nWrath\n")
	require.NoError(t, err)

	require.Contains(t, list.Slots, DefaultSlot)
	assert.Equal(t, 4, list.Slots[DefaultSlot]["tst-1"])
	assert.Equal(t, 1, list.Slots[DefaultSlot]["tst-20"])
	assert.Nil(t, list.Layouts)
	assert.Equal(t, 5, list.CardCount())
}

func TestParseCardListSizedSlotsImplyLayout(t *testing.T) {
	db := testDatabase(t)

	text := `[Rares(1)]
Wrath
Dragon
[Fillers(3)]
4 Bolt
Common 1
`
	list, err := ParseCardList(db, text)
	require.NoError(t, err)

	require.Len(t, list.Slots, 2)
	require.Len(t, list.Layouts, 1)
	layout := list.Layouts[DefaultSlot]
	assert.Equal(t, 1, layout.Slots["Rares"])
	assert.Equal(t, 3, layout.Slots["Fillers"])
	assert.Equal(t, 4, layout.CardCount())
}

func TestParseCardListSettingsAndLayouts(t *testing.T) {
	db := testDatabase(t)

	text := `[Settings]
{"withReplacement": true, "name": "Test Cube"}
[Layouts]
- Heavy (2)
1 Rares
2 Fillers
- Light (1)
3 Fillers
[Rares]
Wrath
[Fillers]
8 Bolt
`
	list, err := ParseCardList(db, text)
	require.NoError(t, err)

	assert.True(t, list.Settings.WithReplacement)
	assert.Equal(t, "Test Cube", list.Settings.Name)

	require.Len(t, list.Layouts, 2)
	assert.Equal(t, 2, list.Layouts["Heavy"].Weight)
	assert.Equal(t, 3, list.Layouts["Heavy"].CardCount())
	assert.Equal(t, 3, list.Layouts["Light"].CardCount())
}

func TestParseCardListRejectsUndeclaredSlotInLayout(t *testing.T) {
	db := testDatabase(t)

	text := `[Layouts]
- Broken (1)
1 Missing
[Rares]
Wrath
`
	_, err := ParseCardList(db, text)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "Invalid Layout", parseErr.Title)
}

func TestParseCardListEmpty(t *testing.T) {
	db := testDatabase(t)

	_, err := ParseCardList(db, "\n\n")
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "Empty List", parseErr.Title)
}

func TestParseCardListBadSettingsJSON(t *testing.T) {
	db := testDatabase(t)

	_, err := ParseCardList(db, "[Settings]\n{not json}\n[Slot]\nBolt\n")
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "Invalid Settings", parseErr.Title)
}
