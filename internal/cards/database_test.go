package cards

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testRecords builds a small two-set database: "tst" stocks every rarity with
// colored commons, "oth" holds a reprint of Bolt under a higher collector
// number.
func testRecords() []Card {
	records := []Card{
		{ID: "tst-1", Name: "Bolt", Set: "tst", CollectorNumber: "1", Rarity: RarityCommon, Colors: []Color{Red}},
		{ID: "oth-9", Name: "Bolt", Set: "oth", CollectorNumber: "9", Rarity: RarityCommon, Colors: []Color{Red}},
		{ID: "tst-20", Name: "Wrath", Set: "tst", CollectorNumber: "20", Rarity: RarityRare, Colors: []Color{White}},
		{ID: "tst-21", Name: "Dragon", Set: "tst", CollectorNumber: "21", Rarity: RarityMythic, Colors: []Color{Red}},
		{ID: "tst-30", Name: "Fire // Ice", Set: "tst", CollectorNumber: "30", Rarity: RarityUncommon, Colors: []Color{Red, Blue}},
	}

	colors := []Color{White, Blue, Black, Red, Green}
	for i := 0; i < 20; i++ {
		records = append(records, Card{
			ID:              CardID(fmt.Sprintf("tst-c%02d", i)),
			Name:            fmt.Sprintf("Common %d", i),
			Set:             "tst",
			CollectorNumber: fmt.Sprintf("%d", 100+i),
			Rarity:          RarityCommon,
			Colors:          []Color{colors[i%len(colors)]},
		})
	}
	for i := 0; i < 8; i++ {
		records = append(records, Card{
			ID:              CardID(fmt.Sprintf("tst-u%02d", i)),
			Name:            fmt.Sprintf("Uncommon %d", i),
			Set:             "tst",
			CollectorNumber: fmt.Sprintf("%d", 200+i),
			Rarity:          RarityUncommon,
			Colors:          []Color{colors[i%len(colors)]},
		})
	}
	for i := 0; i < 4; i++ {
		records = append(records, Card{
			ID:              CardID(fmt.Sprintf("tst-r%02d", i)),
			Name:            fmt.Sprintf("Rare %d", i),
			Set:             "tst",
			CollectorNumber: fmt.Sprintf("%d", 300+i),
			Rarity:          RarityRare,
			Colors:          []Color{colors[i%len(colors)]},
		})
	}
	return records
}

func testDatabase(t *testing.T) *Database {
	t.Helper()
	return NewDatabase(testRecords())
}

func TestNormalizeSetAliases(t *testing.T) {
	assert.Equal(t, "dom", NormalizeSet("dar"))
	assert.Equal(t, "con", NormalizeSet("conf"))
	assert.Equal(t, "tst", NormalizeSet("tst"))
}

func TestCardByNamePrefersLowestCollectorNumber(t *testing.T) {
	db := testDatabase(t)

	id, ok := db.CardByName("Bolt")
	require.True(t, ok)
	assert.Equal(t, CardID("tst-1"), id)

	versions := db.CardVersionsByName("Bolt")
	require.Len(t, versions, 2)
	assert.Equal(t, CardID("tst-1"), versions[0])
	assert.Equal(t, CardID("oth-9"), versions[1])
}

func TestGetCardUnknown(t *testing.T) {
	db := testDatabase(t)

	_, err := db.GetCard("nope")
	assert.Error(t, err)
}

func TestCardsInSetsFiltersAndSorts(t *testing.T) {
	db := testDatabase(t)

	oth := db.CardsInSets([]string{"oth"})
	require.Len(t, oth, 1)
	assert.Equal(t, CardID("oth-9"), oth[0].ID)

	all := db.CardsInSets(nil)
	assert.Equal(t, db.Size(), len(all))
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].ID, all[i].ID)
	}
}

func TestSets(t *testing.T) {
	db := testDatabase(t)
	assert.Equal(t, []string{"oth", "tst"}, db.Sets())
}
