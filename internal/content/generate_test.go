// internal/content/generate_test.go
package content

import (
	"math/rand"
	"testing"

	"github.com/bunkergame/bunker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCharacteristicsFillsEverySlot(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		sheet := GenerateCharacteristics(r)
		require.Len(t, sheet, len(models.AllCharacteristicKeys))
		for _, key := range models.AllCharacteristicKeys {
			assert.NotEmpty(t, sheet[key], "slot %s left empty", key)
		}

		// Both action slots resolve against the card pool and differ.
		first, ok := ActionCardByID(sheet[models.CharActionOne])
		require.True(t, ok)
		second, ok := ActionCardByID(sheet[models.CharActionTwo])
		require.True(t, ok)
		assert.NotEqual(t, first.ID, second.ID)
	}
}

func TestActionCardByID(t *testing.T) {
	card, ok := ActionCardByID("swap_profession")
	require.True(t, ok)
	assert.Equal(t, "swap_profession", card.ID)
	assert.True(t, card.RequiresTarget)

	cancel, ok := ActionCardByID("cancel")
	require.True(t, ok)
	assert.True(t, cancel.IsCancel)

	_, ok = ActionCardByID("no_such_card")
	assert.False(t, ok)
}

func TestNewScenario(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	s := NewScenario(r)
	assert.Contains(t, Bunkers, s.Bunker)
	assert.Contains(t, Catastrophes, s.Catastrophe)
}
