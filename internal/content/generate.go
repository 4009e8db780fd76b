// internal/content/generate.go
package content

import (
	"math/rand"

	"github.com/bunkergame/bunker/internal/models"
)

// Scenario is the immutable flavor pair chosen once per game.
type Scenario struct {
	Bunker      string `json:"bunker"`
	Catastrophe string `json:"catastrophe"`
}

// NewScenario picks a bunker and catastrophe for a fresh game.
func NewScenario(r *rand.Rand) Scenario {
	return Scenario{
		Bunker:      Bunkers[r.Intn(len(Bunkers))],
		Catastrophe: Catastrophes[r.Intn(len(Catastrophes))],
	}
}

// GenerateCharacteristics rolls a full characteristic sheet for a joining
// player. The sheet is assigned once and immutable afterwards; the two action
// slots hold static card IDs resolved against the pool at activation time.
func GenerateCharacteristics(r *rand.Rand) map[models.CharacteristicKey]string {
	first := r.Intn(len(ActionCards))
	second := r.Intn(len(ActionCards))
	for second == first && len(ActionCards) > 1 {
		second = r.Intn(len(ActionCards))
	}
	return map[models.CharacteristicKey]string{
		models.CharProfession: Professions[r.Intn(len(Professions))],
		models.CharBiology:    Biologies[r.Intn(len(Biologies))],
		models.CharHealth:     Healths[r.Intn(len(Healths))],
		models.CharPhobia:     Phobias[r.Intn(len(Phobias))],
		models.CharHobby:      Hobbies[r.Intn(len(Hobbies))],
		models.CharBaggage:    Baggages[r.Intn(len(Baggages))],
		models.CharFact:       Facts[r.Intn(len(Facts))],
		models.CharActionOne:  ActionCards[first].ID,
		models.CharActionTwo:  ActionCards[second].ID,
	}
}

// RandomHealth redraws a single health value; used by reroll effects.
func RandomHealth(r *rand.Rand) string {
	return Healths[r.Intn(len(Healths))]
}
