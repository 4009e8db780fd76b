// internal/content/pools.go
package content

import "github.com/bunkergame/bunker/internal/models"

// Static content pools. The game consumes these as opaque read-only data;
// nothing in the engine depends on the specific strings.

var Professions = []string{
	"Surgeon", "Electrician", "Farmer", "Teacher", "Soldier", "Chef",
	"Carpenter", "Nurse", "Mechanic", "Chemist", "Firefighter", "Psychologist",
	"Plumber", "Geologist", "Tailor", "Veterinarian", "Radio Operator",
	"Librarian", "Fisherman", "Beekeeper", "Lawyer", "Street Musician",
	"Crane Operator", "Meteorologist", "Pastry Chef",
}

var Biologies = []string{
	"Male, 19 years old", "Male, 26 years old", "Male, 34 years old",
	"Male, 47 years old", "Male, 58 years old", "Male, 72 years old",
	"Female, 18 years old", "Female, 23 years old", "Female, 31 years old",
	"Female, 44 years old", "Female, 56 years old", "Female, 67 years old",
	"Male, 39 years old, infertile", "Female, 36 years old, infertile",
}

var Healths = []string{
	"Perfectly healthy", "Asthma", "Diabetes, insulin-dependent",
	"Color blindness", "Chronic migraines", "Heart arrhythmia",
	"Missing left hand", "Severe allergies", "Poor eyesight",
	"Recovering from a broken leg", "Hypertension", "Deaf in one ear",
	"Chronic insomnia", "Ulcer",
}

var Phobias = []string{
	"Claustrophobia", "Fear of the dark", "Arachnophobia", "Fear of heights",
	"Germophobia", "Fear of loud noises", "Fear of blood", "Agoraphobia",
	"Fear of water", "Fear of fire", "Fear of crowds", "No phobias",
}

var Hobbies = []string{
	"Gardening", "Chess", "Amateur radio", "Hunting", "Knitting",
	"Home brewing", "First aid courses", "Rock climbing", "Cooking",
	"Carpentry", "Yoga", "Foraging", "Astronomy", "Board games",
	"Martial arts", "Painting",
}

var Baggages = []string{
	"A crate of canned food", "A toolbox", "A medical kit",
	"A hunting rifle with ammo", "Seeds for a vegetable garden",
	"A water filter", "A solar charger", "A set of encyclopedias",
	"A guitar", "A box of batteries", "A sewing machine", "A chainsaw",
	"A crate of vodka", "A geiger counter", "An empty suitcase",
}

var Facts = []string{
	"Survived a shipwreck", "Speaks four languages", "Former convict",
	"Won a marathon", "Grew up on a farm", "Was a scout leader",
	"Knows morse code", "Afraid of doctors", "Built their own house",
	"Has never been sick", "Once got lost in a forest for a week",
	"Can repair almost any engine", "Donated a kidney",
	"Was struck by lightning and survived",
}

// Bunkers and Catastrophes are the immutable scenario flavor chosen once at
// game creation.

var Bunkers = []string{
	"A decommissioned missile silo with working hydroponics and a diesel generator. Space for a limited crew, supplies for two years.",
	"A converted subway depot deep under the city. Stable water supply, unreliable ventilation in the far sections.",
	"A cold-war era government shelter in the mountains. Thick blast doors, a library, and a long-dead radio room.",
	"A private doomsday vault built by an eccentric billionaire. Luxurious but with a single air recycler.",
	"A repurposed mine shaft with a seed bank and a small livestock pen. Cold, damp, and very deep.",
}

var Catastrophes = []string{
	"A global pandemic with a 90% fatality rate has collapsed civilization. The surface will be unsafe for at least a year.",
	"Nuclear exchange between major powers. Fallout makes the surface lethal for the foreseeable future.",
	"An asteroid impact has thrown enough dust into the atmosphere to trigger a decade-long winter.",
	"A supervolcano eruption has buried the continent in ash. Crops have failed worldwide.",
	"A runaway bioweapon has turned most of the population hostile. The surface belongs to them now.",
}

// ActionCards is the static pool of one-shot reactive effects dealt into the
// two action slots. Cancel cards do nothing on their own; they exist to
// interrupt another player's pending action.
var ActionCards = []models.ActionCard{
	{
		ID:             "swap_profession",
		Name:           "Retraining",
		Description:    "Swap professions with another player.",
		Effect:         "swap_profession",
		RequiresTarget: true,
		TargetType:     models.TargetOther,
	},
	{
		ID:             "reveal_biology",
		Name:           "Medical Exam",
		Description:    "Force a player who has not shown their biology to reveal it.",
		Effect:         "force_reveal_biology",
		RequiresTarget: true,
		TargetType:     models.TargetClosedBiology,
	},
	{
		ID:             "reroll_health",
		Name:           "Second Opinion",
		Description:    "Redraw your own health characteristic.",
		Effect:         "reroll_health",
		RequiresTarget: false,
		TargetType:     models.TargetNone,
	},
	{
		ID:             "reroll_any_health",
		Name:           "Experimental Cure",
		Description:    "Redraw any player's health characteristic.",
		RequiresTarget: true,
		Effect:         "reroll_health_target",
		TargetType:     models.TargetAny,
	},
	{
		ID:             "steal_baggage",
		Name:           "Forced Requisition",
		Description:    "Take another player's baggage for yourself.",
		Effect:         "steal_baggage",
		RequiresTarget: true,
		TargetType:     models.TargetOther,
	},
	{
		ID:             "loot_baggage",
		Name:           "Last Will",
		Description:    "Claim the baggage of a player who has been voted out.",
		Effect:         "loot_baggage",
		RequiresTarget: true,
		TargetType:     models.TargetEliminated,
	},
	{
		ID:               "expand_bunker",
		Name:             "Hidden Annex",
		Description:      "Open an extra bunker slot. Usable only after voting results.",
		Effect:           "expand_bunker",
		RequiresTarget:   false,
		TargetType:       models.TargetNone,
		OnlyAfterResults: true,
	},
	{
		ID:          "cancel",
		Name:        "Veto",
		Description: "Cancel another player's action card before it resolves.",
		Effect:      "cancel",
		TargetType:  models.TargetNone,
		IsCancel:    true,
	},
	{
		ID:          "cancel_strong",
		Name:        "Absolute Veto",
		Description: "Cancel another player's action card before it resolves.",
		Effect:      "cancel",
		TargetType:  models.TargetNone,
		IsCancel:    true,
	},
}

// ActionCardByID resolves a static card definition from the pool.
func ActionCardByID(id string) (*models.ActionCard, bool) {
	for i := range ActionCards {
		if ActionCards[i].ID == id {
			return &ActionCards[i], true
		}
	}
	return nil, false
}
