// internal/models/characteristic.go
package models

// CharacteristicKey identifies one disclosable trait of a player's character.
type CharacteristicKey string

const (
	CharProfession CharacteristicKey = "profession"
	CharBiology    CharacteristicKey = "biology"
	CharHealth     CharacteristicKey = "health"
	CharPhobia     CharacteristicKey = "phobia"
	CharHobby      CharacteristicKey = "hobby"
	CharBaggage    CharacteristicKey = "baggage"
	CharFact       CharacteristicKey = "fact"
	CharActionOne  CharacteristicKey = "action1"
	CharActionTwo  CharacteristicKey = "action2"
)

// AllCharacteristicKeys lists every slot in the order they are dealt and rendered.
var AllCharacteristicKeys = []CharacteristicKey{
	CharProfession,
	CharBiology,
	CharHealth,
	CharPhobia,
	CharHobby,
	CharBaggage,
	CharFact,
	CharActionOne,
	CharActionTwo,
}

// IsActionSlot reports whether the key names one of the two action-card slots.
func (k CharacteristicKey) IsActionSlot() bool {
	return k == CharActionOne || k == CharActionTwo
}
