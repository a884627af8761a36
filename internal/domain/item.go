package domain

import "fmt"

// MarketHashName is the canonical identity of a tradable item class.
// Items sharing a hash name are fungible on the market.
type MarketHashName string

type ItemKind string
type ItemCategory string
type ItemRarity string
type Exterior string

const (
	KindBase       ItemKind = "Base"
	KindContainer  ItemKind = "Container"
	KindWeaponSkin ItemKind = "WeaponSkin"
)

const (
	CategoryContainer  ItemCategory = "Container"
	CategoryWeaponSkin ItemCategory = "WeaponSkin"
	CategorySticker    ItemCategory = "Sticker"
	CategoryMisc       ItemCategory = "Misc"
)

const (
	RarityBaseGrade       ItemRarity = "BaseGrade"
	RarityCommon          ItemRarity = "Common"
	RarityUncommon        ItemRarity = "Uncommon"
	RarityRare            ItemRarity = "Rare"
	RarityMythical        ItemRarity = "Mythical"
	RarityLegendary       ItemRarity = "Legendary"
	RarityAncient         ItemRarity = "Ancient"
	RarityExceedinglyRare ItemRarity = "ExceedinglyRare"
)

const (
	FactoryNew    Exterior = "Factory New"
	MinimalWear   Exterior = "Minimal Wear"
	FieldTested   Exterior = "Field-Tested"
	WellWorn      Exterior = "Well-Worn"
	BattleScarred Exterior = "Battle-Scarred"
)

// Item is a tagged variant covering base items, containers and weapon
// skins. The order book and matching engine read only the hash name,
// never the variant fields. The hash name is computed once at
// construction from immutable identity fields.
type Item struct {
	Name     string
	Rarity   ItemRarity
	Category ItemCategory
	Kind     ItemKind

	// Weapon skin fields.
	Exterior     Exterior
	FloatValue   float64
	PatternIndex int

	// Container contents; not part of the identity key.
	Content map[string]float64

	hashName MarketHashName
}

func NewItem(name string, rarity ItemRarity, category ItemCategory) Item {
	return Item{
		Name:     name,
		Rarity:   rarity,
		Category: category,
		Kind:     KindBase,
		hashName: MarketHashName(name),
	}
}

func NewContainer(name string, rarity ItemRarity, content map[string]float64) Item {
	return Item{
		Name:     name,
		Rarity:   rarity,
		Category: CategoryContainer,
		Kind:     KindContainer,
		Content:  content,
		hashName: MarketHashName(name),
	}
}

func NewWeaponSkin(name string, rarity ItemRarity, exterior Exterior, floatValue float64, patternIndex int) Item {
	return Item{
		Name:         name,
		Rarity:       rarity,
		Category:     CategoryWeaponSkin,
		Kind:         KindWeaponSkin,
		Exterior:     exterior,
		FloatValue:   floatValue,
		PatternIndex: patternIndex,
		hashName:     MarketHashName(fmt.Sprintf("%s (%s)", name, exterior)),
	}
}

func (i Item) HashName() MarketHashName {
	return i.hashName
}
