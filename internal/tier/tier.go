// Package tier classifies Swiss destinations into coarse travel-cost brackets.
package tier

import (
	"slices"
	"sort"
)

// Label is a cost bracket. T1 is the most expensive, T3 the cheapest.
type Label string

// Tier labels in order of decreasing assumed travel cost.
const (
	T1 Label = "T1"
	T2 Label = "T2"
	T3 Label = "T3"
)

// Labels returns every tier label in order of decreasing cost.
func Labels() []Label {
	return []Label{T1, T2, T3}
}

// Valid reports whether l is one of the known labels.
func (l Label) Valid() bool {
	return slices.Contains(Labels(), l)
}

func (l Label) String() string {
	return string(l)
}

// Membership sets. Names are matched exactly: no case folding and no
// diacritic stripping, so "zurich" is not "Zurich".
var (
	tier1Cities = map[string]struct{}{
		"Zurich": {}, "Geneva": {}, "Basel": {}, "Lausanne": {}, "Zermatt": {},
		"St. Moritz": {}, "Davos": {}, "Klosters": {}, "Verbier": {}, "Gstaad": {},
		"Andermatt": {}, "Grindelwald": {}, "Wengen": {}, "Mürren": {}, "Saas-Fee": {},
		"Arosa": {}, "Lenzerheide": {}, "Flims": {}, "Laax": {}, "Engelberg": {},
		"Crans-Montana": {}, "Montreux": {}, "Lucerne": {}, "Ascona": {}, "Zug": {},
	}

	tier2Cities = map[string]struct{}{
		"Bern": {}, "Winterthur": {}, "St. Gallen": {}, "Biel": {}, "Schaffhausen": {},
		"Chur": {}, "Thun": {}, "Neuchâtel": {}, "Fribourg": {}, "Sion": {},
		"Brig": {}, "Bellinzona": {}, "Interlaken": {}, "Kloten": {}, "Lugano": {},
		"Locarno": {},
	}

	tier3Cities = map[string]struct{}{
		"Solothurn": {}, "Olten": {}, "Rapperswil": {}, "Uster": {}, "Baden": {},
		"Wil": {}, "Arbon": {}, "Romanshorn": {}, "Spiez": {}, "Steffisburg": {},
		"Villars-sur-Glâne": {}, "Pfäffikon": {}, "Wetzikon": {},
	}
)

// Of returns the tier of city. Cities outside every set fall back to T3.
func Of(city string) Label {
	if _, ok := tier1Cities[city]; ok {
		return T1
	}
	if _, ok := tier2Cities[city]; ok {
		return T2
	}
	return T3
}

// Members returns the sorted city names explicitly listed for l.
func Members(l Label) []string {
	var set map[string]struct{}
	switch l {
	case T1:
		set = tier1Cities
	case T2:
		set = tier2Cities
	case T3:
		set = tier3Cities
	default:
		return nil
	}
	return sortedKeys(set)
}

// Cities returns the sorted union of all tiered cities.
func Cities() []string {
	all := make(map[string]struct{}, len(tier1Cities)+len(tier2Cities)+len(tier3Cities))
	for _, set := range []map[string]struct{}{tier1Cities, tier2Cities, tier3Cities} {
		for city := range set {
			all[city] = struct{}{}
		}
	}
	return sortedKeys(all)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
