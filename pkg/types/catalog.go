package types

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// EdgeInfo describes a selectable edge and the perks it offers.
type EdgeInfo struct {
	ID    string
	Name  string
	Perks []string
}

// EdgeCatalog lists the known edges. Selections outside the catalog are
// allowed on the record; the catalog only drives lookups and suggestions.
var EdgeCatalog = []EdgeInfo{
	{ID: "arsenal", Name: "Arsenal", Perks: []string{"team-requisition", "special-features", "exotics", "untraceable"}},
	{ID: "fleet", Name: "Fleet", Perks: []string{"armor", "performance", "surveillance", "untraceable"}},
	{ID: "ordnance", Name: "Ordnance", Perks: []string{"multiple-payloads", "non-standard-delivery", "improvised-explosives", "disguised-delivery"}},
	{ID: "library", Name: "Library", Perks: []string{"where-they-hide", "who-they-are", "what-works"}},
	{ID: "improvised-gear", Name: "Improvised Gear", Perks: []string{"frugal", "mad-scientist", "specialist", "speed-crafting"}},
	{ID: "global-access", Name: "Global Access", Perks: []string{"all-access", "backdoor", "cleaner", "watchdog"}},
	{ID: "drone-jockey", Name: "Drone Jockey", Perks: []string{"armament", "autonomous", "new-model", "stealth-drone"}},
	{ID: "beast-whisperer", Name: "Beast Whisperer", Perks: []string{"incorruptible", "menagerie", "beast-speech", "pack-hunter"}},
	{ID: "sense-the-unnatural", Name: "Sense the Unnatural", Perks: []string{"range", "precision", "handsfree", "creature-specialization"}},
	{ID: "repel-the-unnatural", Name: "Repel the Unnatural", Perks: []string{"ward", "rebuke", "creature-specialization", "damage"}},
	{ID: "thwart-the-unnatural", Name: "Thwart the Unnatural", Perks: []string{"resistance", "creature-specialization", "recognition", "ward"}},
	{ID: "artifact", Name: "Artifact", Perks: []string{"empower", "bond", "detection", "unveiling"}},
	{ID: "cleanse-the-unnatural", Name: "Cleanse the Unnatural", Perks: []string{"mass-cleansing", "unbound", "creature-specialization", "permanent"}},
	{ID: "great-destiny", Name: "Great Destiny", Perks: []string{"fated-fortune", "prophetic", "fortune-favors", "unbreakable"}},
	{ID: "unnatural-changes", Name: "Unnatural Changes", Perks: []string{"mental-changes", "physical-changes", "unnatural-resilience", "shapeshift"}},
}

// LookupEdge returns the catalog entry for id.
func LookupEdge(id string) (EdgeInfo, bool) {
	for _, e := range EdgeCatalog {
		if e.ID == id {
			return e, true
		}
	}
	return EdgeInfo{}, false
}

// SuggestEdge returns the closest catalog edge ids to an unknown input,
// best first. Exact matches return nil.
func SuggestEdge(input string) []string {
	ids := make([]string, len(EdgeCatalog))
	for i, e := range EdgeCatalog {
		ids[i] = e.ID
	}
	return suggest(input, ids)
}

// SuggestPerk returns the closest perk ids offered by edgeID.
func SuggestPerk(edgeID, input string) []string {
	e, ok := LookupEdge(edgeID)
	if !ok {
		return nil
	}
	return suggest(input, e.Perks)
}

// SuggestField returns the closest wire field names to an unknown input.
func SuggestField(input string) []string {
	return suggest(input, FieldNames())
}

type suggestion struct {
	id   string
	dist int
}

func suggest(input string, candidates []string) []string {
	in := strings.ToLower(strings.TrimSpace(input))
	if in == "" {
		return nil
	}
	var hits []suggestion
	for _, c := range candidates {
		if c == in {
			return nil
		}
		dist := levenshtein.ComputeDistance(in, c)
		if dist > suggestLimit(len(c)) {
			continue
		}
		hits = append(hits, suggestion{id: c, dist: dist})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].dist == hits[j].dist {
			return hits[i].id < hits[j].id
		}
		return hits[i].dist < hits[j].dist
	})
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.id)
	}
	return out
}

func suggestLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}
