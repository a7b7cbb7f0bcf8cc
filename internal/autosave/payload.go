package autosave

import (
	"slices"

	"github.com/mesh-intelligence/charsheet/pkg/types"
)

// DefaultDeltaThreshold is the dirty-set size at which a delta gives way to
// a full payload.
const DefaultDeltaThreshold = 10

// fieldGroups lists fields that always travel together. The experience
// counters and their log form one composite and are sent whole.
var fieldGroups = map[string][]string{
	"exp_total":     {"exp_total", "exp_spent", "exp_available", "xp_log"},
	"exp_spent":     {"exp_total", "exp_spent", "exp_available", "xp_log"},
	"exp_available": {"exp_total", "exp_spent", "exp_available", "xp_log"},
	"xp_log":        {"exp_total", "exp_spent", "exp_available", "xp_log"},
}

// BuildPayload shapes what one transmission carries. A record without an
// ID, or with threshold or more dirty fields, is sent in full. Otherwise only
// the dirty fields are sent; a dirty collection is always rendered whole.
func BuildPayload(c *types.Character, dirty []string, threshold int) types.Payload {
	if threshold <= 0 {
		threshold = DefaultDeltaThreshold
	}
	if c.ID == "" || len(dirty) >= threshold {
		return types.Payload{Kind: types.PayloadFull, Fields: c.Fields()}
	}
	return types.Payload{Kind: types.PayloadDelta, Fields: c.FieldsFor(expandGroups(dirty))}
}

func expandGroups(dirty []string) []string {
	out := make([]string, 0, len(dirty))
	for _, f := range dirty {
		if group, ok := fieldGroups[f]; ok {
			out = append(out, group...)
			continue
		}
		out = append(out, f)
	}
	slices.Sort(out)
	return slices.Compact(out)
}
