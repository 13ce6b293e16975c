package h5

import (
	"fmt"
	"slices"

	"github.com/ValentinKolb/h5tree/lib/backend"
	"github.com/agnivade/levenshtein"
)

// GroupType is the semantic role of a group, stored in its `type` attribute.
type GroupType string

const (
	GroupRawDatas   GroupType = "raw_datas"
	GroupScan       GroupType = "scan"
	GroupDetector   GroupType = "detector"
	GroupMove       GroupType = "move"
	GroupData       GroupType = "data"
	GroupCh         GroupType = "ch"
	GroupNone       GroupType = ""
	GroupExternalH5 GroupType = "external_h5"
)

// GroupTypes is the closed set of valid group types.
var GroupTypes = []GroupType{
	GroupRawDatas, GroupScan, GroupDetector, GroupMove,
	GroupData, GroupCh, GroupNone, GroupExternalH5,
}

// ParseGroupType checks s against GroupTypes. The comparison is exact; the
// error names the closest valid type.
func ParseGroupType(s string) (GroupType, error) {
	if slices.Contains(GroupTypes, GroupType(s)) {
		return GroupType(s), nil
	}
	return "", backend.Errorf(backend.RetCInvalidGroupType, "invalid group type %q%s", s, suggestGroupType(s))
}

func suggestGroupType(s string) string {
	best, bestDist := GroupNone, -1
	for _, t := range GroupTypes {
		if t == GroupNone {
			continue
		}
		if d := levenshtein.ComputeDistance(s, string(t)); bestDist == -1 || d < bestDist {
			best, bestDist = t, d
		}
	}
	if bestDist < 0 || bestDist > len(best)/2+1 {
		return ""
	}
	return fmt.Sprintf(" (did you mean %q?)", best)
}
