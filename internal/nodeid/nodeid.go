package nodeid

import "strconv"

// Numeric parses id as a decimal integer. The second return value reports
// whether the id was numeric at all.
func Numeric(id string) (int64, bool) {
	if id == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Less defines the deterministic ordering used for candidate tie-breaks.
// Numeric ids order ascending and always precede non-numeric ids;
// non-numeric ids fall back to lexicographic comparison.
func Less(a, b string) bool {
	na, okA := Numeric(a)
	nb, okB := Numeric(b)
	switch {
	case okA && okB:
		if na != nb {
			return na < nb
		}
		// Equal values with different spellings ("07" vs "7") still need
		// a stable answer.
		return a < b
	case okA:
		return true
	case okB:
		return false
	default:
		return a < b
	}
}

// Min returns the id that orders first under Less. It is the tie-break
// primitive: the winner among ambiguous candidates is the node that
// appears earliest in authoring order, not the one that executed last.
func Min(ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	best := ids[0]
	for _, id := range ids[1:] {
		if Less(id, best) {
			best = id
		}
	}
	return best
}
