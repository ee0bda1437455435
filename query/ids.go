package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// InvalidIDsError lists every entry of a comma-delimited id filter that is
// not a version 4 UUID, keyed by position.
type InvalidIDsError struct {
	Invalid map[int]string
}

func (e *InvalidIDsError) Error() string {
	positions := make([]int, 0, len(e.Invalid))
	for i := range e.Invalid {
		positions = append(positions, i)
	}
	sort.Ints(positions)

	var b strings.Builder
	b.WriteString("property must be a valid list of v4 uuids, invalid values received: [")
	for n, i := range positions {
		if n > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%d: %q", i, e.Invalid[i])
	}
	b.WriteString("]")
	return b.String()
}

// ParseIDs parses a comma-delimited list of v4 UUIDs. An empty string yields
// no ids.
func ParseIDs(s string) ([]uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	ids := make([]uuid.UUID, 0, len(parts))
	invalid := map[int]string{}
	for i, part := range parts {
		part = strings.TrimSpace(part)
		id, err := uuid.Parse(part)
		if err != nil || id.Version() != 4 {
			invalid[i] = part
			continue
		}
		ids = append(ids, id)
	}
	if len(invalid) > 0 {
		return nil, &InvalidIDsError{Invalid: invalid}
	}
	return ids, nil
}
