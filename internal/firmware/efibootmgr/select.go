package efibootmgr

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/exp/maps"
)

// SelectByName resolves a target entry by its description, case-insensitive.
// Without exact the name matches as a substring. Anything other than exactly
// one match is an error: ambiguity is reported with every candidate rather
// than silently resolved.
func SelectByName(entries map[EntryID]string, name string, exact bool) (EntryID, error) {
	query := strings.ToLower(name)

	var matches Order
	ids := maps.Keys(entries)
	slices.Sort(ids)
	for _, id := range ids {
		desc := strings.ToLower(entries[id])
		ok := desc == query
		if !exact {
			ok = strings.Contains(desc, query)
		}
		if ok {
			matches = append(matches, id)
		}
	}

	switch len(matches) {
	case 0:
		return "", Errorf("no boot entry matches name %q (exact=%t)", name, exact)
	case 1:
		return matches[0], nil
	}

	details := make([]string, len(matches))
	for i, id := range matches {
		details[i] = fmt.Sprintf("%s: %s", id.Upper(), entries[id])
	}
	return "", Errorf("name %q matches multiple entries: %s. Narrow the match with --exact or select with --id",
		name, strings.Join(details, "; "))
}

// SelectByID resolves a target entry from a raw id string, requiring both a
// valid id shape and an existing entry.
func SelectByID(entries map[EntryID]string, raw string) (EntryID, error) {
	id, err := ParseEntryID(raw)
	if err != nil {
		return "", err
	}
	if _, ok := entries[id]; !ok {
		return "", Errorf("boot entry %s does not exist", id.Upper())
	}
	return id, nil
}
