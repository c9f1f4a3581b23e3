// Package efibootmgr wraps the efibootmgr binary: invoking it, parsing its
// output into boot order and entry descriptions, and resolving a target
// entry by name or id.
package efibootmgr

import (
	"regexp"
	"strings"
)

// EntryID identifies one firmware boot entry: exactly four hex digits,
// lower-case in canonical form.
type EntryID string

var idPattern = regexp.MustCompile(`^[0-9a-f]{4}$`)

// ParseEntryID canonicalizes and validates a raw boot entry id.
func ParseEntryID(raw string) (EntryID, error) {
	id := strings.ToLower(strings.TrimSpace(raw))
	if !idPattern.MatchString(id) {
		return "", Errorf("invalid boot entry id %q: want exactly four hex digits", raw)
	}
	return EntryID(id), nil
}

// Upper returns the id the way firmware tools display it.
func (id EntryID) Upper() string { return strings.ToUpper(string(id)) }

// Order is the firmware boot attempt sequence. Order is significant.
type Order []EntryID

// String renders the order in the comma-separated upper-case form used by
// efibootmgr's -o argument and the backup record.
func (o Order) String() string {
	parts := make([]string, len(o))
	for i, id := range o {
		parts[i] = id.Upper()
	}
	return strings.Join(parts, ",")
}

// MissingFrom returns the ids in o that have no entry in entries, in order.
func (o Order) MissingFrom(entries map[EntryID]string) Order {
	var missing Order
	for _, id := range o {
		if _, ok := entries[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

// State is one parsed view of the firmware boot configuration.
type State struct {
	Order   Order
	Entries map[EntryID]string
}
