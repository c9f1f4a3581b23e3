package efibootmgr

import (
	"context"
	"regexp"
	"strings"
)

var (
	orderLine = regexp.MustCompile(`(?m)^BootOrder:\s*([0-9A-Fa-f,]+)\s*$`)
	entryLine = regexp.MustCompile(`^Boot([0-9A-Fa-f]{4})\*?\s+(.*)$`)
)

// ParseOrder extracts the BootOrder line from efibootmgr query output.
// The line must be present and every token must be a valid entry id.
func ParseOrder(output string) (Order, error) {
	m := orderLine.FindStringSubmatch(output)
	if m == nil {
		return nil, Errorf("no BootOrder line in boot manager output")
	}
	tokens := strings.Split(m[1], ",")
	order := make(Order, 0, len(tokens))
	for _, tok := range tokens {
		id, err := ParseEntryID(tok)
		if err != nil {
			return nil, Wrapf(err, "malformed BootOrder value %q", m[1])
		}
		order = append(order, id)
	}
	return order, nil
}

// ParseEntries collects every Boot#### line into an id to description map.
// A later line with the same id overwrites an earlier one, mirroring the
// scan order of the output. Zero entries is a failure.
func ParseEntries(output string) (map[EntryID]string, error) {
	entries := make(map[EntryID]string)
	for _, line := range strings.Split(output, "\n") {
		m := entryLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		entries[EntryID(strings.ToLower(m[1]))] = strings.TrimSpace(m[2])
	}
	if len(entries) == 0 {
		return nil, Errorf("no boot entries in boot manager output")
	}
	return entries, nil
}

// CurrentState queries the firmware once and parses both the order and the
// entry map out of the same output. An order that references ids with no
// matching entry indicates a torn or unparseable read and must not be acted
// upon, so it fails here naming the missing ids.
func CurrentState(ctx context.Context, r Runner) (State, error) {
	output, err := r.Run(ctx)
	if err != nil {
		return State{}, err
	}
	order, err := ParseOrder(output)
	if err != nil {
		return State{}, err
	}
	entries, err := ParseEntries(output)
	if err != nil {
		return State{}, err
	}
	if missing := order.MissingFrom(entries); len(missing) > 0 {
		return State{}, Errorf("boot order references unknown entries: %s", missing)
	}
	return State{Order: order, Entries: entries}, nil
}
