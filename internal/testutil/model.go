package testutil

import (
	"fmt"
	"sort"
	"strings"
)

// ModelDevice is an in-memory firewall address book that interprets both
// the ScreenOS and the Junos command dialects. It enforces the ordering
// rules real devices enforce, so an ill-ordered sequence fails here too:
// a group member must exist as an address, a group must be empty before it
// is deleted, and an address still in a group cannot be deleted.
type ModelDevice struct {
	// Addresses maps zone -> address name -> definition.
	Addresses map[string]map[string]string
	// Groups maps zone -> group name -> member set.
	Groups map[string]map[string]map[string]bool
}

// NewModelDevice creates an empty address book.
func NewModelDevice() *ModelDevice {
	return &ModelDevice{
		Addresses: map[string]map[string]string{},
		Groups:    map[string]map[string]map[string]bool{},
	}
}

// ExecAll runs commands in order, stopping at the first rejected one.
func (m *ModelDevice) ExecAll(cmds []string) error {
	for i, c := range cmds {
		if err := m.Exec(c); err != nil {
			return fmt.Errorf("command %d %q: %w", i+1, c, err)
		}
	}
	return nil
}

// Exec runs one command. Junos mode and commit commands are accepted and
// ignored.
func (m *ModelDevice) Exec(cmd string) error {
	toks, err := tokenize(cmd)
	if err != nil {
		return err
	}
	if len(toks) == 0 {
		return nil
	}
	switch toks[0] {
	case "configure", "rollback", "commit", "exit", "save":
		return nil
	case "set", "unset":
		if len(toks) > 1 && toks[1] == "security" {
			return m.junos(toks)
		}
		return m.screenOS(toks)
	case "delete":
		return m.junos(toks)
	}
	return fmt.Errorf("unknown command %q", toks[0])
}

// Respond answers a written line with an echo, plus an error line when the
// model rejects it. Plug it into FakeShell.Respond.
func (m *ModelDevice) Respond(line string) string {
	out := line + "\r\n"
	if err := m.Exec(line); err != nil {
		out += "error: " + err.Error() + "\r\n"
	}
	return out
}

// Empty reports whether no addresses or groups remain.
func (m *ModelDevice) Empty() bool {
	for _, a := range m.Addresses {
		if len(a) > 0 {
			return false
		}
	}
	for _, g := range m.Groups {
		if len(g) > 0 {
			return false
		}
	}
	return true
}

// GroupNames returns the sorted group names of a zone.
func (m *ModelDevice) GroupNames(zone string) []string {
	var names []string
	for n := range m.Groups[zone] {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Members returns the sorted members of a group.
func (m *ModelDevice) Members(zone, group string) []string {
	var out []string
	for a := range m.Groups[zone][group] {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// set address "Z" "NAME" IP MASK "DESC"
// set group address "Z" "G" add "NAME"
// unset group address "Z" "G" remove "NAME"
// unset group address "Z" "G"
// unset address "Z" "NAME"
func (m *ModelDevice) screenOS(t []string) error {
	switch {
	case t[0] == "set" && len(t) == 6 && t[1] == "address":
		return m.addAddress(t[2], t[3], t[4]+" "+t[5])
	case t[0] == "set" && len(t) == 7 && t[1] == "address":
		return m.addAddress(t[2], t[3], t[4]+" "+t[5])
	case t[0] == "set" && len(t) == 7 && t[1] == "group" && t[2] == "address" && t[5] == "add":
		return m.addMember(t[3], t[4], t[6])
	case t[0] == "unset" && len(t) == 7 && t[1] == "group" && t[2] == "address" && t[5] == "remove":
		return m.removeMember(t[3], t[4], t[6], false)
	case t[0] == "unset" && len(t) == 5 && t[1] == "group" && t[2] == "address":
		return m.deleteGroup(t[3], t[4])
	case t[0] == "unset" && len(t) == 4 && t[1] == "address":
		return m.deleteAddress(t[2], t[3])
	}
	return fmt.Errorf("unrecognized screenos command %v", t)
}

// set|delete security zones security-zone Z address-book address NAME [PREFIX]
// set|delete security zones security-zone Z address-book address-set S address NAME
func (m *ModelDevice) junos(t []string) error {
	if len(t) < 7 || t[1] != "security" || t[2] != "zones" || t[3] != "security-zone" || t[5] != "address-book" {
		return fmt.Errorf("unrecognized junos command %v", t)
	}
	zone, rest := t[4], t[6:]
	switch {
	case t[0] == "set" && len(rest) == 3 && rest[0] == "address":
		return m.addAddress(zone, rest[1], rest[2])
	case t[0] == "set" && len(rest) == 4 && rest[0] == "address-set" && rest[2] == "address":
		return m.addMember(zone, rest[1], rest[3])
	case t[0] == "delete" && len(rest) == 4 && rest[0] == "address-set" && rest[2] == "address":
		return m.removeMember(zone, rest[1], rest[3], true)
	case t[0] == "delete" && len(rest) == 2 && rest[0] == "address":
		return m.deleteAddress(zone, rest[1])
	}
	return fmt.Errorf("unrecognized junos command %v", t)
}

func (m *ModelDevice) addAddress(zone, name, def string) error {
	if m.Addresses[zone] == nil {
		m.Addresses[zone] = map[string]string{}
	}
	if _, ok := m.Addresses[zone][name]; ok {
		return fmt.Errorf("address %s already exists in %s", name, zone)
	}
	m.Addresses[zone][name] = def
	return nil
}

func (m *ModelDevice) addMember(zone, group, name string) error {
	if _, ok := m.Addresses[zone][name]; !ok {
		return fmt.Errorf("address %s not found in %s", name, zone)
	}
	if m.Groups[zone] == nil {
		m.Groups[zone] = map[string]map[string]bool{}
	}
	if m.Groups[zone][group] == nil {
		m.Groups[zone][group] = map[string]bool{}
	}
	if m.Groups[zone][group][name] {
		return fmt.Errorf("address %s already in group %s", name, group)
	}
	m.Groups[zone][group][name] = true
	return nil
}

// removeMember detaches an address. dropEmpty deletes the group with its
// last member, as Junos address sets do.
func (m *ModelDevice) removeMember(zone, group, name string, dropEmpty bool) error {
	members, ok := m.Groups[zone][group]
	if !ok {
		return fmt.Errorf("group %s not found in %s", group, zone)
	}
	if !members[name] {
		return fmt.Errorf("address %s not in group %s", name, group)
	}
	delete(members, name)
	if dropEmpty && len(members) == 0 {
		delete(m.Groups[zone], group)
	}
	return nil
}

func (m *ModelDevice) deleteGroup(zone, group string) error {
	members, ok := m.Groups[zone][group]
	if !ok {
		return fmt.Errorf("group %s not found in %s", group, zone)
	}
	if len(members) > 0 {
		return fmt.Errorf("group %s still has %d members", group, len(members))
	}
	delete(m.Groups[zone], group)
	return nil
}

func (m *ModelDevice) deleteAddress(zone, name string) error {
	if _, ok := m.Addresses[zone][name]; !ok {
		return fmt.Errorf("address %s not found in %s", name, zone)
	}
	for g, members := range m.Groups[zone] {
		if members[name] {
			return fmt.Errorf("address %s still referenced by group %s", name, g)
		}
	}
	delete(m.Addresses[zone], name)
	return nil
}

// tokenize splits on spaces, keeping double-quoted runs as one token.
func tokenize(s string) ([]string, error) {
	var toks []string
	var cur strings.Builder
	inQuote, hasTok := false, false
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r == '"':
			inQuote = !inQuote
			hasTok = true
		case r == ' ' && !inQuote:
			if hasTok {
				toks = append(toks, cur.String())
				cur.Reset()
				hasTok = false
			}
		default:
			cur.WriteRune(r)
			hasTok = true
		}
	}
	if inQuote {
		return nil, fmt.Errorf("unterminated quote in %q", s)
	}
	if hasTok {
		toks = append(toks, cur.String())
	}
	return toks, nil
}
