package batch

import (
	"fmt"
	"strings"
)

// screenOSSynth emits ScreenOS set/unset commands. The dialect rejects
// deleting a non-empty group or an address still referenced by a group, so
// revert detaches members, then deletes groups, then deletes addresses.
type screenOSSynth struct{}

func (screenOSSynth) Synthesize(addrs []string, p *Params) ([]string, []string, error) {
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}
	part, err := NewPartition(len(addrs), p.GroupLimit)
	if err != nil {
		return nil, nil, err
	}

	apply := make([]string, 0, 2*len(addrs))
	for _, ip := range addrs {
		ip = strings.TrimRight(ip, " \t\r\n")
		apply = append(apply, fmt.Sprintf(`set address "%s" "%s" %s %s "%s"`,
			p.Zone, ip, ip, p.Netmask, p.Description))
	}
	for i, ip := range addrs {
		ip = strings.TrimRight(ip, " \t\r\n")
		group := part.GroupName(p.Prefix, p.Description, part.Assign[i])
		apply = append(apply, fmt.Sprintf(`set group address "%s" "%s" add "%s"`, p.Zone, group, ip))
	}

	groups := revertGroupCount(len(addrs), p.GroupLimit)
	revert := make([]string, 0, 2*len(addrs)+groups)
	for i, ip := range addrs {
		ip = strings.TrimRight(ip, " \t\r\n")
		group := part.GroupName(p.Prefix, p.Description, part.Assign[i])
		revert = append(revert, fmt.Sprintf(`unset group address "%s" "%s" remove "%s"`, p.Zone, group, ip))
	}
	for g := 1; g <= groups; g++ {
		revert = append(revert, fmt.Sprintf(`unset group address "%s" "%s"`,
			p.Zone, part.GroupName(p.Prefix, p.Description, g)))
	}
	for _, ip := range addrs {
		ip = strings.TrimRight(ip, " \t\r\n")
		revert = append(revert, fmt.Sprintf(`unset address "%s" "%s"`, p.Zone, ip))
	}

	return apply, revert, nil
}
