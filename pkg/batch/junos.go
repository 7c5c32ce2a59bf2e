package batch

import (
	"fmt"
	"strings"

	"github.com/newtron-network/addrbatch/pkg/util"
)

// junosSynth emits zone address-book commands. Junos tolerates forward
// references inside one configuration transaction, so each address object
// is immediately followed by its address-set membership. Address sets
// vanish with their last member; there is no group deletion step.
type junosSynth struct{}

func (junosSynth) Synthesize(addrs []string, p *Params) ([]string, []string, error) {
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}
	v := &util.ValidationBuilder{}
	for name, val := range map[string]string{"zone": p.Zone, "prefix": p.Prefix, "description": p.Description} {
		if strings.ContainsAny(val, " \t") {
			v.AddErrorf("%s %q must not contain whitespace on junos", name, val)
		}
	}
	if err := v.Build(); err != nil {
		return nil, nil, err
	}
	maskLen, err := util.MaskLength(p.Netmask)
	if err != nil {
		return nil, nil, err
	}
	part, err := NewPartition(len(addrs), p.GroupLimit)
	if err != nil {
		return nil, nil, err
	}

	book := "security zones security-zone " + p.Zone + " address-book"
	apply := make([]string, 0, 2*len(addrs))
	revert := make([]string, 0, 2*len(addrs))
	for i, ip := range addrs {
		ip = strings.TrimRight(ip, " \t\r\n")
		set := part.GroupName(p.Prefix, p.Description, part.Assign[i])
		apply = append(apply,
			fmt.Sprintf("set %s address %s %s/%d", book, ip, ip, maskLen),
			fmt.Sprintf("set %s address-set %s address %s", book, set, ip),
		)
		revert = append(revert,
			fmt.Sprintf("delete %s address-set %s address %s", book, set, ip),
			fmt.Sprintf("delete %s address %s", book, ip),
		)
	}
	return apply, revert, nil
}
