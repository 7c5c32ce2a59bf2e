package batch

import (
	"fmt"

	"github.com/newtron-network/addrbatch/pkg/util"
)

// Partition is the contiguous-fill group assignment of an address list.
// Group numbers are 1-based; Assign[i] is the group of the i-th address.
type Partition struct {
	Limit  int
	Groups int
	Assign []int
}

// NewPartition assigns n addresses to groups of at most limit members,
// filling groups in input order. n == 0 yields zero groups.
func NewPartition(n, limit int) (*Partition, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: group limit must be at least 1, got %d", util.ErrInvalidArgument, limit)
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: negative address count %d", util.ErrInvalidArgument, n)
	}

	p := &Partition{
		Limit:  limit,
		Groups: (n + limit - 1) / limit,
		Assign: make([]int, n),
	}
	for i := range p.Assign {
		p.Assign[i] = i/limit + 1
	}
	return p, nil
}

// Multiple reports whether group names need a numeric suffix.
func (p *Partition) Multiple() bool {
	return p.Groups > 1
}

// Members returns the 0-based address positions in group g.
func (p *Partition) Members(g int) []int {
	if g < 1 || g > p.Groups {
		return nil
	}
	start := (g - 1) * p.Limit
	end := start + p.Limit
	if end > len(p.Assign) {
		end = len(p.Assign)
	}
	idx := make([]int, 0, end-start)
	for i := start; i < end; i++ {
		idx = append(idx, i)
	}
	return idx
}

// GroupName returns "<prefix>_<description>" with a "_<g>" suffix only when
// the batch spans more than one group.
func (p *Partition) GroupName(prefix, description string, g int) string {
	base := prefix + "_" + description
	if !p.Multiple() {
		return base
	}
	return fmt.Sprintf("%s_%d", base, g)
}

// revertGroupCount counts group containers to delete as floor((n-1)/g)+1.
// Go division truncates toward zero, so n == 0 must be handled before the
// formula or it would yield one phantom group.
func revertGroupCount(n, limit int) int {
	if n == 0 {
		return 0
	}
	return (n-1)/limit + 1
}
