package util

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// MaskLength converts a netmask to its prefix length.
// Accepts dotted IPv4 form ("255.255.255.0") or a bare/slashed length ("24", "/24").
// Non-contiguous masks are rejected.
func MaskLength(netmask string) (int, error) {
	s := strings.TrimPrefix(strings.TrimSpace(netmask), "/")
	if s == "" {
		return 0, fmt.Errorf("%w: empty netmask", ErrInvalidArgument)
	}

	if !strings.Contains(s, ".") {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 || n > 32 {
			return 0, fmt.Errorf("%w: netmask %q is not a prefix length 0-32", ErrInvalidArgument, netmask)
		}
		return n, nil
	}

	ip := net.ParseIP(s).To4()
	if ip == nil {
		return 0, fmt.Errorf("%w: netmask %q is not a dotted IPv4 mask", ErrInvalidArgument, netmask)
	}
	ones, bits := net.IPMask(ip).Size()
	if bits == 0 {
		return 0, fmt.Errorf("%w: netmask %q is not contiguous", ErrInvalidArgument, netmask)
	}
	return ones, nil
}

// DottedMask returns the dotted IPv4 form of a prefix length.
func DottedMask(length int) string {
	m := net.CIDRMask(length, 32)
	if m == nil {
		return ""
	}
	return net.IP(m).String()
}
