// Package ring implements the cluster membership record and the pure
// ring-topology functions derived from it (§3, §4.1-§4.3).
package ring

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NodeId is a cluster member's stable identity for one joined session:
// "<udp-ip>:<port>|<unix-seconds>". Ordering is lexicographic; every
// component that relies on ring position sorts on this string directly.
type NodeId string

// Timestamp is whole seconds since the Unix epoch.
type Timestamp uint64

// ErrClockBeforeEpoch is returned by Now if the system clock predates the
// Unix epoch, which would otherwise silently wrap to a huge uint64.
var ErrClockBeforeEpoch = errors.New("ring: system clock predates the unix epoch")

// ErrMalformedID is returned when a NodeId does not contain the "ip:port|ts" separator.
var ErrMalformedID = errors.New("ring: malformed node id")

// Now returns the current Timestamp.
func Now() (Timestamp, error) {
	t := time.Now().Unix()
	if t < 0 {
		return 0, ErrClockBeforeEpoch
	}
	return Timestamp(t), nil
}

// GenID builds this node's identity from its UDP endpoint and the current time.
func GenID(udpAddr string) (NodeId, error) {
	now, err := Now()
	if err != nil {
		return "", err
	}
	return NodeId(fmt.Sprintf("%s|%d", udpAddr, now)), nil
}

// UDPAddr returns the substring of id before the first '|', i.e. its UDP endpoint.
func (id NodeId) UDPAddr() (string, error) {
	addr, _, ok := strings.Cut(string(id), "|")
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrMalformedID, id)
	}
	return addr, nil
}

// JoinTimestamp returns the suffix of id after the first '|'.
func (id NodeId) JoinTimestamp() (Timestamp, error) {
	_, ts, ok := strings.Cut(string(id), "|")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrMalformedID, id)
	}
	v, err := strconv.ParseUint(ts, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedID, id)
	}
	return Timestamp(v), nil
}

func (id NodeId) String() string { return string(id) }
