// Package dnsseed resolves a fixed list of bootstrap hostnames into peer
// candidates at startup. Grounded on spec.md §4.11; the teacher has no
// DNS seeding at all (its KnownNodes list is a single hardcoded
// "localhost:3000" literal), so this is new code built in the same
// small-function style as peer.Manager and nodeid.FromEnvironment.
package dnsseed

import (
	"fmt"
	"net"

	"github.com/duniad/duniad/internal/duniadlog"
	"github.com/duniad/duniad/peer"
)

var log = duniadlog.NewSubsystem("DNSS")

// DefaultPort is appended to every resolved seed address, matching
// nodeid.DefaultAddress's port.
const DefaultPort = "2001"

// Seeds lists the fixed bootstrap hostnames resolved at startup. A
// production deployment would point these at real infrastructure; kept
// short here since nothing in this exercise's environment actually
// serves them.
var Seeds = []string{
	"seed1.duniad.example",
	"seed2.duniad.example",
}

// Resolve looks up every hostname in Seeds, adding each resolved A
// record to peers as address:DefaultPort. Lookup failures are logged
// and ignored rather than propagated, per spec.md §4.11.
func Resolve(peers *peer.Manager) {
	for _, host := range Seeds {
		addrs, err := net.LookupHost(host)
		if err != nil {
			log.Debugf("resolving seed %s: %v", host, err)
			continue
		}
		for _, ip := range addrs {
			addr := fmt.Sprintf("%s:%s", ip, DefaultPort)
			if err := peers.Add(addr); err != nil {
				log.Debugf("adding seed peer %s: %v", addr, err)
			}
		}
	}
}
