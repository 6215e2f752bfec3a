// Package handshake implements peer discovery and the per-peer
// version/verack/sendheaders exchange (§4.6).
package handshake

import (
	"fmt"
	"net"

	"github.com/miekg/dns"
)

// DiscoverPeers resolves a DNS seed hostname to a list of candidate
// IPv4 addresses. Outside the node's core contract per §4.6 — any
// resolver implementation satisfying "hostname in, addresses out" is
// acceptable; this one queries the system's configured resolver
// directly via miekg/dns rather than relying on the stdlib resolver's
// cgo/netgo ambiguity.
func DiscoverPeers(seed string) ([]net.IP, error) {
	conf, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil || len(conf.Servers) == 0 {
		conf = &dns.ClientConfig{Servers: []string{"8.8.8.8"}, Port: "53"}
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(seed), dns.TypeA)
	msg.RecursionDesired = true

	client := new(dns.Client)
	server := net.JoinHostPort(conf.Servers[0], "53")

	resp, _, err := client.Exchange(msg, server)
	if err != nil {
		return nil, fmt.Errorf("handshake: dns query for %s: %w", seed, err)
	}

	var ips []net.IP
	for _, ans := range resp.Answer {
		if a, ok := ans.(*dns.A); ok {
			ips = append(ips, a.A)
		}
	}
	return ips, nil
}
