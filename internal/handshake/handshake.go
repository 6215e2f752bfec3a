package handshake

import (
	"fmt"
	"math/rand/v2"
	"net"
	"time"

	"spvnode/internal/network"
	"spvnode/internal/settings"
)

// Connect dials every candidate address and runs the version/verack
// exchange against each, returning only the peers that passed.
// Failures against individual candidates are swallowed — peer
// redundancy, not retry, is the loss-tolerance strategy (§4.6, §7).
func Connect(candidates []net.IP, s settings.Settings) []*network.Peer {
	var accepted []*network.Peer
	for _, ip := range candidates {
		peer, err := network.Dial(ip, s.Port)
		if err != nil {
			continue
		}
		if err := exchange(peer, s); err != nil {
			peer.Close()
			continue
		}
		accepted = append(accepted, peer)
	}
	return accepted
}

// exchange runs one peer's handshake: send version, read version,
// validate, send verack, read verack, send sendheaders.
func exchange(peer *network.Peer, s settings.Settings) error {
	magic := s.Magic()

	local := network.VersionMessage{
		ProtocolVersion: s.ProtocolVersion,
		Services:        s.Services,
		Timestamp:       time.Now().Unix(),
		ReceiverAddr:    peer.Addr,
		SenderAddr:      network.NewNetAddr(0, [16]byte{}, s.Port),
		Nonce:           rand.Uint64(),
		UserAgent:       s.UserAgent,
		StartHeight:     s.StartHeight,
		Relay:           s.Relay,
	}
	if err := peer.SendMessage(&local, magic); err != nil {
		return fmt.Errorf("handshake: send version: %w", err)
	}

	peerVersion, err := readExpected(peer, "version")
	if err != nil {
		return fmt.Errorf("handshake: read version: %w", err)
	}
	remote, err := network.ParseVersionMessage(peerVersion.Payload)
	if err != nil {
		return fmt.Errorf("handshake: parse version: %w", err)
	}

	if remote.ProtocolVersion != s.ProtocolVersion {
		return fmt.Errorf("handshake: protocol version %d, want %d", remote.ProtocolVersion, s.ProtocolVersion)
	}
	if remote.Services&0x8 == 0 {
		return fmt.Errorf("handshake: peer lacks witness service bit (services=%#x)", remote.Services)
	}

	if err := peer.SendMessage(network.VerackMessage{}, magic); err != nil {
		return fmt.Errorf("handshake: send verack: %w", err)
	}
	if _, err := readExpected(peer, "verack"); err != nil {
		return fmt.Errorf("handshake: read verack: %w", err)
	}

	if err := peer.SendMessage(network.SendHeadersMessage{}, magic); err != nil {
		return fmt.Errorf("handshake: send sendheaders: %w", err)
	}

	return nil
}

// readExpected reads envelopes until one matches want, tolerating
// messages a peer might send unprompted before completing its own
// handshake step.
func readExpected(peer *network.Peer, want string) (network.NetworkEnvelope, error) {
	for i := 0; i < 8; i++ {
		env, err := peer.ReadEnvelope()
		if err != nil {
			return network.NetworkEnvelope{}, err
		}
		if env.Command == want {
			return env, nil
		}
	}
	return network.NetworkEnvelope{}, fmt.Errorf("did not see %q within 8 messages", want)
}
