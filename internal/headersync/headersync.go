// Package headersync implements the single-peer header download loop
// (§4.7): getheaders/headers exchange against one peer, persisted to a
// local append-only file of concatenated 80-byte headers.
package headersync

import (
	"bytes"
	"fmt"
	"os"

	"spvnode/internal/block"
	"spvnode/internal/network"
)

const headerSize = 80

// Store wraps the on-disk headers file and the in-memory list it
// mirrors.
type Store struct {
	path    string
	file    *os.File
	headers []block.Header
}

// OpenStore opens (creating if necessary) the headers file at path,
// seeding it with the testnet genesis header when empty, and loads
// any previously persisted headers into memory.
func OpenStore(path string) (*Store, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("headersync: open %s: %w", path, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}

	s := &Store{path: path, file: file}

	if info.Size() == 0 {
		if _, err := file.Write(block.TestnetGenesisHeader[:]); err != nil {
			file.Close()
			return nil, fmt.Errorf("headersync: seed genesis: %w", err)
		}
	}

	if err := s.load(); err != nil {
		file.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	if _, err := s.file.Seek(0, 0); err != nil {
		return err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	if len(data)%headerSize != 0 {
		return fmt.Errorf("headersync: %s has %d bytes, not a multiple of %d", s.path, len(data), headerSize)
	}

	count := len(data) / headerSize
	headers := make([]block.Header, count)
	for i := 0; i < count; i++ {
		chunk := data[i*headerSize : (i+1)*headerSize]
		h, err := block.ParseHeader(bytes.NewReader(chunk))
		if err != nil {
			return fmt.Errorf("headersync: parse header %d: %w", i, err)
		}
		headers[i] = h
	}
	s.headers = headers
	return nil
}

func (s *Store) Headers() []block.Header { return s.headers }

func (s *Store) Tip() block.Header { return s.headers[len(s.headers)-1] }

func (s *Store) append(headers []block.Header) error {
	if _, err := s.file.Seek(0, 2); err != nil {
		return err
	}
	for _, h := range headers {
		if _, err := s.file.Write(h.Serialize()); err != nil {
			return err
		}
	}
	s.headers = append(s.headers, headers...)
	return nil
}

func (s *Store) Close() error { return s.file.Close() }

// Run drives the getheaders/headers loop against peer until a
// response carries fewer than network.MaxHeadersPerMessage headers,
// logging progress every 2000 headers (§4.13).
func Run(peer *network.Peer, s *Store, magic [4]byte, protocolVersion int32, logf func(string, ...any)) error {
	lastLogged := len(s.headers) / 2000
	for {
		tip := s.Tip().Hash()
		req := network.NewGetHeadersMessage(protocolVersion, [][32]byte{tip}, [32]byte{})
		if err := peer.SendMessage(&req, magic); err != nil {
			return fmt.Errorf("headersync: send getheaders: %w", err)
		}

		headers, done, err := receiveHeaders(peer, magic)
		if err != nil {
			return fmt.Errorf("headersync: %w", err)
		}

		for i, h := range headers {
			if !h.ProofOfWork() {
				return fmt.Errorf("headersync: header %d failed proof-of-work check", i)
			}
		}

		if err := s.append(headers); err != nil {
			return fmt.Errorf("headersync: persist headers: %w", err)
		}

		if milestone := len(s.headers) / 2000; milestone > lastLogged {
			lastLogged = milestone
			if logf != nil {
				logf("header-sync: stored %d headers", len(s.headers))
			}
		}

		if done {
			return nil
		}
	}
}

// receiveHeaders reads messages until a headers message arrives,
// answering any interleaved ping with pong and discarding anything
// else (§4.7). done reports whether this response ended the download
// (fewer than the max batch size).
func receiveHeaders(peer *network.Peer, magic [4]byte) ([]block.Header, bool, error) {
	for {
		env, err := peer.ReadEnvelope()
		if err != nil {
			return nil, false, err
		}

		switch env.Command {
		case "headers":
			msg, err := network.ParseHeadersMessage(env.Payload)
			if err != nil {
				return nil, false, err
			}
			return msg.Headers, len(msg.Headers) < network.MaxHeadersPerMessage, nil
		case "ping":
			ping, err := network.ParsePingMessage(env.Payload)
			if err != nil {
				return nil, false, err
			}
			pong := network.PongMessage{Nonce: ping.Nonce}
			if err := peer.SendMessage(&pong, magic); err != nil {
				return nil, false, err
			}
		default:
			// already fully read by ParseNetworkEnvelope; nothing to discard
		}
	}
}
