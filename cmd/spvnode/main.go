// Command spvnode runs the full SPV node: peer discovery and handshake,
// header download, work-stealing block download, steady-state broadcast
// and relay, and the wallet RPC server, in that order (§2, §4.13).
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"

	"spvnode/internal/blocksync"
	"spvnode/internal/broadcast"
	"spvnode/internal/chainstate"
	"spvnode/internal/encoding"
	"spvnode/internal/handshake"
	"spvnode/internal/headersync"
	"spvnode/internal/mempool"
	"spvnode/internal/nodeerr"
	"spvnode/internal/settings"
	"spvnode/internal/walletrpc"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <settings-file>\n", os.Args[0])
		os.Exit(1)
	}

	s, err := settings.Load(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if s.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	logf := func(format string, args ...any) { logger.Info(fmt.Sprintf(format, args...)) }

	if err := run(s, logger, logf); err != nil {
		var ne *nodeerr.Error
		if errors.As(err, &ne) {
			logger.Error("spvnode exiting", "error", err, "kind", ne.Kind)
		} else {
			logger.Error("spvnode exiting", "error", err)
		}
		os.Exit(1)
	}
}

func run(s settings.Settings, logger *slog.Logger, logf func(string, ...any)) error {
	magic := s.Magic()

	candidates, err := discoverCandidates(s, logger)
	if err != nil {
		return nodeerr.New(nodeerr.IO, "peer discovery", err)
	}

	headerPeers := handshake.Connect(candidates, s)
	if len(headerPeers) == 0 {
		return nodeerr.New(nodeerr.Resource, "header sync", errors.New("no peer completed the handshake"))
	}
	logger.Info("handshake complete", "peers", len(headerPeers))

	store, err := headersync.OpenStore(s.HeadersPath)
	if err != nil {
		return nodeerr.New(nodeerr.IO, "header sync", err)
	}
	defer store.Close()

	if err := headersync.Run(headerPeers[0], store, magic, s.ProtocolVersion, logf); err != nil {
		return nodeerr.New(nodeerr.Protocol, "header sync", err)
	}
	for _, p := range headerPeers {
		p.Close()
	}
	tipHash := store.Tip().Hash()
	logger.Info("header sync complete", "headers", len(store.Headers()), "tip", encoding.DisplayHash(tipHash))

	chain := chainstate.NewChain()
	utxo := chainstate.NewUTXOSet()
	pool := mempool.New()

	items := blocksync.FilterByCutoff(store.Headers(), s.BlockCutoff)
	logger.Info("block download starting", "blocks", len(items), "cutoff", s.BlockCutoff)
	if len(items) > 0 {
		downloadPeers := handshake.Connect(candidates, s)
		if len(downloadPeers) == 0 {
			return nodeerr.New(nodeerr.Resource, "block download", errors.New("no peer completed the handshake"))
		}
		queue := blocksync.NewQueue(items)
		blocksync.Run(downloadPeers, queue, magic, utxo, chain, logf)
		if remaining := queue.Len(); remaining > 0 {
			logger.Warn("block download ended with undelivered items", "remaining", remaining)
		}
	}
	logger.Info("block download complete", "blocks", chain.Len())

	relayPeers := handshake.Connect(candidates, s)
	if len(relayPeers) == 0 {
		return nodeerr.New(nodeerr.Resource, "broadcast", errors.New("no peer completed the handshake"))
	}
	reserved, receivers := broadcast.Split(relayPeers)
	logger.Info("entering steady state", "outbound", len(reserved), "receivers", len(receivers))

	out := broadcast.NewOutbound(reserved, magic)
	for _, p := range receivers {
		go broadcast.Receiver(p, magic, utxo, chain, pool, logf)
	}

	addr := fmt.Sprintf(":%d", s.WalletPort)
	logger.Info("wallet rpc listening", "addr", addr)
	if err := walletrpc.Serve(addr, chain, utxo, pool, out, logf); err != nil {
		return nodeerr.New(nodeerr.IO, "wallet rpc", err)
	}
	return nil
}

func discoverCandidates(s settings.Settings, logger *slog.Logger) ([]net.IP, error) {
	if s.IP != nil {
		logger.Info("using configured peer ip, skipping dns discovery", "ip", s.IP)
		return []net.IP{s.IP}, nil
	}
	ips, err := handshake.DiscoverPeers(s.DNSSeed)
	if err != nil {
		return nil, err
	}
	logger.Info("dns discovery complete", "candidates", len(ips))
	return ips, nil
}
