// Package settings loads the frozen configuration record consumed by
// the handshake, download, and wallet-RPC components. Parsing an
// external settings file is an outside-scope collaborator per the
// node's design (settings arrives pre-validated); this package only
// supplies the record shape and the loader.
package settings

import (
	"fmt"
	"net"
	"time"

	"github.com/spf13/viper"
)

// RequiredServices is the default service bitmask this node advertises
// (bits 0, 3 and 10; bit 3 is NODE_WITNESS). The handshake accepts a
// peer whose own bitmask has bit 3 set.
const RequiredServices uint64 = 1033

// ProtocolVersion is the only protocol version this node negotiates.
const ProtocolVersion int32 = 70016

// DefaultBlockCutoff is the block-download timestamp filter (§4.8);
// an open question in the source spec resolved here as a configurable
// field rather than a hard-coded constant.
var DefaultBlockCutoff = time.Date(2023, time.June, 25, 0, 0, 0, 0, time.UTC)

// Settings is the record every other component reads from; it is
// never mutated after Load returns.
type Settings struct {
	DNSSeed         string `mapstructure:"dns_seed"`
	ProtocolVersion int32  `mapstructure:"protocol_version"`
	Services        uint64 `mapstructure:"services"`
	Port            uint16 `mapstructure:"port"`
	IPString        string `mapstructure:"ip"`
	UserAgent       string `mapstructure:"user_agent"`
	StartHeight     int32  `mapstructure:"start_height"`
	Relay           bool   `mapstructure:"relay"`
	StartStringHex  string `mapstructure:"start_string"`

	HeadersPath     string `mapstructure:"headers_path"`
	WalletPort      uint16 `mapstructure:"wallet_port"`
	BlockCutoffUnix int64  `mapstructure:"block_cutoff"`
	Verbose         bool   `mapstructure:"verbose"`

	IP          net.IP
	StartString [4]byte
	BlockCutoff time.Time
}

// Load reads and validates a settings document at path. Format is
// whatever viper's extension sniffing recognizes (JSON, YAML, TOML).
func Load(path string) (Settings, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Settings{}, fmt.Errorf("settings: read %s: %w", path, err)
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("settings: decode %s: %w", path, err)
	}

	if err := s.finalize(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Magic returns the configured network magic, defaulting to testnet3
// when StartString wasn't set.
func (s Settings) Magic() [4]byte {
	if s.StartString != ([4]byte{}) {
		return s.StartString
	}
	return [4]byte{0x0b, 0x11, 0x09, 0x07}
}

func (s *Settings) finalize() error {
	if s.DNSSeed == "" {
		return fmt.Errorf("settings: dns_seed is required")
	}
	if s.Port == 0 {
		return fmt.Errorf("settings: port is required")
	}
	if s.ProtocolVersion == 0 {
		s.ProtocolVersion = ProtocolVersion
	}
	if s.Services == 0 {
		s.Services = RequiredServices
	}
	if s.HeadersPath == "" {
		s.HeadersPath = "data/headers.bin"
	}
	if s.WalletPort == 0 {
		s.WalletPort = 18334
	}

	if s.IPString != "" {
		ip := net.ParseIP(s.IPString)
		if ip == nil {
			return fmt.Errorf("settings: invalid ip %q", s.IPString)
		}
		s.IP = ip
	}

	if s.StartStringHex != "" {
		var magic [4]byte
		n, err := fmt.Sscanf(s.StartStringHex, "%02x%02x%02x%02x", &magic[0], &magic[1], &magic[2], &magic[3])
		if err != nil || n != 4 {
			return fmt.Errorf("settings: invalid start_string %q", s.StartStringHex)
		}
		s.StartString = magic
	}

	if s.BlockCutoffUnix != 0 {
		s.BlockCutoff = time.Unix(s.BlockCutoffUnix, 0).UTC()
	} else {
		s.BlockCutoff = DefaultBlockCutoff
	}

	return nil
}
