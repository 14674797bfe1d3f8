// Package nodeconfig is the node's read-only config view (spec §4.6): a
// private key, exactly eight storage volumes, and informational
// capacity, loaded once and never mutated afterward.
package nodeconfig

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"

	"carbonis/internal/ids"
	"carbonis/internal/storeerr"
)

// NumVolumes is the fixed volume count spec §3/§6 requires.
const NumVolumes = 8

// EnvDataDir overrides the config directory, mirroring the original
// source's DATA_CFG_DIR.
const EnvDataDir = "DATA_CFG_DIR"

// Volume is one storage volume: a local mount point and its informational
// allocated capacity.
type Volume struct {
	Path         string `toml:"path"`
	AllocatedMiB uint64 `toml:"allocated"`
}

// Config is the read-only view the write/read pipelines consume. It is
// populated once before the first WriteFile/ReadFile and never mutated
// thereafter (spec §9's init-once global-config note).
type Config struct {
	PrivateKey ids.PrivateKey
	Volumes    [NumVolumes]Volume
}

// CapacityMiB is the sum of all volumes' allocated capacity, purely
// informational (spec §4.6).
func (c *Config) CapacityMiB() uint64 {
	var total uint64
	for _, v := range c.Volumes {
		total += v.AllocatedMiB
	}
	return total
}

// fileShape is the on-disk TOML shape: a hex private key and a sequence
// of volumes, both optional (generated with defaults when absent).
type fileShape struct {
	PrivateKey string   `toml:"private_key"`
	Volume     []Volume `toml:"volume"`
}

// dataDir resolves the config directory: DATA_CFG_DIR if set, otherwise
// the OS's per-user config directory joined with "carbonis".
func dataDir() (string, error) {
	if v := os.Getenv(EnvDataDir); v != "" {
		return v, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(base, "carbonis"), nil
}

// Load reads cfg.toml from the config directory, generating a fresh
// private key and default /tmp/carbonis-N volumes for whichever pieces
// are missing, ensures every volume path exists, and writes the resolved
// config back out — mirroring the original source's init_cfg.
func Load() (*Config, error) {
	dir, err := dataDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir config dir %s: %w: %w", dir, err, storeerr.ErrIO)
	}
	cfgPath := filepath.Join(dir, "cfg.toml")

	var shape fileShape
	if raw, err := os.ReadFile(cfgPath); err == nil {
		if _, err := toml.Decode(string(raw), &shape); err != nil {
			return nil, fmt.Errorf("parse %s: %w", cfgPath, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s: %w: %w", cfgPath, err, storeerr.ErrIO)
	}

	cfg := &Config{}

	if shape.PrivateKey == "" {
		sk, err := ids.GeneratePrivateKey()
		if err != nil {
			return nil, err
		}
		cfg.PrivateKey = sk
	} else {
		raw, err := hex.DecodeString(shape.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("decode private_key: %w", err)
		}
		sk, err := ids.PrivateKeyFromBytes(raw)
		if err != nil {
			return nil, err
		}
		cfg.PrivateKey = sk
	}

	if len(shape.Volume) == 0 {
		for i := 0; i < NumVolumes; i++ {
			cfg.Volumes[i] = Volume{
				Path:         fmt.Sprintf("/tmp/carbonis-%d", i),
				AllocatedMiB: 1000,
			}
		}
	} else {
		if len(shape.Volume) != NumVolumes {
			return nil, fmt.Errorf("config declares %d volumes, need exactly %d: %w", len(shape.Volume), NumVolumes, storeerr.ErrConfigInvalid)
		}
		copy(cfg.Volumes[:], shape.Volume)
	}

	for _, v := range cfg.Volumes {
		if err := os.MkdirAll(v.Path, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir volume %s: %w: %w", v.Path, err, storeerr.ErrIO)
		}
	}

	if err := writeBack(cfgPath, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func writeBack(cfgPath string, cfg *Config) error {
	skBytes := cfg.PrivateKey.Bytes()
	shape := fileShape{
		PrivateKey: hex.EncodeToString(skBytes[:]),
		Volume:     cfg.Volumes[:],
	}
	f, err := os.OpenFile(cfgPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open %s for write-back: %w: %w", cfgPath, err, storeerr.ErrIO)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(shape); err != nil {
		return fmt.Errorf("encode %s: %w", cfgPath, err)
	}
	return nil
}

// Validate checks the sanity conditions spec §7 maps to ConfigInvalid:
// exactly 8 volumes with non-empty, accessible paths.
func (c *Config) Validate() error {
	for i, v := range c.Volumes {
		if v.Path == "" {
			return fmt.Errorf("volume %d has empty path: %w", i, storeerr.ErrConfigInvalid)
		}
		info, err := os.Stat(v.Path)
		if err != nil {
			return fmt.Errorf("volume %d path %s: %w: %w", i, v.Path, err, storeerr.ErrConfigInvalid)
		}
		if !info.IsDir() {
			return fmt.Errorf("volume %d path %s is not a directory: %w", i, v.Path, storeerr.ErrConfigInvalid)
		}
	}
	return nil
}

var (
	globalOnce sync.Once
	globalCfg  *Config
	globalErr  error
)

// Global returns the process-wide config view, loading it on first call
// and reusing it thereafter — the Go rendition of the original source's
// once_cell-guarded static (spec §9).
func Global() (*Config, error) {
	globalOnce.Do(func() {
		globalCfg, globalErr = Load()
	})
	return globalCfg, globalErr
}
