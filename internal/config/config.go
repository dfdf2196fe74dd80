// Package config loads run settings from an INI file. Command-line flags are
// applied on top by the commands.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
	"github.com/go-ini/ini"
)

// LocalFile is looked up in the working directory when no file is named.
const LocalFile = "treecompare.ini"

// XDGFile is looked up below the XDG config directories.
const XDGFile = "treecompare/config.ini"

// Config holds all settings. Path is the file the values came from, or "".
type Config struct {
	Path        string
	Compare     CompareConfig
	Diff        DiffConfig
	Performance PerformanceConfig
	Log         LogConfig
	Metrics     MetricsConfig
}

// CompareConfig configures the content-difference run.
type CompareConfig struct {
	Extensions   []string // empty selects every file
	CacheFile    string
	Algorithm    string
	TrustModTime bool
}

// DiffConfig configures the diff-artifact run.
type DiffConfig struct {
	Extensions   []string
	Algorithm    string
	Context      int // unchanged lines around each hunk
	TrustModTime bool
}

type PerformanceConfig struct {
	Workers    int // 0 selects runtime.NumCPU()
	HashBuffer int // bytes read per hash chunk
}

type LogConfig struct {
	Level  string
	Format string
}

type MetricsConfig struct {
	Textfile string // Prometheus textfile path, empty to disable
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Compare: CompareConfig{
			Extensions:   []string{".DAT"},
			CacheFile:    "hash_cache.json",
			Algorithm:    "SHA256",
			TrustModTime: true,
		},
		Diff: DiffConfig{
			Algorithm: "SHA256",
			Context:   3,
		},
		Performance: PerformanceConfig{
			HashBuffer: 1 << 20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Discover returns the config file to load. An explicit path always wins.
// Otherwise ./treecompare.ini is used when present, then
// $XDG_CONFIG_HOME/treecompare/config.ini and the XDG config dirs. An empty
// result means no file was found.
func Discover(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if _, err := os.Stat(LocalFile); err == nil {
		return LocalFile
	}
	if p, err := xdg.SearchConfigFile(XDGFile); err == nil {
		return p
	}
	return ""
}

// Load reads the file at path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config file %s not found", path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

// Parse reads INI data over the defaults. Keys that are absent keep their default.
func Parse(data []byte) (*Config, error) {
	file, err := ini.Load(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg := Default()
	p := parser{file: file}

	p.extensions("compare", "extensions", &cfg.Compare.Extensions)
	p.str("compare", "cache_file", &cfg.Compare.CacheFile)
	p.str("compare", "algorithm", &cfg.Compare.Algorithm)
	p.boolean("compare", "trust_mtime", &cfg.Compare.TrustModTime)

	p.extensions("diff", "extensions", &cfg.Diff.Extensions)
	p.str("diff", "algorithm", &cfg.Diff.Algorithm)
	p.integer("diff", "context", &cfg.Diff.Context)
	p.boolean("diff", "trust_mtime", &cfg.Diff.TrustModTime)

	p.integer("performance", "workers", &cfg.Performance.Workers)
	p.size("performance", "hash_buffer", &cfg.Performance.HashBuffer)

	p.str("log", "level", &cfg.Log.Level)
	p.str("log", "format", &cfg.Log.Format)

	p.str("metrics", "textfile", &cfg.Metrics.Textfile)

	if p.err != nil {
		return nil, p.err
	}
	if cfg.Diff.Context < 0 {
		return nil, fmt.Errorf("[diff] context must not be negative, got %d", cfg.Diff.Context)
	}
	if cfg.Performance.Workers < 0 {
		return nil, fmt.Errorf("[performance] workers must not be negative, got %d", cfg.Performance.Workers)
	}
	return cfg, nil
}

// parser reads typed keys and keeps the first error.
type parser struct {
	file *ini.File
	err  error
}

func (p *parser) key(section, name string) (*ini.Key, bool) {
	if p.err != nil || !p.file.HasSection(section) {
		return nil, false
	}
	s := p.file.Section(section)
	if !s.HasKey(name) {
		return nil, false
	}
	return s.Key(name), true
}

func (p *parser) str(section, name string, dst *string) {
	if k, ok := p.key(section, name); ok {
		*dst = strings.TrimSpace(k.String())
	}
}

func (p *parser) extensions(section, name string, dst *[]string) {
	if k, ok := p.key(section, name); ok {
		*dst = ParseExtensions(k.String())
	}
}

func (p *parser) boolean(section, name string, dst *bool) {
	k, ok := p.key(section, name)
	if !ok {
		return
	}
	v, err := k.Bool()
	if err != nil {
		p.err = fmt.Errorf("[%s] %s: %w", section, name, err)
		return
	}
	*dst = v
}

func (p *parser) integer(section, name string, dst *int) {
	k, ok := p.key(section, name)
	if !ok {
		return
	}
	v, err := k.Int()
	if err != nil {
		p.err = fmt.Errorf("[%s] %s: %w", section, name, err)
		return
	}
	*dst = v
}

func (p *parser) size(section, name string, dst *int) {
	k, ok := p.key(section, name)
	if !ok {
		return
	}
	v, err := ParseHumanSize(k.String())
	if err != nil {
		p.err = fmt.Errorf("[%s] %s: %w", section, name, err)
		return
	}
	*dst = v
}

// ParseExtensions splits a comma-separated list such as ".DAT, .yml". Blank
// entries are dropped. Case is preserved since matching is case-sensitive.
func ParseExtensions(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ParseHumanSize parses sizes like "512", "64K", "1M" or "1.5MB" into bytes.
func ParseHumanSize(sizeStr string) (int, error) {
	sizeStr = strings.ToUpper(strings.TrimSpace(sizeStr))
	if sizeStr == "" {
		return 0, fmt.Errorf("empty size string")
	}

	i := strings.IndexFunc(sizeStr, func(r rune) bool { return (r < '0' || r > '9') && r != '.' })
	numPart, suffix := sizeStr, ""
	if i >= 0 {
		numPart, suffix = sizeStr[:i], strings.TrimSpace(sizeStr[i:])
	}
	if numPart == "" {
		return 0, fmt.Errorf("no numeric part in size string: %s", sizeStr)
	}

	num, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric part in size string %s: %w", sizeStr, err)
	}

	var multiplier float64
	switch suffix {
	case "", "B":
		multiplier = 1
	case "K", "KB":
		multiplier = 1 << 10
	case "M", "MB":
		multiplier = 1 << 20
	case "G", "GB":
		multiplier = 1 << 30
	default:
		return 0, fmt.Errorf("unknown size suffix %q", suffix)
	}

	size := int(num * multiplier)
	if size <= 0 {
		return 0, fmt.Errorf("size must be positive: %s", sizeStr)
	}
	return size, nil
}
