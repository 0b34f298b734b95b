// Package config parses the directive-file format of §6: one
// directive per line, whitespace-separated, '#' starting a comment,
// blank lines ignored. Grounded on the teacher's internal/server.Config
// (grouped-by-concern struct, a DefaultConfig constructor) but driven
// from a file instead of hardcoded defaults, since §6 specifies the
// on-disk directive set a real deployment configures.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// SavePoint is one "save <seconds> <changes>" automatic snapshot rule;
// directives accumulate, they don't replace each other (§6).
type SavePoint struct {
	Seconds int
	Changes int
}

type Config struct {
	Port    int
	Bind    string
	Timeout int // seconds; 0 disables the idle-client reaper

	Save []SavePoint

	Dir      string
	LogLevel string
	LogFile  string

	Databases  int
	MaxClients int
	MaxMemory  int64

	SlaveOfHost string
	SlaveOfPort string
	MasterAuth  string
	RequirePass string

	AppendOnly     bool
	AppendFsync    string
	DBFilename     string
	AppendFilename string

	Daemonize bool
	PidFile   string

	RDBCompression bool

	HashMaxZipmapEntries int
	HashMaxZipmapValue   int

	VMEnabled    bool
	VMSwapFile   string
	VMMaxMemory  int64
	VMPageSize   int
	VMPages      int
	VMMaxThreads int
}

// Default returns the out-of-the-box configuration a server started
// with no config file gets (§6).
func Default() *Config {
	return &Config{
		Port:                 6379,
		Bind:                 "0.0.0.0",
		Timeout:              0,
		Save:                 []SavePoint{{Seconds: 900, Changes: 1}, {Seconds: 300, Changes: 10}, {Seconds: 60, Changes: 10000}},
		Dir:                  ".",
		LogLevel:             "notice",
		Databases:            16,
		MaxClients:           10000,
		RDBCompression:       true,
		DBFilename:           "dump.rdb",
		AppendFilename:       "appendonly.aof",
		AppendFsync:          "everysec",
		HashMaxZipmapEntries: 64,
		HashMaxZipmapValue:   512,
		VMPageSize:           32,
		VMPages:              1 << 20,
		VMMaxThreads:         4,
	}
}

// Load reads directives from path, overlaying them onto Default().
// An empty path returns Default() unmodified (run with no config file,
// same as the original binary invoked bare).
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if err := apply(cfg, fields); err != nil {
			return nil, fmt.Errorf("config: line %d: %w", lineNo, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.VMSwapFile != "" {
		cfg.VMSwapFile = strings.ReplaceAll(cfg.VMSwapFile, "%p", strconv.Itoa(os.Getpid()))
	}
	return cfg, nil
}

func apply(cfg *Config, fields []string) error {
	name := strings.ToLower(fields[0])
	args := fields[1:]
	need := func(n int) error {
		if len(args) < n {
			return fmt.Errorf("%s requires %d argument(s)", name, n)
		}
		return nil
	}

	switch name {
	case "port":
		if err := need(1); err != nil {
			return err
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid port %q", args[0])
		}
		cfg.Port = n
	case "bind":
		if err := need(1); err != nil {
			return err
		}
		cfg.Bind = args[0]
	case "timeout":
		if err := need(1); err != nil {
			return err
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid timeout %q", args[0])
		}
		cfg.Timeout = n
	case "save":
		if len(args) == 1 && (args[0] == "" || args[0] == `""`) {
			cfg.Save = nil
			return nil
		}
		if err := need(2); err != nil {
			return err
		}
		secs, err1 := strconv.Atoi(args[0])
		changes, err2 := strconv.Atoi(args[1])
		if err1 != nil || err2 != nil {
			return fmt.Errorf("invalid save rule %q", strings.Join(args, " "))
		}
		cfg.Save = append(cfg.Save, SavePoint{Seconds: secs, Changes: changes})
	case "dir":
		if err := need(1); err != nil {
			return err
		}
		cfg.Dir = args[0]
	case "loglevel":
		if err := need(1); err != nil {
			return err
		}
		cfg.LogLevel = args[0]
	case "logfile":
		if err := need(1); err != nil {
			return err
		}
		cfg.LogFile = args[0]
	case "databases":
		if err := need(1); err != nil {
			return err
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid databases %q", args[0])
		}
		cfg.Databases = n
	case "maxclients":
		if err := need(1); err != nil {
			return err
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid maxclients %q", args[0])
		}
		cfg.MaxClients = n
	case "maxmemory":
		if err := need(1); err != nil {
			return err
		}
		n, err := parseBytes(args[0])
		if err != nil {
			return fmt.Errorf("invalid maxmemory %q: %w", args[0], err)
		}
		cfg.MaxMemory = n
	case "slaveof":
		if err := need(2); err != nil {
			return err
		}
		if strings.EqualFold(args[0], "no") && strings.EqualFold(args[1], "one") {
			cfg.SlaveOfHost, cfg.SlaveOfPort = "", ""
			return nil
		}
		cfg.SlaveOfHost, cfg.SlaveOfPort = args[0], args[1]
	case "masterauth":
		if err := need(1); err != nil {
			return err
		}
		cfg.MasterAuth = args[0]
	case "requirepass":
		if err := need(1); err != nil {
			return err
		}
		cfg.RequirePass = args[0]
	case "appendonly":
		if err := need(1); err != nil {
			return err
		}
		cfg.AppendOnly = strings.EqualFold(args[0], "yes")
	case "appendfsync":
		if err := need(1); err != nil {
			return err
		}
		cfg.AppendFsync = args[0]
	case "dbfilename":
		if err := need(1); err != nil {
			return err
		}
		cfg.DBFilename = args[0]
	case "appendfilename":
		if err := need(1); err != nil {
			return err
		}
		cfg.AppendFilename = args[0]
	case "daemonize":
		if err := need(1); err != nil {
			return err
		}
		cfg.Daemonize = strings.EqualFold(args[0], "yes")
	case "pidfile":
		if err := need(1); err != nil {
			return err
		}
		cfg.PidFile = args[0]
	case "rdbcompression":
		if err := need(1); err != nil {
			return err
		}
		cfg.RDBCompression = strings.EqualFold(args[0], "yes")
	case "hash-max-zipmap-entries":
		if err := need(1); err != nil {
			return err
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid hash-max-zipmap-entries %q", args[0])
		}
		cfg.HashMaxZipmapEntries = n
	case "hash-max-zipmap-value":
		if err := need(1); err != nil {
			return err
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid hash-max-zipmap-value %q", args[0])
		}
		cfg.HashMaxZipmapValue = n
	case "vm-enabled":
		if err := need(1); err != nil {
			return err
		}
		cfg.VMEnabled = strings.EqualFold(args[0], "yes")
	case "vm-swap-file":
		if err := need(1); err != nil {
			return err
		}
		cfg.VMSwapFile = args[0]
	case "vm-max-memory":
		if err := need(1); err != nil {
			return err
		}
		n, err := parseBytes(args[0])
		if err != nil {
			return fmt.Errorf("invalid vm-max-memory %q: %w", args[0], err)
		}
		cfg.VMMaxMemory = n
	case "vm-page-size":
		if err := need(1); err != nil {
			return err
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid vm-page-size %q", args[0])
		}
		cfg.VMPageSize = n
	case "vm-pages":
		if err := need(1); err != nil {
			return err
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid vm-pages %q", args[0])
		}
		cfg.VMPages = n
	case "vm-max-threads":
		if err := need(1); err != nil {
			return err
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid vm-max-threads %q", args[0])
		}
		cfg.VMMaxThreads = n
	default:
		// Unknown directives are ignored rather than fatal, matching
		// the original's tolerance of directives from newer/older
		// versions it doesn't recognize.
	}
	return nil
}

// parseBytes parses a size with an optional kb/mb/gb suffix (case
// insensitive), or a bare byte count.
func parseBytes(s string) (int64, error) {
	lower := strings.ToLower(s)
	mult := int64(1)
	switch {
	case strings.HasSuffix(lower, "gb"):
		mult = 1 << 30
		lower = strings.TrimSuffix(lower, "gb")
	case strings.HasSuffix(lower, "mb"):
		mult = 1 << 20
		lower = strings.TrimSuffix(lower, "mb")
	case strings.HasSuffix(lower, "kb"):
		mult = 1 << 10
		lower = strings.TrimSuffix(lower, "kb")
	}
	n, err := strconv.ParseInt(strings.TrimSpace(lower), 10, 64)
	if err != nil {
		return 0, err
	}
	return n * mult, nil
}
