// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	flags "github.com/jessevdk/go-flags"

	"github.com/xds-project/xdsd/chaincfg"
)

const (
	defaultConfigFilename = "xdsd.conf"
	defaultDataDirname    = "data"
	defaultLogFilename    = "xdsd.log"
	defaultLogLevel       = "info"
	defaultMaxPeers       = 125
	defaultTargetOutbound = 16
)

// config defines the node's command-line and config-file options,
// following the jessevdk/go-flags struct-tag convention used throughout
// the btcsuite/decred family of full nodes.
type config struct {
	ShowVersion bool   `short:"V" long:"version" description:"Display version information and exit"`
	ConfigFile  string `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir     string `short:"b" long:"datadir" description:"Directory to store data"`
	LogDir      string `long:"logdir" description:"Directory to log output"`
	DebugLevel  string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- Alternatively, specify <subsystem>=<level>,<subsystem2>=<level2>,... to set the log level for individual subsystems"`

	Listen         string   `long:"listen" description:"Add an address to listen for inbound connections"`
	ConnectPeers   []string `long:"connect" description:"Connect only to the specified peers at startup"`
	MaxPeers       int      `long:"maxpeers" description:"Max number of inbound and outbound peers"`
	TargetOutbound int      `long:"targetoutbound" description:"Target number of outbound peers"`

	TestNet bool `long:"testnet" description:"Use the test network"`
	RegTest bool `long:"regtest" description:"Use the regression test network"`

	RPCListen  string `long:"rpclisten" description:"Add an address to listen for JSON-RPC connections"`
	RPCUser    string `long:"rpcuser" description:"Username for JSON-RPC connections"`
	RPCPass    string `long:"rpcpass" description:"Password for JSON-RPC connections"`
	DisableRPC bool   `long:"norpc" description:"Disable built-in RPC server"`

	Proxy     string `long:"proxy" description:"Connect via SOCKS5 proxy (eg. 127.0.0.1:9050)"`
	ProxyUser string `long:"proxyuser" description:"Username for proxy server"`
	ProxyPass string `long:"proxypass" description:"Password for proxy server"`

	chainParams *chaincfg.Params
}

// defaultHomeDir returns the default xdsd application data directory,
// matching the XDG-ish single-dotfolder convention the btcsuite/decred
// full nodes use (no third-party directory-discovery library in the
// retrieved pack covers this, and it is three lines of os.UserHomeDir
// plumbing not worth pulling one in for).
func defaultHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".xdsd")
}

func defaultConfig() config {
	homeDir := defaultHomeDir()
	return config{
		ConfigFile:     filepath.Join(homeDir, defaultConfigFilename),
		DataDir:        filepath.Join(homeDir, defaultDataDirname),
		LogDir:         filepath.Join(homeDir, "logs"),
		DebugLevel:     defaultLogLevel,
		MaxPeers:       defaultMaxPeers,
		TargetOutbound: defaultTargetOutbound,
	}
}

// loadConfig parses command-line flags, then a config file (if present),
// then re-parses the command line so flags always win over the file --
// the same two-pass precedence the teacher's config loading follows.
func loadConfig() (*config, []string, error) {
	cfg := defaultConfig()

	preCfg := cfg
	preParser := flags.NewParser(&preCfg, flags.Default|flags.IgnoreUnknown)
	if _, err := preParser.Parse(); err != nil {
		return nil, nil, err
	}
	if preCfg.ShowVersion {
		fmt.Println("xdsd")
		os.Exit(0)
	}
	if preCfg.ConfigFile != "" {
		cfg.ConfigFile = preCfg.ConfigFile
	}

	if _, err := os.Stat(cfg.ConfigFile); err == nil {
		fileParser := flags.NewParser(&cfg, flags.Default)
		if err := flags.NewIniParser(fileParser).ParseFile(cfg.ConfigFile); err != nil {
			return nil, nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	parser := flags.NewParser(&cfg, flags.Default)
	remaining, err := parser.Parse()
	if err != nil {
		return nil, nil, err
	}

	if cfg.TestNet && cfg.RegTest {
		return nil, nil, fmt.Errorf("testnet and regtest cannot both be specified")
	}
	switch {
	case cfg.RegTest:
		cfg.chainParams = chaincfg.RegTestParams()
	case cfg.TestNet:
		cfg.chainParams = chaincfg.TestNetParams()
	default:
		cfg.chainParams = chaincfg.MainNetParams()
	}

	if cfg.Listen == "" {
		cfg.Listen = "0.0.0.0:" + cfg.chainParams.DefaultPort
	}
	if cfg.RPCListen == "" {
		cfg.RPCListen = "127.0.0.1:" + cfg.chainParams.RPCPort
	}

	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return &cfg, remaining, nil
}
