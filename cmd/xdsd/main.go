// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// xdsd is the full node binary: it wires together the chain index,
// coinview, stake chain, consensus manager, mempool, block puller, and
// peer-to-peer transport described across this module's packages (spec
// §1: "Overview").
package main

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/xds-project/xdsd/addrmgr"
	"github.com/xds-project/xdsd/asyncprovider"
	"github.com/xds-project/xdsd/blockindex"
	"github.com/xds-project/xdsd/blockpuller"
	"github.com/xds-project/xdsd/chaincfg"
	"github.com/xds-project/xdsd/chaincfg/chainhash"
	"github.com/xds-project/xdsd/coinview"
	"github.com/xds-project/xdsd/connmgr"
	"github.com/xds-project/xdsd/consensusmgr"
	"github.com/xds-project/xdsd/database"
	"github.com/xds-project/xdsd/eventbus"
	"github.com/xds-project/xdsd/mempool"
	"github.com/xds-project/xdsd/peer"
	"github.com/xds-project/xdsd/rules"
	"github.com/xds-project/xdsd/stakechain"
	"github.com/xds-project/xdsd/validationpool"
	"github.com/xds-project/xdsd/wire"
	"github.com/xds-project/xdsd/xdscrypto"
)

const (
	validationWorkers = 4
	validationQueue   = 32
	addrBookFilename  = "peers.json"
	protocolVersion   = 1
	userAgent         = "/xdsd:0.1.0/"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, _, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := initLogRotator(filepath.Join(cfg.LogDir, defaultLogFilename)); err != nil {
		return err
	}
	setLogLevels(cfg.DebugLevel)
	log.Infof("starting xdsd on %s", cfg.chainParams.Name)

	// hashFn computes the PoW identity hash headers and blocks are keyed
	// by; wireHashFn computes the wire-message checksum. These are two
	// distinct algorithms (spec §1: external crypto contracts) and must
	// not be confused with one another.
	hashFn := func(b []byte) chainhash.Hash { return xdscrypto.Sha512Trunc256(b) }
	wireHashFn := func(b []byte) [32]byte { return [32]byte(xdscrypto.Hash256(b)) }

	db, err := database.OpenLevelDB(filepath.Join(cfg.DataDir, "blocks"))
	if err != nil {
		return fmt.Errorf("failed to open block database: %w", err)
	}
	defer db.Close()

	durable := coinview.NewDurableCoinView(db, int(cfg.chainParams.MaxReorgLength))
	coins := coinview.NewCachedCoinView(durable, 50000)

	genesisHeader := cfg.chainParams.GenesisBlock.Header
	genesis := blockindex.NewChainedHeader(genesisHeader, nil, hashFn)
	indexer := blockindex.NewChainIndexer(genesis)

	stakes := stakechain.NewStakeChain(genesis.Hash(), 0, stakechain.XorMixModifier{})

	retarget := rules.RetargetParams{
		PowLimitBits:             cfg.chainParams.PowLimitBits,
		TargetTimespanSeconds:    int64(cfg.chainParams.TargetTimespan / time.Second),
		TargetSpacingSeconds:     int64(cfg.chainParams.TargetSpacing / time.Second),
		RetargetAdjustmentFactor: cfg.chainParams.RetargetAdjustmentFactor,
	}

	meetsTarget := func(powHash [32]byte, bits uint32) bool {
		hashInt := new(big.Int).SetBytes(reverseBytes(powHash[:]))
		return hashInt.Cmp(chaincfg.CompactToBig(bits)) <= 0
	}

	// PoSKernelRule is omitted from the wired header pipeline below:
	// OnHeaders/OnBlock only ever see a plain wire.BlockHeader/
	// wire.MsgBlock, never the wire.ProvenHeader a
	// stakechain.StakeValidator kernel check needs, so there is no kernel
	// material at either pipeline stage. StakeKernelFullRule is wired into
	// the full pipeline but passes every block, since the consensus
	// manager always runs it with FullContext.StakeKernelChecked false.
	headerPipeline := rules.NewHeaderPipeline(
		rules.VersionRule{MinVersion: 1},
		rules.TimeMonotonicRule{},
		rules.FutureDriftRule{},
		rules.DifficultyRetargetRule{},
		rules.PoWTargetRule{MeetsTarget: meetsTarget},
	)
	integrityPipeline := rules.NewIntegrityPipeline(
		rules.MerkleRootRule{},
		rules.BlockSizeRule{},
		rules.WitnessCommitmentRule{},
	)
	partialPipeline := rules.NewPartialPipeline(
		rules.ScriptSigEmptyRule{},
		rules.WitnessRequiredRule{},
		rules.OutputWhitelistRule{},
		rules.CoinbasePlacementRule{},
		rules.SigOpCountRule{},
		rules.LockTimeActivationRule{},
	)
	fullPipeline := rules.NewFullPipeline(
		rules.CoinbaseMaturityRule{},
		rules.FeeFloorRule{},
		rules.SubsidyRule{},
		rules.StakeKernelFullRule{},
	)

	bus := eventbus.New()

	lifetime := asyncprovider.NewNodeLifetime()
	provider := asyncprovider.NewProvider(lifetime)

	addrs := addrmgr.New()
	addrBookPath := filepath.Join(cfg.DataDir, addrBookFilename)
	if err := addrs.Load(addrBookPath); err != nil {
		log.Debugf("no existing address book at %s: %v", addrBookPath, err)
	}

	cm := consensusmgr.New(consensusmgr.Config{
		Indexer:           indexer,
		Coins:             coins,
		Stakes:            stakes,
		Bus:               bus,
		Invalid:           consensusmgr.NewInvalidBlockHashStore(),
		HashFunc:          hashFn,
		IsPoS:             false,
		HeaderPipeline:    headerPipeline,
		IntegrityPipeline: integrityPipeline,
		PartialPipeline:   partialPipeline,
		FullPipeline:      fullPipeline,
		Retarget:          retarget,
		CoinbaseMaturity:  int64(cfg.chainParams.CoinbaseMaturity),
		BaseSubsidy:       cfg.chainParams.BaseSubsidy,
		HalvingInterval:   cfg.chainParams.SubsidyHalvingInterval,
		AbsoluteMinTxFee:  1_000_000,
		MaxSigOpsPerTx:    4000,
		WitnessRequired:   true,
		MaxReorgLength:    cfg.chainParams.MaxReorgLength,
		IBDHeightLag:      6,
		IBDTimeWindow:     time.Hour,
		BanDurationBase:   time.Hour,
	})

	pool := validationpool.New(provider, validationWorkers, validationQueue)

	peers := peer.NewSet(cfg.MaxPeers, cfg.MaxPeers/4)

	puller := blockpuller.New(blockpuller.Config{
		RequestBlock: func(peerAddr string, hash chainhash.Hash) error {
			return requestBlock(peers, peerAddr, hash, wireHashFn)
		},
		RequestFreshHeaders: func() {
			log.Debugf("block puller requesting fresh headers")
		},
		MarkUnreachable: func(hash chainhash.Hash) {
			log.Warnf("giving up on unreachable block %s", hash)
		},
	})

	sink := newConsensusSink(cm, indexer, puller, peers, addrs, pool, hashFn)

	mpool := mempool.NewMempool(mempool.Config{
		CoinView:         coins,
		HashFunc:         hashFn,
		Bus:              bus,
		ChainHeight:      func() int64 { return indexer.Tip().Height },
		MedianPastTime:   func() uint32 { return indexer.Tip().Header.Timestamp },
		AbsoluteMinTxFee: 1_000_000,
		MaxSigOpsPerTx:   4000,
		WitnessRequired:  true,
	})

	connMgr := connmgr.New(connmgr.Config{
		TargetOutbound: cfg.TargetOutbound,
		OnConnect:      func(addr string) { log.Infof("connected to %s", addr) },
		OnConnectFail:  func(addr string, err error) { log.Debugf("dial %s failed: %v", addr, err) },
	}, addrs)

	ours := wire.MsgVersion{
		ProtocolVersion: protocolVersion,
		Services:        wire.SFNodeNetwork,
		Timestamp:       time.Now().Unix(),
		UserAgent:       userAgent,
		LastBlock:       int32(indexer.Tip().Height),
	}

	netDial := newNetDialer(cfg)
	dial := func(ctx context.Context, addr string) error {
		conn, err := netDial(ctx, addr)
		if err != nil {
			return err
		}
		p := peer.New(conn, cfg.chainParams.Net, peer.DirectionOutbound)
		attachBehaviors(p, addrs, sink, mpool, wireHashFn)
		provider.Go(func(*asyncprovider.NodeLifetime) {
			runPeer(p, ours, peers, connMgr, cm, puller, wireHashFn)
		})
		return nil
	}

	provider.Go(func(lt *asyncprovider.NodeLifetime) {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			<-lt.Done()
			cancel()
		}()
		connMgr.Run(ctx, dial)
	})

	listener, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Listen, err)
	}
	log.Infof("listening on %s", cfg.Listen)
	provider.Go(func(lt *asyncprovider.NodeLifetime) {
		acceptLoop(lt, listener, cfg, peers, addrs, sink, mpool, ours, connMgr, cm, puller, wireHashFn, provider)
	})

	var rpcServer *http.Server
	if !cfg.DisableRPC {
		notifier := newWSNotifier(bus)
		mux := http.NewServeMux()
		mux.Handle("/ws", notifier)
		rpcServer = &http.Server{Addr: cfg.RPCListen, Handler: mux}
		rpcListener, err := net.Listen("tcp", cfg.RPCListen)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", cfg.RPCListen, err)
		}
		log.Infof("RPC notification transport listening on %s", cfg.RPCListen)
		provider.Go(func(*asyncprovider.NodeLifetime) {
			if err := rpcServer.Serve(rpcListener); err != nil && err != http.ErrServerClosed {
				log.Warnf("RPC server exited: %v", err)
			}
		})
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Infof("shutting down")

	_ = listener.Close()
	if rpcServer != nil {
		_ = rpcServer.Close()
	}
	_ = addrs.Save(addrBookPath)
	provider.Shutdown()
	return nil
}

// attachBehaviors wires a peer's standard set of per-message handlers
// (spec §4.8): address relay, keepalive, consensus, and mempool.
func attachBehaviors(p *peer.Peer, addrs *addrmgr.Manager, sink peer.ConsensusSink, mp *mempool.Mempool, hashFn wire.HashFunc) {
	p.AttachBehavior(peer.NewAddrBehavior(addrs, hashFn))
	p.AttachBehavior(peer.NewPingBehavior(hashFn))
	p.AttachBehavior(peer.NewConsensusBehavior(sink, hashFn))
	p.AttachBehavior(peer.NewMempoolBehavior(mp, hashFn))
}

// runPeer performs the handshake and then blocks on the peer's read loop,
// reconciling connmgr/peer-set/block-puller bookkeeping on exit.
func runPeer(p *peer.Peer, ours wire.MsgVersion, peers *peer.Set, connMgr *connmgr.ConnManager, cm *consensusmgr.ConsensusManager, puller *blockpuller.Puller, hashFn wire.HashFunc) {
	if err := p.Handshake(ours, hashFn); err != nil {
		log.Debugf("handshake with %s failed: %v", p.Addr(), err)
		p.Disconnect()
		return
	}
	if err := peers.Admit(p); err != nil {
		log.Debugf("could not admit %s: %v", p.Addr(), err)
		p.Disconnect()
		return
	}
	tipHeight := int64(p.LastBlockHeight())
	cm.RecordPeerTip(p.Addr(), tipHeight)
	puller.RegisterPeer(p.Addr(), tipHeight)
	defer func() {
		peers.Remove(p.Addr())
		connMgr.Disconnected(p.Addr())
		puller.UnregisterPeer(p.Addr())
	}()
	if err := p.ReadLoop(hashFn); err != nil {
		log.Debugf("peer %s disconnected: %v", p.Addr(), err)
	}
}

// acceptLoop admits inbound connections until lifetime is cancelled.
func acceptLoop(lt *asyncprovider.NodeLifetime, listener net.Listener, cfg *config, peers *peer.Set, addrs *addrmgr.Manager, sink peer.ConsensusSink, mp *mempool.Mempool, ours wire.MsgVersion, connMgr *connmgr.ConnManager, cm *consensusmgr.ConsensusManager, puller *blockpuller.Puller, hashFn wire.HashFunc, provider *asyncprovider.Provider) {
	go func() {
		<-lt.Done()
		_ = listener.Close()
	}()
	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-lt.Done():
				return
			default:
				log.Warnf("accept error: %v", err)
				continue
			}
		}
		p := peer.New(conn, cfg.chainParams.Net, peer.DirectionInbound)
		attachBehaviors(p, addrs, sink, mp, hashFn)
		provider.Go(func(*asyncprovider.NodeLifetime) {
			runPeer(p, ours, peers, connMgr, cm, puller, hashFn)
		})
	}
}

// requestBlock sends a getdata request for hash to peerAddr, the
// blockpuller.Config.RequestBlock collaborator.
func requestBlock(peers *peer.Set, peerAddr string, hash chainhash.Hash, hashFn wire.HashFunc) error {
	p := peers.Get(peerAddr)
	if p == nil {
		return fmt.Errorf("xdsd: peer %s not connected", peerAddr)
	}
	msg := wire.MsgGetData{InvList: []*wire.InvVect{{Type: wire.InvTypeBlock, Hash: hash}}}
	var buf bytes.Buffer
	if err := msg.Serialize(&buf); err != nil {
		return err
	}
	return p.Send(wire.CmdGetData, buf.Bytes(), hashFn)
}

func reverseBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}
