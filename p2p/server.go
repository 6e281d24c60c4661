package p2p

import (
	"context"
	"errors"
	"net"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/duniad/duniad/amount"
	"github.com/duniad/duniad/blockchain"
	"github.com/duniad/duniad/internal/duniadlog"
	"github.com/duniad/duniad/mempool"
	"github.com/duniad/duniad/nodeid"
	"github.com/duniad/duniad/peer"
	"github.com/vrecan/death/v3"
)

var log = duniadlog.NewSubsystem("P2PS")

// TransactionThreshold is the mempool size that triggers the central
// node to assemble, mine, and broadcast a candidate block.
const TransactionThreshold = 10

// writeTimeout bounds every one-shot outbound send.
const writeTimeout = 5 * time.Second

// Server is the node's P2P endpoint: one accept loop dispatching
// stateless, self-describing messages per spec.md §4.10. Grounded on
// network/network.go's StartServer/HandleConnection, replaced the
// teacher's package-level global state (nodeAddress, KnownNodes,
// blocksInTransit, memoryPool) with fields on a Server value so
// multiple nodes can run in one process (useful for tests).
type Server struct {
	identity nodeid.Identity
	chain    *blockchain.BlockChain
	utxo     *blockchain.UTXOSet
	pool     *mempool.Mempool
	peers    *peer.Manager

	// minerPubKeyHash is nil when this node does not mine.
	minerPubKeyHash []byte

	mu              sync.Mutex
	blocksInTransit map[string][][]byte
}

// New builds a Server. minerPubKeyHash may be nil to disable mining.
func New(identity nodeid.Identity, chain *blockchain.BlockChain, utxo *blockchain.UTXOSet, pool *mempool.Mempool, peers *peer.Manager, minerPubKeyHash []byte) *Server {
	return &Server{
		identity:        identity,
		chain:           chain,
		utxo:            utxo,
		pool:            pool,
		peers:           peers,
		minerPubKeyHash: minerPubKeyHash,
		blocksInTransit: make(map[string][][]byte),
	}
}

// isCentral reports whether this node is the well-known bootstrap node,
// the teacher's KnownNodes[0] concept generalized to the node identity's
// default address.
func (s *Server) isCentral() bool {
	return s.identity.Address == nodeid.DefaultAddress
}

// Listen binds the node's TCP port and serves connections until ctx is
// canceled or a termination signal arrives. Grounded on
// network/network.go's StartServer, with death/v3 graceful shutdown
// (also present in the teacher, via network.CloseDB) closing the store
// cleanly instead of the teacher's os.Exit(1).
func (s *Server) Listen(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.identity.Address)
	if err != nil {
		return err
	}
	defer ln.Close()

	go s.waitForShutdown(ln)
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	if !s.isCentral() {
		if err := s.sendVersion(nodeid.DefaultAddress); err != nil {
			log.Warnf("sending initial version to central node: %v", err)
		}
	}

	log.Infof("listening on %s", s.identity.Address)
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				if errors.Is(err, net.ErrClosed) {
					return nil
				}
				log.Warnf("accept: %v", err)
				continue
			}
		}
		go s.handleConn(conn)
	}
}

func (s *Server) waitForShutdown(ln net.Listener) {
	d := death.NewDeath(syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	d.WaitForDeathWithFunc(func() {
		ln.Close()
		if err := s.chain.DB.Close(); err != nil {
			log.Errorf("closing store: %v", err)
		}
	})
}

// handleConn reads exactly one message per spec.md §4.10's
// not-a-session-protocol framing, dispatches it, and closes.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	tag, payload, err := readMessage(conn)
	if err != nil {
		log.Warnf("reading message: %v", err)
		return
	}
	s.dispatch(tag, payload)
}

func (s *Server) dispatch(tag Tag, payload interface{}) {
	switch tag {
	case TagVersion:
		s.handleVersion(payload.(*VersionMsg))
	case TagGetBlocks:
		s.handleGetBlocks(payload.(*GetBlocksMsg))
	case TagInv:
		s.handleInv(payload.(*InvMsg))
	case TagGetData:
		s.handleGetData(payload.(*GetDataMsg))
	case TagBlock:
		s.handleBlock(payload.(*BlockMsg))
	case TagTx:
		s.handleTx(payload.(*TxMsg))
	default:
		log.Warnf("unhandled message tag %s", tag)
	}
}

// send dials addr, writes one framed message with a write deadline, and
// closes. One-shot, stateless, per spec.md §4.10.
func (s *Server) send(addr string, tag Tag, payload interface{}) error {
	frame, err := encode(tag, payload)
	if err != nil {
		return err
	}
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		s.peers.Remove(addr)
		return err
	}
	defer conn.Close()
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	_, err = conn.Write(frame)
	return err
}

func (s *Server) sendVersion(addr string) error {
	height, err := s.chain.GetBestHeight()
	if err != nil {
		return err
	}
	return s.send(addr, TagVersion, &VersionMsg{
		SenderAddr:      s.identity.Address,
		ProtocolVersion: ProtocolVersion,
		BestHeight:      height,
	})
}

// broadcastExcept sends payload to every known peer other than except.
func (s *Server) broadcastExcept(tag Tag, payload interface{}, except string) {
	for _, addr := range s.peers.KnownPeers() {
		if addr == except {
			continue
		}
		if err := s.send(addr, tag, payload); err != nil {
			log.Debugf("broadcast to %s failed: %v", addr, err)
		}
	}
}

func (s *Server) handleVersion(m *VersionMsg) {
	if err := s.peers.Add(m.SenderAddr); err != nil {
		log.Debugf("peer %s: %v", m.SenderAddr, err)
	}

	height, err := s.chain.GetBestHeight()
	if err != nil {
		log.Errorf("reading best height: %v", err)
		return
	}
	switch {
	case height < m.BestHeight:
		if err := s.send(m.SenderAddr, TagGetBlocks, &GetBlocksMsg{SenderAddr: s.identity.Address}); err != nil {
			log.Warnf("sending getblocks to %s: %v", m.SenderAddr, err)
		}
	case height > m.BestHeight:
		if err := s.sendVersion(m.SenderAddr); err != nil {
			log.Warnf("sending version to %s: %v", m.SenderAddr, err)
		}
	}
}

func (s *Server) handleGetBlocks(m *GetBlocksMsg) {
	hashes, err := s.chain.GetBlockHashes()
	if err != nil {
		log.Errorf("listing block hashes: %v", err)
		return
	}
	if err := s.send(m.SenderAddr, TagInv, &InvMsg{SenderAddr: s.identity.Address, Type: InvBlock, Items: hashes}); err != nil {
		log.Warnf("sending inv to %s: %v", m.SenderAddr, err)
	}
}

func (s *Server) handleInv(m *InvMsg) {
	if err := s.peers.Add(m.SenderAddr); err != nil {
		log.Debugf("peer %s: %v", m.SenderAddr, err)
	}
	if len(m.Items) == 0 {
		return
	}

	switch m.Type {
	case InvBlock:
		s.mu.Lock()
		s.blocksInTransit[m.SenderAddr] = m.Items[1:]
		s.mu.Unlock()
		if err := s.send(m.SenderAddr, TagGetData, &GetDataMsg{SenderAddr: s.identity.Address, Type: InvBlock, ID: m.Items[0]}); err != nil {
			log.Warnf("requesting block from %s: %v", m.SenderAddr, err)
		}
	case InvTx:
		id := m.Items[0]
		if s.pool.Has(id) {
			return
		}
		if err := s.send(m.SenderAddr, TagGetData, &GetDataMsg{SenderAddr: s.identity.Address, Type: InvTx, ID: id}); err != nil {
			log.Warnf("requesting tx from %s: %v", m.SenderAddr, err)
		}
	}
}

func (s *Server) handleGetData(m *GetDataMsg) {
	switch m.Type {
	case InvBlock:
		block, err := s.chain.GetBlock(m.ID)
		if err != nil {
			return // unknown; drop per spec.md §4.10.
		}
		data, err := block.Serialize()
		if err != nil {
			log.Errorf("serializing block %x: %v", m.ID, err)
			return
		}
		if err := s.send(m.SenderAddr, TagBlock, &BlockMsg{SenderAddr: s.identity.Address, Block: data}); err != nil {
			log.Warnf("sending block to %s: %v", m.SenderAddr, err)
		}
	case InvTx:
		tx, ok := s.pool.Get(m.ID)
		if !ok {
			return
		}
		data := tx.Serialize()
		if err := s.send(m.SenderAddr, TagTx, &TxMsg{SenderAddr: s.identity.Address, Tx: data}); err != nil {
			log.Warnf("sending tx to %s: %v", m.SenderAddr, err)
		}
	}
}

func (s *Server) handleBlock(m *BlockMsg) {
	block, err := blockchain.DeserializeBlock(m.Block)
	if err != nil {
		log.Warnf("deserializing block from %s: %v", m.SenderAddr, err)
		return
	}

	returned, err := s.chain.AddBlock(block, s.utxo)
	if err != nil {
		log.Warnf("rejecting block %x from %s: %v", block.Hash, m.SenderAddr, err)
		return
	}
	s.pool.RemoveAll(block)
	var readmit []*blockchain.Transaction
	for _, tx := range returned {
		if err := s.utxo.VerifyTransaction(tx); err != nil {
			log.Debugf("dropping reorg-returned tx %x: %v", tx.ID, err)
			continue
		}
		readmit = append(readmit, tx)
	}
	s.pool.Readmit(readmit)
	log.Infof("accepted block %x from %s", block.Hash, m.SenderAddr)

	s.mu.Lock()
	remaining := s.blocksInTransit[m.SenderAddr]
	s.mu.Unlock()

	if len(remaining) > 0 {
		next := remaining[0]
		s.mu.Lock()
		s.blocksInTransit[m.SenderAddr] = remaining[1:]
		s.mu.Unlock()
		if err := s.send(m.SenderAddr, TagGetData, &GetDataMsg{SenderAddr: s.identity.Address, Type: InvBlock, ID: next}); err != nil {
			log.Warnf("requesting next block from %s: %v", m.SenderAddr, err)
		}
		return
	}

	s.mu.Lock()
	delete(s.blocksInTransit, m.SenderAddr)
	s.mu.Unlock()
	if err := s.utxo.Reindex(); err != nil {
		log.Errorf("reindexing utxo set: %v", err)
	}
}

func (s *Server) handleTx(m *TxMsg) {
	tx, err := blockchain.DeserializeTransaction(m.Tx)
	if err != nil {
		log.Warnf("deserializing tx from %s: %v", m.SenderAddr, err)
		return
	}
	if s.pool.Has(tx.ID) {
		return
	}
	if err := s.utxo.VerifyTransaction(&tx); err != nil {
		log.Debugf("rejecting tx %x: %v", tx.ID, err)
		return
	}
	if !s.pool.Add(&tx) {
		return
	}

	s.broadcastExcept(TagInv, &InvMsg{SenderAddr: s.identity.Address, Type: InvTx, Items: [][]byte{tx.ID}}, m.SenderAddr)

	if s.isCentral() && s.minerPubKeyHash != nil && s.pool.Len() >= TransactionThreshold {
		go s.mineFromMempool()
	}
}

// mineFromMempool assembles every pending transaction plus a coinbase
// into a candidate block, mines it, and broadcasts the result. Grounded
// on network/network.go's MineTx, generalized from the teacher's
// "exactly 2 transactions" magic number to spec.md §4.10's
// TRANSACTION_THRESHOLD, and from the teacher's unconditional per-tx
// loop-then-recurse to one block per threshold crossing.
func (s *Server) mineFromMempool() {
	txs := s.pool.All()
	if len(txs) == 0 {
		return
	}

	var fees amount.Amount
	var valid []*blockchain.Transaction
	for _, tx := range txs {
		fee, err := s.utxo.TransactionFee(tx)
		if err != nil {
			log.Debugf("dropping invalid mempool tx %x: %v", tx.ID, err)
			continue
		}
		fees, err = fees.Add(fee)
		if err != nil {
			log.Errorf("accumulating fees: %v", err)
			return
		}
		valid = append(valid, tx)
	}
	if len(valid) == 0 {
		log.Warnf("all mempool transactions are invalid")
		return
	}

	block, err := s.chain.MineBlock(context.Background(), valid, fees, s.minerPubKeyHash, s.utxo)
	if err != nil {
		log.Errorf("mining candidate block: %v", err)
		return
	}
	s.pool.RemoveAll(block)
	log.Infof("mined block %x with %d transactions", block.Hash, len(valid))

	for _, addr := range s.peers.KnownPeers() {
		if err := s.send(addr, TagInv, &InvMsg{SenderAddr: s.identity.Address, Type: InvBlock, Items: [][]byte{block.Hash}}); err != nil {
			log.Debugf("broadcasting new block to %s: %v", addr, err)
		}
	}
}

// BroadcastTx sends a locally created transaction to peers: every known
// peer when mine is false's "broadcast wide" redesign (spec.md §9), or
// just the central node when targeting it directly.
func (s *Server) BroadcastTx(tx *blockchain.Transaction, toAll bool) error {
	msg := &TxMsg{SenderAddr: s.identity.Address, Tx: tx.Serialize()}

	if !toAll {
		return s.send(nodeid.DefaultAddress, TagTx, msg)
	}
	var firstErr error
	for _, addr := range s.peers.KnownPeers() {
		if err := s.send(addr, TagTx, msg); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
