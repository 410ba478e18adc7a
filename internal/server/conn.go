package server

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/deepfall/server/internal/game"
	"github.com/deepfall/server/internal/persist"
	"github.com/deepfall/server/internal/protocol"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	maxMessageSize = 512
	outQueueSize   = 16
	handshakeWait  = 10 * time.Second
)

var gameIDCounter atomic.Uint64

func newGameID() string {
	return fmt.Sprintf("game-%d-%d", time.Now().UnixMilli(), gameIDCounter.Add(1))
}

// Conn is one client connection. The read pump feeds a bounded intent
// queue; run() drains it one turn at a time, so a game's turns are strictly
// serialised. The write pump owns the socket for output.
type Conn struct {
	srv *Server
	ws  *websocket.Conn

	gameID string

	in  chan protocol.Intent
	out chan protocol.Message

	// seq/lastAcked implement the in-flight window: updates beyond
	// maxUnacked outstanding messages are dropped, not queued.
	seq       uint64
	lastAcked atomic.Uint64

	lastMove   time.Time
	lastAttack time.Time

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	log *zap.Logger
}

func newConn(s *Server, ws *websocket.Conn) *Conn {
	return &Conn{
		srv:     s,
		ws:      ws,
		in:      make(chan protocol.Intent, s.cfg.PendingLimit),
		out:     make(chan protocol.Message, outQueueSize),
		closeCh: make(chan struct{}),
		log:     s.log.With(zap.String("remote", ws.RemoteAddr().String())),
	}
}

// Close implements session.Transport.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.closeCh)
		c.ws.Close()
	})
	return nil
}

// run performs the handshake, registers the session, and processes intents
// until the connection dies. The deferred unregister checkpoints the game;
// the transport match keeps a stale socket from killing a reconnected
// session.
func (c *Conn) run(ctx context.Context) {
	defer c.Close()

	gs, err := c.handshake(ctx)
	if err != nil {
		c.log.Warn("handshake failed", zap.Error(err))
		c.send(protocol.Error(err.Error()))
		return
	}
	c.gameID = gs.ID
	c.log = c.log.With(zap.String("game", gs.ID))

	c.srv.mgr.Register(gs.ID, c, gs)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		c.srv.mgr.Unregister(ctx, c.gameID, c)
	}()

	// init is idempotent: a reconnecting client always gets the full
	// filtered view, folding in any deltas it missed.
	c.send(protocol.Init(game.VisibleStateOf(gs)))
	c.log.Info("client connected", zap.String("player", gs.PlayerName))

	go c.readLoop()

	for {
		select {
		case <-c.closeCh:
			return
		case intent := <-c.in:
			c.handleIntent(intent)
		}
	}
}

// handshake reads the hello frame and loads or creates the game: session
// cache first, then the durable store, then a fresh floor-1 game.
func (c *Conn) handshake(ctx context.Context) (*game.GameState, error) {
	c.ws.SetReadLimit(maxMessageSize)
	if err := c.ws.SetReadDeadline(time.Now().Add(handshakeWait)); err != nil {
		return nil, fmt.Errorf("set handshake deadline: %w", err)
	}
	var hello protocol.Hello
	if err := c.ws.ReadJSON(&hello); err != nil {
		return nil, fmt.Errorf("read hello: %w", err)
	}
	if hello.PlayerName == "" {
		return nil, fmt.Errorf("playerName is required")
	}

	if hello.GameID != "" {
		if gs := c.srv.mgr.Get(hello.GameID); gs != nil {
			return gs, nil
		}
		gs, err := c.srv.games.LoadGame(ctx, hello.GameID)
		if err != nil {
			c.log.Error("restore from store failed", zap.String("game", hello.GameID), zap.Error(err))
		}
		if gs != nil {
			return gs, nil
		}
		// Unknown id: fall through and start fresh under a new id.
	}

	return c.srv.engine.NewGame(newGameID(), hello.PlayerName, hello.Character)
}

// readLoop pulls frames off the socket into the bounded intent queue.
// Arrivals beyond the pending budget are dropped; the client is expected
// to tolerate.
func (c *Conn) readLoop() {
	defer c.Close()

	cfg := c.srv.cfg
	if err := c.ws.SetReadDeadline(time.Now().Add(cfg.PongTimeout)); err != nil {
		return
	}
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(cfg.PongTimeout))
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if !c.closed.Load() && websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("read error", zap.Error(err))
			}
			return
		}
		intent, err := protocol.ParseIntent(raw)
		if err != nil {
			// Protocol error: report on the same connection, touch nothing.
			c.send(protocol.Error(err.Error()))
			continue
		}
		select {
		case c.in <- intent:
		default:
			// Pending budget exhausted; silent drop.
		}
	}
}

func (c *Conn) handleIntent(intent protocol.Intent) {
	switch intent.Type {
	case protocol.IntentAck:
		// Acks only move the window forward, and never past what was sent.
		seq := intent.Seq
		if seq > c.seq {
			seq = c.seq
		}
		for {
			cur := c.lastAcked.Load()
			if seq <= cur || c.lastAcked.CompareAndSwap(cur, seq) {
				break
			}
		}
	case protocol.IntentPause:
		c.srv.mgr.Pause(c.gameID)
	case protocol.IntentResume:
		c.srv.mgr.Resume(c.gameID)
	case protocol.IntentMove, protocol.IntentAttack, protocol.IntentDescend:
		c.runTurn(intent)
	}
}

// runTurn validates, throttles, executes one turn, and streams the deltas.
func (c *Conn) runTurn(intent protocol.Intent) {
	c.srv.mgr.Activity(c.gameID)
	gs := c.srv.mgr.Get(c.gameID)
	if gs == nil {
		c.send(protocol.Error("no active game"))
		return
	}
	if gs.Status != game.StatusActive {
		c.send(protocol.Error("game is over"))
		return
	}

	now := time.Now()
	cfg := c.srv.cfg
	switch intent.Type {
	case protocol.IntentMove:
		if now.Sub(c.lastMove) < cfg.MoveInterval {
			return // throttled, silent drop
		}
		c.lastMove = now
	case protocol.IntentAttack:
		if now.Sub(c.lastAttack) < cfg.AttackInterval {
			return
		}
		c.lastAttack = now
	}

	var (
		events []game.Event
		deltas []game.Delta
		err    error
	)
	switch intent.Type {
	case protocol.IntentMove:
		events, deltas, err = c.srv.engine.MoveWithDeltas(gs, game.Direction(intent.Direction))
	case protocol.IntentAttack:
		events, deltas, err = c.srv.engine.AttackWithDeltas(gs)
	case protocol.IntentDescend:
		events, deltas, err = c.srv.engine.DescendWithDeltas(gs)
	}
	if err != nil {
		// Invariant or generator failure, or a descend off the stairs: fail
		// the turn, never checkpoint the corrupt state.
		c.log.Error("turn failed", zap.Error(err))
		c.send(protocol.Error("internal error"))
		return
	}

	c.srv.mgr.Update(c.gameID, gs)
	c.sendUpdate(deltas)
	c.afterTurn(gs, events, deltas)
}

// afterTurn fires the checkpoint triggers: terminal status or a floor
// boundary, plus the leaderboard record for finished games.
func (c *Conn) afterTurn(gs *game.GameState, events []game.Event, deltas []game.Delta) {
	terminal := gs.Status != game.StatusActive
	newFloor := false
	for _, d := range deltas {
		if d.Kind == game.DeltaNewFloor {
			newFloor = true
			break
		}
	}
	if !terminal && !newFloor {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := c.srv.mgr.Checkpoint(ctx, c.gameID); err != nil {
		// Transient store failure: the session stays in memory.
		c.log.Error("checkpoint failed", zap.Error(err))
	}

	if terminal {
		row := leaderboardRow(gs, events)
		if err := c.srv.boards.Insert(ctx, row); err != nil {
			c.log.Error("leaderboard insert failed", zap.Error(err))
		}
		c.log.Info("game finished",
			zap.String("status", string(gs.Status)),
			zap.Int("score", gs.Score),
			zap.Int("floor", gs.Floor))
	}
}

// sendUpdate emits one update message, gated by the unacked window.
func (c *Conn) sendUpdate(deltas []game.Delta) {
	if len(deltas) == 0 {
		return
	}
	if c.seq-c.lastAcked.Load() >= uint64(c.srv.cfg.MaxUnacked) {
		return // window full, drop
	}
	c.seq++
	c.send(protocol.Update(c.seq, deltas))
}

// send enqueues a message for the write pump; closed or saturated
// connections drop it.
func (c *Conn) send(msg protocol.Message) {
	if c.closed.Load() {
		return
	}
	select {
	case c.out <- msg:
	default:
		c.log.Warn("out queue full, dropping message", zap.String("type", msg.Type))
	}
}

// writeLoop owns socket writes: queued messages plus keepalive pings.
func (c *Conn) writeLoop() {
	cfg := c.srv.cfg
	pingPeriod := cfg.PongTimeout * 9 / 10
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.closeCh:
			return
		case msg := <-c.out:
			if err := c.ws.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout)); err != nil {
				return
			}
			if err := c.ws.WriteJSON(msg); err != nil {
				if !c.closed.Load() {
					c.log.Debug("write error", zap.Error(err))
				}
				return
			}
		case <-ticker.C:
			if err := c.ws.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout)); err != nil {
				return
			}
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// leaderboardRow builds the terminal record; the killer is recovered from
// the death event when present.
func leaderboardRow(gs *game.GameState, events []game.Event) (row persist.LeaderboardRow) {
	row.PlayerName = gs.PlayerName
	row.Score = gs.Score
	row.Floor = gs.Floor
	for _, ev := range events {
		if ev.Type != game.EvPlayerDied {
			continue
		}
		if v, ok := ev.Data["killedBy"].(string); ok {
			row.KilledBy = &v
		}
		if v, ok := ev.Data["killedByType"].(string); ok {
			row.KilledByType = &v
		}
		if v, ok := ev.Data["killedByVariant"].(string); ok {
			row.KilledByVariant = &v
		}
	}
	return row
}
