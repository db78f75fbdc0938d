package main

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Waloott/wild-chess-online/wildchess"
)

// Internal event kinds, routed through the same per-room queue as client
// messages so everything that touches room state is serialized.
const (
	evJoin       = "_join"
	evSpectate   = "_spectate"
	evStartGame  = "_startGame"
	evDisconnect = "_disconnect"
	evReconnect  = "_reconnect"
	evAutoResign = "_autoResign"
)

// roomEvent is one unit of work for a room's run loop.
type roomEvent struct {
	kind     string
	client   *Client
	msg      ClientMessage
	playerID string
}

// Player is a seat in a room. The connection handle changes across
// reconnects; the ID (cookie) is stable.
type Player struct {
	ID             string
	Name           string
	Rating         int
	Color          wildchess.Color
	client         *Client
	disconnected   bool
	disconnectedAt time.Time
	graceTimer     *time.Timer
}

func (p *Player) info() PlayerInfo {
	return PlayerInfo{
		ID:           p.ID,
		Name:         p.Name,
		Color:        p.Color,
		Rating:       p.Rating,
		Disconnected: p.disconnected,
	}
}

// Room holds up to two players, any spectators, and one game. All fields
// below the channels are owned by the run goroutine; the summary block is
// the only state shared with HTTP handlers and the reaper.
type Room struct {
	id        string
	mgr       *RoomManager
	isPrivate bool
	createdAt time.Time

	events    chan roomEvent
	done      chan struct{}
	closeOnce sync.Once

	players      []*Player
	spectators   []*Player
	game         *wildchess.Game
	cleanupTimer *time.Timer

	mu             sync.RWMutex
	lastActive     time.Time
	playerCount    int
	spectatorCount int
	phase          string
}

func newRoom(mgr *RoomManager, id string, isPrivate bool) *Room {
	now := time.Now()
	return &Room{
		id:         id,
		mgr:        mgr,
		isPrivate:  isPrivate,
		createdAt:  now,
		events:     make(chan roomEvent, 64),
		done:       make(chan struct{}),
		lastActive: now,
		phase:      "waiting",
	}
}

// post enqueues an event, preserving arrival order. Events for a room
// that has been torn down are dropped.
func (r *Room) post(ev roomEvent) {
	select {
	case r.events <- ev:
	case <-r.done:
	}
}

func (r *Room) close() {
	r.closeOnce.Do(func() {
		close(r.done)
	})
}

// run drains the event queue. Each event is handled to completion —
// validate, mutate, broadcast — before the next one starts, so room
// state is never touched by two operations at once.
func (r *Room) run() {
	for {
		select {
		case ev := <-r.events:
			r.handle(ev)
		case <-r.done:
			return
		}
	}
}

func (r *Room) handle(ev roomEvent) {
	r.touch()

	switch ev.kind {
	case evJoin:
		r.handleJoin(ev.client, ev.msg.Name)
	case evSpectate:
		r.admitSpectator(ev.client, ev.msg.Name)
	case evStartGame:
		r.startGame()
	case evDisconnect:
		r.handleClientGone(ev.playerID, ev.client)
	case evReconnect:
		r.handleReconnect(ev.client)
	case evAutoResign:
		r.handleAutoResign(ev.playerID)
	case msgGenerateSetup:
		r.handleGenerateSetup(ev.client)
	case msgPlacePiece:
		r.handlePlacePiece(ev.client, ev.msg)
	case msgFinishSetup:
		r.handleFinishSetup(ev.client)
	case msgMakeMove:
		r.handleMakeMove(ev.client, ev.msg)
	case msgResignGame:
		r.handleResign(ev.client)
	case msgRequestDraw:
		r.handleRequestDraw(ev.client)
	case msgRespondDraw:
		r.handleRespondDraw(ev.client, ev.msg)
	case msgChatMessage:
		r.handleChat(ev.client, ev.msg)
	case msgGetGameState:
		r.handleGetGameState(ev.client)
	default:
		r.sendError(ev.client, fmt.Errorf("unknown message type %q", ev.kind))
	}
}

func (r *Room) findPlayer(playerID string) *Player {
	for _, p := range r.players {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

func (r *Room) findSpectator(playerID string) *Player {
	for _, s := range r.spectators {
		if s.ID == playerID {
			return s
		}
	}
	return nil
}

func (r *Room) opponent(p *Player) *Player {
	for _, other := range r.players {
		if other.ID != p.ID {
			return other
		}
	}
	return nil
}

func (r *Room) playerInfos() []PlayerInfo {
	infos := make([]PlayerInfo, 0, len(r.players))
	for _, p := range r.players {
		infos = append(infos, p.info())
	}
	return infos
}

// sendError answers only the requester; other participants observe no
// change.
func (r *Room) sendError(c *Client, err error) {
	if c == nil {
		return
	}
	c.deliver(ErrorMessage{Type: "error", Message: err.Error()})
}

// broadcast fans out to both players and all spectators.
func (r *Room) broadcast(msg any) {
	for _, p := range r.players {
		if p.client != nil && !p.disconnected {
			p.client.deliver(msg)
		}
	}
	for _, s := range r.spectators {
		if s.client != nil {
			s.client.deliver(msg)
		}
	}
}

// broadcastExcept fans out to everyone but the given player ID.
func (r *Room) broadcastExcept(playerID string, msg any) {
	for _, p := range r.players {
		if p.ID != playerID && p.client != nil && !p.disconnected {
			p.client.deliver(msg)
		}
	}
	for _, s := range r.spectators {
		if s.ID != playerID && s.client != nil {
			s.client.deliver(msg)
		}
	}
}

func (r *Room) handleJoin(c *Client, name string) {
	if p := r.findPlayer(c.playerID); p != nil {
		// Same identity rejoining through joinRoom; treat as reconnect.
		r.handleReconnect(c)
		return
	}

	if len(r.players) >= 2 {
		r.admitSpectator(c, name)
		return
	}

	if !r.mgr.indexPlayer(c.playerID, r.id) {
		r.sendError(c, errAlreadyInRoom)
		return
	}
	r.mgr.removeWaiting(c.playerID)

	player := &Player{
		ID:     c.playerID,
		Name:   displayName(name),
		Rating: defaultRating,
		client: c,
	}
	r.players = append(r.players, player)
	r.updateSummary()

	r.broadcastExcept(player.ID, PlayerJoinedMessage{Type: "playerJoined", Player: player.info()})
	c.deliver(RoomJoinedMessage{
		Type:    "roomJoined",
		RoomID:  r.id,
		Players: r.playerInfos(),
		IsReady: len(r.players) == 2,
	})

	if len(r.players) == 2 {
		r.startGame()
	}
}

func (r *Room) admitSpectator(c *Client, name string) {
	if s := r.findSpectator(c.playerID); s != nil {
		s.client = c
		r.sendSpectating(c)
		return
	}
	if p := r.findPlayer(c.playerID); p != nil {
		// Players cannot double as spectators of their own game.
		r.handleReconnect(c)
		return
	}

	if !r.mgr.indexPlayer(c.playerID, r.id) {
		r.sendError(c, errAlreadyInRoom)
		return
	}
	r.mgr.removeWaiting(c.playerID)

	spectator := &Player{
		ID:     c.playerID,
		Name:   spectatorName(name),
		client: c,
	}
	r.spectators = append(r.spectators, spectator)
	r.updateSummary()

	r.sendSpectating(c)
	r.broadcastExcept(spectator.ID, SpectatorJoinedMessage{Type: "spectatorJoined", Spectator: spectator.info()})
}

func (r *Room) sendSpectating(c *Client) {
	msg := SpectatingMessage{
		Type:    "spectatingGame",
		RoomID:  r.id,
		Players: r.playerInfos(),
	}
	if r.game != nil {
		msg.GameState = r.game.PublicState()
	}
	c.deliver(msg)
}

// startGame assigns colors by coin flip and creates the game. Spectators
// receive the same broadcast minus a side of their own.
func (r *Room) startGame() {
	if r.game != nil || len(r.players) != 2 {
		return
	}

	white, black := r.players[0], r.players[1]
	if rand.Intn(2) == 0 {
		white, black = black, white
	}
	white.Color = wildchess.White
	black.Color = wildchess.Black

	r.game = wildchess.NewGame()
	r.updateSummary()
	state := r.game.PublicState()

	for _, p := range r.players {
		opp := r.opponent(p)
		oppInfo := opp.info()
		if p.client != nil {
			p.client.deliver(GameStartedMessage{
				Type:      "gameStarted",
				RoomID:    r.id,
				YourColor: p.Color,
				Opponent:  &oppInfo,
				GameState: state,
			})
		}
	}
	for _, s := range r.spectators {
		if s.client != nil {
			s.client.deliver(GameStartedMessage{
				Type:        "gameStarted",
				RoomID:      r.id,
				Players:     &ColorPlayers{White: white.info(), Black: black.info()},
				GameState:   state,
				IsSpectator: true,
			})
		}
	}

	r.mgr.log.Info("game started",
		zap.String("room", r.id),
		zap.String("white", white.Name),
		zap.String("black", black.Name),
	)
}

// playerForGame re-validates membership before any operation is delegated
// into the game, guarding against stale or forged room references.
func (r *Room) playerForGame(c *Client) (*Player, error) {
	p := r.findPlayer(c.playerID)
	if p == nil {
		return nil, errPlayerNotInRoom
	}
	if r.game == nil {
		return nil, errGameNotFound
	}
	return p, nil
}

func (r *Room) handleGenerateSetup(c *Client) {
	p, err := r.playerForGame(c)
	if err != nil {
		r.sendError(c, err)
		return
	}
	if p.Color != wildchess.White {
		r.sendError(c, fmt.Errorf("only the white player can generate the setup"))
		return
	}

	result, err := r.game.GenerateSetup()
	if err != nil {
		r.sendError(c, err)
		return
	}
	r.updateSummary()
	r.broadcast(SetupGeneratedMessage{Type: "setupGenerated", SetupResult: result})
}

func (r *Room) handlePlacePiece(c *Client, msg ClientMessage) {
	p, err := r.playerForGame(c)
	if err != nil {
		r.sendError(c, err)
		return
	}
	if msg.Rank == nil || msg.File == nil {
		r.sendError(c, errBadPayload)
		return
	}

	result, err := r.game.PlacePiece(p.Color, *msg.Rank, *msg.File)
	if err != nil {
		r.sendError(c, err)
		return
	}
	r.broadcast(PiecePlacedMessage{Type: "piecePlaced", PlaceResult: result})
}

func (r *Room) handleFinishSetup(c *Client) {
	_, err := r.playerForGame(c)
	if err != nil {
		r.sendError(c, err)
		return
	}

	result, err := r.game.FinishSetup()
	if err != nil {
		r.sendError(c, err)
		return
	}
	r.updateSummary()
	r.broadcast(SetupFinishedMessage{Type: "setupFinished", FinishResult: result})
}

func (r *Room) handleMakeMove(c *Client, msg ClientMessage) {
	p, err := r.playerForGame(c)
	if err != nil {
		r.sendError(c, err)
		return
	}
	if msg.Move == nil {
		r.sendError(c, errBadPayload)
		return
	}

	from := wildchess.Square{Rank: msg.Move.FromRank, File: msg.Move.FromFile}
	to := wildchess.Square{Rank: msg.Move.ToRank, File: msg.Move.ToFile}
	result, err := r.game.MakeMove(p.Color, from, to)
	if err != nil {
		r.sendError(c, err)
		return
	}

	r.broadcast(MoveMadeMessage{Type: "moveMade", MoveResult: result})
	if result.GameEnd != nil {
		r.endGame(*result.GameEnd, false)
	}
}

func (r *Room) handleResign(c *Client) {
	p, err := r.playerForGame(c)
	if err != nil {
		r.sendError(c, err)
		return
	}

	end, err := r.game.Resign(p.Color)
	if err != nil {
		r.sendError(c, err)
		return
	}
	r.endGame(*end, false)
}

// handleRequestDraw relays the offer to the opponent only; spectators
// never see draw negotiations.
func (r *Room) handleRequestDraw(c *Client) {
	p, err := r.playerForGame(c)
	if err != nil {
		r.sendError(c, err)
		return
	}

	opp := r.opponent(p)
	if opp != nil && opp.client != nil && !opp.disconnected {
		opp.client.deliver(DrawRequestedMessage{Type: "drawRequested", From: p.info()})
	}
}

func (r *Room) handleRespondDraw(c *Client, msg ClientMessage) {
	p, err := r.playerForGame(c)
	if err != nil {
		r.sendError(c, err)
		return
	}
	if msg.Accept == nil {
		r.sendError(c, errBadPayload)
		return
	}

	if *msg.Accept {
		end, err := r.game.EndInDraw()
		if err != nil {
			r.sendError(c, err)
			return
		}
		r.endGame(*end, false)
		return
	}

	// Decline goes back to the offering side only; no state change.
	opp := r.opponent(p)
	if opp != nil && opp.client != nil && !opp.disconnected {
		opp.client.deliver(DrawDeclinedMessage{Type: "drawDeclined"})
	}
}

func (r *Room) handleChat(c *Client, msg ClientMessage) {
	sender := r.findPlayer(c.playerID)
	if sender == nil {
		sender = r.findSpectator(c.playerID)
	}
	if sender == nil {
		r.sendError(c, errPlayerNotInRoom)
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	r.broadcast(ChatMessage{
		Type:      "chatMessage",
		Sender:    sender.info(),
		Message:   text,
		Timestamp: time.Now(),
	})
}

func (r *Room) handleGetGameState(c *Client) {
	if r.findPlayer(c.playerID) == nil && r.findSpectator(c.playerID) == nil {
		r.sendError(c, errPlayerNotInRoom)
		return
	}
	if r.game == nil {
		r.sendError(c, errGameNotFound)
		return
	}
	c.deliver(GameStateMessage{Type: "gameState", GameState: r.game.PublicState()})
}

// handleClientGone marks a player disconnected (kept for reconnection)
// and arms the auto-resign grace timer; spectators are simply removed.
func (r *Room) handleClientGone(playerID string, c *Client) {
	if s := r.findSpectator(playerID); s != nil && s.client == c {
		r.removeSpectator(playerID)
		r.mgr.unindexPlayer(playerID)
		r.updateSummary()
		return
	}

	p := r.findPlayer(playerID)
	if p == nil || p.client != c {
		// A stale connection from before a reconnect; ignore.
		return
	}

	p.disconnected = true
	p.disconnectedAt = time.Now()
	r.updateSummary()
	r.broadcastExcept(p.ID, PlayerDisconnectedMessage{Type: "playerDisconnected", Player: p.info()})

	if grace := r.mgr.cfg.disconnectGrace; grace > 0 {
		id := p.ID
		p.graceTimer = time.AfterFunc(grace, func() {
			r.post(roomEvent{kind: evAutoResign, playerID: id})
		})
	}

	r.mgr.log.Info("player disconnected",
		zap.String("room", r.id),
		zap.String("player", p.Name),
	)
}

func (r *Room) removeSpectator(playerID string) {
	dst := r.spectators[:0]
	for _, s := range r.spectators {
		if s.ID != playerID {
			dst = append(dst, s)
		}
	}
	r.spectators = dst
}

// handleReconnect restores a returning participant's seat: the grace
// timer is cancelled the moment the connection is recognized.
func (r *Room) handleReconnect(c *Client) {
	p := r.findPlayer(c.playerID)
	if p == nil {
		if s := r.findSpectator(c.playerID); s != nil {
			s.client = c
			r.sendSpectating(c)
		}
		return
	}

	if p.graceTimer != nil {
		p.graceTimer.Stop()
		p.graceTimer = nil
	}
	old := p.client
	p.disconnected = false
	p.client = c
	r.updateSummary()
	if old != nil && old != c {
		old.shutdown()
		if old.conn != nil {
			_ = old.conn.Close()
		}
	}

	r.broadcastExcept(p.ID, PlayerReconnectedMessage{Type: "playerReconnected", Player: p.info()})

	// Replay enough state for the client to rebuild its view.
	if r.game != nil {
		opp := r.opponent(p)
		var oppInfo *PlayerInfo
		if opp != nil {
			info := opp.info()
			oppInfo = &info
		}
		c.deliver(GameStartedMessage{
			Type:      "gameStarted",
			RoomID:    r.id,
			YourColor: p.Color,
			Opponent:  oppInfo,
			GameState: r.game.PublicState(),
		})
	} else {
		c.deliver(RoomJoinedMessage{
			Type:    "roomJoined",
			RoomID:  r.id,
			Players: r.playerInfos(),
			IsReady: len(r.players) == 2,
		})
	}

	r.mgr.log.Info("player reconnected",
		zap.String("room", r.id),
		zap.String("player", p.Name),
	)
}

// handleAutoResign fires at the end of the grace window. It is a no-op
// unless the player is still disconnected and the game is still running,
// so a late or duplicate firing never emits a second game-end event.
func (r *Room) handleAutoResign(playerID string) {
	p := r.findPlayer(playerID)
	if p == nil || !p.disconnected {
		return
	}
	if r.game == nil || r.game.Phase() != wildchess.PhasePlaying {
		return
	}

	end, err := r.game.Resign(p.Color)
	if err != nil {
		return
	}
	r.mgr.log.Info("auto-resigned disconnected player",
		zap.String("room", r.id),
		zap.String("player", p.Name),
	)
	r.endGame(*end, true)
}

// endGame broadcasts the result and schedules room teardown after the
// cleanup delay.
func (r *Room) endGame(end wildchess.GameEnd, autoResign bool) {
	r.updateSummary()
	r.broadcast(GameEndedMessage{Type: "gameEnded", Result: end, IsAutoResign: autoResign})

	if r.cleanupTimer == nil {
		r.cleanupTimer = time.AfterFunc(r.mgr.cfg.cleanupDelay, func() {
			r.mgr.destroyRoom(r.id)
		})
	}

	r.mgr.log.Info("game ended",
		zap.String("room", r.id),
		zap.String("result", end.Type),
		zap.String("winner", string(end.Winner)),
	)
}

func (r *Room) touch() {
	r.mu.Lock()
	r.lastActive = time.Now()
	r.mu.Unlock()
}

func (r *Room) lastActiveTime() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastActive
}

// updateSummary refreshes the counters shared with HTTP handlers and the
// reaper.
func (r *Room) updateSummary() {
	phase := "waiting"
	if r.game != nil {
		phase = string(r.game.Phase())
	}
	r.mu.Lock()
	r.playerCount = len(r.players)
	r.spectatorCount = len(r.spectators)
	r.phase = phase
	r.mu.Unlock()
}

func (r *Room) summary() RoomSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return RoomSummary{
		ID:         r.id,
		Players:    r.playerCount,
		Spectators: r.spectatorCount,
		GamePhase:  r.phase,
		CreatedAt:  r.createdAt,
	}
}

const defaultRating = 1200

func displayName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Sprintf("Player%d", rand.Intn(1000))
	}
	return name
}

func spectatorName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Sprintf("Spectator%d", rand.Intn(1000))
	}
	return name
}

// RoomManager owns the room directory, the waiting-player queue, and the
// player-to-room index. It is constructed at process start and passed to
// whatever dispatches inbound messages; there is no ambient shared state.
type RoomManager struct {
	cfg       *Config
	log       *zap.Logger
	startTime time.Time

	mu          sync.Mutex
	rooms       map[string]*Room
	waiting     []*Player
	playerRooms map[string]string

	done      chan struct{}
	closeOnce sync.Once
}

func newRoomManager(cfg *Config, log *zap.Logger) *RoomManager {
	m := &RoomManager{
		cfg:         cfg,
		log:         log,
		startTime:   time.Now(),
		rooms:       make(map[string]*Room),
		playerRooms: make(map[string]string),
		done:        make(chan struct{}),
	}
	if cfg.sessionTimeout > 0 {
		go m.reaperLoop()
	}
	return m
}

// Close tears down every room and stops the reaper.
func (m *RoomManager) Close() {
	m.closeOnce.Do(func() {
		close(m.done)
	})

	m.mu.Lock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.rooms = make(map[string]*Room)
	m.playerRooms = make(map[string]string)
	m.waiting = nil
	m.mu.Unlock()

	for _, r := range rooms {
		r.close()
	}
}

// dispatch routes one inbound message. The switch is exhaustive over the
// message vocabulary; unknown kinds are answered with an error.
func (m *RoomManager) dispatch(c *Client, msg ClientMessage) {
	switch msg.Type {
	case msgFindGame:
		m.findGame(c, msg.Name)
	case msgCreateRoom:
		m.createRoom(c, msg.Name)
	case msgJoinRoom:
		m.forward(c, msg, evJoin)
	case msgSpectateGame:
		m.forward(c, msg, evSpectate)
	case msgGetRoomList:
		c.deliver(RoomListMessage{Type: "roomList", Rooms: m.PublicRooms()})
	case msgGenerateSetup, msgPlacePiece, msgFinishSetup, msgMakeMove,
		msgResignGame, msgRequestDraw, msgRespondDraw, msgChatMessage,
		msgGetGameState:
		m.forward(c, msg, msg.Type)
	default:
		c.deliver(ErrorMessage{Type: "error", Message: fmt.Sprintf("unknown message type %q", msg.Type)})
	}
}

// forward resolves the room and hands the message to its event loop. A
// missing room is reported only to the requester.
func (m *RoomManager) forward(c *Client, msg ClientMessage, kind string) {
	m.mu.Lock()
	room := m.rooms[msg.RoomID]
	m.mu.Unlock()

	if room == nil {
		c.deliver(ErrorMessage{Type: "error", Message: errRoomNotFound.Error()})
		return
	}
	room.post(roomEvent{kind: kind, client: c, msg: msg})
}

// findGame pairs the requester with the oldest waiting player, or
// enqueues them. Pairing forms a room immediately.
func (m *RoomManager) findGame(c *Client, name string) {
	player := &Player{
		ID:     c.playerID,
		Name:   displayName(name),
		Rating: defaultRating,
		client: c,
	}

	m.mu.Lock()
	if _, inRoom := m.playerRooms[c.playerID]; inRoom {
		m.mu.Unlock()
		c.deliver(ErrorMessage{Type: "error", Message: errAlreadyInRoom.Error()})
		return
	}

	// Refresh rather than duplicate an entry for a returning waiter.
	for _, w := range m.waiting {
		if w.ID == c.playerID {
			w.client = c
			w.Name = player.Name
			m.mu.Unlock()
			c.deliver(WaitingMessage{Type: "waitingForOpponent"})
			return
		}
	}

	// Pop the oldest waiter, dropping stale entries for players who have
	// since joined a room some other way; a player belongs to at most one
	// room, and pairing a ghost would seat them in two.
	var opponent *Player
	for len(m.waiting) > 0 {
		candidate := m.waiting[0]
		m.waiting = m.waiting[1:]
		if _, inRoom := m.playerRooms[candidate.ID]; inRoom {
			continue
		}
		opponent = candidate
		break
	}

	if opponent == nil {
		m.waiting = append(m.waiting, player)
		m.mu.Unlock()
		c.deliver(WaitingMessage{Type: "waitingForOpponent"})
		return
	}

	room := newRoom(m, m.newRoomIDLocked(), false)
	room.players = []*Player{opponent, player}
	room.updateSummary()
	m.rooms[room.id] = room
	m.playerRooms[opponent.ID] = room.id
	m.playerRooms[player.ID] = room.id
	m.mu.Unlock()

	m.log.Info("matched players",
		zap.String("room", room.id),
		zap.String("player1", opponent.Name),
		zap.String("player2", player.Name),
	)

	go room.run()
	room.post(roomEvent{kind: evStartGame})
}

// createRoom opens a private room joinable by its short code.
func (m *RoomManager) createRoom(c *Client, name string) {
	player := &Player{
		ID:     c.playerID,
		Name:   displayName(name),
		Rating: defaultRating,
		client: c,
	}

	m.mu.Lock()
	if _, inRoom := m.playerRooms[c.playerID]; inRoom {
		m.mu.Unlock()
		c.deliver(ErrorMessage{Type: "error", Message: errAlreadyInRoom.Error()})
		return
	}
	m.removeWaitingLocked(c.playerID)

	room := newRoom(m, m.newRoomIDLocked(), true)
	room.players = []*Player{player}
	room.updateSummary()
	m.rooms[room.id] = room
	m.playerRooms[player.ID] = room.id
	m.mu.Unlock()

	go room.run()
	c.deliver(RoomCreatedMessage{Type: "roomCreated", RoomID: room.id, Player: player.info()})

	m.log.Info("private room created",
		zap.String("room", room.id),
		zap.String("player", player.Name),
	)
}

// handleConnect reattaches a known participant to their room when a new
// connection arrives with a familiar cookie.
func (m *RoomManager) handleConnect(c *Client) {
	m.mu.Lock()
	roomID, ok := m.playerRooms[c.playerID]
	var room *Room
	if ok {
		room = m.rooms[roomID]
	}
	m.mu.Unlock()

	if room != nil {
		room.post(roomEvent{kind: evReconnect, client: c})
	}
}

// handleDisconnect removes the connection from the waiting queue
// immediately (no grace there) and notifies the player's room, if any.
func (m *RoomManager) handleDisconnect(c *Client) {
	m.mu.Lock()
	for i, w := range m.waiting {
		if w.ID == c.playerID && w.client == c {
			m.waiting = append(m.waiting[:i], m.waiting[i+1:]...)
			break
		}
	}
	roomID, ok := m.playerRooms[c.playerID]
	var room *Room
	if ok {
		room = m.rooms[roomID]
	}
	m.mu.Unlock()

	if room != nil {
		room.post(roomEvent{kind: evDisconnect, client: c, playerID: c.playerID})
	}
}

// indexPlayer claims the player-to-room slot; a player belongs to at most
// one room at a time.
func (m *RoomManager) indexPlayer(playerID, roomID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.playerRooms[playerID]; ok && existing != roomID {
		return false
	}
	m.playerRooms[playerID] = roomID
	return true
}

func (m *RoomManager) unindexPlayer(playerID string) {
	m.mu.Lock()
	delete(m.playerRooms, playerID)
	m.mu.Unlock()
}

func (m *RoomManager) removeWaiting(playerID string) {
	m.mu.Lock()
	m.removeWaitingLocked(playerID)
	m.mu.Unlock()
}

func (m *RoomManager) removeWaitingLocked(playerID string) {
	for i, w := range m.waiting {
		if w.ID == playerID {
			m.waiting = append(m.waiting[:i], m.waiting[i+1:]...)
			return
		}
	}
}

// newRoomIDLocked derives a short human-shareable code from a uuid,
// retrying on the rare collision. Caller holds m.mu.
func (m *RoomManager) newRoomIDLocked() string {
	for {
		id := strings.ToUpper(strings.SplitN(uuid.NewString(), "-", 2)[0])
		if _, exists := m.rooms[id]; !exists {
			return id
		}
	}
}

// destroyRoom removes a room and all of its index entries. Destroying a
// room that is already gone is a no-op.
func (m *RoomManager) destroyRoom(roomID string) {
	m.mu.Lock()
	room, ok := m.rooms[roomID]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.rooms, roomID)
	for playerID, id := range m.playerRooms {
		if id == roomID {
			delete(m.playerRooms, playerID)
		}
	}
	m.mu.Unlock()

	room.close()
	m.log.Info("room destroyed", zap.String("room", roomID))
}

// PublicRooms lists non-private rooms for the lobby.
func (m *RoomManager) PublicRooms() []RoomSummary {
	m.mu.Lock()
	defer m.mu.Unlock()

	summaries := make([]RoomSummary, 0, len(m.rooms))
	for _, room := range m.rooms {
		if room.isPrivate {
			continue
		}
		summaries = append(summaries, room.summary())
	}
	return summaries
}

// RoomSummaryByID fetches one room's summary, private rooms included so
// an invite code can be checked.
func (m *RoomManager) RoomSummaryByID(roomID string) (RoomSummary, bool) {
	m.mu.Lock()
	room := m.rooms[roomID]
	m.mu.Unlock()

	if room == nil {
		return RoomSummary{}, false
	}
	return room.summary(), true
}

// Counts reports active participants and rooms for the health endpoint.
func (m *RoomManager) Counts() (players, rooms int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, room := range m.rooms {
		s := room.summary()
		players += s.Players + s.Spectators
	}
	players += len(m.waiting)
	return players, len(m.rooms)
}

func (m *RoomManager) Uptime() time.Duration {
	return time.Since(m.startTime)
}

// reaperLoop periodically destroys rooms idle longer than the session
// timeout.
func (m *RoomManager) reaperLoop() {
	ticker := time.NewTicker(m.cfg.sessionTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-m.cfg.sessionTimeout)

			m.mu.Lock()
			var idle []string
			for id, room := range m.rooms {
				if room.lastActiveTime().Before(cutoff) {
					idle = append(idle, id)
				}
			}
			m.mu.Unlock()

			for _, id := range idle {
				m.destroyRoom(id)
			}
		case <-m.done:
			return
		}
	}
}
