package main

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Waloott/wild-chess-online/wildchess"
)

func testConfig() *Config {
	return &Config{
		port:            8080,
		cleanupDelay:    50 * time.Millisecond,
		disconnectGrace: 50 * time.Millisecond,
		sessionTimeout:  time.Hour,
	}
}

func newTestManager(t *testing.T, cfg *Config) *RoomManager {
	t.Helper()
	m := newRoomManager(cfg, zap.NewNop())
	t.Cleanup(m.Close)
	return m
}

func newTestClient(playerID string) *Client {
	return newClient(nil, playerID)
}

func recv(t *testing.T, c *Client) any {
	t.Helper()
	select {
	case msg := <-c.send:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a message")
		return nil
	}
}

func recvAs[T any](t *testing.T, c *Client) T {
	t.Helper()
	msg := recv(t, c)
	v, ok := msg.(T)
	if !ok {
		t.Fatalf("received %T (%+v), want %T", msg, msg, v)
	}
	return v
}

func recvNone(t *testing.T, c *Client, d time.Duration) {
	t.Helper()
	select {
	case msg := <-c.send:
		t.Fatalf("unexpected message %T (%+v)", msg, msg)
	case <-time.After(d):
	}
}

func eventually(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// startMatch pairs two fresh clients through matchmaking and returns
// them ordered white first.
func startMatch(t *testing.T, m *RoomManager) (white, black *Client, roomID string) {
	t.Helper()

	c1 := newTestClient("p1")
	c2 := newTestClient("p2")

	m.dispatch(c1, ClientMessage{Type: msgFindGame, Name: "Alice"})
	recvAs[WaitingMessage](t, c1)

	m.dispatch(c2, ClientMessage{Type: msgFindGame, Name: "Bob"})
	g1 := recvAs[GameStartedMessage](t, c1)
	g2 := recvAs[GameStartedMessage](t, c2)

	if g1.RoomID == "" || g1.RoomID != g2.RoomID {
		t.Fatalf("room IDs disagree: %q vs %q", g1.RoomID, g2.RoomID)
	}
	if g1.YourColor == g2.YourColor {
		t.Fatalf("both players assigned %s", g1.YourColor)
	}

	if g1.YourColor == wildchess.White {
		return c1, c2, g1.RoomID
	}
	return c2, c1, g1.RoomID
}

func intPtr(v int) *int { return &v }

// driveToPlaying walks a matched pair through draft, the four manual
// placements, and setup confirmation.
func driveToPlaying(t *testing.T, m *RoomManager, white, black *Client, roomID string) {
	t.Helper()

	m.dispatch(white, ClientMessage{Type: msgGenerateSetup, RoomID: roomID})
	setup := recvAs[SetupGeneratedMessage](t, white)
	recvAs[SetupGeneratedMessage](t, black)

	board := setup.Board
	for _, c := range []*Client{white, black, white, black} {
		sq := firstFree(t, board)
		m.dispatch(c, ClientMessage{Type: msgPlacePiece, RoomID: roomID, Rank: intPtr(sq.Rank), File: intPtr(sq.File)})
		placed := recvAs[PiecePlacedMessage](t, white)
		recvAs[PiecePlacedMessage](t, black)
		board = placed.Board
	}

	m.dispatch(white, ClientMessage{Type: msgFinishSetup, RoomID: roomID})
	finished := recvAs[SetupFinishedMessage](t, white)
	recvAs[SetupFinishedMessage](t, black)

	if finished.GamePhase != wildchess.PhasePlaying {
		t.Fatalf("phase %s after setup, want playing", finished.GamePhase)
	}
}

func firstFree(t *testing.T, b *wildchess.Board) wildchess.Square {
	t.Helper()
	for rank := 0; rank < 8; rank++ {
		for file := 0; file < 8; file++ {
			sq := wildchess.Square{Rank: rank, File: file}
			if b.At(sq) == nil {
				return sq
			}
		}
	}
	t.Fatal("board full")
	return wildchess.Square{}
}

func TestFindGamePairsPlayers(t *testing.T) {
	m := newTestManager(t, testConfig())
	startMatch(t, m)

	players, rooms := m.Counts()
	if players != 2 || rooms != 1 {
		t.Errorf("counts after pairing: %d players, %d rooms", players, rooms)
	}
}

func TestFindGameWhileAlreadyInRoom(t *testing.T) {
	m := newTestManager(t, testConfig())
	white, _, _ := startMatch(t, m)

	m.dispatch(white, ClientMessage{Type: msgFindGame, Name: "Alice"})
	errMsg := recvAs[ErrorMessage](t, white)
	if errMsg.Message != errAlreadyInRoom.Error() {
		t.Errorf("error %q", errMsg.Message)
	}
}

func TestPrivateRoomFlow(t *testing.T) {
	m := newTestManager(t, testConfig())

	host := newTestClient("host")
	m.dispatch(host, ClientMessage{Type: msgCreateRoom, Name: "Alice"})
	created := recvAs[RoomCreatedMessage](t, host)
	if created.RoomID == "" {
		t.Fatal("empty room code")
	}

	// Private rooms never appear in the public list.
	if got := len(m.PublicRooms()); got != 0 {
		t.Errorf("public list has %d rooms, want 0", got)
	}

	guest := newTestClient("guest")
	m.dispatch(guest, ClientMessage{Type: msgJoinRoom, RoomID: created.RoomID, Name: "Bob"})

	recvAs[PlayerJoinedMessage](t, host)
	joined := recvAs[RoomJoinedMessage](t, guest)
	if !joined.IsReady {
		t.Error("room not ready with two players")
	}

	recvAs[GameStartedMessage](t, host)
	recvAs[GameStartedMessage](t, guest)
}

func TestJoinUnknownRoom(t *testing.T) {
	m := newTestManager(t, testConfig())

	c := newTestClient("p1")
	m.dispatch(c, ClientMessage{Type: msgJoinRoom, RoomID: "NOPE", Name: "Alice"})
	errMsg := recvAs[ErrorMessage](t, c)
	if errMsg.Message != errRoomNotFound.Error() {
		t.Errorf("error %q", errMsg.Message)
	}
}

func TestUnknownMessageType(t *testing.T) {
	m := newTestManager(t, testConfig())

	c := newTestClient("p1")
	m.dispatch(c, ClientMessage{Type: "bogus"})
	recvAs[ErrorMessage](t, c)
}

func TestThirdJoinBecomesSpectator(t *testing.T) {
	m := newTestManager(t, testConfig())
	white, black, roomID := startMatch(t, m)

	watcher := newTestClient("p3")
	m.dispatch(watcher, ClientMessage{Type: msgJoinRoom, RoomID: roomID, Name: "Carol"})

	spectating := recvAs[SpectatingMessage](t, watcher)
	if spectating.GameState == nil {
		t.Error("spectator received no game state")
	}
	if len(spectating.Players) != 2 {
		t.Errorf("spectator sees %d players", len(spectating.Players))
	}

	recvAs[SpectatorJoinedMessage](t, white)
	recvAs[SpectatorJoinedMessage](t, black)
}

func TestSetupRestrictedToWhite(t *testing.T) {
	m := newTestManager(t, testConfig())
	white, black, roomID := startMatch(t, m)

	m.dispatch(black, ClientMessage{Type: msgGenerateSetup, RoomID: roomID})
	recvAs[ErrorMessage](t, black)
	recvNone(t, white, 100*time.Millisecond)
}

func TestGetGameState(t *testing.T) {
	m := newTestManager(t, testConfig())
	white, _, roomID := startMatch(t, m)

	m.dispatch(white, ClientMessage{Type: msgGetGameState, RoomID: roomID})
	state := recvAs[GameStateMessage](t, white)
	if state.GameState == nil || state.GameState.GamePhase != wildchess.PhaseSetup {
		t.Errorf("state %+v", state.GameState)
	}
}

func TestChatRelay(t *testing.T) {
	m := newTestManager(t, testConfig())
	white, black, roomID := startMatch(t, m)

	m.dispatch(white, ClientMessage{Type: msgChatMessage, RoomID: roomID, Text: "good luck"})
	for _, c := range []*Client{white, black} {
		chat := recvAs[ChatMessage](t, c)
		if chat.Message != "good luck" {
			t.Errorf("chat text %q", chat.Message)
		}
	}

	// Blank chat lines are dropped.
	m.dispatch(white, ClientMessage{Type: msgChatMessage, RoomID: roomID, Text: "   "})
	recvNone(t, black, 100*time.Millisecond)
}

func TestDrawProtocol(t *testing.T) {
	m := newTestManager(t, testConfig())
	white, black, roomID := startMatch(t, m)
	driveToPlaying(t, m, white, black, roomID)

	// Offer goes to the opponent only.
	m.dispatch(white, ClientMessage{Type: msgRequestDraw, RoomID: roomID})
	offer := recvAs[DrawRequestedMessage](t, black)
	if offer.From.Color != wildchess.White {
		t.Errorf("offer from %s", offer.From.Color)
	}
	recvNone(t, white, 100*time.Millisecond)

	// Decline bounces back to the offerer only.
	m.dispatch(black, ClientMessage{Type: msgRespondDraw, RoomID: roomID, Accept: boolPtr(false)})
	recvAs[DrawDeclinedMessage](t, white)
	recvNone(t, black, 100*time.Millisecond)

	// Acceptance ends the game for everyone.
	m.dispatch(white, ClientMessage{Type: msgRequestDraw, RoomID: roomID})
	recvAs[DrawRequestedMessage](t, black)
	m.dispatch(black, ClientMessage{Type: msgRespondDraw, RoomID: roomID, Accept: boolPtr(true)})

	for _, c := range []*Client{white, black} {
		ended := recvAs[GameEndedMessage](t, c)
		if ended.Result.Type != wildchess.EndDraw {
			t.Errorf("result %+v", ended.Result)
		}
		if ended.IsAutoResign {
			t.Error("draw flagged as auto-resign")
		}
	}

	// Finished rooms are torn down after the cleanup delay.
	eventually(t, func() bool {
		_, rooms := m.Counts()
		return rooms == 0
	}, "room cleanup")
}

func boolPtr(v bool) *bool { return &v }

func TestDisconnectAutoResign(t *testing.T) {
	m := newTestManager(t, testConfig())
	white, black, roomID := startMatch(t, m)
	driveToPlaying(t, m, white, black, roomID)

	m.handleDisconnect(white)
	gone := recvAs[PlayerDisconnectedMessage](t, black)
	if !gone.Player.Disconnected {
		t.Error("player not flagged disconnected")
	}

	ended := recvAs[GameEndedMessage](t, black)
	if !ended.IsAutoResign {
		t.Error("resignation not flagged automatic")
	}
	if ended.Result.Type != wildchess.EndResignation || ended.Result.Winner != wildchess.Black {
		t.Errorf("result %+v", ended.Result)
	}
}

func TestReconnectCancelsAutoResign(t *testing.T) {
	cfg := testConfig()
	cfg.disconnectGrace = 300 * time.Millisecond
	m := newTestManager(t, cfg)
	white, black, roomID := startMatch(t, m)
	driveToPlaying(t, m, white, black, roomID)

	m.handleDisconnect(white)
	recvAs[PlayerDisconnectedMessage](t, black)

	// The same cookie on a new connection reclaims the seat.
	replacement := newTestClient(white.playerID)
	m.handleConnect(replacement)

	recvAs[PlayerReconnectedMessage](t, black)
	replay := recvAs[GameStartedMessage](t, replacement)
	if replay.RoomID != roomID {
		t.Errorf("replayed room %q, want %q", replay.RoomID, roomID)
	}
	if replay.GameState == nil || replay.GameState.GamePhase != wildchess.PhasePlaying {
		t.Error("replayed state missing or in the wrong phase")
	}

	// The grace window passes without a resignation.
	recvNone(t, black, 500*time.Millisecond)
}

func TestDisconnectWhileWaitingLeavesQueue(t *testing.T) {
	m := newTestManager(t, testConfig())

	c1 := newTestClient("p1")
	m.dispatch(c1, ClientMessage{Type: msgFindGame, Name: "Alice"})
	recvAs[WaitingMessage](t, c1)

	m.handleDisconnect(c1)

	// The next two seekers pair with each other, not with the ghost.
	c2 := newTestClient("p2")
	m.dispatch(c2, ClientMessage{Type: msgFindGame, Name: "Bob"})
	recvAs[WaitingMessage](t, c2)

	c3 := newTestClient("p3")
	m.dispatch(c3, ClientMessage{Type: msgFindGame, Name: "Carol"})
	recvAs[GameStartedMessage](t, c2)
	recvAs[GameStartedMessage](t, c3)
}

func TestWaiterWhoJoinedElsewhereIsNotPaired(t *testing.T) {
	m := newTestManager(t, testConfig())

	// p1 queues for matchmaking, then takes the second seat of a private
	// room instead. The stale queue entry must not pair anyone.
	p1 := newTestClient("p1")
	m.dispatch(p1, ClientMessage{Type: msgFindGame, Name: "Alice"})
	recvAs[WaitingMessage](t, p1)

	host := newTestClient("host")
	m.dispatch(host, ClientMessage{Type: msgCreateRoom, Name: "Bob"})
	created := recvAs[RoomCreatedMessage](t, host)

	m.dispatch(p1, ClientMessage{Type: msgJoinRoom, RoomID: created.RoomID, Name: "Alice"})
	recvAs[PlayerJoinedMessage](t, host)
	recvAs[RoomJoinedMessage](t, p1)
	recvAs[GameStartedMessage](t, host)
	recvAs[GameStartedMessage](t, p1)

	p3 := newTestClient("p3")
	m.dispatch(p3, ClientMessage{Type: msgFindGame, Name: "Carol"})
	recvAs[WaitingMessage](t, p3)

	if _, rooms := m.Counts(); rooms != 1 {
		t.Fatalf("%d rooms, want only the private one", rooms)
	}

	// The queue still works for genuinely free players.
	p4 := newTestClient("p4")
	m.dispatch(p4, ClientMessage{Type: msgFindGame, Name: "Dave"})
	recvAs[GameStartedMessage](t, p3)
	recvAs[GameStartedMessage](t, p4)
}

func TestIdleRoomReaped(t *testing.T) {
	cfg := testConfig()
	cfg.sessionTimeout = 100 * time.Millisecond
	m := newTestManager(t, cfg)

	white, _, activeID := startMatch(t, m)

	host := newTestClient("idle-host")
	m.dispatch(host, ClientMessage{Type: msgCreateRoom, Name: "Idle"})
	created := recvAs[RoomCreatedMessage](t, host)

	// Keep the matched room warm while the private one sits idle.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := m.RoomSummaryByID(created.RoomID); !ok {
			break
		}
		m.dispatch(white, ClientMessage{Type: msgGetGameState, RoomID: activeID})
		recvAs[GameStateMessage](t, white)
		time.Sleep(20 * time.Millisecond)
	}

	if _, ok := m.RoomSummaryByID(created.RoomID); ok {
		t.Fatal("idle room survived the reaper")
	}
	if _, ok := m.RoomSummaryByID(activeID); !ok {
		t.Error("active room was reaped")
	}

	// Destroying a room the reaper already removed is a no-op.
	m.destroyRoom(created.RoomID)
	if _, rooms := m.Counts(); rooms != 1 {
		t.Errorf("%d rooms after double destroy, want 1", rooms)
	}
}

func TestRoomSummary(t *testing.T) {
	m := newTestManager(t, testConfig())
	_, _, roomID := startMatch(t, m)

	summary, ok := m.RoomSummaryByID(roomID)
	if !ok {
		t.Fatal("room missing")
	}
	if summary.Players != 2 || summary.Spectators != 0 {
		t.Errorf("summary %+v", summary)
	}
	if summary.GamePhase != string(wildchess.PhaseSetup) {
		t.Errorf("phase %q", summary.GamePhase)
	}

	if _, ok := m.RoomSummaryByID("NOPE"); ok {
		t.Error("summary returned for unknown room")
	}
}
