package wildchess

import (
	"math/rand"
	"time"
)

// Phase is the game's top-level state. Transitions are monotonic:
// setup -> placing -> playing -> ended.
type Phase string

const (
	PhaseSetup   Phase = "setup"
	PhasePlacing Phase = "placing"
	PhasePlaying Phase = "playing"
	PhaseEnded   Phase = "ended"
)

// Setup steps mirrored into broadcasts so clients can drive their setup UI.
const (
	stepUndrafted = 1
	stepPlacing   = 2
	stepDone      = 3
)

// Move is the immutable record of one accepted move.
type Move struct {
	From      Square    `json:"from"`
	To        Square    `json:"to"`
	Piece     Piece     `json:"piece"`
	Captured  *Piece    `json:"capturedPiece,omitempty"`
	Player    Color     `json:"player"`
	Timestamp time.Time `json:"timestamp"`
}

type LastMove struct {
	From Square `json:"from"`
	To   Square `json:"to"`
}

// CapturedPieces is keyed by the color of the capturing player.
type CapturedPieces struct {
	White []Piece `json:"white"`
	Black []Piece `json:"black"`
}

// placement is one pending step of the manual placement queue.
type placement struct {
	color     Color
	pieceType PieceType
}

func (p placement) label() string {
	return string(p.color) + "-" + string(p.pieceType)
}

// PlacementView is the client-facing snapshot of the placement queue.
type PlacementView struct {
	CurrentPiece  string   `json:"currentPiece"`
	PiecesToPlace []string `json:"piecesToPlace"`
	CurrentIndex  int      `json:"currentIndex"`
}

// GameEnd describes why a game ended.
type GameEnd struct {
	Type           string `json:"type"`
	Winner         Color  `json:"winner,omitempty"`
	ResignedPlayer Color  `json:"resignedPlayer,omitempty"`
	Reason         string `json:"reason,omitempty"`
}

const (
	EndCheckmate   = "checkmate"
	EndStalemate   = "stalemate"
	EndResignation = "resignation"
	EndDraw        = "draw"
)

// Game is the authoritative state machine for one Wild Chess game. It is
// not safe for concurrent use; the room layer serializes access.
type Game struct {
	board      *Board
	current    Color
	phase      Phase
	setupStep  int
	cards      Cards
	placements []placement
	placeIndex int
	history    []Move
	lastMove   *LastMove
	captured   CapturedPieces
	rng        *rand.Rand
}

func NewGame() *Game {
	return NewGameWithSource(rand.NewSource(time.Now().UnixNano()))
}

// NewGameWithSource allows a deterministic draft for tests.
func NewGameWithSource(src rand.Source) *Game {
	return &Game{
		board:     &Board{},
		current:   White,
		phase:     PhaseSetup,
		setupStep: stepUndrafted,
		rng:       rand.New(src),
	}
}

func (g *Game) Phase() Phase         { return g.phase }
func (g *Game) CurrentPlayer() Color { return g.current }
func (g *Game) MoveCount() int       { return len(g.history) }

// SetupResult is broadcast after a successful draft.
type SetupResult struct {
	Board     *Board `json:"board"`
	Cards     Cards  `json:"cards"`
	SetupStep int    `json:"setupStep"`
}

// GenerateSetup runs the card draft. Permitted only once, in the setup
// phase; it advances the game to placing and arms the four-step manual
// placement queue (white queen, black queen, white king, black king).
func (g *Game) GenerateSetup() (*SetupResult, error) {
	if g.phase != PhaseSetup {
		return nil, ErrPhaseViolation
	}

	setup := DrawSetupWith(g.rng)
	g.board = setup.Board
	g.cards = setup.Cards
	g.phase = PhasePlacing
	g.setupStep = stepPlacing
	g.placements = []placement{
		{color: White, pieceType: Queen},
		{color: Black, pieceType: Queen},
		{color: White, pieceType: King},
		{color: Black, pieceType: King},
	}
	g.placeIndex = 0

	return &SetupResult{
		Board:     g.board.Clone(),
		Cards:     g.cards,
		SetupStep: g.setupStep,
	}, nil
}

// PlaceResult is broadcast after a successful manual placement.
type PlaceResult struct {
	Rank       int    `json:"rank"`
	File       int    `json:"file"`
	Piece      Piece  `json:"piece"`
	NextPiece  string `json:"nextPiece,omitempty"`
	IsComplete bool   `json:"isComplete"`
	Board      *Board `json:"board"`
}

// PlacePiece consumes the front of the placement queue. The requesting
// color must own the queued piece; placements are turn-locked, not
// free-for-all. Exhausting the queue does not start play; FinishSetup is
// a separate, explicit confirmation.
func (g *Game) PlacePiece(color Color, rank, file int) (*PlaceResult, error) {
	if g.phase != PhasePlacing {
		return nil, ErrPhaseViolation
	}
	if g.placeIndex >= len(g.placements) {
		return nil, ErrPhaseViolation
	}
	sq := Square{Rank: rank, File: file}
	if !sq.InBounds() {
		return nil, ErrInvalidMove
	}
	if g.board.At(sq) != nil {
		return nil, ErrSquareOccupied
	}
	next := g.placements[g.placeIndex]
	if next.color != color {
		return nil, ErrWrongPlacementColor
	}

	g.board.set(sq, &Piece{Type: next.pieceType, Color: next.color})
	g.placeIndex++

	result := &PlaceResult{
		Rank:       rank,
		File:       file,
		Piece:      Piece{Type: next.pieceType, Color: next.color},
		IsComplete: g.placeIndex >= len(g.placements),
		Board:      g.board.Clone(),
	}
	if !result.IsComplete {
		result.NextPiece = g.placements[g.placeIndex].label()
	}
	return result, nil
}

// FinishResult is broadcast when the game enters the playing phase.
type FinishResult struct {
	GamePhase     Phase  `json:"gamePhase"`
	Board         *Board `json:"board"`
	CurrentPlayer Color  `json:"currentPlayer"`
}

// FinishSetup transitions to playing once the placement queue is
// exhausted.
func (g *Game) FinishSetup() (*FinishResult, error) {
	if g.phase != PhaseSetup && g.phase != PhasePlacing {
		return nil, ErrPhaseViolation
	}
	if g.placements == nil || g.placeIndex < len(g.placements) {
		return nil, ErrPlacementIncomplete
	}

	g.phase = PhasePlaying
	g.setupStep = stepDone
	g.placements = nil

	return &FinishResult{
		GamePhase:     g.phase,
		Board:         g.board.Clone(),
		CurrentPlayer: g.current,
	}, nil
}

// MoveResult is broadcast after a successful move.
type MoveResult struct {
	Move           Move           `json:"move"`
	Board          *Board         `json:"board"`
	CurrentPlayer  Color          `json:"currentPlayer"`
	CapturedPieces CapturedPieces `json:"capturedPieces"`
	LastMove       LastMove       `json:"lastMove"`
	GameEnd        *GameEnd       `json:"gameEnd,omitempty"`
}

// MakeMove validates and applies one move for color. A move that passes
// geometry but would leave the mover's own king in check is rejected. On
// success the turn flips and the position is classified: a missing
// opposing king is an immediate checkmate win (defensive fallback), and a
// new current player with no legal move ends the game as checkmate or
// stalemate.
func (g *Game) MakeMove(color Color, from, to Square) (*MoveResult, error) {
	if g.phase != PhasePlaying {
		return nil, ErrPhaseViolation
	}
	if color != g.current {
		return nil, ErrNotYourTurn
	}
	if !LegalMove(g.board, from, to, color) {
		return nil, ErrInvalidMove
	}
	if _, hasKing := g.board.FindKing(color); hasKing {
		if InCheck(g.board.applied(from, to), color) {
			return nil, ErrInvalidMove
		}
	}

	piece := g.board.At(from)
	captured := g.board.At(to)

	move := Move{
		From:      from,
		To:        to,
		Piece:     *piece,
		Player:    color,
		Timestamp: time.Now(),
	}
	if captured != nil {
		capturedCopy := *captured
		move.Captured = &capturedCopy
		if color == White {
			g.captured.White = append(g.captured.White, capturedCopy)
		} else {
			g.captured.Black = append(g.captured.Black, capturedCopy)
		}
	}

	g.board.set(to, piece)
	g.board.set(from, nil)
	g.promote(to)

	g.history = append(g.history, move)
	g.lastMove = &LastMove{From: from, To: to}
	g.current = g.current.Opponent()

	end := g.classify(color)
	if end != nil {
		g.phase = PhaseEnded
	}

	return &MoveResult{
		Move:           move,
		Board:          g.board.Clone(),
		CurrentPlayer:  g.current,
		CapturedPieces: g.capturedSnapshot(),
		LastMove:       *g.lastMove,
		GameEnd:        end,
	}, nil
}

// promote replaces a pawn that reached the far rank with a queen. No
// underpromotion in this variant.
func (g *Game) promote(sq Square) {
	p := g.board.At(sq)
	if p == nil || p.Type != Pawn {
		return
	}
	if (p.Color == White && sq.Rank == 7) || (p.Color == Black && sq.Rank == 0) {
		g.board.set(sq, &Piece{Type: Queen, Color: p.Color})
	}
}

// classify inspects the position after mover's move, with the turn
// already flipped to the opponent.
func (g *Game) classify(mover Color) *GameEnd {
	if _, ok := g.board.FindKing(g.current); !ok {
		return &GameEnd{Type: EndCheckmate, Winner: mover, Reason: "king captured"}
	}
	if !HasLegalMove(g.board, g.current) {
		if InCheck(g.board, g.current) {
			return &GameEnd{Type: EndCheckmate, Winner: mover, Reason: "checkmate"}
		}
		return &GameEnd{Type: EndStalemate, Reason: "no legal moves"}
	}
	return nil
}

// Resign ends the game with color as the loser. Resigning a game that is
// not in progress is rejected, so a second resignation never produces a
// second game-end event.
func (g *Game) Resign(color Color) (*GameEnd, error) {
	if g.phase != PhasePlaying {
		return nil, ErrPhaseViolation
	}
	g.phase = PhaseEnded
	return &GameEnd{
		Type:           EndResignation,
		Winner:         color.Opponent(),
		ResignedPlayer: color,
	}, nil
}

// EndInDraw ends the game as a draw by agreement.
func (g *Game) EndInDraw() (*GameEnd, error) {
	if g.phase != PhasePlaying {
		return nil, ErrPhaseViolation
	}
	g.phase = PhaseEnded
	return &GameEnd{Type: EndDraw, Reason: "agreement"}, nil
}

// State is the public snapshot broadcast to players and spectators. The
// board is a copy; later game mutations never alter an emitted snapshot.
type State struct {
	Board           *Board         `json:"board"`
	CurrentPlayer   Color          `json:"currentPlayer"`
	GamePhase       Phase          `json:"gamePhase"`
	SetupStep       int            `json:"setupStep"`
	DrawnCards      Cards          `json:"drawnCards"`
	LastMove        *LastMove      `json:"lastMove"`
	CapturedPieces  CapturedPieces `json:"capturedPieces"`
	ManualPlacement *PlacementView `json:"manualPlacement"`
	MoveCount       int            `json:"moveCount"`
}

func (g *Game) PublicState() *State {
	state := &State{
		Board:          g.board.Clone(),
		CurrentPlayer:  g.current,
		GamePhase:      g.phase,
		SetupStep:      g.setupStep,
		DrawnCards:     g.cards,
		LastMove:       g.lastMove,
		CapturedPieces: g.capturedSnapshot(),
		MoveCount:      len(g.history),
	}
	if g.placements != nil && g.placeIndex < len(g.placements) {
		labels := make([]string, len(g.placements))
		for i, p := range g.placements {
			labels[i] = p.label()
		}
		state.ManualPlacement = &PlacementView{
			CurrentPiece:  g.placements[g.placeIndex].label(),
			PiecesToPlace: labels,
			CurrentIndex:  g.placeIndex,
		}
	}
	return state
}

func (g *Game) capturedSnapshot() CapturedPieces {
	snap := CapturedPieces{
		White: make([]Piece, len(g.captured.White)),
		Black: make([]Piece, len(g.captured.Black)),
	}
	copy(snap.White, g.captured.White)
	copy(snap.Black, g.captured.Black)
	return snap
}
