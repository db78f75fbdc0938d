package main

import (
	"time"

	"github.com/Waloott/wild-chess-online/wildchess"
)

// Inbound message kinds. The dispatch switch over these is exhaustive;
// anything else is answered with an error and otherwise ignored.
const (
	msgFindGame      = "findGame"
	msgCreateRoom    = "createRoom"
	msgJoinRoom      = "joinRoom"
	msgGenerateSetup = "generateSetup"
	msgPlacePiece    = "placePiece"
	msgFinishSetup   = "finishSetup"
	msgMakeMove      = "makeMove"
	msgResignGame    = "resignGame"
	msgRequestDraw   = "requestDraw"
	msgRespondDraw   = "respondDraw"
	msgChatMessage   = "chatMessage"
	msgSpectateGame  = "spectateGame"
	msgGetRoomList   = "getRoomList"
	msgGetGameState  = "getGameState"
)

// MovePayload carries the coordinates of a requested move.
type MovePayload struct {
	FromRank int `json:"fromRank"`
	FromFile int `json:"fromFile"`
	ToRank   int `json:"toRank"`
	ToFile   int `json:"toFile"`
}

// ClientMessage is the single inbound envelope. Fields are pointers where
// zero is a meaningful value, so missing payload pieces are detectable.
type ClientMessage struct {
	Type   string       `json:"type"`
	RoomID string       `json:"roomId,omitempty"`
	Name   string       `json:"name,omitempty"`
	Rank   *int         `json:"rank,omitempty"`   // placePiece
	File   *int         `json:"file,omitempty"`   // placePiece
	Move   *MovePayload `json:"move,omitempty"`   // makeMove
	Accept *bool        `json:"accept,omitempty"` // respondDraw
	Text   string       `json:"text,omitempty"`   // chatMessage
}

// PlayerInfo is the public view of a player; the connection handle is
// never serialized.
type PlayerInfo struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Color        wildchess.Color `json:"color,omitempty"`
	Rating       int             `json:"rating"`
	Disconnected bool            `json:"disconnected"`
}

type WaitingMessage struct {
	Type string `json:"type"` // "waitingForOpponent"
}

type RoomCreatedMessage struct {
	Type   string     `json:"type"` // "roomCreated"
	RoomID string     `json:"roomId"`
	Player PlayerInfo `json:"player"`
}

type RoomJoinedMessage struct {
	Type    string       `json:"type"` // "roomJoined"
	RoomID  string       `json:"roomId"`
	Players []PlayerInfo `json:"players"`
	IsReady bool         `json:"isReady"`
}

type PlayerJoinedMessage struct {
	Type   string     `json:"type"` // "playerJoined"
	Player PlayerInfo `json:"player"`
}

type SpectatorJoinedMessage struct {
	Type      string     `json:"type"` // "spectatorJoined"
	Spectator PlayerInfo `json:"spectator"`
}

// ColorPlayers names both seats, sent to spectators who have no "your"
// side.
type ColorPlayers struct {
	White PlayerInfo `json:"white"`
	Black PlayerInfo `json:"black"`
}

type GameStartedMessage struct {
	Type        string           `json:"type"` // "gameStarted"
	RoomID      string           `json:"roomId"`
	YourColor   wildchess.Color  `json:"yourColor,omitempty"`
	Opponent    *PlayerInfo      `json:"opponent,omitempty"`
	Players     *ColorPlayers    `json:"players,omitempty"`
	GameState   *wildchess.State `json:"gameState"`
	IsSpectator bool             `json:"isSpectator,omitempty"`
}

type SetupGeneratedMessage struct {
	Type string `json:"type"` // "setupGenerated"
	*wildchess.SetupResult
}

type PiecePlacedMessage struct {
	Type string `json:"type"` // "piecePlaced"
	*wildchess.PlaceResult
}

type SetupFinishedMessage struct {
	Type string `json:"type"` // "setupFinished"
	*wildchess.FinishResult
}

type MoveMadeMessage struct {
	Type string `json:"type"` // "moveMade"
	*wildchess.MoveResult
}

type GameEndedMessage struct {
	Type         string            `json:"type"` // "gameEnded"
	Result       wildchess.GameEnd `json:"result"`
	IsAutoResign bool              `json:"isAutoResign,omitempty"`
}

type DrawRequestedMessage struct {
	Type string     `json:"type"` // "drawRequested"
	From PlayerInfo `json:"from"`
}

type DrawDeclinedMessage struct {
	Type string `json:"type"` // "drawDeclined"
}

type ChatMessage struct {
	Type      string     `json:"type"` // "chatMessage"
	Sender    PlayerInfo `json:"sender"`
	Message   string     `json:"message"`
	Timestamp time.Time  `json:"timestamp"`
}

type PlayerDisconnectedMessage struct {
	Type   string     `json:"type"` // "playerDisconnected"
	Player PlayerInfo `json:"player"`
}

type PlayerReconnectedMessage struct {
	Type   string     `json:"type"` // "playerReconnected"
	Player PlayerInfo `json:"player"`
}

type SpectatingMessage struct {
	Type      string           `json:"type"` // "spectatingGame"
	RoomID    string           `json:"roomId"`
	Players   []PlayerInfo     `json:"players"`
	GameState *wildchess.State `json:"gameState"`
}

type GameStateMessage struct {
	Type      string           `json:"type"` // "gameState"
	GameState *wildchess.State `json:"gameState"`
}

// RoomSummary is one row of the public room listing, also served over
// HTTP.
type RoomSummary struct {
	ID         string    `json:"id"`
	Players    int       `json:"players"`
	Spectators int       `json:"spectators"`
	GamePhase  string    `json:"gamePhase"`
	CreatedAt  time.Time `json:"createdAt"`
}

type RoomListMessage struct {
	Type  string        `json:"type"` // "roomList"
	Rooms []RoomSummary `json:"rooms"`
}

type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Message string `json:"message"`
}
