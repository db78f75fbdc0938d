/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import "errors"

// Session-layer errors. These are distinct from the game's own rule
// errors so a client can tell "your action was illegal" apart from "your
// session is stale". All of them are recovered at the room-manager
// boundary and sent only to the requesting connection.
var (
	errRoomNotFound    = errors.New("room not found")
	errGameNotFound    = errors.New("game has not started in this room")
	errPlayerNotInRoom = errors.New("player not found in room")
	errAlreadyInRoom   = errors.New("already in a room")
	errBadPayload      = errors.New("malformed message payload")
)
