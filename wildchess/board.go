// Package wildchess implements the rules of Wild Chess: a chess variant
// whose starting position comes from a randomized card draft plus manual
// placement of both queens and both kings. There is no castling and no
// en passant, and pawns reaching the far rank always promote to a queen.
package wildchess

import "fmt"

type Color string

const (
	White Color = "white"
	Black Color = "black"
)

func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

type PieceType string

const (
	Pawn   PieceType = "pawn"
	Knight PieceType = "knight"
	Bishop PieceType = "bishop"
	Rook   PieceType = "rook"
	Queen  PieceType = "queen"
	King   PieceType = "king"
)

// Piece is an immutable value; captures and promotions replace it wholesale.
type Piece struct {
	Type  PieceType `json:"type"`
	Color Color     `json:"color"`
}

// Square addresses a board cell. Rank 0 is white's home edge, file 0 is
// the A file.
type Square struct {
	Rank int `json:"rank"`
	File int `json:"file"`
}

func (s Square) InBounds() bool {
	return s.Rank >= 0 && s.Rank < 8 && s.File >= 0 && s.File < 8
}

// Label renders the square as a card label such as "E4".
func (s Square) Label() string {
	return fmt.Sprintf("%c%d", 'A'+s.File, s.Rank+1)
}

// ParseLabel converts a card label ("A1".."H8") back to a square.
func ParseLabel(label string) (Square, error) {
	if len(label) != 2 {
		return Square{}, fmt.Errorf("invalid square label %q", label)
	}
	sq := Square{
		Rank: int(label[1] - '1'),
		File: int(label[0] - 'A'),
	}
	if !sq.InBounds() {
		return Square{}, fmt.Errorf("square label %q out of bounds", label)
	}
	return sq, nil
}

// Board is an 8x8 grid of optional pieces, indexed [rank][file].
type Board [8][8]*Piece

func (b *Board) At(sq Square) *Piece {
	return b[sq.Rank][sq.File]
}

func (b *Board) set(sq Square, p *Piece) {
	b[sq.Rank][sq.File] = p
}

// Clone returns an independent copy. Pieces themselves are immutable, so
// sharing the pointed-to values is safe; only the grid is duplicated.
func (b *Board) Clone() *Board {
	nb := *b
	return &nb
}

// FindKing locates the king of the given color.
func (b *Board) FindKing(color Color) (Square, bool) {
	for rank := 0; rank < 8; rank++ {
		for file := 0; file < 8; file++ {
			p := b[rank][file]
			if p != nil && p.Type == King && p.Color == color {
				return Square{Rank: rank, File: file}, true
			}
		}
	}
	return Square{}, false
}

// applied returns a copy of the board with the piece at from relocated to
// to, used for probing hypothetical moves without touching the original.
func (b *Board) applied(from, to Square) *Board {
	nb := b.Clone()
	nb.set(to, nb.At(from))
	nb.set(from, nil)
	return nb
}
