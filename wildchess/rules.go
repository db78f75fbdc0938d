package wildchess

// Move legality. All functions here are stateless and never mutate the
// board they are given; hypothetical positions are probed on copies.

// LegalMove reports whether moving the piece at from to to is permitted
// for color by geometry alone. It does not consider whose turn it is and
// does not test whether the move leaves the mover's own king in check;
// Game.MakeMove and HasLegalMove layer that on top.
func LegalMove(b *Board, from, to Square, color Color) bool {
	if !from.InBounds() || !to.InBounds() {
		return false
	}
	if from == to {
		return false
	}
	piece := b.At(from)
	if piece == nil || piece.Color != color {
		return false
	}
	target := b.At(to)
	if target != nil && target.Color == piece.Color {
		return false
	}
	return pieceGeometry(b, piece, from, to, target)
}

func pieceGeometry(b *Board, piece *Piece, from, to Square, target *Piece) bool {
	rankDiff := to.Rank - from.Rank
	fileDiff := to.File - from.File
	absRank := abs(rankDiff)
	absFile := abs(fileDiff)

	switch piece.Type {
	case Pawn:
		return pawnGeometry(b, piece, from, target, rankDiff, fileDiff)
	case Rook:
		if rankDiff != 0 && fileDiff != 0 {
			return false
		}
		return pathClear(b, from, to)
	case Bishop:
		if absRank != absFile {
			return false
		}
		return pathClear(b, from, to)
	case Queen:
		if rankDiff != 0 && fileDiff != 0 && absRank != absFile {
			return false
		}
		return pathClear(b, from, to)
	case King:
		return absRank <= 1 && absFile <= 1
	case Knight:
		return (absRank == 2 && absFile == 1) || (absRank == 1 && absFile == 2)
	}
	return false
}

// pawnGeometry: forward one onto empty, forward two from the color's
// starting rank with both squares empty, or a one-step diagonal capture.
// Wild Chess pawns are drafted onto ranks 2-7; only those starting on the
// classic second rank keep the double step.
func pawnGeometry(b *Board, piece *Piece, from Square, target *Piece, rankDiff, fileDiff int) bool {
	direction := 1
	startRank := 1
	if piece.Color == Black {
		direction = -1
		startRank = 6
	}

	if fileDiff == 0 {
		if rankDiff == direction && target == nil {
			return true
		}
		if rankDiff == 2*direction && target == nil && from.Rank == startRank {
			between := Square{Rank: from.Rank + direction, File: from.File}
			return b.At(between) == nil
		}
		return false
	}
	return abs(fileDiff) == 1 && rankDiff == direction && target != nil
}

// pathClear reports whether every square strictly between from and to is
// empty. from and to must share a rank, file, or diagonal.
func pathClear(b *Board, from, to Square) bool {
	rankStep := sign(to.Rank - from.Rank)
	fileStep := sign(to.File - from.File)

	cur := Square{Rank: from.Rank + rankStep, File: from.File + fileStep}
	for cur != to {
		if b.At(cur) != nil {
			return false
		}
		cur.Rank += rankStep
		cur.File += fileStep
	}
	return true
}

// InCheck reports whether color's king is attacked. A color with no king
// on the board is never reported as in check.
func InCheck(b *Board, color Color) bool {
	king, ok := b.FindKing(color)
	if !ok {
		return false
	}
	return attacked(b, king, color.Opponent())
}

// attacked reports whether any piece of byColor has a geometric move onto sq.
func attacked(b *Board, sq Square, byColor Color) bool {
	for rank := 0; rank < 8; rank++ {
		for file := 0; file < 8; file++ {
			from := Square{Rank: rank, File: file}
			p := b.At(from)
			if p == nil || p.Color != byColor {
				continue
			}
			if pieceGeometry(b, p, from, sq, b.At(sq)) {
				return true
			}
		}
	}
	return false
}

// HasLegalMove reports whether color has at least one move that passes
// geometry and does not leave its own king in check afterwards.
func HasLegalMove(b *Board, color Color) bool {
	for fromRank := 0; fromRank < 8; fromRank++ {
		for fromFile := 0; fromFile < 8; fromFile++ {
			from := Square{Rank: fromRank, File: fromFile}
			p := b.At(from)
			if p == nil || p.Color != color {
				continue
			}
			for toRank := 0; toRank < 8; toRank++ {
				for toFile := 0; toFile < 8; toFile++ {
					to := Square{Rank: toRank, File: toFile}
					if !LegalMove(b, from, to, color) {
						continue
					}
					if !InCheck(b.applied(from, to), color) {
						return true
					}
				}
			}
		}
	}
	return false
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	}
	return 0
}
