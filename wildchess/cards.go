package wildchess

import (
	"math/rand"
	"time"
)

// Cards records which labels were drawn during the draft, in draw order.
type Cards struct {
	Pawn  []string `json:"pawn"`
	Piece []string `json:"piece"`
}

// Setup is the product of one draft: a board populated with pawns,
// bishops, knights and rooks for both sides, and the cards that put them
// there. Queens and kings are never drafted; they are placed manually
// afterwards, so the board always has empty squares left for them.
type Setup struct {
	Board *Board
	Cards Cards
}

var files = [8]byte{'A', 'B', 'C', 'D', 'E', 'F', 'G', 'H'}

// smallDeck holds the 16 labels of ranks 1 and 8.
func smallDeck() []string {
	deck := make([]string, 0, 16)
	for _, f := range files {
		deck = append(deck, string(f)+"1")
		deck = append(deck, string(f)+"8")
	}
	return deck
}

// largeDeck holds the 48 labels of ranks 2 through 7.
func largeDeck() []string {
	deck := make([]string, 0, 48)
	for rank := 2; rank <= 7; rank++ {
		for _, f := range files {
			deck = append(deck, string(f)+string('0'+byte(rank)))
		}
	}
	return deck
}

// shuffle returns a Fisher-Yates permuted copy of cards.
func shuffle(rng *rand.Rand, cards []string) []string {
	shuffled := make([]string, len(cards))
	copy(shuffled, cards)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled
}

// pieceOrder cycles through the drafted piece types; three cards per side
// yields one of each.
var pieceOrder = [3]PieceType{Bishop, Knight, Rook}

// DrawSetup runs one draft with a time-seeded source.
func DrawSetup() Setup {
	return DrawSetupWith(rand.New(rand.NewSource(time.Now().UnixNano())))
}

// DrawSetupWith runs one draft using the given randomness source.
//
// The first 8 cards of the shuffled large deck place pawns, first four
// white then four black; large-deck labels always sit on ranks 2-7, so
// every draw lands. The unused 40 large cards and the 16 small cards are
// reshuffled into one pool and drawn for pieces, skipping labels whose
// square a pawn already holds, until six have been placed. The pool always
// has at least 40 free squares, so each side ends the draft with exactly
// 4 pawns, 2 bishops, 2 knights and 2 rooks.
func DrawSetupWith(rng *rand.Rand) Setup {
	shuffledLarge := shuffle(rng, largeDeck())

	board := &Board{}
	pawnCards := shuffledLarge[:8]
	for i, label := range pawnCards {
		sq, _ := ParseLabel(label)
		color := White
		if i >= 4 {
			color = Black
		}
		board.set(sq, &Piece{Type: Pawn, Color: color})
	}

	pool := append(shuffledLarge[8:], smallDeck()...)
	pool = shuffle(rng, pool)

	pieceCards := make([]string, 0, 6)
	for _, label := range pool {
		if len(pieceCards) == 6 {
			break
		}
		sq, _ := ParseLabel(label)
		if board.At(sq) != nil {
			continue
		}
		color := White
		if len(pieceCards) >= 3 {
			color = Black
		}
		board.set(sq, &Piece{Type: pieceOrder[len(pieceCards)%3], Color: color})
		pieceCards = append(pieceCards, label)
	}

	return Setup{
		Board: board,
		Cards: Cards{
			Pawn:  pawnCards,
			Piece: pieceCards,
		},
	}
}
