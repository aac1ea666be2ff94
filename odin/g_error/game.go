package g_error

import "errors"

// 返回给出牌玩家的错误，Error()即展示给玩家的文字
var (
	ErrInvalidName       = errors.New("invalid name")
	ErrAlreadyJoined     = errors.New("already joined")
	ErrPartyFull         = errors.New("party is full")
	ErrPartyNotFound     = errors.New("party not found")
	ErrNotYourTurn       = errors.New("not your turn")
	ErrRoundNotInPlay    = errors.New("round not in progress")
	ErrCardsNotOwned     = errors.New("cards not owned")
	ErrMustPlayFirstTurn = errors.New("you must play at least one card on the first turn")
	ErrFirstTurnMulti    = errors.New("play one card on the first turn, or your whole hand if it shares a rank or a category")
	ErrCardCount         = errors.New("wrong number of cards")
	ErrMixedCombination  = errors.New("cards played together must share a rank or a category")
	ErrValueTooLow       = errors.New("value too low")
	ErrPickupPending     = errors.New("pick a card from the discard pile first")
	ErrNoPickupPending   = errors.New("no pickup pending")
	ErrCardNotInPile     = errors.New("card not in pile")
)
