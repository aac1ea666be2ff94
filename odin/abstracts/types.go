package abstracts

import (
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	// c - s
	MsgTypeJoin = 0x10
	// c - s
	MsgTypePlayCards = 0x11
	// c - s
	MsgTypePickFromDiscard = 0x12
	// c - s
	MsgTypeSortHand = 0x13
	// c - s
	MsgTypeScene = 0x14

	// s - c
	MsgTypeWaitingForPlayers = 0x20
	// s - c
	MsgTypeInvalidInput = 0x21
	// s - c
	MsgTypeHand = 0x22
	// s - c
	MsgTypeYourTurn = 0x23
	// s - c
	MsgTypeOtherTurn = 0x24
	// s - c
	MsgTypeMoveAccepted = 0x25
	// s - c
	MsgTypeChooseFromDiscard = 0x26
	// s - c
	MsgTypeRoundSummary = 0x27
	// s - c
	MsgTypeMatchSummary = 0x28
	// s - c
	MsgTypePeerDisconnected = 0x29
	// s - c
	MsgTypePlayerError = 0x2a
	// s - c
	MsgTypePartyScene = 0x2b
)

// 牌面的值，客户端可能传数字也可能传字符串
// 数字向零截断，字符串只取开头的整数部分，"3.0"和3.0都是3
// 解析不了的值当作不存在的牌(0)，由上层拒绝
type FlexRank int

func (r *FlexRank) UnmarshalJSON(b []byte) error {
	*r = 0
	s := strings.TrimSpace(string(b))
	if !strings.HasPrefix(s, `"`) {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f > math.MaxInt32 || f < math.MinInt32 {
			return nil
		}
		*r = FlexRank(int(f))
		return nil
	}
	str, err := strconv.Unquote(s)
	if err != nil {
		return nil
	}
	if n, ok := leadingInt(strings.TrimSpace(str)); ok {
		*r = FlexRank(n)
	}
	return nil
}

// 可选的正负号加上连续的数字
func leadingInt(s string) (int, bool) {
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

type CardMsg struct {
	Rank     FlexRank `json:"rank"`
	Category string   `json:"category"`
}

type JoinReq struct {
	Name string `json:"name"`
}

type PlayCardsReq struct {
	Cards []CardMsg `json:"cards"`
}

type PickFromDiscardReq struct {
	Card CardMsg `json:"card"`
}

type SortHandReq struct {
	ByCategory bool `json:"by_category"`
}

type InfoResp struct {
	Message string `json:"message"`
}

type EmptyResp struct{}

type CardScene struct {
	Rank     int    `json:"rank"`
	Category string `json:"category"`
}

type OpponentScene struct {
	Name      string `json:"name"`
	CardCount int    `json:"card_count"`
	IsCurrent bool   `json:"is_current"`
}

// yourTurn 和 otherTurn 共用
type TurnResp struct {
	Message     string           `json:"message"`
	DiscardPile []*CardScene     `json:"discard_pile"`
	Opponents   []*OpponentScene `json:"opponents"`
}

type PlayerRoundScene struct {
	Name           string `json:"name"`
	CardsRemaining int    `json:"cards_remaining"`
	TotalScore     int    `json:"total_score"`
}

type CardCountScene struct {
	Name      string `json:"name"`
	CardCount int    `json:"card_count"`
}

type RoundSummaryResp struct {
	PerPlayer          []*PlayerRoundScene `json:"per_player"`
	RoundNumber        int                 `json:"round_number"`
	OpponentCardCounts []*CardCountScene   `json:"opponent_card_counts"`
	RoundLimit         int                 `json:"round_limit"`
}

type StandingScene struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

type MatchSummaryResp struct {
	WinnerName  string           `json:"winner_name"`
	WinnerNames []string         `json:"winner_names"`
	Standings   []*StandingScene `json:"standings"`
}

const (
	PhaseWaiting   = "waiting"
	PhasePlaying   = "playing"
	PhaseRoundOver = "round_over"
	PhaseMatchOver = "match_over"
	PhaseDisposed  = "disposed"
)

/*
当前party的快照
1. 自己的手牌
1. 弃牌堆、等待拿牌的状态
1. 每个位置的名字、手牌数、分数、是否当前出牌
*/
type PartyScene struct {
	PartyID        int64            `json:"party_id"`
	Phase          string           `json:"phase"`
	Seat           int              `json:"seat"`
	CurrentTurn    int              `json:"current_turn"`
	FirstTurn      bool             `json:"first_turn"`
	RoundsComplete int              `json:"rounds_completed"`
	RoundLimit     int              `json:"round_limit"`
	PickupPending  bool             `json:"pickup_pending"`
	Hand           []*CardScene     `json:"hand"`
	DiscardPile    []*CardScene     `json:"discard_pile"`
	Players        []*StandingScene `json:"players"`
	Opponents      []*OpponentScene `json:"opponents"`
}

// 存档用，一局结束写一条
type RoundRecord struct {
	PartyID     int64               `json:"party_id" bson:"party_id"`
	RoundNumber int                 `json:"round_number" bson:"round_number"`
	Players     []*PlayerRoundScene `json:"players" bson:"players"`
	FinishedAt  time.Time           `json:"finished_at" bson:"finished_at"`
}

// 存档用，整场结束写一条
type MatchRecord struct {
	PartyID     int64            `json:"party_id" bson:"party_id"`
	Rounds      int              `json:"rounds" bson:"rounds"`
	WinnerNames []string         `json:"winner_names" bson:"winner_names"`
	PlayerNames []string         `json:"player_names" bson:"player_names"`
	Standings   []*StandingScene `json:"standings" bson:"standings"`
	FinishedAt  time.Time        `json:"finished_at" bson:"finished_at"`
}
