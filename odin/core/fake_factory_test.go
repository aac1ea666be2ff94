package core

import (
	"math/rand"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/LeaguesOfHoleHoleShoes/Odin/odin/abstracts"
)

type sentMsg struct {
	playerID string
	msgType  int
	msg      interface{}
}

// 记录所有发出的消息
type fakeMsgSender struct {
	mu   sync.Mutex
	msgs []sentMsg
}

func (s *fakeMsgSender) SendMsg(playerID string, msgType int, msg interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, sentMsg{playerID: playerID, msgType: msgType, msg: msg})
}

func (s *fakeMsgSender) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = nil
}

func (s *fakeMsgSender) all() []sentMsg {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentMsg{}, s.msgs...)
}

func (s *fakeMsgSender) to(playerID string) []sentMsg {
	var result []sentMsg
	for _, m := range s.all() {
		if m.playerID == playerID {
			result = append(result, m)
		}
	}
	return result
}

func (s *fakeMsgSender) typesTo(playerID string) []int {
	var result []int
	for _, m := range s.to(playerID) {
		result = append(result, m.msgType)
	}
	return result
}

// 最近一条某类型的消息，没有则为nil
func (s *fakeMsgSender) lastTo(playerID string, msgType int) interface{} {
	msgs := s.to(playerID)
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].msgType == msgType {
			return msgs[i].msg
		}
	}
	return nil
}

func (s *fakeMsgSender) countOf(msgType int) int {
	count := 0
	for _, m := range s.all() {
		if m.msgType == msgType {
			count++
		}
	}
	return count
}

type fakeRecorder struct {
	mu      sync.Mutex
	rounds  []abstracts.RoundRecord
	matches []abstracts.MatchRecord
}

func (r *fakeRecorder) SaveRound(rr abstracts.RoundRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rounds = append(r.rounds, rr)
	return nil
}

func (r *fakeRecorder) SaveMatch(mr abstracts.MatchRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matches = append(r.matches, mr)
	return nil
}

func (r *fakeRecorder) roundCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rounds)
}

func (r *fakeRecorder) matchList() []abstracts.MatchRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]abstracts.MatchRecord{}, r.matches...)
}

var testNames = []string{"alice", "bob", "carol"}

// 不会自己触发的延时
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RoundRestartDelay = time.Hour
	cfg.DisposeDelay = time.Hour
	return cfg
}

type testParty struct {
	*Party
	sender   *fakeMsgSender
	recorder *fakeRecorder

	disposedMu sync.Mutex
	disposed   []int64
}

func (tp *testParty) disposedIDs() []int64 {
	tp.disposedMu.Lock()
	defer tp.disposedMu.Unlock()
	return append([]int64{}, tp.disposed...)
}

func newTestParty(t *testing.T, cfg Config) *testParty {
	tp := &testParty{sender: &fakeMsgSender{}, recorder: &fakeRecorder{}}
	tp.Party = NewParty(1, cfg, rand.New(rand.NewSource(7)), tp.recorder, func(id int64) {
		tp.disposedMu.Lock()
		defer tp.disposedMu.Unlock()
		tp.disposed = append(tp.disposed, id)
	})
	require.NoError(t, tp.Start())
	t.Cleanup(tp.Close)
	return tp
}

// 坐满三人，开局消息清掉
func newFullTestParty(t *testing.T, cfg Config) *testParty {
	tp := newTestParty(t, cfg)
	for i := 0; i < cfg.PlayerCount; i++ {
		seat, err := tp.Seat(NewPlayer(playerID(i), testNames[i], tp.sender))
		require.NoError(t, err)
		require.Equal(t, i, seat)
	}
	tp.sender.reset()
	return tp
}

func playerID(seat int) string {
	return "p" + strconv.Itoa(seat)
}

/*
在loop空闲时直接改party的状态，把牌局摆成想要的样子
调用方必须保证此时没有延时动作会触发
*/
func (p *Party) setupRound(turn int, hands ...[]Card) {
	for i, h := range hands {
		p.players[i].hand.Clear()
		p.players[i].hand.AddMany(h)
	}
	p.phase = abstracts.PhasePlaying
	p.curTurn = turn
	p.lastActive = turn
	p.firstTurn = true
	p.discard = nil
	p.awaitingPickup = nil
	p.consecutivePasses = 0
}

func cardMsgs(cards ...Card) []abstracts.CardMsg {
	result := make([]abstracts.CardMsg, len(cards))
	for i, c := range cards {
		result[i] = abstracts.CardMsg{Rank: abstracts.FlexRank(c.Rank), Category: string(c.Category)}
	}
	return result
}

func cardMsg(c Card) abstracts.CardMsg {
	return cardMsgs(c)[0]
}

func sceneCards(cards []*abstracts.CardScene) []Card {
	result := make([]Card, len(cards))
	for i, c := range cards {
		result[i] = Card{Rank: c.Rank, Category: Category(c.Category)}
	}
	return result
}
