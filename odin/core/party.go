package core

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/LeaguesOfHoleHoleShoes/Odin/common/log"
	"github.com/LeaguesOfHoleHoleShoes/Odin/common/metrics"
	"github.com/LeaguesOfHoleHoleShoes/Odin/odin/abstracts"
	"github.com/LeaguesOfHoleHoleShoes/Odin/odin/g_error"
)

// 多人同分时的winner name
const TieWinnerName = "tie"

func NewParty(id int64, cfg Config, rnd Rand, recorder abstracts.MatchRecorder, onDisposed func(id int64)) *Party {
	if recorder == nil {
		recorder = abstracts.NopRecorder{}
	}
	return &Party{
		id: id, cfg: cfg, rnd: rnd, recorder: recorder, onDisposed: onDisposed,
		phase:       abstracts.PhaseWaiting,
		curTurn:     -1,
		lastActive:  -1,
		timer:       newPartyTimer(),
		seatChan:    make(chan seatMsg, 1),
		playChan:    make(chan playMsg, 1),
		pickChan:    make(chan pickMsg, 1),
		sortChan:    make(chan sortMsg, 1),
		sceneChan:   make(chan sceneMsg, 1),
		disconnChan: make(chan withSeatMsg, 1),
		closeChan:   make(chan withSeatMsg, 1),
		done:        make(chan struct{}),
	}
}

/*

一个party就是一场比赛，三人坐满后开始，打满RoundLimit局后结束并销毁

所有状态只在loop协程里读写，外部调用都通过chan投递事件并等待结果
1. 坐下，坐满即发牌开局
1. 出牌（空为pass）、从弃牌堆拿牌
1. 一局结束后计分，延时开下一局；打满后公布结果，延时销毁
1. 有人断线则通知其他人并立即销毁

*/
type Party struct {
	id       int64
	cfg      Config
	rnd      Rand
	recorder abstracts.MatchRecorder
	// loop退出后调用，此时party已经不会再处理任何事件
	onDisposed func(id int64)

	players []*Player
	phase   string
	// 当前该谁出牌，未开局为-1
	curTurn   int
	firstTurn bool
	discard   []Card
	// 刚出的牌，等出牌人从旧弃牌堆里拿一张后才成为新的弃牌堆，nil为没有
	awaitingPickup    []Card
	consecutivePasses int
	// 最近一个出过牌的人，一轮都pass后由他重新开始
	lastActive      int
	roundsCompleted int

	timer *partyTimer

	started     bool
	seatChan    chan seatMsg
	playChan    chan playMsg
	pickChan    chan pickMsg
	sortChan    chan sortMsg
	sceneChan   chan sceneMsg
	disconnChan chan withSeatMsg
	closeChan   chan withSeatMsg
	done        chan struct{}
}

type seatMsg struct {
	player     *Player
	resultChan chan seatResult
}

type seatResult struct {
	seat int
	err  error
}

type playMsg struct {
	seat       int
	cards      []abstracts.CardMsg
	resultChan chan error
}

type pickMsg struct {
	seat       int
	card       abstracts.CardMsg
	resultChan chan error
}

type sortMsg struct {
	seat       int
	byCategory bool
	resultChan chan error
}

type sceneMsg struct {
	seat       int
	resultChan chan sceneResult
}

type sceneResult struct {
	scene *abstracts.PartyScene
	err   error
}

type withSeatMsg struct {
	seat       int
	resultChan chan error
}

func (p *Party) ID() int64 {
	return p.id
}

// 只能由创建者调用一次
func (p *Party) Start() error {
	if p.started {
		return errors.New("already started")
	}
	p.started = true
	go p.loop()
	return nil
}

// party销毁后关闭
func (p *Party) Done() <-chan struct{} {
	return p.done
}

func (p *Party) loop() {
	defer func() {
		p.timer.Stop()
		if p.onDisposed != nil {
			p.onDisposed(p.id)
		}
	}()

	for {
		select {
		case msg := <-p.seatChan:
			p.doSeat(msg)
		case msg := <-p.playChan:
			p.doPlay(msg)
		case msg := <-p.pickChan:
			p.doPick(msg)
		case msg := <-p.sortChan:
			p.doSortHand(msg)
		case msg := <-p.sceneChan:
			p.doGetScene(msg)
		case msg := <-p.disconnChan:
			p.doDisconnect(msg)
		case msg := <-p.closeChan:
			p.dispose("closed")
			msg.resultChan <- nil
		case info := <-p.timer.timeoutChan:
			p.onTimeout(info)
		}

		if p.phase == abstracts.PhaseDisposed {
			return
		}
	}
}

// 结果先于done写入，所以done关闭后还要再看一眼结果
func waitResult[T any](p *Party, resultChan chan T, closed T) T {
	select {
	case r := <-resultChan:
		return r
	case <-p.done:
		select {
		case r := <-resultChan:
			return r
		default:
			return closed
		}
	}
}

func (p *Party) Seat(player *Player) (int, error) {
	result := make(chan seatResult, 1)
	select {
	case p.seatChan <- seatMsg{player: player, resultChan: result}:
	case <-p.done:
		return -1, g_error.ErrPartyNotFound
	}
	r := waitResult(p, result, seatResult{seat: -1, err: g_error.ErrPartyNotFound})
	return r.seat, r.err
}

// cards为空即pass
func (p *Party) Play(seat int, cards []abstracts.CardMsg) error {
	result := make(chan error, 1)
	select {
	case p.playChan <- playMsg{seat: seat, cards: cards, resultChan: result}:
	case <-p.done:
		return g_error.ErrPartyNotFound
	}
	return waitResult(p, result, g_error.ErrPartyNotFound)
}

func (p *Party) Pick(seat int, card abstracts.CardMsg) error {
	result := make(chan error, 1)
	select {
	case p.pickChan <- pickMsg{seat: seat, card: card, resultChan: result}:
	case <-p.done:
		return g_error.ErrPartyNotFound
	}
	return waitResult(p, result, g_error.ErrPartyNotFound)
}

func (p *Party) SortHand(seat int, byCategory bool) error {
	result := make(chan error, 1)
	select {
	case p.sortChan <- sortMsg{seat: seat, byCategory: byCategory, resultChan: result}:
	case <-p.done:
		return g_error.ErrPartyNotFound
	}
	return waitResult(p, result, g_error.ErrPartyNotFound)
}

func (p *Party) Scene(seat int) (*abstracts.PartyScene, error) {
	result := make(chan sceneResult, 1)
	select {
	case p.sceneChan <- sceneMsg{seat: seat, resultChan: result}:
	case <-p.done:
		return nil, g_error.ErrPartyNotFound
	}
	r := waitResult(p, result, sceneResult{err: g_error.ErrPartyNotFound})
	return r.scene, r.err
}

// 座位上的玩家断线，party随之销毁
func (p *Party) Disconnect(seat int) error {
	result := make(chan error, 1)
	select {
	case p.disconnChan <- withSeatMsg{seat: seat, resultChan: result}:
	case <-p.done:
		return g_error.ErrPartyNotFound
	}
	return waitResult(p, result, g_error.ErrPartyNotFound)
}

// 不通知玩家直接销毁，用于进程退出
func (p *Party) Close() {
	result := make(chan error, 1)
	select {
	case p.closeChan <- withSeatMsg{seat: -1, resultChan: result}:
	case <-p.done:
		return
	}
	waitResult(p, result, error(nil))
}

func (p *Party) player(seat int) *Player {
	if seat < 0 || seat >= len(p.players) {
		return nil
	}
	return p.players[seat]
}

func (p *Party) doSeat(msg seatMsg) {
	if p.phase != abstracts.PhaseWaiting || len(p.players) >= p.cfg.PlayerCount {
		msg.resultChan <- seatResult{seat: -1, err: g_error.ErrPartyFull}
		return
	}

	p.players = append(p.players, msg.player)
	seat := len(p.players) - 1
	log.L.Info("player seated", zap.Int64("party", p.id), zap.Int("seat", seat), zap.String("uid", msg.player.ID()), zap.String("name", msg.player.Name()))

	if len(p.players) < p.cfg.PlayerCount {
		msg.player.sendInfo(abstracts.MsgTypeWaitingForPlayers, "Waiting for other players")
	} else {
		p.startMatch()
	}
	msg.resultChan <- seatResult{seat: seat}
}

func (p *Party) startMatch() {
	log.L.Info("party full, match starts", zap.Int64("party", p.id))
	p.deal()
	p.curTurn = p.rnd.Intn(p.cfg.PlayerCount)
	p.lastActive = p.curTurn
	p.notifyTurn("Match starts, you begin.", "Match starts. Waiting for %s.")
}

// 新的一局：重新洗牌发牌并清空桌面，不动分数
func (p *Party) deal() {
	p.assertFull()
	deck := Shuffle(NewDeck(p.cfg), p.rnd)
	hands := Deal(deck, p.cfg.PlayerCount, p.cfg.HandSize)
	for i, pl := range p.players {
		pl.hand.Clear()
		pl.hand.AddMany(hands[i])
		pl.pushHand()
	}
	p.discard = nil
	p.awaitingPickup = nil
	p.firstTurn = true
	p.consecutivePasses = 0
	p.phase = abstracts.PhasePlaying
}

func (p *Party) assertFull() {
	if len(p.players) != p.cfg.PlayerCount {
		panic(fmt.Sprintf("party %v has %v players, need %v", p.id, len(p.players), p.cfg.PlayerCount))
	}
}

func (p *Party) opponentScenes() []*abstracts.OpponentScene {
	result := make([]*abstracts.OpponentScene, len(p.players))
	for i, pl := range p.players {
		result[i] = &abstracts.OpponentScene{Name: pl.Name(), CardCount: pl.CardCount(), IsCurrent: i == p.curTurn}
	}
	return result
}

// otherMsg里的%s是当前出牌人的名字
func (p *Party) notifyTurn(yourMsg string, otherMsg string) {
	if p.curTurn < 0 || p.curTurn >= len(p.players) {
		panic(fmt.Sprintf("party %v turn index out of range: %v", p.id, p.curTurn))
	}
	cur := p.players[p.curTurn]
	discard := toCardScenes(p.discard)
	opponents := p.opponentScenes()
	for i, pl := range p.players {
		if i == p.curTurn {
			pl.send(abstracts.MsgTypeYourTurn, abstracts.TurnResp{Message: yourMsg, DiscardPile: discard, Opponents: opponents})
		} else {
			pl.send(abstracts.MsgTypeOtherTurn, abstracts.TurnResp{Message: fmt.Sprintf(otherMsg, cur.Name()), DiscardPile: discard, Opponents: opponents})
		}
	}
}

func (p *Party) advanceTurn() {
	p.assertFull()
	p.curTurn = (p.curTurn + 1) % p.cfg.PlayerCount
	p.notifyTurn("It's your turn.", "Waiting for %s to play.")
}

// 除了最后出牌的人都pass了，清空弃牌堆由他重新开始
func (p *Party) endTurnCycle() {
	log.L.Debug("turn cycle ended", zap.Int64("party", p.id), zap.Int("last active", p.lastActive))
	p.discard = nil
	p.consecutivePasses = 0
	p.curTurn = p.lastActive
	p.firstTurn = true
	p.notifyTurn("New turn! Play 1 card.", "New turn. Waiting for %s.")
}

// 拒绝时只通知出错的玩家，状态不变
func (p *Party) reject(seat int, err error) {
	log.L.Debug("move rejected", zap.Int64("party", p.id), zap.Int("seat", seat), zap.Error(err))
	if pl := p.player(seat); pl != nil {
		pl.sendInfo(abstracts.MsgTypePlayerError, err.Error())
	}
}

func (p *Party) doPlay(msg playMsg) {
	kind := metrics.MoveKindPlay
	if len(msg.cards) == 0 {
		kind = metrics.MoveKindPass
	}
	err := p.play(msg.seat, cardsFromMsg(msg.cards))
	metrics.ObserveMove(kind, err)
	if err != nil {
		p.reject(msg.seat, err)
	}
	msg.resultChan <- err
}

func (p *Party) play(seat int, cards []Card) error {
	pl := p.player(seat)
	if pl == nil {
		return g_error.ErrPartyNotFound
	}
	if p.phase != abstracts.PhasePlaying {
		return g_error.ErrRoundNotInPlay
	}
	if seat != p.curTurn {
		return g_error.ErrNotYourTurn
	}
	if p.awaitingPickup != nil {
		return g_error.ErrPickupPending
	}
	for _, c := range cards {
		if !validCard(p.cfg, c) {
			return g_error.ErrCardsNotOwned
		}
	}
	if !pl.hand.Contains(cards) {
		return g_error.ErrCardsNotOwned
	}

	switch {
	case len(cards) == 0:
		return p.pass()
	case p.firstTurn:
		return p.playFirstTurn(seat, cards)
	default:
		return p.playNormal(seat, cards)
	}
}

func (p *Party) pass() error {
	if p.firstTurn {
		return g_error.ErrMustPlayFirstTurn
	}
	p.consecutivePasses++
	if p.consecutivePasses >= p.cfg.PlayerCount-1 {
		p.endTurnCycle()
		return nil
	}
	p.advanceTurn()
	return nil
}

// 轮首可以出一张，或者一次出完整手同值/同类别的牌
func (p *Party) playFirstTurn(seat int, cards []Card) error {
	pl := p.players[seat]
	if len(cards) > 1 {
		if len(cards) != pl.hand.Size() {
			return g_error.ErrFirstTurnMulti
		}
		if !sameRankOrCategory(cards) {
			return g_error.ErrMixedCombination
		}
	}

	pl.removeCards(cards)
	pl.pushHand()
	p.discard = cards
	p.firstTurn = false
	pl.send(abstracts.MsgTypeMoveAccepted, abstracts.EmptyResp{})

	if pl.hand.Size() == 0 {
		p.endRound()
		return nil
	}
	p.consecutivePasses = 0
	p.lastActive = seat
	p.advanceTurn()
	return nil
}

// 出和弃牌堆一样多或多一张的牌，值必须更大；没出完则先从旧弃牌堆里拿一张
func (p *Party) playNormal(seat int, cards []Card) error {
	pl := p.players[seat]
	n := len(p.discard)
	if len(cards) != n && len(cards) != n+1 {
		return fmt.Errorf("%w: play %d or %d cards", g_error.ErrCardCount, n, n+1)
	}
	if !sameRankOrCategory(cards) {
		return g_error.ErrMixedCombination
	}
	if comparisonKey(cards) <= comparisonKey(p.discard) {
		return g_error.ErrValueTooLow
	}

	pl.removeCards(cards)
	pl.pushHand()
	p.consecutivePasses = 0
	p.lastActive = seat

	if pl.hand.Size() == 0 {
		p.discard = cards
		pl.send(abstracts.MsgTypeMoveAccepted, abstracts.EmptyResp{})
		p.endRound()
		return nil
	}

	p.awaitingPickup = cards
	pl.send(abstracts.MsgTypeMoveAccepted, abstracts.EmptyResp{})
	pl.send(abstracts.MsgTypeChooseFromDiscard, toCardScenes(p.discard))
	return nil
}

func (p *Party) doPick(msg pickMsg) {
	err := p.pick(msg.seat, cardFromMsg(msg.card))
	metrics.ObserveMove(metrics.MoveKindPick, err)
	if err != nil {
		p.reject(msg.seat, err)
	}
	msg.resultChan <- err
}

// 拿走一张后，旧弃牌堆剩下的牌离场，刚出的牌成为新的弃牌堆
func (p *Party) pick(seat int, card Card) error {
	pl := p.player(seat)
	if pl == nil {
		return g_error.ErrPartyNotFound
	}
	if p.phase != abstracts.PhasePlaying {
		return g_error.ErrRoundNotInPlay
	}
	if seat != p.curTurn {
		return g_error.ErrNotYourTurn
	}
	if p.awaitingPickup == nil {
		return g_error.ErrNoPickupPending
	}
	found := false
	for _, c := range p.discard {
		if c == card {
			found = true
			break
		}
	}
	if !found {
		return g_error.ErrCardNotInPile
	}

	pl.hand.Add(card)
	pl.pushHand()
	p.discard = p.awaitingPickup
	p.awaitingPickup = nil
	p.advanceTurn()
	return nil
}

func (p *Party) endRound() {
	p.phase = abstracts.PhaseRoundOver
	roundNumber := p.roundsCompleted + 1

	perPlayer := make([]*abstracts.PlayerRoundScene, len(p.players))
	counts := make([]*abstracts.CardCountScene, len(p.players))
	for i, pl := range p.players {
		remaining := pl.CardCount()
		pl.score += remaining
		perPlayer[i] = &abstracts.PlayerRoundScene{Name: pl.Name(), CardsRemaining: remaining, TotalScore: pl.Score()}
		counts[i] = &abstracts.CardCountScene{Name: pl.Name(), CardCount: remaining}
		log.L.Info("round result", zap.Int64("party", p.id), zap.Int("round", roundNumber), zap.String("name", pl.Name()), zap.Int("remaining", remaining), zap.Int("score", pl.Score()))
	}

	summary := abstracts.RoundSummaryResp{PerPlayer: perPlayer, RoundNumber: roundNumber, OpponentCardCounts: counts, RoundLimit: p.cfg.RoundLimit}
	for _, pl := range p.players {
		pl.send(abstracts.MsgTypeRoundSummary, summary)
	}

	p.roundsCompleted++
	metrics.RoundsCompleted.Inc()
	p.saveRound(abstracts.RoundRecord{PartyID: p.id, RoundNumber: roundNumber, Players: perPlayer, FinishedAt: time.Now()})

	if p.roundsCompleted >= p.cfg.RoundLimit {
		p.endMatch()
		return
	}
	p.timer.Set(p.cfg.RoundRestartDelay, timeoutInfo{action: timerActionRestartRound, round: p.roundsCompleted})
}

// 上一局持有出牌权的人的下家先出
func (p *Party) restartRound() {
	log.L.Info("round starts", zap.Int64("party", p.id), zap.Int("round", p.roundsCompleted+1))
	p.deal()
	p.curTurn = (p.curTurn + 1) % p.cfg.PlayerCount
	p.lastActive = p.curTurn
	p.notifyTurn("New round! You start. Play 1 card.", "New round. Waiting for %s.")
}

func (p *Party) endMatch() {
	p.phase = abstracts.PhaseMatchOver

	minScore := p.players[0].Score()
	for _, pl := range p.players[1:] {
		if pl.Score() < minScore {
			minScore = pl.Score()
		}
	}
	var winners, names []string
	standings := make([]*abstracts.StandingScene, len(p.players))
	for i, pl := range p.players {
		names = append(names, pl.Name())
		if pl.Score() == minScore {
			winners = append(winners, pl.Name())
		}
		standings[i] = &abstracts.StandingScene{Name: pl.Name(), Score: pl.Score()}
	}
	sort.SliceStable(standings, func(i, j int) bool { return standings[i].Score < standings[j].Score })

	winnerName := winners[0]
	outcome := "single"
	if len(winners) > 1 {
		winnerName = TieWinnerName
		outcome = TieWinnerName
	}
	log.L.Info("match over", zap.Int64("party", p.id), zap.Strings("winners", winners), zap.Int("score", minScore))

	summary := abstracts.MatchSummaryResp{WinnerName: winnerName, WinnerNames: winners, Standings: standings}
	for _, pl := range p.players {
		pl.send(abstracts.MsgTypeMatchSummary, summary)
	}

	metrics.MatchesCompleted.WithLabelValues(outcome).Inc()
	p.saveMatch(abstracts.MatchRecord{
		PartyID: p.id, Rounds: p.roundsCompleted, WinnerNames: winners,
		PlayerNames: names, Standings: standings, FinishedAt: time.Now(),
	})
	p.timer.Set(p.cfg.DisposeDelay, timeoutInfo{action: timerActionDispose, round: p.roundsCompleted})
}

// 过期的超时直接丢弃
func (p *Party) onTimeout(info timeoutInfo) {
	switch info.action {
	case timerActionRestartRound:
		if p.phase != abstracts.PhaseRoundOver || info.round != p.roundsCompleted {
			log.L.Debug("drop stale restart", zap.Int64("party", p.id), zap.String("phase", p.phase))
			return
		}
		p.restartRound()
	case timerActionDispose:
		if p.phase != abstracts.PhaseMatchOver {
			return
		}
		p.dispose("match over")
	}
}

func (p *Party) doDisconnect(msg withSeatMsg) {
	pl := p.player(msg.seat)
	if pl == nil {
		msg.resultChan <- g_error.ErrPartyNotFound
		return
	}
	for i, other := range p.players {
		if i != msg.seat {
			other.sendInfo(abstracts.MsgTypePeerDisconnected, pl.Name()+" disconnected.")
		}
	}
	p.dispose("player disconnected")
	msg.resultChan <- nil
}

func (p *Party) dispose(reason string) {
	log.L.Info("party disposed", zap.Int64("party", p.id), zap.String("reason", reason))
	p.phase = abstracts.PhaseDisposed
	p.timer.Stop()
	close(p.done)
}

func (p *Party) doSortHand(msg sortMsg) {
	pl := p.player(msg.seat)
	if pl == nil {
		msg.resultChan <- g_error.ErrPartyNotFound
		return
	}
	pl.hand.Sort(msg.byCategory)
	pl.send(abstracts.MsgTypeHand, toCardScenes(pl.hand.Cards()))
	msg.resultChan <- nil
}

// 存档不能阻塞loop
func (p *Party) saveRound(r abstracts.RoundRecord) {
	go func() {
		if err := p.recorder.SaveRound(r); err != nil {
			log.L.Error("save round failed", zap.Int64("party", r.PartyID), zap.Int("round", r.RoundNumber), zap.Error(err))
		}
	}()
}

func (p *Party) saveMatch(r abstracts.MatchRecord) {
	go func() {
		if err := p.recorder.SaveMatch(r); err != nil {
			log.L.Error("save match failed", zap.Int64("party", r.PartyID), zap.Error(err))
		}
	}()
}
