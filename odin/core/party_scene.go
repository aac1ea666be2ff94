package core

import (
	"github.com/LeaguesOfHoleHoleShoes/Odin/odin/abstracts"
	"github.com/LeaguesOfHoleHoleShoes/Odin/odin/g_error"
)

/*
1. 自己的手牌，别人只能看到张数
1. 弃牌堆，是否在等自己拿牌
1. 每个位置的名字、分数，当前该谁出牌
*/
func (p *Party) doGetScene(msg sceneMsg) {
	self := p.player(msg.seat)
	if self == nil {
		msg.resultChan <- sceneResult{err: g_error.ErrPartyNotFound}
		return
	}

	result := &abstracts.PartyScene{
		PartyID:        p.id,
		Phase:          p.phase,
		Seat:           msg.seat,
		CurrentTurn:    p.curTurn,
		FirstTurn:      p.firstTurn,
		RoundsComplete: p.roundsCompleted,
		RoundLimit:     p.cfg.RoundLimit,
		PickupPending:  p.awaitingPickup != nil,
		Hand:           toCardScenes(self.hand.Cards()),
		DiscardPile:    toCardScenes(p.discard),
		Opponents:      p.opponentScenes(),
	}
	for _, pl := range p.players {
		result.Players = append(result.Players, &abstracts.StandingScene{Name: pl.Name(), Score: pl.Score()})
	}

	msg.resultChan <- sceneResult{scene: result}
}
