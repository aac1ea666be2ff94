package core

import (
	"github.com/LeaguesOfHoleHoleShoes/Odin/odin/abstracts"
)

func NewPlayer(id string, name string, sender abstracts.MsgSender) *Player {
	return &Player{id: id, name: name, sender: sender}
}

type Player struct {
	// 连接id，由传输层签发
	id   string
	name string
	hand Hand
	// 整场累计分数，越少越好
	score  int
	sender abstracts.MsgSender
}

func (p *Player) ID() string {
	return p.id
}

func (p *Player) Name() string {
	return p.name
}

func (p *Player) Score() int {
	return p.score
}

func (p *Player) CardCount() int {
	return p.hand.Size()
}

func (p *Player) send(msgType int, msg interface{}) {
	p.sender.SendMsg(p.id, msgType, msg)
}

func (p *Player) sendInfo(msgType int, message string) {
	p.send(msgType, abstracts.InfoResp{Message: message})
}

// 理牌后把整手牌推给自己
func (p *Player) pushHand() {
	p.hand.Sort(true)
	p.send(abstracts.MsgTypeHand, toCardScenes(p.hand.Cards()))
}

func (p *Player) removeCards(cs []Card) {
	for _, c := range cs {
		if !p.hand.Remove(c) {
			panic("remove a card the player doesn't own: " + c.String())
		}
	}
}
