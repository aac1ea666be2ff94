package core

import (
	"fmt"

	"github.com/LeaguesOfHoleHoleShoes/Odin/odin/abstracts"
)

type Category string

// 顺序即按类别理牌时的顺序
var Categories = []Category{"Blue", "Red", "Pink", "Black", "Green", "Yellow"}

func categoryPriority(c Category) int {
	for i, tmp := range Categories {
		if tmp == c {
			return i
		}
	}
	return len(Categories)
}

// 牌是值类型，相等即 rank 和 category 都相等
type Card struct {
	Rank     int
	Category Category
}

func (c Card) String() string {
	return fmt.Sprintf("%v of %v", c.Rank, c.Category)
}

func cardFromMsg(m abstracts.CardMsg) Card {
	return Card{Rank: int(m.Rank), Category: Category(m.Category)}
}

func cardsFromMsg(ms []abstracts.CardMsg) []Card {
	result := make([]Card, len(ms))
	for i, m := range ms {
		result[i] = cardFromMsg(m)
	}
	return result
}

func toCardScenes(cards []Card) []*abstracts.CardScene {
	result := make([]*abstracts.CardScene, len(cards))
	for i, c := range cards {
		result[i] = &abstracts.CardScene{Rank: c.Rank, Category: string(c.Category)}
	}
	return result
}

type Rand interface {
	Intn(n int) int
}

// 按类别、再按值从小到大生成整副牌，每张只出现一次
func NewDeck(cfg Config) []Card {
	deck := make([]Card, 0, cfg.DeckSize())
	for _, c := range Categories[:cfg.CategoryCount] {
		for rank := 1; rank <= cfg.RankCount; rank++ {
			deck = append(deck, Card{Rank: rank, Category: c})
		}
	}
	return deck
}

// Fisher-Yates，返回新的slice，不改动传入的牌
func Shuffle(deck []Card, rnd Rand) []Card {
	result := append([]Card{}, deck...)
	for i := len(result) - 1; i > 0; i-- {
		j := rnd.Intn(i + 1)
		result[i], result[j] = result[j], result[i]
	}
	return result
}

// 按牌堆顺序切成n份，第一份给0号位
func Deal(deck []Card, n int, perPlayer int) [][]Card {
	if n*perPlayer > len(deck) {
		panic(fmt.Sprintf("deal %v x %v cards from %v", n, perPlayer, len(deck)))
	}
	result := make([][]Card, n)
	for i := 0; i < n; i++ {
		result[i] = append([]Card{}, deck[i*perPlayer:(i+1)*perPlayer]...)
	}
	return result
}
