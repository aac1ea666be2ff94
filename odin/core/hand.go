package core

import "sort"

// 玩家手牌，只由所属的Player修改
type Hand struct {
	cards []Card
}

func (h *Hand) Add(c Card) {
	h.cards = append(h.cards, c)
}

func (h *Hand) AddMany(cs []Card) {
	h.cards = append(h.cards, cs...)
}

// 移除第一张相同的牌，没有则返回false
func (h *Hand) Remove(c Card) bool {
	for i, tmp := range h.cards {
		if tmp == c {
			h.cards = append(h.cards[:i], h.cards[i+1:]...)
			return true
		}
	}
	return false
}

// byCategory为true时按类别顺序、同类别按值从大到小；否则只按值从大到小
func (h *Hand) Sort(byCategory bool) {
	sort.SliceStable(h.cards, func(i, j int) bool {
		a, b := h.cards[i], h.cards[j]
		if byCategory {
			pa, pb := categoryPriority(a.Category), categoryPriority(b.Category)
			if pa != pb {
				return pa < pb
			}
		}
		return a.Rank > b.Rank
	})
}

// 按多重集判断：同一张牌要两次就必须真的有两张
func (h *Hand) Contains(cs []Card) bool {
	held := make(map[Card]int, len(h.cards))
	for _, c := range h.cards {
		held[c]++
	}
	for _, c := range cs {
		if held[c] == 0 {
			return false
		}
		held[c]--
	}
	return true
}

func (h *Hand) Size() int {
	return len(h.cards)
}

func (h *Hand) Cards() []Card {
	return append([]Card{}, h.cards...)
}

func (h *Hand) Clear() {
	h.cards = nil
}
