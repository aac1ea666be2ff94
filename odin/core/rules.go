package core

// 多张牌必须同值或同类别
func sameRankOrCategory(cards []Card) bool {
	if len(cards) < 2 {
		return true
	}
	sameRank, sameCategory := true, true
	for _, c := range cards[1:] {
		if c.Rank != cards[0].Rank {
			sameRank = false
		}
		if c.Category != cards[0].Category {
			sameCategory = false
		}
	}
	return sameRank || sameCategory
}

// 值从大到小拼成一个整数，比如 [2, 8] -> 82，空为0
func comparisonKey(cards []Card) int64 {
	ranks := make([]int, len(cards))
	for i, c := range cards {
		ranks[i] = c.Rank
	}
	// 最多十几张，插入排序足够
	for i := 1; i < len(ranks); i++ {
		for j := i; j > 0 && ranks[j] > ranks[j-1]; j-- {
			ranks[j], ranks[j-1] = ranks[j-1], ranks[j]
		}
	}
	var key int64
	for _, r := range ranks {
		key = key*10 + int64(r)
	}
	return key
}

func validCard(cfg Config, c Card) bool {
	if c.Rank < 1 || c.Rank > cfg.RankCount {
		return false
	}
	return categoryPriority(c.Category) < cfg.CategoryCount
}
