package core

import (
	"errors"
	"fmt"
	"time"
)

// 牌面值只能是一位数，否则拼接出来的比较值会出现歧义
const maxRankCount = 9

type Config struct {
	// 每场人数
	PlayerCount int
	// 每人发几张
	HandSize int
	// 牌面值 1..RankCount
	RankCount int
	// 使用Categories中的前几种
	CategoryCount int
	// 打几局结束
	RoundLimit int
	// 一局结束后多久开始下一局
	RoundRestartDelay time.Duration
	// 整场结束后多久销毁party
	DisposeDelay time.Duration
	// 名字最长多少个字符
	MaxNameLength int
}

func DefaultConfig() Config {
	return Config{
		PlayerCount:       3,
		HandSize:          9,
		RankCount:         9,
		CategoryCount:     len(Categories),
		RoundLimit:        3,
		RoundRestartDelay: 3 * time.Second,
		DisposeDelay:      10 * time.Second,
		MaxNameLength:     20,
	}
}

func (c Config) DeckSize() int {
	return c.RankCount * c.CategoryCount
}

func (c Config) Validate() error {
	if c.PlayerCount < 2 {
		return fmt.Errorf("player count %v, need at least 2", c.PlayerCount)
	}
	if c.HandSize < 1 {
		return fmt.Errorf("hand size %v, need at least 1", c.HandSize)
	}
	if c.RankCount < 1 || c.RankCount > maxRankCount {
		return fmt.Errorf("rank count %v out of [1, %v]", c.RankCount, maxRankCount)
	}
	if c.CategoryCount < 1 || c.CategoryCount > len(Categories) {
		return fmt.Errorf("category count %v out of [1, %v]", c.CategoryCount, len(Categories))
	}
	if c.PlayerCount*c.HandSize > c.DeckSize() {
		return fmt.Errorf("can't deal %v x %v cards from a %v card deck", c.PlayerCount, c.HandSize, c.DeckSize())
	}
	if c.RoundLimit < 1 {
		return fmt.Errorf("round limit %v, need at least 1", c.RoundLimit)
	}
	if c.RoundRestartDelay < 0 || c.DisposeDelay < 0 {
		return errors.New("delays can't be negative")
	}
	if c.MaxNameLength < 1 {
		return fmt.Errorf("max name length %v, need at least 1", c.MaxNameLength)
	}
	return nil
}
