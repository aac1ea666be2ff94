package util

import (
	"crypto/rand"
	"math/big"

	"github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/LeaguesOfHoleHoleShoes/Odin/common/log"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// 解析json bytes
func ParseJsonFromBytes(data []byte, result interface{}) error {
	return json.Unmarshal(data, result)
}

// json bytes转字符串
func StringifyJsonToBytes(data interface{}) []byte {
	b, _ := json.Marshal(&data)
	return b
}

// 根据限定随机生成一个数字，范围 [0, limit)
func RandANum(limit int) int {
	if limit <= 1 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(limit)))
	if err != nil {
		log.L.Error("read rand bytes failed", zap.Int("limit", limit), zap.Error(err))
		return 0
	}
	return int(n.Int64())
}

// CryptoRand adapts RandANum to the Intn shape used by the shufflers.
type CryptoRand struct{}

func (CryptoRand) Intn(n int) int {
	return RandANum(n)
}
