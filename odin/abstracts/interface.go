package abstracts

// party往外推消息，由传输层负责路由到连接
type MsgSender interface {
	SendMsg(playerID string, msgType int, msg interface{})
}

// 对局存档，不用于恢复对局
type MatchRecorder interface {
	SaveRound(r RoundRecord) error
	SaveMatch(r MatchRecord) error
}

// 不存档
type NopRecorder struct{}

func (NopRecorder) SaveRound(r RoundRecord) error { return nil }

func (NopRecorder) SaveMatch(r MatchRecord) error { return nil }
