package odin

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/LeaguesOfHoleHoleShoes/Odin/common/log"
	"github.com/LeaguesOfHoleHoleShoes/Odin/common/msg_server"
)

// 连接坐在哪个party的哪个位置
type Session struct {
	PartyID int64
	Seat    int
}

type connUser struct {
	id string
}

func (u *connUser) ID() string {
	return u.id
}

// 握手时给每个连接发一个uuid，不做鉴权
type uuidIssuer struct{}

func (uuidIssuer) IssueUser(req msg_server.HandShakeReq) (msg_server.AbsUser, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, err
	}
	u := &connUser{id: id.String()}
	log.L.Debug("issue conn id", zap.String("uid", u.id), zap.String("client", req.Client))
	return u, nil
}
