package odin

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/LeaguesOfHoleHoleShoes/Odin/common/log"
	"github.com/LeaguesOfHoleHoleShoes/Odin/common/msg_server"
	"github.com/LeaguesOfHoleHoleShoes/Odin/common/util"
	"github.com/LeaguesOfHoleHoleShoes/Odin/odin/abstracts"
	"github.com/LeaguesOfHoleHoleShoes/Odin/odin/core"
	"github.com/LeaguesOfHoleHoleShoes/Odin/odin/g_error"
)

const shutdownWait = 5 * time.Second

func NewRoomServer(port int, cfg core.Config, rnd core.Rand, recorder abstracts.MatchRecorder) *RoomServer {
	r := &RoomServer{registry: NewRegistry(cfg, rnd, recorder)}
	r.wsServer = msg_server.NewWsServer(port, uuidIssuer{}, r)
	return r
}

/*

连接 -> session -> party

1. join：校验名字，坐进party，记下session
1. 出牌、拿牌、理牌、查看场景：按session找到party转过去，拒绝的错误party自己会推给玩家
1. 断线：party里其他人收到通知，party销毁

*/
type RoomServer struct {
	registry *Registry
	wsServer *msg_server.WsServer
	// key conn id, value *Session
	sessions sync.Map

	started uint32
}

func (r *RoomServer) Handle(uID string, msgType int, mID int64, msg []byte) error {
	switch msgType {
	case abstracts.MsgTypeJoin:
		var req abstracts.JoinReq
		if r.parse(uID, mID, msg, &req) {
			r.join(uID, mID, req)
		}
	case abstracts.MsgTypePlayCards:
		var req abstracts.PlayCardsReq
		if r.parse(uID, mID, msg, &req) {
			r.partyDo(uID, mID, func(p *core.Party, s *Session) error { return p.Play(s.Seat, req.Cards) })
		}
	case abstracts.MsgTypePickFromDiscard:
		var req abstracts.PickFromDiscardReq
		if r.parse(uID, mID, msg, &req) {
			r.partyDo(uID, mID, func(p *core.Party, s *Session) error { return p.Pick(s.Seat, req.Card) })
		}
	case abstracts.MsgTypeSortHand:
		var req abstracts.SortHandReq
		if r.parse(uID, mID, msg, &req) {
			r.partyDo(uID, mID, func(p *core.Party, s *Session) error { return p.SortHand(s.Seat, req.ByCategory) })
		}
	case abstracts.MsgTypeScene:
		r.partyDo(uID, mID, func(p *core.Party, s *Session) error {
			scene, err := p.Scene(s.Seat)
			if err != nil {
				return err
			}
			r.reply(uID, abstracts.MsgTypePartyScene, mID, scene)
			return nil
		})
	default:
		log.L.Debug("unknown msg type", zap.String("uid", uID), zap.Int("msg type", msgType))
	}
	return nil
}

// 解析失败回invalidInput，连接保留
func (r *RoomServer) parse(uID string, mID int64, msg []byte, v interface{}) bool {
	if len(msg) == 0 {
		return true
	}
	if err := util.ParseJsonFromBytes(msg, v); err != nil {
		log.L.Debug("parse msg failed", zap.String("uid", uID), zap.Error(err))
		r.reply(uID, abstracts.MsgTypeInvalidInput, mID, abstracts.InfoResp{Message: "invalid message"})
		return false
	}
	return true
}

func (r *RoomServer) session(uID string) *Session {
	if tmp, ok := r.sessions.Load(uID); ok {
		return tmp.(*Session)
	}
	return nil
}

// 还在一个没销毁的party里就不能再join；party结束后可以直接再来一场
func (r *RoomServer) join(uID string, mID int64, req abstracts.JoinReq) {
	if s := r.session(uID); s != nil && r.registry.Get(s.PartyID) != nil {
		r.reply(uID, abstracts.MsgTypeInvalidInput, mID, abstracts.InfoResp{Message: g_error.ErrAlreadyJoined.Error()})
		return
	}

	s, err := r.registry.Join(uID, req.Name, r)
	if err != nil {
		log.L.Debug("join failed", zap.String("uid", uID), zap.String("name", req.Name), zap.Error(err))
		r.reply(uID, abstracts.MsgTypeInvalidInput, mID, abstracts.InfoResp{Message: err.Error()})
		return
	}
	r.sessions.Store(uID, s)
}

// party拒绝时已经推过playerError，找不到party的情况由这里回
func (r *RoomServer) partyDo(uID string, mID int64, do func(p *core.Party, s *Session) error) {
	s := r.session(uID)
	var p *core.Party
	if s != nil {
		p = r.registry.Get(s.PartyID)
	}

	err := g_error.ErrPartyNotFound
	if p != nil {
		err = do(p, s)
	}
	if err == nil {
		return
	}
	log.L.Debug("party rejected msg", zap.String("uid", uID), zap.Error(err))
	if errors.Is(err, g_error.ErrPartyNotFound) {
		r.reply(uID, abstracts.MsgTypePlayerError, mID, abstracts.InfoResp{Message: err.Error()})
	}
}

func (r *RoomServer) OnDisconnect(uID string) {
	tmp, ok := r.sessions.LoadAndDelete(uID)
	if !ok {
		return
	}
	s := tmp.(*Session)
	p := r.registry.Get(s.PartyID)
	if p == nil {
		return
	}
	if err := p.Disconnect(s.Seat); err != nil {
		log.L.Debug("disconnect from party failed", zap.String("uid", uID), zap.Int64("party", s.PartyID), zap.Error(err))
	}
}

// party主动推送的消息没有对应的请求，msg id用当前时间
func (r *RoomServer) SendMsg(playerID string, msgType int, msg interface{}) {
	r.wsServer.Send(playerID, msgType, time.Now().UnixNano(), util.StringifyJsonToBytes(msg))
}

// 回复请求，带上请求的msg id
func (r *RoomServer) reply(uID string, msgType int, mID int64, msg interface{}) {
	r.wsServer.Send(uID, msgType, mID, util.StringifyJsonToBytes(msg))
}

func (r *RoomServer) Start() error {
	if !atomic.CompareAndSwapUint32(&r.started, 0, 1) {
		return errors.New("room already started")
	}
	go func() {
		if err := r.wsServer.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.L.Error("ws server stopped", zap.Error(err))
		}
	}()
	return nil
}

func (r *RoomServer) Stop() error {
	if !atomic.CompareAndSwapUint32(&r.started, 1, 0) {
		return errors.New("room not started")
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownWait)
	defer cancel()
	err := r.wsServer.Shutdown(ctx)
	r.registry.Close()
	return err
}
