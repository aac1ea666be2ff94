package msg_server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/LeaguesOfHoleHoleShoes/Odin/common/log"
	"github.com/LeaguesOfHoleHoleShoes/Odin/common/metrics"
	"github.com/LeaguesOfHoleHoleShoes/Odin/common/util"
)

var upgrader = websocket.Upgrader{} // use default options

// msg type
const (
	MsgTypeHandShake = 0x0
)

const (
	sendMsgChanCache = 50
	maxPeerCount     = 1000

	handShakeWait = 8 * time.Second

	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 1024
)

type AbsUser interface {
	ID() string
}

// 握手时签发连接身份，不做鉴权
type userIssuer interface {
	IssueUser(req HandShakeReq) (AbsUser, error)
}

type msgHandler interface {
	Handle(uID string, msgType int, msgID int64, msg []byte) error
	// 连接断开后调用且只调用一次
	OnDisconnect(uID string)
}

func NewWsServer(port int, issuer userIssuer, msgHandler msgHandler) *WsServer {
	s := &WsServer{
		port:        port,
		issuer:      issuer,
		msgHandler:  msgHandler,
		peerSet:     newWsPeerSet(),
		sendMsgChan: make(chan *cMsg, sendMsgChanCache),
	}
	s.httpServer = &http.Server{Addr: fmt.Sprintf(":%v", port), Handler: s.Handler()}
	return s
}

type WsServer struct {
	port int

	issuer     userIssuer
	msgHandler msgHandler

	peerSet *wsPeerSet

	sendMsgChan chan *cMsg
	startOnce   sync.Once

	httpServer *http.Server
}

type cMsg struct {
	msgID   int64
	uID     string
	msgType int
	content []byte
}

// Start runs the send loop, Run calls it, tests that mount Handler call it directly.
func (s *WsServer) Start() {
	s.startOnce.Do(func() { go s.loop() })
}

func (s *WsServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/msg", s.handlePeer)
	return mux
}

func (s *WsServer) Run() error {
	s.Start()
	return s.httpServer.ListenAndServe()
}

// 只停止接收新连接，已有的peer随进程退出
func (s *WsServer) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *WsServer) loop() {
	for tmp := range s.sendMsgChan {
		s.send(tmp)
	}
}

func (s *WsServer) handlePeer(w http.ResponseWriter, r *http.Request) {
	log.L.Debug("receive new peer", zap.String("remote addr", r.RemoteAddr))
	if count := s.peerSet.count(); count >= maxPeerCount {
		log.L.Warn("can't receive new peer, too many peers", zap.Int64("cur count", count), zap.Int("max count", maxPeerCount))
		http.Error(w, "too many peers", http.StatusServiceUnavailable)
		return
	}

	c, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer c.Close()

	c.SetReadLimit(maxMessageSize)
	// hand shake
	uID, err := s.handleShake(c)
	if uID == "" || err != nil {
		log.L.Debug("hand shake failed", zap.Error(err), zap.String("u id", uID))
		return
	}

	np := newWsPeer(uID, c)
	s.peerSet.addPeer(np)
	np.start()
	defer func() {
		s.peerSet.removePeer(uID)
		s.msgHandler.OnDisconnect(uID)
	}()
	np.send(&cMsg{uID: uID, msgType: MsgTypeHandShake, content: util.StringifyJsonToBytes(HandShakeResp{ID: uID})})

	c.SetReadDeadline(time.Now().Add(pongWait))
	c.SetPongHandler(func(string) error {
		c.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		mt, message, err := c.ReadMessage()
		if err != nil {
			log.L.Debug("read msg failed", zap.String("uid", uID), zap.Error(err))
			return
		}
		if mt != websocket.BinaryMessage {
			log.L.Debug("receive invalid msg", zap.Int("msg type", mt))
			return
		}
		msgType, mID, msgB := UnWrapMsg(message)
		// 回包会带上mID，负数的id写不回去，丢掉这一帧
		if msgType < 0 || mID < 0 {
			log.L.Debug("drop invalid frame", zap.String("uid", uID), zap.Int("msg type", msgType), zap.Int64("msg id", mID))
			continue
		}
		if err = s.msgHandler.Handle(uID, msgType, mID, msgB); err != nil {
			log.L.Error("handle msg failed", zap.String("uid", uID), zap.Error(err))
			return
		}
	}
}

type HandShakeReq struct {
	// 客户端标识，目前只用于日志
	Client string `json:"client"`
}

type HandShakeResp struct {
	ID string `json:"id"`
}

func (s *WsServer) handleShake(c *websocket.Conn) (string, error) {
	c.SetReadDeadline(time.Now().Add(handShakeWait))

	var req HandShakeReq
	mt, mb, err := c.ReadMessage()
	if err != nil {
		return "", err
	}
	if mt != websocket.BinaryMessage {
		return "", fmt.Errorf("invalid msg type: %v", mt)
	}

	msgType, _, msgB := UnWrapMsg(mb)
	if msgType != MsgTypeHandShake {
		return "", fmt.Errorf("msg type isn't MsgTypeHandShake, %v", msgType)
	}
	if len(msgB) > 0 {
		if err = util.ParseJsonFromBytes(msgB, &req); err != nil {
			return "", fmt.Errorf("parse hand shake: %w", err)
		}
	}

	u, err := s.issuer.IssueUser(req)
	if err != nil {
		return "", err
	}
	log.L.Debug("hand shake success", zap.String("u id", u.ID()), zap.String("client", req.Client))
	return u.ID(), nil
}

func (s *WsServer) Send(id string, msgType int, msgID int64, msg []byte) {
	s.sendMsgChan <- &cMsg{msgID: msgID, uID: id, msgType: msgType, content: msg}
}

func (s *WsServer) send(msg *cMsg) {
	p := s.peerSet.getPeer(msg.uID)
	if p == nil {
		log.L.Warn("can't find peer in peer set, msg not send", zap.String("uid", msg.uID), zap.Int("msg type", msg.msgType))
		return
	}
	// 如果写失败，peer loop会结束并关闭conn，接着ReadMessage报错，此次连接的生命周期就此结束
	p.send(msg)
}

func newWsPeerSet() *wsPeerSet {
	return &wsPeerSet{}
}

type wsPeerSet struct {
	// key player id
	peers     sync.Map
	peerCount int64
}

func (ps *wsPeerSet) count() int64 {
	return atomic.LoadInt64(&ps.peerCount)
}

func (ps *wsPeerSet) getPeer(id string) *wsPeer {
	if p, ok := ps.peers.Load(id); ok {
		return p.(*wsPeer)
	}
	return nil
}

func (ps *wsPeerSet) removePeer(id string) {
	if p, ok := ps.peers.LoadAndDelete(id); ok {
		log.L.Debug("remove peer", zap.String("uid", id))
		p.(*wsPeer).stop()
		atomic.AddInt64(&ps.peerCount, -1)
		metrics.PeersConnected.Dec()
	}
}

func (ps *wsPeerSet) addPeer(p *wsPeer) {
	// id在握手时签发，不会重复
	if _, loaded := ps.peers.LoadOrStore(p.id, p); loaded {
		panic(fmt.Sprintf("duplicated peer id: %v", p.id))
	}
	atomic.AddInt64(&ps.peerCount, 1)
	metrics.PeersConnected.Inc()
}

func newWsPeer(id string, conn *websocket.Conn) *wsPeer {
	return &wsPeer{
		id: id, conn: conn,
		sendChan: make(chan *cMsg, sendMsgChanCache),
		stopChan: make(chan struct{}),
	}
}

type wsPeer struct {
	// user id
	id       string
	conn     *websocket.Conn
	sendChan chan *cMsg
	stopChan chan struct{}
	stopOnce sync.Once
}

func (p *wsPeer) start() {
	go p.loop()
}

// close stop chan 后会调用conn.close
func (p *wsPeer) stop() {
	p.stopOnce.Do(func() { close(p.stopChan) })
}

func (p *wsPeer) loop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		p.conn.Close()
	}()
	for {
		select {
		case msg := <-p.sendChan:
			if err := p.doSend(msg); err != nil {
				log.L.Debug("write msg failed", zap.String("uid", p.id), zap.Error(err))
				return
			}

		case <-ticker.C:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-p.stopChan:
			log.L.Debug("peer loop returned", zap.String("uid", p.id))
			return
		}
	}
}

func (p *wsPeer) send(msg *cMsg) {
	select {
	case p.sendChan <- msg:
	default:
		// 丢消息会让客户端状态错乱，直接断开慢连接
		log.L.Warn("send chan full, close peer", zap.String("uid", p.id), zap.Int("send chan len", len(p.sendChan)))
		p.stop()
	}
}

func (p *wsPeer) doSend(msg *cMsg) error {
	p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return p.conn.WriteMessage(websocket.BinaryMessage, WrapMsg(msg.msgType, msg.msgID, msg.content))
}
