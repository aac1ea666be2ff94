package msg_server

import (
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeaguesOfHoleHoleShoes/Odin/common/util"
)

const (
	playReqMsg  = 0x1
	playRespMsg = 0x2
)

type playReq struct {
	Name string
}

type playResp struct {
	Greeting string
}

type fakeUser struct{ id string }

func (f *fakeUser) ID() string { return f.id }

type fakeUserIssuer struct {
	mu    sync.Mutex
	count int
}

func (f *fakeUserIssuer) IssueUser(req HandShakeReq) (AbsUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count++
	return &fakeUser{id: "u" + strconv.Itoa(f.count)}, nil
}

type fakeMsgHandler struct {
	mu           sync.Mutex
	msgCount     int
	disconnected []string
	server       *WsServer
}

func (f *fakeMsgHandler) Handle(uID string, msgType int, mID int64, msg []byte) error {
	f.mu.Lock()
	f.msgCount++
	f.mu.Unlock()
	switch msgType {
	case playReqMsg:
		var req playReq
		if err := util.ParseJsonFromBytes(msg, &req); err != nil {
			return err
		}
		f.server.Send(uID, playRespMsg, mID, util.StringifyJsonToBytes(playResp{Greeting: "hi " + req.Name}))
	}
	return nil
}

func (f *fakeMsgHandler) OnDisconnect(uID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = append(f.disconnected, uID)
}

func (f *fakeMsgHandler) disconnectedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.disconnected...)
}

func startTestServer(t *testing.T) (*WsServer, *fakeMsgHandler, string) {
	h := &fakeMsgHandler{}
	server := NewWsServer(0, &fakeUserIssuer{}, h)
	h.server = server
	server.Start()
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return server, h, "ws" + strings.TrimPrefix(ts.URL, "http") + "/msg"
}

func dialAndShake(t *testing.T, url string) (*websocket.Conn, string) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	err = conn.WriteMessage(websocket.BinaryMessage, WrapMsg(MsgTypeHandShake, 1, util.StringifyJsonToBytes(HandShakeReq{Client: "test"})))
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	mt, mb, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, mt)
	msgType, _, body := UnWrapMsg(mb)
	assert.Equal(t, MsgTypeHandShake, msgType)
	var resp HandShakeResp
	require.NoError(t, util.ParseJsonFromBytes(body, &resp))
	assert.NotEmpty(t, resp.ID)
	return conn, resp.ID
}

// 测试正常连接可以收发消息
func TestNormalSeen(t *testing.T) {
	assert.Equal(t, MsgTypeHandShake+1, playReqMsg)
	assert.Equal(t, MsgTypeHandShake+2, playRespMsg)

	_, _, url := startTestServer(t)
	conn, _ := dialAndShake(t, url)
	defer conn.Close()

	err := conn.WriteMessage(websocket.BinaryMessage, WrapMsg(playReqMsg, 7, util.StringifyJsonToBytes(playReq{Name: "alice"})))
	assert.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	mt, mb, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, mt)
	msgType, mID, msgB := UnWrapMsg(mb)
	var resp playResp
	assert.NoError(t, util.ParseJsonFromBytes(msgB, &resp))
	assert.Equal(t, playRespMsg, msgType)
	assert.Equal(t, int64(7), mID)
	assert.Equal(t, "hi alice", resp.Greeting)
}

// 第一条消息不是握手则直接断开
func TestHandShakeRequired(t *testing.T) {
	_, h, url := startTestServer(t)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	err = conn.WriteMessage(websocket.BinaryMessage, WrapMsg(playReqMsg, 1, util.StringifyJsonToBytes(playReq{Name: "alice"})))
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
	// 没有握手成功的连接不会触发OnDisconnect
	assert.Empty(t, h.disconnectedIDs())
}

// 客户端close后服务器能正确remove peer并通知handler
func TestPeerDisconnect(t *testing.T) {
	server, h, url := startTestServer(t)
	conn, id := dialAndShake(t, url)
	assert.Equal(t, int64(1), server.peerSet.count())

	conn.Close()
	assert.Eventually(t, func() bool {
		ids := h.disconnectedIDs()
		return len(ids) == 1 && ids[0] == id
	}, time.Second, 5*time.Millisecond)
	assert.Nil(t, server.peerSet.getPeer(id))
	assert.Equal(t, int64(0), server.peerSet.count())
}

func TestSendToUnknownPeer(t *testing.T) {
	server, _, _ := startTestServer(t)
	assert.NotPanics(t, func() { server.send(&cMsg{uID: "nobody", msgType: playRespMsg}) })
}

// 发送队列满了直接关掉peer
func TestSlowPeerClosed(t *testing.T) {
	p := newWsPeer("slow", nil)
	for i := 0; i < sendMsgChanCache; i++ {
		p.send(&cMsg{uID: "slow", msgType: playRespMsg})
	}
	select {
	case <-p.stopChan:
		t.Fatal("peer stopped before send chan full")
	default:
	}

	p.send(&cMsg{uID: "slow", msgType: playRespMsg})
	select {
	case <-p.stopChan:
	default:
		t.Fatal("slow peer not stopped")
	}
	assert.NotPanics(t, func() { p.send(&cMsg{uID: "slow", msgType: playRespMsg}) })
}
