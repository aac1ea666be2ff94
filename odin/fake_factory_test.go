package odin

import (
	"math/rand"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/LeaguesOfHoleHoleShoes/Odin/common/msg_server"
	"github.com/LeaguesOfHoleHoleShoes/Odin/common/util"
	"github.com/LeaguesOfHoleHoleShoes/Odin/odin/core"
)

type nopSender struct{}

func (nopSender) SendMsg(playerID string, msgType int, msg interface{}) {}

// 延时不会在测试里触发
func testConfig() core.Config {
	cfg := core.DefaultConfig()
	cfg.RoundRestartDelay = time.Hour
	cfg.DisposeDelay = time.Hour
	return cfg
}

func newTestRegistry(t *testing.T) *Registry {
	reg := NewRegistry(testConfig(), rand.New(rand.NewSource(5)), nil)
	t.Cleanup(reg.Close)
	return reg
}

func startTestRoom(t *testing.T) (*RoomServer, string) {
	r := NewRoomServer(0, testConfig(), rand.New(rand.NewSource(3)), nil)
	r.wsServer.Start()
	ts := httptest.NewServer(r.wsServer.Handler())
	t.Cleanup(func() {
		ts.Close()
		r.registry.Close()
	})
	return r, "ws" + strings.TrimPrefix(ts.URL, "http") + "/msg"
}

type testClient struct {
	t    *testing.T
	conn *websocket.Conn
	id   string
}

func dialTestClient(t *testing.T, url string) *testClient {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	c := &testClient{t: t, conn: conn}
	c.send(msg_server.MsgTypeHandShake, 1, msg_server.HandShakeReq{Client: "test"})
	msgType, _, body := c.read()
	require.Equal(t, msg_server.MsgTypeHandShake, msgType)
	var resp msg_server.HandShakeResp
	require.NoError(t, util.ParseJsonFromBytes(body, &resp))
	_, err = uuid.Parse(resp.ID)
	require.NoError(t, err)
	c.id = resp.ID
	return c
}

func (c *testClient) send(msgType int, mID int64, body interface{}) {
	c.sendRaw(msgType, mID, util.StringifyJsonToBytes(body))
}

func (c *testClient) sendRaw(msgType int, mID int64, body []byte) {
	err := c.conn.WriteMessage(websocket.BinaryMessage, msg_server.WrapMsg(msgType, mID, body))
	require.NoError(c.t, err)
}

func (c *testClient) read() (int, int64, []byte) {
	c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, mb, err := c.conn.ReadMessage()
	require.NoError(c.t, err)
	return msg_server.UnWrapMsg(mb)
}

// 跳过其他消息直到读到指定类型
func (c *testClient) readUntil(msgType int, v interface{}) int64 {
	for {
		mt, mID, body := c.read()
		if mt == msgType {
			if v != nil {
				require.NoError(c.t, util.ParseJsonFromBytes(body, v))
			}
			return mID
		}
	}
}
