package odin

import (
	"strings"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/LeaguesOfHoleHoleShoes/Odin/common/log"
	"github.com/LeaguesOfHoleHoleShoes/Odin/common/metrics"
	"github.com/LeaguesOfHoleHoleShoes/Odin/odin/abstracts"
	"github.com/LeaguesOfHoleHoleShoes/Odin/odin/core"
	"github.com/LeaguesOfHoleHoleShoes/Odin/odin/g_error"
)

func NewRegistry(cfg core.Config, rnd core.Rand, recorder abstracts.MatchRecorder) *Registry {
	return &Registry{
		cfg: cfg, rnd: &lockedRand{rnd: rnd}, recorder: recorder,
		parties: map[int64]*core.Party{},
	}
}

// 所有party的loop共用一个随机源
type lockedRand struct {
	mu  sync.Mutex
	rnd core.Rand
}

func (r *lockedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Intn(n)
}

/*

撮合：新玩家坐进最新一个还没坐满的party，没有就新建一个

party销毁由party自己驱动，loop退出后回调onDisposed把自己从registry里删掉
Join在持锁时会等party的结果，所以party的loop里不能碰registry的锁

*/
type Registry struct {
	cfg      core.Config
	rnd      core.Rand
	recorder abstracts.MatchRecorder

	mu      sync.Mutex
	parties map[int64]*core.Party
	// 最新的还在等人的party，可能已经坐满或销毁，Seat会告诉我们
	open   *core.Party
	lastID int64
}

// 去掉首尾空白后不能为空，且不超过MaxNameLength个字符
func (r *Registry) validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > r.cfg.MaxNameLength {
		return "", g_error.ErrInvalidName
	}
	return name, nil
}

func (r *Registry) Join(playerID string, name string, sender abstracts.MsgSender) (*Session, error) {
	name, err := r.validateName(name)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	player := core.NewPlayer(playerID, name, sender)
	if r.open != nil {
		seat, err := r.open.Seat(player)
		if err == nil {
			return r.seated(r.open, seat), nil
		}
		log.L.Debug("open party can't take more players", zap.Int64("party", r.open.ID()), zap.Error(err))
		r.open = nil
	}

	p := r.newParty()
	seat, err := p.Seat(player)
	if err != nil {
		return nil, err
	}
	return r.seated(p, seat), nil
}

// 坐满后就不再是open party
func (r *Registry) seated(p *core.Party, seat int) *Session {
	if seat == r.cfg.PlayerCount-1 {
		r.open = nil
	} else {
		r.open = p
	}
	return &Session{PartyID: p.ID(), Seat: seat}
}

// 调用方持锁
func (r *Registry) newParty() *core.Party {
	r.lastID++
	p := core.NewParty(r.lastID, r.cfg, r.rnd, r.recorder, r.onDisposed)
	if err := p.Start(); err != nil {
		panic(err)
	}
	r.parties[p.ID()] = p
	metrics.PartiesCreated.Inc()
	metrics.PartiesActive.Inc()
	log.L.Info("party created", zap.Int64("party", p.ID()))
	return p
}

func (r *Registry) onDisposed(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.parties[id]; !ok {
		return
	}
	delete(r.parties, id)
	if r.open != nil && r.open.ID() == id {
		r.open = nil
	}
	metrics.PartiesActive.Dec()
	log.L.Debug("party removed from registry", zap.Int64("party", id))
}

// 已销毁的party返回nil
func (r *Registry) Get(id int64) *core.Party {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.parties[id]
}

func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.parties)
}

// 关闭所有party，不通知玩家
func (r *Registry) Close() {
	r.mu.Lock()
	parties := make([]*core.Party, 0, len(r.parties))
	for _, p := range r.parties {
		parties = append(parties, p)
	}
	r.open = nil
	r.mu.Unlock()

	for _, p := range parties {
		p.Close()
	}
}
