package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/LeaguesOfHoleHoleShoes/Odin/common/log"
)

const namespace = "odin"

// move kinds
const (
	MoveKindPlay = "play"
	MoveKindPass = "pass"
	MoveKindPick = "pick"
)

// move results
const (
	MoveAccepted = "accepted"
	MoveRejected = "rejected"
)

var (
	PeersConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "players_connected",
		Help:      "websocket peers currently connected",
	})
	PartiesActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "parties_active",
		Help:      "parties held by the registry",
	})
	PartiesCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "parties_created_total",
		Help:      "parties created by matchmaking",
	})
	Moves = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "moves_total",
		Help:      "player moves by kind and result",
	}, []string{"kind", "result"})
	RoundsCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rounds_completed_total",
		Help:      "rounds that ended with an empty hand",
	})
	MatchesCompleted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "matches_completed_total",
		Help:      "matches that reached the round limit",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(PeersConnected, PartiesActive, PartiesCreated, Moves, RoundsCompleted, MatchesCompleted)
}

func ObserveMove(kind string, err error) {
	result := MoveAccepted
	if err != nil {
		result = MoveRejected
	}
	Moves.WithLabelValues(kind, result).Inc()
}

// Serve exposes /metrics on port, port 0 means disabled.
func Serve(port int) {
	if port == 0 {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(fmt.Sprintf(":%v", port), mux); err != nil {
			log.L.Error("metrics server stopped", zap.Int("port", port), zap.Error(err))
		}
	}()
}
