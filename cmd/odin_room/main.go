package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli"
	"go.uber.org/zap"

	"github.com/LeaguesOfHoleHoleShoes/Odin/common/log"
	"github.com/LeaguesOfHoleHoleShoes/Odin/common/metrics"
	"github.com/LeaguesOfHoleHoleShoes/Odin/common/mongo"
	"github.com/LeaguesOfHoleHoleShoes/Odin/common/util"
	"github.com/LeaguesOfHoleHoleShoes/Odin/odin"
	"github.com/LeaguesOfHoleHoleShoes/Odin/odin/abstracts"
	"github.com/LeaguesOfHoleHoleShoes/Odin/odin/archive"
	"github.com/LeaguesOfHoleHoleShoes/Odin/odin/core"
)

const (
	PortFName         = "port"
	MetricsPortFName  = "metrics_port"
	RoundLimitFName   = "round_limit"
	HandSizeFName     = "hand_size"
	RestartDelayFName = "restart_delay"
	DisposeDelayFName = "dispose_delay"
	MongoHostsFName   = "mongo_hosts"
	MongoDBFName      = "mongo_db"
	LogModeFName      = "log_mode"
)

func main() {
	// .env里的值作为环境变量，已经设置的环境变量优先
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		panic(err)
	}

	defaultCfg := core.DefaultConfig()
	app := cli.NewApp()
	app.Name = "odin_room"
	app.Usage = "three player odin card game server"
	app.Flags = []cli.Flag{
		cli.IntFlag{Name: PortFName, Value: 3030, EnvVar: "ODIN_PORT"},
		cli.IntFlag{Name: MetricsPortFName, Value: 9100, Usage: "0 disables /metrics", EnvVar: "ODIN_METRICS_PORT"},
		cli.IntFlag{Name: RoundLimitFName, Value: defaultCfg.RoundLimit, EnvVar: "ODIN_ROUND_LIMIT"},
		cli.IntFlag{Name: HandSizeFName, Value: defaultCfg.HandSize, EnvVar: "ODIN_HAND_SIZE"},
		cli.DurationFlag{Name: RestartDelayFName, Value: defaultCfg.RoundRestartDelay, EnvVar: "ODIN_RESTART_DELAY"},
		cli.DurationFlag{Name: DisposeDelayFName, Value: defaultCfg.DisposeDelay, EnvVar: "ODIN_DISPOSE_DELAY"},
		cli.StringSliceFlag{Name: MongoHostsFName, Usage: "empty disables archiving", EnvVar: "ODIN_MONGO_HOSTS"},
		cli.StringFlag{Name: MongoDBFName, Value: "odin", EnvVar: "ODIN_MONGO_DB"},
		cli.StringFlag{Name: LogModeFName, Value: "debug", Usage: "debug or prod", EnvVar: "ODIN_LOG_MODE"},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		panic(err)
	}
}

func run(c *cli.Context) error {
	log.InitLogByMode(c.String(LogModeFName))

	cfg := core.DefaultConfig()
	cfg.RoundLimit = c.Int(RoundLimitFName)
	cfg.HandSize = c.Int(HandSizeFName)
	cfg.RoundRestartDelay = c.Duration(RestartDelayFName)
	cfg.DisposeDelay = c.Duration(DisposeDelayFName)
	if err := cfg.Validate(); err != nil {
		return err
	}

	recorder, err := newRecorder(c.StringSlice(MongoHostsFName), c.String(MongoDBFName))
	if err != nil {
		return err
	}

	metrics.Serve(c.Int(MetricsPortFName))
	room := odin.NewRoomServer(c.Int(PortFName), cfg, util.CryptoRand{}, recorder)
	if err := room.Start(); err != nil {
		return err
	}
	log.L.Info("odin room started", zap.Int("port", c.Int(PortFName)), zap.Int("round limit", cfg.RoundLimit))

	signalListen(func() {
		if err := room.Stop(); err != nil {
			log.L.Error("stop room failed", zap.Error(err))
		}
		mongo.CloseDb()
		time.Sleep(1 * time.Second)
	})
	return nil
}

func newRecorder(hosts []string, dbName string) (abstracts.MatchRecorder, error) {
	if len(hosts) == 0 {
		log.L.Info("no mongo hosts, match archive disabled")
		return abstracts.NopRecorder{}, nil
	}
	return archive.NewMatchDBByMongo(mongo.NewDbConfig(hosts, dbName, "", ""), dbName)
}

// listen stop signal
func signalListen(stopFunc func()) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	<-c

	stopFunc()
}
