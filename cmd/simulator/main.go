package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erain9/marketsim/config"
	"github.com/erain9/marketsim/pkg/agent"
	"github.com/erain9/marketsim/pkg/core"
	"github.com/erain9/marketsim/pkg/db/queue"
	"github.com/erain9/marketsim/pkg/exchange"
	"github.com/erain9/marketsim/pkg/logging"
	"github.com/erain9/marketsim/pkg/marketdata"
	mdredis "github.com/erain9/marketsim/pkg/marketdata/redis"
	"github.com/erain9/marketsim/pkg/messaging"
	"github.com/erain9/marketsim/pkg/messaging/kafka"
	"github.com/erain9/marketsim/pkg/otel"
	"github.com/nikolaydubina/fpdecimal"
	redisClient "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logging.Setup(logging.Config{
		Level:  cfg.Server.LogLevel,
		Pretty: cfg.Server.LogFormat == "pretty",
	})

	shutdownTracing, err := otel.Init(otel.Config{
		Endpoint:         cfg.Otel.Endpoint,
		CollectorEnabled: cfg.Otel.Enabled,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Tracing disabled")
		shutdownTracing = func() {}
	}
	defer shutdownTracing()

	tickSize, err := fpdecimal.FromString(cfg.Instrument.TickSize)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid tick size")
	}
	refPrice, err := fpdecimal.FromString(cfg.Instrument.ReferencePrice)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid reference price")
	}

	instrument := core.NewInstrument(cfg.Instrument.Symbol, core.NewConstantTick(tickSize))
	open, err := dayOpen(cfg.Simulation.Open)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid open time")
	}
	clock := core.NewSimClock(open, cfg.Simulation.Speed)

	var tape messaging.TradeSink = messaging.NewTapeSink()
	if cfg.Kafka.Enabled {
		kafkaSink, err := kafka.NewKafkaTradeSink(cfg.Kafka.BrokerAddr, cfg.Kafka.TradeTopic)
		if err != nil {
			log.Warn().Err(err).Msg("Kafka unavailable, using in-memory tape")
		} else {
			defer kafkaSink.Close()
			tape = kafkaSink
		}
	}

	manager := exchange.NewOrderManager(instrument, clock, tape)
	manager.SetReference(instrument.LevelFor(refPrice))

	if cfg.Simulation.AuditEnabled {
		audit, err := queue.NewQueueAuditAppender()
		if err != nil {
			log.Warn().Err(err).Msg("Audit log unavailable")
		} else {
			defer audit.Close()
			manager.SetAudit(audit)
		}
	}

	market := exchange.NewMarketManager(clock, manager.Trigger)
	market.SetCalendar(exchange.DefaultCalendar(cfg.Simulation.AuctionLength.Std(), cfg.Simulation.ContinuousLength.Std()), open)
	if cfg.Simulation.PriceMonitorOn {
		market.EnablePriceMonitor(cfg.Simulation.MonitorThreshold, cfg.Simulation.UnscheduledLength.Std())
	}
	manager.SetMarketManager(market)

	data := marketdata.NewCache(marketdata.ManagerSource(cfg.Instrument.Symbol, manager), cfg.Simulation.SnapshotMaxAge.Std())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.Simulation.RedisSnapshotsOn {
		client := redisClient.NewClient(&redisClient.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		publisher := mdredis.NewPublisher(client, "marketsim", log.With().Str("component", "redis_publisher").Logger())
		defer publisher.Close()

		go func() {
			ticker := time.NewTicker(cfg.Simulation.SnapshotPublishGap.Std())
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := publisher.Publish(ctx, data.Get()); err != nil {
						log.Warn().Err(err).Msg("Snapshot publish failed")
					}
				}
			}
		}()
	}

	agents := make([]agent.Agent, 0, cfg.Instrument.Agents+cfg.Instrument.Makers)
	for i := 0; i < cfg.Instrument.Agents; i++ {
		a := agent.NewRandomAgent(fmt.Sprintf("agent-%d", i+1), manager, instrument, data)
		a.MarketRatio = cfg.Instrument.MarketRatio
		agents = append(agents, a)
	}
	for i := 0; i < cfg.Instrument.Makers; i++ {
		agents = append(agents, agent.NewMakerAgent(fmt.Sprintf("maker-%d", i+1), manager, instrument, data, clock))
	}

	go manager.Run(ctx)
	market.ScheduleDay()

	log.Info().
		Str("symbol", cfg.Instrument.Symbol).
		Float64("speed", cfg.Simulation.Speed).
		Int("agents", len(agents)).
		Msg("Simulator running")

	agent.NewSupervisor(agents...).Start(ctx)
	log.Info().Msg("Simulator stopped")
}

// dayOpen parses HH:MM into today's simulation open time.
func dayOpen(hhmm string) (time.Time, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, err
	}
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC), nil
}
