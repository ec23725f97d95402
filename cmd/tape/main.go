package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/erain9/marketsim/pkg/messaging"
	"github.com/erain9/marketsim/pkg/messaging/kafka"
)

var (
	brokerAddr = flag.String("broker", "localhost:9092", "Kafka broker address")
	topic      = flag.String("topic", "marketsim-trades", "trade tape topic")
)

func main() {
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	consumer := kafka.NewTradeConsumer(*brokerAddr, *topic, log.With().Str("component", "tape").Logger())
	defer consumer.Close()

	green := color.New(color.FgGreen).SprintfFunc()
	yellow := color.New(color.FgYellow).SprintfFunc()

	log.Info().Str("broker", *brokerAddr).Str("topic", *topic).Msg("Following trade tape")

	err := consumer.Consume(ctx, func(trade messaging.TradeMessage) error {
		line := fmt.Sprintf("%s  %-8s  %10s x %-8d  %s -> %s",
			trade.Time.Format("15:04:05.000"),
			trade.Instrument,
			trade.Price,
			trade.Quantity,
			trade.Seller,
			trade.Buyer,
		)
		if trade.Auction {
			fmt.Println(yellow("%s  UNCROSS", line))
		} else {
			fmt.Println(green("%s", line))
		}
		return nil
	})
	if err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("Tape consumer failed")
	}
}
