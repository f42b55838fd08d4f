// Command classify runs the trade classifier over a saved webhook payload and
// prints the decision for each (transaction, address) pair.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"whale-alerts/internal/classify"
	"whale-alerts/internal/dexscreener"
	"whale-alerts/internal/domain"
	"whale-alerts/internal/httpjson"
	"whale-alerts/internal/ingest"
	"whale-alerts/internal/metadata"
	"whale-alerts/internal/pricing"
	"whale-alerts/internal/render"
)

// fixedPrice is an oracle that always answers with one price.
type fixedPrice decimal.Decimal

func (p fixedPrice) CurrentPrice(context.Context) decimal.Decimal { return decimal.Decimal(p) }

// Decision is one printed line of output.
type Decision struct {
	Signature string                  `json:"signature"`
	Address   string                  `json:"address"`
	Accepted  bool                    `json:"accepted"`
	Reject    domain.RejectReason     `json:"reject,omitempty"`
	Native    string                  `json:"native_delta"`
	Stable    string                  `json:"stable_delta"`
	Source    string                  `json:"native_source"`
	Trade     *domain.ClassifiedTrade `json:"trade,omitempty"`
	Message   string                  `json:"message,omitempty"`
}

func main() {
	file := flag.String("file", "", "Webhook JSON payload (array or single object, required)")
	address := flag.String("address", "", "Tracked address (default: every candidate in the transaction)")
	price := flag.Float64("price", 0, "Fixed SOL/USD price (default: live oracle)")
	minUSD := flag.Float64("min-usd", 10, "Minimum alert value in USD")
	offline := flag.Bool("offline", false, "Skip metadata lookups and use abbreviated mints")
	timeout := flag.Duration("timeout", 5*time.Second, "Timeout for network lookups")
	flag.Parse()

	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	if *file == "" {
		logger.Fatal("--file is required")
	}
	body, err := os.ReadFile(*file)
	if err != nil {
		logger.Fatalf("read payload: %v", err)
	}
	events, err := ingest.DecodeEvents(body)
	if err != nil {
		logger.Fatalf("decode payload: %v", err)
	}

	var oracle classify.PriceOracle
	if *price > 0 {
		oracle = fixedPrice(decimal.NewFromFloat(*price))
	} else {
		oracle = pricing.NewOracle(pricing.Options{Timeout: *timeout, Logger: logger},
			pricing.NewPythSource("", httpjson.WithTimeout(*timeout)),
			pricing.NewDexScreenerSource(dexscreener.NewClient("", httpjson.WithTimeout(*timeout))),
		)
	}

	var sources []metadata.Source
	if !*offline {
		sources = append(sources,
			metadata.NewDexScreenerSource(dexscreener.NewClient("", httpjson.WithTimeout(*timeout))),
			metadata.NewPumpFunSource("", httpjson.WithTimeout(*timeout)),
		)
	}
	resolver := metadata.NewResolver(metadata.NewCache(metadata.DefaultTTL, metadata.DefaultMaxEntries),
		metadata.Options{Timeout: *timeout, Logger: logger}, sources...)

	classifier := classify.New(oracle, resolver, classify.Options{
		MinValueUSD: decimal.NewFromFloat(*minUSD),
		Logger:      logger,
	})

	ctx := context.Background()
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	for _, ev := range events {
		addrs := []string{*address}
		if *address == "" {
			addrs = ingest.CandidateAddresses(ev)
		}
		for _, addr := range addrs {
			res := classifier.Classify(ctx, ev, addr)
			d := Decision{
				Signature: ev.Signature,
				Address:   addr,
				Accepted:  res.Accepted(),
				Reject:    res.Reject,
				Native:    res.Deltas.Native.String(),
				Stable:    res.Deltas.Stable.String(),
				Source:    res.Deltas.NativeSource,
				Trade:     res.Trade,
			}
			if res.Trade != nil {
				d.Message = render.Render(*res.Trade, "").Text
			}
			if err := enc.Encode(d); err != nil {
				fmt.Fprintf(os.Stderr, "encode: %v\n", err)
				os.Exit(1)
			}
		}
	}
}
