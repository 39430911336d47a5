// Command resolve looks up the image id of a Roblox asset from the command
// line, using the same resolver as the dashboard.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"capedash/internal/infra"
	"capedash/internal/providers/roblox"
)

func main() {
	_ = godotenv.Load()

	retries := flag.Int("retries", 15, "thumbnail lookups before falling back to asset delivery")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-retries n] <asset-id>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	logger := infra.NewLogger(os.Getenv("APP_ENV"))
	timeout := infra.DurationFromEnv("RESOLVE_REQUEST_TIMEOUT_SECONDS", 20)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lookup := roblox.NewClient(roblox.Options{
		ThumbnailsURL:    os.Getenv("ROBLOX_THUMBNAILS_URL"),
		AssetDeliveryURL: os.Getenv("ROBLOX_ASSET_DELIVERY_URL"),
		RequestTimeout:   timeout,
		Logger:           &logger,
	})
	res := roblox.NewResolver(lookup, roblox.ResolverOptions{Logger: &logger}).Resolve(ctx, flag.Arg(0), *retries)

	switch res.Outcome {
	case roblox.OutcomeResolved:
		fmt.Println(res.ImageID)
	case roblox.OutcomeInvalid:
		logger.Error().Str("asset_id", flag.Arg(0)).Msg("asset id must be a positive integer")
		os.Exit(2)
	default:
		logger.Warn().Str("asset_id", res.AssetID.String()).Int("attempts", res.Attempts).Msg("image id not available yet")
		os.Exit(1)
	}
}
