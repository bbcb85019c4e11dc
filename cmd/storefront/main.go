// Command storefront is the customer's terminal client: it keeps a cart per
// session, finds the customer's location and places orders with the API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/Chetan2520/india-food-court/internal/cache"
	"github.com/Chetan2520/india-food-court/internal/cart"
	"github.com/Chetan2520/india-food-court/internal/config"
	"github.com/Chetan2520/india-food-court/internal/geo"
	"github.com/Chetan2520/india-food-court/internal/localstore"
	"github.com/Chetan2520/india-food-court/internal/logger"
	"github.com/Chetan2520/india-food-court/internal/storefront"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const usage = `usage: storefront <command> [flags]

commands:
  add -id ID -name NAME -price P [-discount D] [-image URL] [-qty N]
  qty ID N            set quantity (0 removes)
  remove ID
  clear
  show
  locate [-lat L -lng L | -deny]
  retry-location [-lat L -lng L | -deny]
  eligibility [-lat L -lng L | -deny]
  checkout [-lat L -lng L | -deny]
`

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.LogLevel, true)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// session bundles the per-session stores; both backends implement both.
type session interface {
	cart.Store
	storefront.LocationStore
}

func openSession(ctx context.Context, cfg *config.Client) (session, func(), error) {
	if cfg.CartStore == "redis" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("redis connection failed: %w", err)
		}
		return cache.NewSessionStore(client, 0).Session(cfg.SessionID), func() { client.Close() }, nil
	}

	store, err := localstore.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	return store.Session(cfg.SessionID), func() { store.Close() }, nil
}

func run(ctx context.Context, cfg *config.Client, log *zap.Logger, args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return nil
	}
	cmd, rest := args[0], args[1:]

	sess, closeSession, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSession()

	agg, err := cart.NewAggregator(ctx, sess)
	if err != nil {
		return err
	}

	switch cmd {
	case "add":
		return addItem(ctx, agg, rest, out)
	case "qty":
		if len(rest) != 2 {
			return errors.New("usage: qty ID N")
		}
		n, err := strconv.Atoi(rest[1])
		if err != nil {
			return fmt.Errorf("invalid quantity %q", rest[1])
		}
		if err := agg.SetQty(ctx, rest[0], n); err != nil {
			return err
		}
		return showCart(agg, out)
	case "remove":
		if len(rest) != 1 {
			return errors.New("usage: remove ID")
		}
		if err := agg.RemoveItem(ctx, rest[0]); err != nil {
			return err
		}
		return showCart(agg, out)
	case "clear":
		return agg.Clear(ctx)
	case "show":
		return showCart(agg, out)
	case "locate", "retry-location", "eligibility", "checkout":
		return locationCommand(ctx, cfg, log, cmd, rest, agg, sess, out)
	default:
		fmt.Fprint(out, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func addItem(ctx context.Context, agg *cart.Aggregator, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	id := fs.String("id", "", "item id")
	name := fs.String("name", "", "item name")
	price := fs.Float64("price", 0, "original price")
	discount := fs.Float64("discount", 0, "discounted price")
	image := fs.String("image", "", "image url")
	qty := fs.Int("qty", 1, "quantity")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("add: -id is required")
	}

	item := cart.Item{ID: *id, Name: *name, OriginalPrice: *price, DiscountPrice: *discount, Image: *image}
	if err := agg.AddItem(ctx, item, *qty); err != nil {
		return err
	}
	return showCart(agg, out)
}

func showCart(agg *cart.Aggregator, out io.Writer) error {
	lines := agg.Lines()
	if len(lines) == 0 {
		fmt.Fprintln(out, "Your cart is empty")
		return nil
	}
	for _, l := range lines {
		price := cart.EffectivePrice(l)
		fmt.Fprintf(out, "%-12s %-24s %3d x %8.2f = %9.2f\n", l.ItemID, l.Name, l.Qty, price, price*float64(l.Qty))
	}
	fmt.Fprintf(out, "items: %d  total: %.2f\n", agg.Count(), agg.Total())
	return nil
}

func locationCommand(ctx context.Context, cfg *config.Client, log *zap.Logger, cmd string, args []string,
	agg *cart.Aggregator, sess session, out io.Writer) error {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	lat := fs.String("lat", "", "latitude to report instead of looking it up")
	lng := fs.String("lng", "", "longitude to report instead of looking it up")
	deny := fs.Bool("deny", false, "behave as if location access is switched off")
	if err := fs.Parse(args); err != nil {
		return err
	}

	provider, err := chooseProvider(cfg, *lat, *lng, *deny)
	if err != nil {
		return err
	}
	locator := storefront.NewLocator(provider, sess, cfg.GeolocationTimeout, log.Named("locator"))

	// explicit coordinates replace whatever was stored
	if (*lat != "" || *lng != "") && cmd != "retry-location" {
		if _, err := locator.Retry(ctx); err != nil {
			return explain(err)
		}
	}

	switch cmd {
	case "locate":
		c, err := locator.Locate(ctx)
		if err != nil {
			return explain(err)
		}
		fmt.Fprintf(out, "location: %.6f, %.6f\n", c.Latitude, c.Longitude)
		return nil
	case "retry-location":
		c, err := locator.Retry(ctx)
		if err != nil {
			return explain(err)
		}
		fmt.Fprintf(out, "location: %.6f, %.6f\n", c.Latitude, c.Longitude)
		return nil
	}

	api := storefront.NewAPIClient(cfg.APIURL, cfg.SessionID, cfg.RequestTimeout)
	checkout := storefront.NewCheckout(agg, locator, api, geo.NewGate(geo.DefaultMinDistanceMeters), log.Named("checkout"))

	if cmd == "eligibility" {
		e, err := checkout.Eligibility(ctx)
		if err != nil {
			return explain(err)
		}
		if e.Allowed {
			fmt.Fprintf(out, "You are %.0fm from the shop. Ordering is available.\n", e.DistanceMeters)
			return nil
		}
		fmt.Fprintln(out, e.Reason)
		return nil
	}

	id, err := checkout.PlaceOrder(ctx)
	if err != nil {
		return explain(err)
	}
	fmt.Fprintf(out, "Order placed successfully! ID: %s\n", id)
	return nil
}

// chooseProvider prefers explicit coordinates, then the IP lookup. Without
// explicit coordinates a stored location is used before asking the provider.
func chooseProvider(cfg *config.Client, lat, lng string, deny bool) (storefront.GeolocationProvider, error) {
	if deny {
		return storefront.DeniedProvider{}, nil
	}
	if lat != "" || lng != "" {
		la, err := strconv.ParseFloat(lat, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid -lat %q", lat)
		}
		ln, err := strconv.ParseFloat(lng, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid -lng %q", lng)
		}
		return storefront.StaticProvider{Coordinate: geo.Coordinate{Latitude: la, Longitude: ln}}, nil
	}
	return storefront.NewIPProvider(cfg.GeoIPURL, nil), nil
}

func explain(err error) error {
	var gerr *storefront.GeolocationError
	switch {
	case errors.Is(err, storefront.ErrEmptyCart):
		return errors.New("Your cart is empty")
	case errors.As(err, &gerr) && gerr.Retryable():
		return fmt.Errorf("%s (run `storefront retry-location` to try again)", gerr.Error())
	}
	return err
}
