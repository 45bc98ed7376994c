// cartstate/main.go

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/norun9/microservices-demo-ambient/src/cartstate/cartstore"
	"github.com/norun9/microservices-demo-ambient/src/cartstate/services"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

type options struct {
	items    []string
	removes  []string
	complete bool
	format   string
	trace    bool
	logLevel string
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "cartstate",
		Short:         "Build a cart in memory and print its state",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := run(cmd.Context(), opts, stdout, stderr); err != nil {
				fmt.Fprintln(stderr, "Error:", err)
				return err
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringArrayVar(&opts.items, "item", nil, "item to add as id:quantity[:price] (repeatable)")
	f.StringArrayVar(&opts.removes, "remove", nil, "id of an item to remove (repeatable)")
	f.BoolVar(&opts.complete, "complete", false, "mark the purchase as completed")
	f.StringVar(&opts.format, "format", "json", "output format: json or text")
	f.BoolVar(&opts.trace, "trace", os.Getenv("CARTSTATE_TRACE") == "1", "write spans to stderr")
	f.StringVar(&opts.logLevel, "log-level", envOr("LOG_LEVEL", "info"), "log level")

	return cmd
}

func run(ctx context.Context, opts *options, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.format != "json" && opts.format != "text" {
		return errors.Errorf("unknown format %q", opts.format)
	}

	log, err := newLogger(opts.logLevel, stderr)
	if err != nil {
		return err
	}

	var svcOpts []services.Option
	if opts.trace {
		tp, err := initTracerProvider(ctx, stderr)
		if err != nil {
			return err
		}
		defer func() {
			if err := tp.Shutdown(ctx); err != nil {
				log.WithError(err).Warn("error shutting down tracer provider")
			}
		}()
		svcOpts = append(svcOpts, services.WithTracerProvider(tp))
	}

	svc := services.NewCartService(cartstore.NewRegistry(log), log, svcOpts...)

	for _, raw := range opts.items {
		item, err := parseItem(raw)
		if err != nil {
			return err
		}
		if err := svc.AddItem(ctx, item); err != nil {
			return err
		}
	}
	for _, id := range opts.removes {
		if err := svc.RemoveItem(ctx, id); err != nil {
			return err
		}
	}
	if opts.complete {
		svc.CompletePurchase(ctx)
	}

	snap := svc.Snapshot(ctx)
	if opts.format == "text" {
		printText(stdout, snap)
		return nil
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// parseItem reads "id:quantity[:price]".
func parseItem(s string) (cartstore.CartItem, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return cartstore.CartItem{}, errors.Errorf("item %q: want id:quantity[:price]", s)
	}

	qty, err := strconv.ParseInt(parts[1], 10, 32)
	if err != nil {
		return cartstore.CartItem{}, errors.Wrapf(err, "item %q: quantity", s)
	}
	item := cartstore.CartItem{ID: parts[0], Quantity: int32(qty)}

	if len(parts) == 3 {
		price, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return cartstore.CartItem{}, errors.Wrapf(err, "item %q: price", s)
		}
		item.Price = price
	}
	return item, nil
}

func printText(w io.Writer, snap cartstore.Snapshot) {
	bold := color.New(color.Bold)
	bold.Fprintf(w, "cart %s\n", snap.SessionID)
	for _, item := range snap.Items {
		fmt.Fprintf(w, "  %-12s x%-4d %10.2f\n", item.ID, item.Quantity, item.Price)
	}
	fmt.Fprintf(w, "  %-18s %10.2f\n", "total", snap.Total)
	if snap.PurchaseCompleted {
		color.New(color.FgGreen).Fprintln(w, "purchase completed")
	} else {
		color.New(color.FgYellow).Fprintln(w, "purchase pending")
	}
}

func newLogger(level string, out io.Writer) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrap(err, "log level")
	}
	log := logrus.New()
	log.Level = lvl
	log.Formatter = &logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "severity",
			logrus.FieldKeyMsg:   "message",
		},
		TimestampFormat: time.RFC3339Nano,
	}
	log.Out = out
	return log, nil
}

// initTracerProvider writes each span to w as JSON when it ends.
func initTracerProvider(ctx context.Context, w io.Writer) (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create stdout exporter")
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String("cartstate"),
			semconv.ServiceVersionKey.String("v1.0.0"),
		),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create resource")
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSyncer(exporter),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
