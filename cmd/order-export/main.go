// Command order-export streams the persisted order graph to compressed
// NDJSON shard files and audits tracking-number uniqueness along the way.
// The audit exists because the generated token is only probabilistically
// unique at creation time; this tool gives operators an exact answer.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront-checkout/internal/storage/postgres"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
)

const (
	exportItemsSQL = `SELECT order_id, product_id, quantity, unit_price
		FROM order_items ORDER BY order_id, id`

	exportOrdersSQL = `SELECT o.id, o.tracking_number, o.status, o.total_quantity, o.total_price,
			o.date_created, c.email
		FROM orders o
		JOIN customers c ON c.id = o.customer_id
		ORDER BY o.id`

	countTrackingSQL = `SELECT COUNT(*) FROM orders WHERE tracking_number = $1`
)

type exportItem struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

type exportOrder struct {
	TrackingNumber string          `json:"trackingNumber"`
	Status         string          `json:"status"`
	TotalQuantity  int             `json:"totalQuantity"`
	TotalPrice     decimal.Decimal `json:"totalPrice"`
	CustomerEmail  string          `json:"customerEmail"`
	DateCreated    time.Time       `json:"dateCreated"`
	Items          []exportItem    `json:"items"`
}

func main() {
	var (
		databaseURL string
		outDir      string
		shards      int
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&outDir, "out-dir", "export", "directory to write orders-N.ndjson.gz shards into")
	flag.IntVar(&shards, "shards", 3, "number of concurrent output shards")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if shards < 1 {
		shards = 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, outDir, shards); err != nil {
		slog.Error("order export failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("order export completed successfully")
}

func run(ctx context.Context, databaseURL, outDir string, shards int) error {
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return errors.Wrap(err, "create output directory")
	}

	items, err := loadItems(ctx, pool)
	if err != nil {
		return errors.Wrap(err, "load order items")
	}

	records := make(chan exportOrder, 256)
	filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
	var suspects []string

	g, ctx := errgroup.WithContext(ctx)

	// Producer: stream order rows, attach items, prefilter duplicates.
	g.Go(func() error {
		defer close(records)

		rows, err := pool.Query(ctx, exportOrdersSQL)
		if err != nil {
			return errors.Wrap(err, "query orders")
		}
		defer rows.Close()

		exported := 0
		for rows.Next() {
			var (
				orderID int64
				rec     exportOrder
			)
			err := rows.Scan(&orderID, &rec.TrackingNumber, &rec.Status,
				&rec.TotalQuantity, &rec.TotalPrice, &rec.DateCreated, &rec.CustomerEmail)
			if err != nil {
				return errors.Wrap(err, "scan order")
			}
			rec.Items = items[orderID]

			// A bloom hit only means "maybe seen"; exact verification
			// happens after the export pass.
			if filter.TestOrAddString(rec.TrackingNumber) {
				suspects = append(suspects, rec.TrackingNumber)
			}

			select {
			case records <- rec:
			case <-ctx.Done():
				return ctx.Err()
			}
			exported++
		}
		if err := rows.Err(); err != nil {
			return errors.Wrap(err, "iterate orders")
		}

		slog.Info("orders streamed", slog.Int("count", exported))
		return nil
	})

	// Shard writers: one compressed NDJSON file each.
	for shard := range shards {
		path := filepath.Join(outDir, fmt.Sprintf("orders-%d.ndjson.gz", shard+1))
		g.Go(func() error {
			return writeShard(path, records)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	return auditSuspects(ctx, pool, suspects)
}

// loadItems reads all order items grouped by owning order.
func loadItems(ctx context.Context, pool *pgxpool.Pool) (map[int64][]exportItem, error) {
	rows, err := pool.Query(ctx, exportItemsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "query items")
	}
	defer rows.Close()

	items := make(map[int64][]exportItem)
	for rows.Next() {
		var (
			orderID int64
			item    exportItem
		)
		if err := rows.Scan(&orderID, &item.ProductID, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, errors.Wrap(err, "scan item")
		}
		items[orderID] = append(items[orderID], item)
	}
	return items, rows.Err()
}

// writeShard drains records into one pgzip-compressed NDJSON file.
func writeShard(path string, records <-chan exportOrder) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer f.Close()

	zw := pgzip.NewWriter(f)
	enc := json.NewEncoder(zw)

	written := 0
	for rec := range records {
		if err := enc.Encode(rec); err != nil {
			return errors.Wrapf(err, "encode order %s", rec.TrackingNumber)
		}
		written++
	}

	if err := zw.Close(); err != nil {
		return errors.Wrapf(err, "close %s", path)
	}
	slog.Info("shard written", slog.String("path", path), slog.Int("orders", written))
	return nil
}

// auditSuspects verifies bloom-filter hits with exact counts and reports any
// tracking number held by more than one order.
func auditSuspects(ctx context.Context, pool *pgxpool.Pool, suspects []string) error {
	duplicates := 0
	for _, trackingNumber := range suspects {
		var count int
		if err := pool.QueryRow(ctx, countTrackingSQL, trackingNumber).Scan(&count); err != nil {
			return errors.Wrapf(err, "count tracking number %s", trackingNumber)
		}
		if count > 1 {
			duplicates++
			slog.Warn("duplicate tracking number",
				slog.String("tracking_number", trackingNumber),
				slog.Int("orders", count))
		}
	}

	if duplicates > 0 {
		return errors.Errorf("%d duplicate tracking numbers found", duplicates)
	}
	slog.Info("tracking number audit clean", slog.Int("bloom_hits", len(suspects)))
	return nil
}
