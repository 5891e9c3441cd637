// Package postgres stores listing batches in PostgreSQL.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"relentless-autoscout/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS listings (
	id BIGSERIAL PRIMARY KEY,
	session_id TEXT NOT NULL,
	listing_id TEXT,
	make TEXT,
	model TEXT,
	version TEXT,
	price INTEGER,
	currency TEXT NOT NULL,
	mileage_km INTEGER,
	first_registration TEXT,
	fuel_type TEXT,
	transmission TEXT,
	power_hp INTEGER,
	power_kw INTEGER,
	body_type TEXT,
	color TEXT,
	num_doors INTEGER,
	num_seats INTEGER,
	seller_name TEXT,
	seller_type TEXT,
	location_city TEXT,
	location_country TEXT,
	location_zip TEXT,
	image_url TEXT,
	url TEXT NOT NULL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_listings_make_model ON listings(make, model);
CREATE INDEX IF NOT EXISTS idx_listings_price ON listings(price);
CREATE INDEX IF NOT EXISTS idx_listings_session ON listings(session_id);
`

const insertSQL = `
INSERT INTO listings (
	session_id, listing_id, make, model, version, price, currency, mileage_km,
	first_registration, fuel_type, transmission, power_hp, power_kw, body_type,
	color, num_doors, num_seats, seller_name, seller_type, location_city,
	location_country, location_zip, image_url, url
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
ON CONFLICT (url) DO NOTHING;
`

// conn is the subset of *pgxpool.Pool used by the writer.
type conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Ping(ctx context.Context) error
}

// ListingWriter inserts listings, ignoring URLs already stored.
type ListingWriter struct {
	conn  conn
	close func()
}

// NewListingWriter connects to databaseURL and verifies the connection.
func NewListingWriter(ctx context.Context, databaseURL string) (*ListingWriter, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(connectCtx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect postgres: %w", err)
	}

	return &ListingWriter{conn: pool, close: pool.Close}, nil
}

// NewListingWriterWithConn builds a writer over an existing connection (tests).
func NewListingWriterWithConn(c conn) *ListingWriter {
	return &ListingWriter{conn: c}
}

// Close releases the pool.
func (w *ListingWriter) Close() {
	if w.close != nil {
		w.close()
	}
}

// Ping checks connectivity.
func (w *ListingWriter) Ping(ctx context.Context) error {
	return w.conn.Ping(ctx)
}

// EnsureSchema creates the listings table and indexes.
func (w *ListingWriter) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	if _, err := w.conn.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// SessionWriter writes the batches of one crawl session.
type SessionWriter struct {
	writer    *ListingWriter
	sessionID string
}

// ForSession returns a batch sink tagging rows with sessionID.
func (w *ListingWriter) ForSession(sessionID string) *SessionWriter {
	return &SessionWriter{writer: w, sessionID: sessionID}
}

// PushBatch inserts every listing of the batch in one round trip.
func (s *SessionWriter) PushBatch(ctx context.Context, listings []models.ListingRecord) error {
	if len(listings) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	batch := &pgx.Batch{}
	for _, l := range listings {
		batch.Queue(insertSQL,
			s.sessionID, l.ID, l.Make, l.Model, l.Version, l.Price, l.Currency, l.MileageKm,
			l.FirstRegistration, l.FuelType, l.Transmission, l.PowerHP, l.PowerKW, l.BodyType,
			l.Color, l.NumDoors, l.NumSeats, l.SellerName, l.SellerType, l.LocationCity,
			l.LocationCountry, l.LocationZip, l.ImageURL, l.URL,
		)
	}

	results := s.writer.conn.SendBatch(ctx, batch)
	defer results.Close()

	for i := range listings {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch insert failed at row %d: %w", i, err)
		}
	}
	return nil
}
