package database

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/dnldd/hunter/hunter"
	"github.com/dnldd/hunter/shared"
	"github.com/google/uuid"
	rqlitehttp "github.com/rqlite/rqlite-go-http"
	"github.com/rs/zerolog"
)

const (
	// SQL statements.
	createTradeTableSQL    = "CREATE TABLE IF NOT EXISTS trade (id TEXT PRIMARY KEY, market TEXT, direction TEXT, entryprice REAL, exitprice REAL, initialstop REAL, exitreason TEXT, realizedrr REAL, barsheld INTEGER, degenerate INTEGER, entrytime INTEGER, createdon INTEGER)"
	createMetadataTableSQL = "CREATE TABLE IF NOT EXISTS metadata (id TEXT PRIMARY KEY, total INTEGER, wins INTEGER, losses INTEGER, netrr REAL, createdon INTEGER)"
	persistTradeSQL        = "INSERT INTO trade(id, market, direction, entryprice, exitprice, initialstop, exitreason, realizedrr, barsheld, degenerate, entrytime, createdon) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)"
	findMetadataSQL        = "SELECT * FROM metadata WHERE id = ?"
	updateMetadataSQL      = "UPDATE metadata SET total = total + 1, wins = wins + ?, losses = losses + ?, netrr = netrr + ? WHERE id = ?"
	persistMetadataSQL     = "INSERT INTO metadata(id, total, wins, losses, netrr, createdon) VALUES(?,?,?,?,?,?)"
)

// TradeStorer defines the requirements for storing concluded trades.
type TradeStorer interface {
	// PersistExitedTrade stores the provided exited trade to the database.
	PersistExitedTrade(ctx context.Context, exit *hunter.Exited) error
}

// DatabaseConfig is the configuration for the database.
type DatabaseConfig struct {
	// Endpoint represents the database connection endpoint.
	Endpoint string
	// User is the database user.
	User string
	// Pass is the database user pass.
	Pass string
	// Logger is the database logger.
	Logger *zerolog.Logger
}

// Database represents the database connection.
type Database struct {
	cfg    *DatabaseConfig
	client *rqlitehttp.Client
}

// Ensure the database implements the TradeStorer interface.
var _ TradeStorer = (*Database)(nil)

// NewDatabase initializes a new database connection.
func NewDatabase(ctx context.Context, cfg *DatabaseConfig) (*Database, error) {
	httpc := &http.Client{Timeout: time.Second * 5}
	client, err := rqlitehttp.NewClient(cfg.Endpoint, httpc)
	if err != nil {
		return nil, fmt.Errorf("creating database client: %w", err)
	}

	client.SetBasicAuth(cfg.User, cfg.Pass)

	db := &Database{
		cfg:    cfg,
		client: client,
	}

	err = db.bootstrap(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrapping database: %w", err)
	}

	return db, nil
}

// bootstrap initializes the database.
func (db *Database) bootstrap(ctx context.Context) error {
	_, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
		{SQL: createTradeTableSQL},
		{SQL: createMetadataTableSQL},
	}, &rqlitehttp.ExecuteOptions{
		Transaction: true,
		Timings:     true,
	})
	if err != nil {
		return err
	}

	return nil
}

// generateMetadataID generates deterministic ids for metadata using the
// current month, week and market.
func generateMetadataID(currentTime time.Time, market string) string {
	month := currentTime.Month().String()
	week := currentTime.Day() / 7

	id := fmt.Sprintf("%s-Week-%d-%s", month, week, market)
	return id
}

// PersistExitedTrade stores the provided exited trade to the database and
// updates the weekly metadata tally for its market.
func (db *Database) PersistExitedTrade(ctx context.Context, exit *hunter.Exited) error {
	if exit.Position == nil {
		// Exits without a position (choppy abandons, confirmation timeouts)
		// carry no trade to record.
		return nil
	}

	pos := exit.Position
	now, _, err := shared.NewYorkTime()
	if err != nil {
		return err
	}

	degenerate := 0
	if exit.Degenerate {
		degenerate = 1
	}

	_, err = db.client.Execute(ctx, rqlitehttp.SQLStatements{
		{
			SQL: persistTradeSQL,
			PositionalParams: []any{uuid.New().String(), pos.Market, pos.Direction.String(),
				pos.EntryPrice, exit.ExitPrice, pos.InitialStop, exit.Reason.String(),
				exit.RealizedRR, exit.BarsHeld, degenerate, pos.EntryTime.Unix(), now.Unix()},
		},
	}, &rqlitehttp.ExecuteOptions{Transaction: true, Timings: true})
	if err != nil {
		return err
	}

	var win, loss int
	switch {
	case exit.RealizedRR > 0:
		win++
	case exit.RealizedRR < 0:
		loss++
	default:
		db.cfg.Logger.Info().Msgf("breakeven trade excluded from win/loss tally: %s", spew.Sdump(exit))
	}

	id := generateMetadataID(now, pos.Market)
	resp, err := db.client.QuerySingle(ctx, findMetadataSQL, id)
	if err != nil {
		return err
	}

	exists := len(resp.GetQueryResultsAssoc()) > 0
	switch {
	case exists:
		resp, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
			{
				SQL:              updateMetadataSQL,
				PositionalParams: []any{win, loss, exit.RealizedRR, id},
			},
		}, &rqlitehttp.ExecuteOptions{Transaction: true, Timings: true})
		if err != nil {
			return err
		}
		has, idx, errStr := resp.HasError()
		if has {
			return fmt.Errorf("updating metadata %s: %d -> %s", id, idx, errStr)
		}
	default:
		resp, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
			{
				SQL:              persistMetadataSQL,
				PositionalParams: []any{id, 1, win, loss, exit.RealizedRR, now.Unix()},
			},
		}, &rqlitehttp.ExecuteOptions{Transaction: true, Timings: true})
		if err != nil {
			return err
		}
		has, idx, errStr := resp.HasError()
		if has {
			return fmt.Errorf("persisting metadata %s: %d -> %s", id, idx, errStr)
		}
	}

	return nil
}
