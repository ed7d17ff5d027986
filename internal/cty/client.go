package cty

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/user00265/ctyresolve/internal/config"
	"github.com/user00265/ctyresolve/internal/db"
	"github.com/user00265/ctyresolve/internal/dxcc"
	"github.com/user00265/ctyresolve/internal/logging"
	"github.com/user00265/ctyresolve/internal/metrics"
	"github.com/user00265/ctyresolve/version" // For User-Agent
)

const (
	DBFileName        = "cty.db"
	entriesTableName  = "cty_entries"
	metadataTableName = "cty_metadata"
	dataType          = "cty"
	apiTimeout        = 60 * time.Second
	downloadAttempts  = 3
)

// ErrNoData is returned by LoadIndex when nothing has been stored yet.
var ErrNoData = errors.New("no country file data stored")

// HTTPDoer is a minimal interface for http clients used in tests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Stats describes the stored dataset.
type Stats struct {
	Version      string    `json:"version"`
	SourceURL    string    `json:"source_url"`
	FileSize     int       `json:"file_size"`
	LastUpdated  time.Time `json:"last_updated"`
	ExactCalls   int       `json:"exact_calls"`
	Prefixes     int       `json:"prefixes"`
	TotalEntries int       `json:"total_entries"`
}

// Client keeps the country file in SQLite so restarts do not need the network.
type Client struct {
	cfg      config.Config
	dbClient db.DBClient

	// HTTPClient performs downloads; tests swap in their own.
	HTTPClient HTTPDoer
	// RetryDelay is the pause between download attempts of one URL. The
	// updater also starts its empty-store backoff from it.
	RetryDelay time.Duration

	// MaxRetryDelay caps the updater's backoff while nothing is stored.
	MaxRetryDelay time.Duration

	updateMu   sync.Mutex
	updateStop chan struct{}
	updateDone chan struct{}
}

// NewClient creates the cty tables (dropping them first when
// CTY_FORCE_REBUILD is set) and returns a client using dbClient.
func NewClient(ctx context.Context, cfg config.Config, dbClient db.DBClient) (*Client, error) {
	if dbClient == nil {
		return nil, fmt.Errorf("dbClient cannot be nil")
	}

	c := &Client{
		cfg:           cfg,
		dbClient:      dbClient,
		HTTPClient:    &http.Client{Timeout: apiTimeout},
		RetryDelay:    5 * time.Second,
		MaxRetryDelay: 5 * time.Minute,
	}
	if err := c.createTables(ctx); err != nil {
		return nil, fmt.Errorf("failed to create cty tables: %w", err)
	}
	return c, nil
}

// Close stops the updater and closes the database.
func (c *Client) Close() error {
	c.stopUpdater()
	return c.dbClient.Close()
}

func (c *Client) createTables(ctx context.Context) error {
	db := c.dbClient.GetDB()

	if c.cfg.CtyForceRebuild {
		logging.Warn("CTY_FORCE_REBUILD is set - dropping existing tables to rebuild schema")
		for _, table := range []string{entriesTableName, metadataTableName} {
			if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
				return fmt.Errorf("failed to drop %s: %w", table, err)
			}
		}
	}

	queries := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				pfx TEXT NOT NULL,
				exact INTEGER NOT NULL,
				name TEXT NOT NULL,
				prefix TEXT NOT NULL,
				cqz INTEGER NOT NULL,
				ituz INTEGER NOT NULL,
				cont TEXT NOT NULL,
				lat REAL NOT NULL,
				lng REAL NOT NULL,
				tz REAL NOT NULL,
				wae_name TEXT NOT NULL,
				wae_prefix TEXT NOT NULL
			);
		`, entriesTableName),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				data_type TEXT PRIMARY KEY,
				last_updated TEXT NOT NULL,
				file_size INTEGER,
				source_url TEXT,
				version TEXT NOT NULL
			);
		`, metadataTableName),
	}
	for _, query := range queries {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w\nQuery: %s", err, query)
		}
	}
	return nil
}

// FetchAndStore downloads the country file, trying the primary URL and then
// the fallback, and replaces the stored dataset with it.
func (c *Client) FetchAndStore(ctx context.Context) error {
	data, sourceURL, err := c.fetch(ctx)
	if err != nil {
		metrics.DatasetUpdatesTotal.WithLabelValues("download_failed").Inc()
		return err
	}
	if err := c.store(ctx, data, sourceURL); err != nil {
		metrics.DatasetUpdatesTotal.WithLabelValues("store_failed").Inc()
		return err
	}
	metrics.DatasetUpdatesTotal.WithLabelValues("ok").Inc()
	return nil
}

// LoadFile replaces the stored dataset with a local country file.
func (c *Client) LoadFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read country file %s: %w", path, err)
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return c.store(ctx, data, "file://"+path)
}

func (c *Client) fetch(ctx context.Context) ([]byte, string, error) {
	urls := []string{c.cfg.CtyURL}
	if c.cfg.CtyFallbackURL != "" && c.cfg.CtyFallbackURL != c.cfg.CtyURL {
		urls = append(urls, c.cfg.CtyFallbackURL)
	}

	var lastErr error
	for i, url := range urls {
		if url == "" {
			continue
		}
		if i > 0 {
			logging.Warn("Country file download failed after retries: %v. Falling back to %s.", lastErr, url)
		}
		for attempt := 1; attempt <= downloadAttempts; attempt++ {
			data, err := c.download(ctx, url)
			if err == nil {
				logging.Notice("Downloaded country file from %s (%d bytes).", url, len(data))
				return data, url, nil
			}
			lastErr = err
			logging.Debug("Country file download attempt %d/%d from %s failed: %v", attempt, downloadAttempts, url, err)
			if attempt < downloadAttempts {
				select {
				case <-time.After(c.RetryDelay):
				case <-ctx.Done():
					return nil, "", ctx.Err()
				}
			}
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no country file URL configured")
	}
	return nil, "", fmt.Errorf("country file download failed: %w", lastErr)
}

func (c *Client) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", version.UserAgent)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body from %s: %w", url, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty body from %s", url)
	}
	return data, nil
}

// maybeGunzip decompresses data when it starts with the gzip magic bytes.
func maybeGunzip(data []byte) ([]byte, error) {
	if len(data) < 2 || data[0] != 0x1f || data[1] != 0x8b {
		return data, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open gzip stream: %w", err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress country file: %w", err)
	}
	return out, nil
}

// datasetVersion identifies a country file by content.
func datasetVersion(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:12]
}

func (c *Client) store(ctx context.Context, raw []byte, sourceURL string) error {
	data, err := maybeGunzip(raw)
	if err != nil {
		return err
	}
	entries, err := Parse(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to parse country file from %s: %w", sourceURL, err)
	}
	ver := datasetVersion(data)

	err = c.dbClient.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+entriesTableName); err != nil {
			return fmt.Errorf("failed to clear %s: %w", entriesTableName, err)
		}
		stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
			INSERT INTO %s (pfx, exact, name, prefix, cqz, ituz, cont, lat, lng, tz, wae_name, wae_prefix)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, entriesTableName))
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, e := range entries {
			en := e.Entity
			if _, err := stmt.ExecContext(ctx, e.Key, e.Exact, en.Name, en.Prefix, en.CQZone, en.ITUZone,
				en.Continent, en.Latitude, en.Longitude, en.TimeOffset, en.WAEName, en.WAEPrefix); err != nil {
				return fmt.Errorf("failed to insert %s: %w", e.Key, err)
			}
		}

		_, err = tx.ExecContext(ctx, fmt.Sprintf(`
			INSERT OR REPLACE INTO %s (data_type, last_updated, file_size, source_url, version)
			VALUES (?, ?, ?, ?, ?)
		`, metadataTableName), dataType, time.Now().UTC().Format(time.RFC3339), len(data), sourceURL, ver)
		if err != nil {
			return fmt.Errorf("failed to update cty metadata: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Flush to the main database file right away.
	if _, err := c.dbClient.GetDB().ExecContext(ctx, "PRAGMA wal_checkpoint(FULL);"); err != nil {
		logging.Warn("Failed to checkpoint WAL after country file update: %v", err)
	}
	logging.Info("Stored %d country file entries (version %s) from %s.", len(entries), ver, sourceURL)
	return nil
}

// LoadIndex builds an index from the stored rows, in file order, and returns
// it with the dataset version.
func (c *Client) LoadIndex(ctx context.Context) (*dxcc.Index, string, error) {
	var ver string
	err := c.dbClient.GetDB().QueryRowContext(ctx,
		fmt.Sprintf("SELECT version FROM %s WHERE data_type = ?", metadataTableName), dataType).Scan(&ver)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", ErrNoData
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to query cty metadata: %w", err)
	}

	rows, err := c.dbClient.GetDB().QueryContext(ctx, fmt.Sprintf(`
		SELECT pfx, exact, name, prefix, cqz, ituz, cont, lat, lng, tz, wae_name, wae_prefix
		FROM %s ORDER BY id
	`, entriesTableName))
	if err != nil {
		return nil, "", fmt.Errorf("failed to query %s: %w", entriesTableName, err)
	}
	defer rows.Close()

	b := dxcc.NewIndexBuilder()
	n := 0
	for rows.Next() {
		var (
			key   string
			exact bool
			en    dxcc.Entity
		)
		if err := rows.Scan(&key, &exact, &en.Name, &en.Prefix, &en.CQZone, &en.ITUZone, &en.Continent,
			&en.Latitude, &en.Longitude, &en.TimeOffset, &en.WAEName, &en.WAEPrefix); err != nil {
			return nil, "", fmt.Errorf("failed to scan %s row: %w", entriesTableName, err)
		}
		if exact {
			b.AddExact(key, en)
		} else {
			b.AddPrefix(key, en)
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("error iterating %s rows: %w", entriesTableName, err)
	}
	if n == 0 {
		return nil, "", ErrNoData
	}
	return b.Build(), ver, nil
}

// GetLastDownloadTime returns when the dataset was last stored, or the zero
// time when it never was.
func (c *Client) GetLastDownloadTime(ctx context.Context) (time.Time, error) {
	var lastUpdated string
	err := c.dbClient.GetDB().QueryRowContext(ctx,
		fmt.Sprintf("SELECT last_updated FROM %s WHERE data_type = ?", metadataTableName), dataType).Scan(&lastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query cty metadata: %w", err)
	}
	t, err := time.Parse(time.RFC3339, lastUpdated)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse last download time: %w", err)
	}
	return t, nil
}

// NeedsUpdate reports whether the dataset is missing, empty or older than
// the update interval.
func (c *Client) NeedsUpdate(ctx context.Context) (bool, error) {
	lastUpdate, err := c.GetLastDownloadTime(ctx)
	if err != nil {
		return false, err
	}
	if lastUpdate.IsZero() || time.Since(lastUpdate) >= c.cfg.CtyUpdateInterval {
		return true, nil
	}

	var count int
	if err := c.dbClient.GetDB().QueryRowContext(ctx, "SELECT COUNT(*) FROM "+entriesTableName).Scan(&count); err != nil {
		logging.Warn("Failed to count country file entries, assuming update needed: %v", err)
		return true, nil
	}
	if count == 0 {
		logging.Info("Country file table is empty despite recent update - forcing re-download")
		return true, nil
	}
	return false, nil
}

// Stats summarises the stored dataset. A zero Stats means nothing is stored.
func (c *Client) Stats(ctx context.Context) (Stats, error) {
	var (
		s          Stats
		lastUpdate string
		sourceURL  sql.NullString
		fileSize   sql.NullInt64
	)
	err := c.dbClient.GetDB().QueryRowContext(ctx,
		fmt.Sprintf("SELECT last_updated, file_size, source_url, version FROM %s WHERE data_type = ?", metadataTableName),
		dataType).Scan(&lastUpdate, &fileSize, &sourceURL, &s.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return Stats{}, nil
	}
	if err != nil {
		return Stats{}, fmt.Errorf("failed to query cty metadata: %w", err)
	}
	s.SourceURL = sourceURL.String
	s.FileSize = int(fileSize.Int64)
	if t, err := time.Parse(time.RFC3339, lastUpdate); err == nil {
		s.LastUpdated = t
	}

	err = c.dbClient.GetDB().QueryRowContext(ctx, fmt.Sprintf(`
		SELECT COALESCE(SUM(CASE WHEN exact THEN 1 ELSE 0 END), 0), COUNT(*) FROM %s
	`, entriesTableName)).Scan(&s.ExactCalls, &s.TotalEntries)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count %s: %w", entriesTableName, err)
	}
	s.Prefixes = s.TotalEntries - s.ExactCalls
	return s, nil
}

// StartUpdater refreshes the dataset every CtyUpdateInterval and hands each
// newly stored index to onUpdate. It does not fetch on start; callers load
// the initial dataset themselves. While the store is empty it retries on a
// backoff growing from RetryDelay to MaxRetryDelay instead of waiting a full
// interval.
func (c *Client) StartUpdater(ctx context.Context, onUpdate func(*dxcc.Index, string)) {
	c.updateMu.Lock()
	defer c.updateMu.Unlock()
	if c.updateStop != nil {
		return // already running
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	c.updateStop, c.updateDone = stop, done

	go func() {
		defer close(done)
		if !c.hasData(ctx) && !c.retryUntilStored(ctx, stop, onUpdate) {
			return
		}
		ticker := time.NewTicker(c.cfg.CtyUpdateInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.refresh(ctx, onUpdate)
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	logging.Notice("Country file updater started. Will check for updates every %s.", c.cfg.CtyUpdateInterval)
}

// retryUntilStored keeps refreshing until a dataset is published. It returns
// false when stopped first.
func (c *Client) retryUntilStored(ctx context.Context, stop <-chan struct{}, onUpdate func(*dxcc.Index, string)) bool {
	delay := c.RetryDelay
	if delay <= 0 {
		delay = time.Second
	}
	for {
		logging.Warn("No country file stored; retrying in %s.", delay)
		select {
		case <-time.After(delay):
		case <-stop:
			return false
		case <-ctx.Done():
			return false
		}
		if c.refresh(ctx, onUpdate) {
			return true
		}
		delay *= 2
		if delay > c.MaxRetryDelay {
			delay = c.MaxRetryDelay
		}
	}
}

func (c *Client) hasData(ctx context.Context) bool {
	var count int
	if err := c.dbClient.GetDB().QueryRowContext(ctx, "SELECT COUNT(*) FROM "+entriesTableName).Scan(&count); err != nil {
		logging.Warn("Failed to count country file entries: %v", err)
		return false
	}
	return count > 0
}

// refresh stores a fresh download and publishes it. It reports whether a
// new index reached onUpdate.
func (c *Client) refresh(ctx context.Context, onUpdate func(*dxcc.Index, string)) bool {
	logging.Info("Refreshing country file...")
	if err := c.FetchAndStore(ctx); err != nil {
		logging.Error("Country file refresh failed, keeping current dataset: %v", err)
		return false
	}
	ix, ver, err := c.LoadIndex(ctx)
	if err != nil {
		logging.Error("Failed to load refreshed country file: %v", err)
		return false
	}
	if onUpdate != nil {
		onUpdate(ix, ver)
	}
	return true
}

func (c *Client) stopUpdater() {
	c.updateMu.Lock()
	stop, done := c.updateStop, c.updateDone
	c.updateStop, c.updateDone = nil, nil
	c.updateMu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
}
