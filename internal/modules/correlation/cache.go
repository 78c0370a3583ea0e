package correlation

import (
	"database/sql"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// cacheTTL bounds how long a computed report is reused. Price data changes
// at most daily, so a day is plenty.
const cacheTTL = 24 * time.Hour

// Cache stores msgpack-encoded correlation reports in the report_cache
// table, keyed by window, mode, data vintage and ticker set. A key that
// embeds the latest price date self-invalidates when new prices land.
type Cache struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewCache creates a report cache over the given database.
func NewCache(db *sql.DB, log zerolog.Logger) *Cache {
	return &Cache{
		db:  db,
		log: log.With().Str("component", "correlation_cache").Logger(),
	}
}

// Get returns the cached report for key, or false on a miss. Expired and
// undecodable entries are treated as misses and removed.
func (c *Cache) Get(key string) (*Report, bool) {
	var data []byte
	var expiresAt int64
	err := c.db.QueryRow(
		"SELECT data, expires_at FROM report_cache WHERE key = ?", key,
	).Scan(&data, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, false
	}
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Cache read failed")
		return nil, false
	}
	if time.Now().Unix() >= expiresAt {
		c.evict(key)
		return nil, false
	}

	var report Report
	if err := msgpack.Unmarshal(data, &report); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Cache entry undecodable, evicting")
		c.evict(key)
		return nil, false
	}
	return &report, true
}

// Put stores a report under key. Cache writes are best effort; a failure is
// logged and the caller's report still stands.
func (c *Cache) Put(key string, report *Report) {
	data, err := msgpack.Marshal(report)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Cache encode failed")
		return
	}
	_, err = c.db.Exec(
		`INSERT INTO report_cache (key, data, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET data = excluded.data, expires_at = excluded.expires_at`,
		key, data, time.Now().Add(cacheTTL).Unix(),
	)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
}

// Purge removes all expired entries.
func (c *Cache) Purge() error {
	_, err := c.db.Exec("DELETE FROM report_cache WHERE expires_at <= ?", time.Now().Unix())
	return err
}

func (c *Cache) evict(key string) {
	if _, err := c.db.Exec("DELETE FROM report_cache WHERE key = ?", key); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Cache evict failed")
	}
}
