// Package cache is a process-wide, persistent result cache keyed by
// (task, input hash, config identity, canonical params).
//
// It backs two flows: skipping repeated inference calls during evaluation,
// and skipping repeated per-sample score computations. The cache always
// fails open: any storage error is logged and treated as a miss, never
// surfaced to the caller.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite" // pure Go SQLite driver
)

// Cache is a thread-safe key/value store over a SQLite file.
//
// Reads go through the database/sql pool, so no connection is ever shared
// by two goroutines. Writes are additionally serialized by a single
// process-wide mutex: never lose or corrupt a write under concurrent
// writers, at the cost of some write contention.
type Cache struct {
	db      *sql.DB
	path    string
	rewrite bool
	writeMu sync.Mutex
}

// Stats describes the cache contents, optionally scoped to one task.
type Stats struct {
	Enabled bool
	Count   int
	Configs []string // distinct config identities
}

// Open opens (or creates) the cache at path. An empty path returns a
// disabled cache whose operations are all no-ops. With rewrite set,
// lookups always miss but stores still happen, refreshing stale entries.
//
// Open never fails: initialization errors disable the cache.
func Open(path string, rewrite bool) *Cache {
	c := &Cache{path: path, rewrite: rewrite}
	if path == "" {
		return c
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		logrus.Warnf("cache: could not open %s: %v", path, err)
		return c
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS cache (
			task        TEXT NOT NULL,
			input_hash  TEXT NOT NULL,
			config_key  TEXT NOT NULL,
			params_json TEXT NOT NULL,
			output      TEXT NOT NULL,
			duration    REAL NOT NULL,
			timestamp   REAL NOT NULL,
			PRIMARY KEY (task, input_hash, config_key, params_json)
		)`); err != nil {
		logrus.Warnf("cache: could not initialize %s: %v", path, err)
		db.Close()
		return c
	}

	c.db = db
	c.logContents()
	return c
}

func (c *Cache) logContents() {
	var count int
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM cache`).Scan(&count); err != nil || count == 0 {
		return
	}
	rows, err := c.db.Query(`SELECT DISTINCT task FROM cache`)
	if err != nil {
		return
	}
	defer rows.Close()
	var tasks []string
	for rows.Next() {
		var t string
		if rows.Scan(&t) == nil {
			tasks = append(tasks, t)
		}
	}
	logrus.Infof("cache: %d entries (%s)", count, strings.Join(tasks, ", "))
}

// Enabled reports whether the cache has a working backing store.
func (c *Cache) Enabled() bool { return c != nil && c.db != nil }

// Rewrite reports whether force-recompute mode is active.
func (c *Cache) Rewrite() bool { return c != nil && c.rewrite }

// Lookup returns the cached (output, duration-in-seconds) for the key, or
// ok=false when disabled, in rewrite mode, on a miss, or on any storage
// error. The input hash is computed over the literal input text.
func (c *Cache) Lookup(task, inputText, configKey string, params map[string]any) (string, float64, bool) {
	if !c.Enabled() || c.rewrite {
		return "", 0, false
	}

	var output string
	var duration float64
	err := c.db.QueryRow(`
		SELECT output, duration FROM cache
		WHERE task = ? AND input_hash = ? AND config_key = ? AND params_json = ?`,
		task, StableHash(inputText), configKey, CanonicalParams(params),
	).Scan(&output, &duration)
	if err != nil {
		if err != sql.ErrNoRows {
			logrus.Debugf("cache: lookup failed: %v", err)
		}
		return "", 0, false
	}
	return output, duration, true
}

// Store writes a result under the key, replacing any prior value
// (last-write-wins). No-op when disabled; rewrite mode still writes.
// Errors are logged, never raised.
func (c *Cache) Store(task, inputText, configKey, output string, duration float64, params map[string]any) {
	if !c.Enabled() {
		return
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := c.db.Exec(`
		INSERT OR REPLACE INTO cache
		(task, input_hash, config_key, params_json, output, duration, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		task, StableHash(inputText), configKey, CanonicalParams(params),
		output, duration, float64(time.Now().UnixNano())/1e9)
	if err != nil {
		logrus.Warnf("cache: could not store result: %v", err)
	}
}

// Stats reports entry count and distinct config identities, optionally
// scoped to one task. Storage errors degrade to an enabled-but-empty
// report.
func (c *Cache) Stats(task string) Stats {
	if !c.Enabled() {
		return Stats{}
	}
	s := Stats{Enabled: true}

	var countQ, configQ string
	var args []any
	if task != "" {
		countQ = `SELECT COUNT(*) FROM cache WHERE task = ?`
		configQ = `SELECT DISTINCT config_key FROM cache WHERE task = ?`
		args = []any{task}
	} else {
		countQ = `SELECT COUNT(*) FROM cache`
		configQ = `SELECT DISTINCT config_key FROM cache`
	}

	if err := c.db.QueryRow(countQ, args...).Scan(&s.Count); err != nil {
		logrus.Warnf("cache: stats failed: %v", err)
		return s
	}
	rows, err := c.db.Query(configQ, args...)
	if err != nil {
		logrus.Warnf("cache: stats failed: %v", err)
		return s
	}
	defer rows.Close()
	for rows.Next() {
		var ck string
		if rows.Scan(&ck) == nil {
			s.Configs = append(s.Configs, ck)
		}
	}
	return s
}

// Clear deletes all entries, or only one task's entries when task is
// non-empty. Deletion is the only way entries leave the cache; nothing
// expires automatically.
func (c *Cache) Clear(task string) {
	if !c.Enabled() {
		return
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	var err error
	if task != "" {
		_, err = c.db.Exec(`DELETE FROM cache WHERE task = ?`, task)
	} else {
		_, err = c.db.Exec(`DELETE FROM cache`)
	}
	if err != nil {
		logrus.Warnf("cache: could not clear: %v", err)
	}
}

// Checkpoint flushes the WAL into the main database file. Called at
// well-defined points (end of a batch) rather than after every write,
// trading a small durability window for write throughput.
func (c *Cache) Checkpoint() {
	if !c.Enabled() {
		return
	}
	// wal_checkpoint reports its result as a row, so go through Query.
	rows, err := c.db.Query(`PRAGMA wal_checkpoint(TRUNCATE)`)
	if err != nil {
		logrus.Debugf("cache: checkpoint failed: %v", err)
		return
	}
	rows.Close()
}

// Close releases the backing store.
func (c *Cache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.db.Close()
}

// StableHash returns a deterministic 32-hex-char digest of s (the first
// half of its SHA-256). Namespace-independent: two call sites hashing the
// same text collide on the same row, which is what gives the cache its
// cross-run reuse property.
func StableHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:16])
}

// CanonicalParams renders params as canonical JSON (keys sorted), so key
// order is not semantically distinguishing. Nil params render as "{}".
func CanonicalParams(params map[string]any) string {
	if len(params) == 0 {
		return "{}"
	}
	b, err := json.Marshal(params)
	if err != nil {
		logrus.Warnf("cache: could not encode params %v: %v", params, err)
		return fmt.Sprintf("%v", params)
	}
	return string(b)
}
