// ABOUTME: Charm KV client wrapper storing the step, health-log and medication feeds.
// ABOUTME: Writes sync to Charm Cloud automatically unless the store is read-only.
package charm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/charm/client"
	"github.com/charmbracelet/charm/kv"
)

const (
	// DBName is the Charm KV database name.
	DBName    = "chronicare"
	charmHost = "charm.2389.dev"

	StepPrefix       = "steps:"
	HealthPrefix     = "health:"
	MedicationPrefix = "med:"
)

// KV is the subset of *kv.KV the client needs.
type KV interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	Keys() ([][]byte, error)
	Sync() error
	IsReadOnly() bool
	Close() error
}

// Client stores all feeds in one Charm KV database.
type Client struct {
	kv       KV
	autoSync bool
	mu       sync.RWMutex
}

// Open opens the named Charm KV database, falling back to read-only mode
// when another process holds the lock, and pulls remote changes.
func Open(name string) (*Client, error) {
	if os.Getenv("CHARM_HOST") == "" {
		if err := os.Setenv("CHARM_HOST", charmHost); err != nil {
			return nil, err
		}
	}
	db, err := kv.OpenWithDefaultsFallback(name)
	if err != nil {
		return nil, fmt.Errorf("open charm kv: %w", err)
	}
	if !db.IsReadOnly() {
		_ = db.Sync()
	}
	return New(db), nil
}

// New wraps an already open store with auto-sync enabled.
func New(store KV) *Client {
	return &Client{kv: store, autoSync: true}
}

// Close closes the KV database connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.kv != nil {
		return c.kv.Close()
	}
	return nil
}

// IsReadOnly returns true if the database is open in read-only mode.
// This happens when another process (like an MCP server) holds the lock.
func (c *Client) IsReadOnly() bool {
	return c.kv.IsReadOnly()
}

// Sync synchronizes local state with Charm Cloud.
func (c *Client) Sync() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.kv.IsReadOnly() {
		return nil
	}
	return c.kv.Sync()
}

func (c *Client) syncIfEnabled() {
	if c.autoSync && !c.kv.IsReadOnly() {
		_ = c.kv.Sync()
	}
}

// SetAutoSync enables or disables automatic sync after writes.
func (c *Client) SetAutoSync(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autoSync = enabled
}

// ID returns the Charm user ID for the current account.
func ID() (string, error) {
	cc, err := client.NewClientWithDefaults()
	if err != nil {
		return "", fmt.Errorf("create charm client: %w", err)
	}
	return cc.ID()
}

var errReadOnly = fmt.Errorf("cannot write: database is locked by another process (MCP server?)")

func (c *Client) set(key string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.kv.IsReadOnly() {
		return errReadOnly
	}
	if err := c.kv.Set([]byte(key), data); err != nil {
		return err
	}
	c.syncIfEnabled()
	return nil
}

// update applies fn to the current value of key (nil when absent) and
// stores the result, holding the write lock throughout.
func (c *Client) update(key string, fn func(old []byte) ([]byte, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.kv.IsReadOnly() {
		return errReadOnly
	}
	old, err := c.get(key)
	if err != nil {
		return err
	}
	data, err := fn(old)
	if err != nil {
		return err
	}
	if err := c.kv.Set([]byte(key), data); err != nil {
		return err
	}
	c.syncIfEnabled()
	return nil
}

func (c *Client) delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.kv.IsReadOnly() {
		return errReadOnly
	}
	if err := c.kv.Delete([]byte(key)); err != nil {
		return err
	}
	c.syncIfEnabled()
	return nil
}

// get returns the value of key, or nil when it does not exist. Callers hold mu.
func (c *Client) get(key string) ([]byte, error) {
	keys, err := c.kv.Keys()
	if err != nil {
		return nil, err
	}
	for _, k := range keys {
		if string(k) == key {
			return c.kv.Get(k)
		}
	}
	return nil, nil
}

type entry struct {
	key   string
	value []byte
}

// listByPrefix returns all entries whose keys start with prefix.
func (c *Client) listByPrefix(ctx context.Context, prefix string) ([]entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys, err := c.kv.Keys()
	if err != nil {
		return nil, err
	}

	var results []entry
	prefixBytes := []byte(prefix)
	for _, key := range keys {
		if bytes.HasPrefix(key, prefixBytes) {
			val, err := c.kv.Get(key)
			if err != nil {
				return nil, err
			}
			results = append(results, entry{key: string(key), value: val})
		}
	}
	return results, nil
}

// findByIDPrefix resolves a unique key under typePrefix+idPrefix.
func (c *Client) findByIDPrefix(typePrefix, idPrefix string) (string, []byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys, err := c.kv.Keys()
	if err != nil {
		return "", nil, err
	}

	var match []byte
	searchPrefix := []byte(typePrefix + idPrefix)
	for _, key := range keys {
		if bytes.HasPrefix(key, searchPrefix) {
			if match != nil {
				return "", nil, fmt.Errorf("ambiguous prefix %s: matches multiple records", idPrefix)
			}
			match = key
		}
	}
	if match == nil {
		return "", nil, nil
	}
	val, err := c.kv.Get(match)
	if err != nil {
		return "", nil, err
	}
	return string(match), val, nil
}

// decodeLoose unmarshals a JSON object keeping numbers as json.Number.
func decodeLoose(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}

// userKey builds prefix+user+":"+id. The user segment is escaped so it never
// contains ':' and one user's prefix cannot cover another user's keys.
func userKey(prefix, userID, id string) string {
	return prefix + url.QueryEscape(userID) + ":" + id
}

// extractID extracts the ID portion from a prefixed key.
func extractID(key, prefix string) string {
	return strings.TrimPrefix(key, prefix)
}
