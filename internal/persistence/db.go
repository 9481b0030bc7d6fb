// Package persistence provides SQLite-based storage for governance state:
// live groups, territories, resources, the event log, and the archive of
// dissolved groups.
package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/concord/internal/engine"
	"github.com/talgya/concord/internal/social"
)

// DB wraps a SQLite connection for governance state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS groups (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		leader_id TEXT NOT NULL,
		status TEXT NOT NULL,
		reputation REAL NOT NULL,
		created_at TEXT NOT NULL,
		last_active TEXT NOT NULL,
		snapshot_json TEXT NOT NULL,
		holdings_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS territories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		controlled_by TEXT NOT NULL,
		control_score REAL NOT NULL,
		snapshot_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS resources (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		name TEXT NOT NULL,
		quantity REAL NOT NULL,
		value REAL NOT NULL,
		snapshot_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS group_archive (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		group_id TEXT NOT NULL,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		reason TEXT NOT NULL,
		dissolved_at TEXT NOT NULL,
		snapshot_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		group_id TEXT NOT NULL,
		at TEXT NOT NULL,
		description TEXT NOT NULL,
		meta_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sim_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_group ON events(group_id);
	CREATE INDEX IF NOT EXISTS idx_archive_group ON group_archive(group_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveGroups writes all live groups to the database (full replace).
// Holdings is the group-to-owned-resource relation from the engine.
func (db *DB) SaveGroups(groups []*social.Group, holdings func(social.GroupID) []social.ResourceID) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM groups"); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO groups
		(id, name, type, leader_id, status, reputation, created_at, last_active,
		 snapshot_json, holdings_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, g := range groups {
		snapshot, err := json.Marshal(g)
		if err != nil {
			return fmt.Errorf("marshal group %s: %w", g.ID, err)
		}
		owned, _ := json.Marshal(holdings(g.ID))

		_, err = stmt.Exec(
			g.ID, g.Name, g.Type.String(), g.LeaderID, g.Status.String(),
			g.Reputation, g.CreatedAt.Format(time.RFC3339), g.LastActive.Format(time.RFC3339),
			string(snapshot), string(owned),
		)
		if err != nil {
			return fmt.Errorf("insert group %s: %w", g.ID, err)
		}
	}

	return tx.Commit()
}

// SavedGroup is one restored group with its resource holdings.
type SavedGroup struct {
	Group    *social.Group
	Holdings []social.ResourceID
}

// LoadGroups restores all saved groups.
func (db *DB) LoadGroups() ([]SavedGroup, error) {
	rows, err := db.conn.Queryx("SELECT snapshot_json, holdings_json FROM groups")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SavedGroup
	for rows.Next() {
		var snapshot, owned string
		if err := rows.Scan(&snapshot, &owned); err != nil {
			return nil, err
		}
		var g social.Group
		if err := json.Unmarshal([]byte(snapshot), &g); err != nil {
			return nil, fmt.Errorf("unmarshal group: %w", err)
		}
		var ids []social.ResourceID
		if err := json.Unmarshal([]byte(owned), &ids); err != nil {
			return nil, fmt.Errorf("unmarshal holdings for %s: %w", g.ID, err)
		}
		out = append(out, SavedGroup{Group: &g, Holdings: ids})
	}
	return out, rows.Err()
}

// SaveTerritories writes all territories to the database (full replace).
func (db *DB) SaveTerritories(territories []*social.Territory) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM territories"); err != nil {
		return err
	}

	for _, t := range territories {
		snapshot, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("marshal territory %s: %w", t.ID, err)
		}
		_, err = tx.Exec(`INSERT INTO territories
			(id, name, controlled_by, control_score, snapshot_json)
			VALUES (?, ?, ?, ?, ?)`,
			t.ID, t.Name, t.ControlledBy, t.ControlScore, string(snapshot),
		)
		if err != nil {
			return fmt.Errorf("insert territory %s: %w", t.ID, err)
		}
	}

	return tx.Commit()
}

// LoadTerritories restores all saved territories.
func (db *DB) LoadTerritories() ([]*social.Territory, error) {
	return loadSnapshots[social.Territory](db, "SELECT snapshot_json FROM territories")
}

// SaveResources writes all resources to the database (full replace).
func (db *DB) SaveResources(resources []*social.Resource) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM resources"); err != nil {
		return err
	}

	for _, r := range resources {
		snapshot, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal resource %s: %w", r.ID, err)
		}
		_, err = tx.Exec(`INSERT INTO resources
			(id, type, name, quantity, value, snapshot_json)
			VALUES (?, ?, ?, ?, ?, ?)`,
			r.ID, r.Type, r.Name, r.Quantity, r.Value, string(snapshot),
		)
		if err != nil {
			return fmt.Errorf("insert resource %s: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

// LoadResources restores all saved resources.
func (db *DB) LoadResources() ([]*social.Resource, error) {
	return loadSnapshots[social.Resource](db, "SELECT snapshot_json FROM resources")
}

func loadSnapshots[T any](db *DB, query string) ([]*T, error) {
	rows, err := db.conn.Queryx(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*T
	for rows.Next() {
		var snapshot string
		if err := rows.Scan(&snapshot); err != nil {
			return nil, err
		}
		v := new(T)
		if err := json.Unmarshal([]byte(snapshot), v); err != nil {
			return nil, fmt.Errorf("unmarshal snapshot: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ArchiveGroup records a dissolved group permanently. Archive rows are
// append-only and survive the full-replace save of live groups.
func (db *DB) ArchiveGroup(g *social.Group, reason string, dissolvedAt time.Time) error {
	snapshot, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("marshal archived group %s: %w", g.ID, err)
	}
	_, err = db.conn.Exec(`INSERT INTO group_archive
		(group_id, name, type, reason, dissolved_at, snapshot_json)
		VALUES (?, ?, ?, ?, ?, ?)`,
		g.ID, g.Name, g.Type.String(), reason,
		dissolvedAt.Format(time.RFC3339), string(snapshot),
	)
	return err
}

// ArchivedGroup is one row of the dissolution archive.
type ArchivedGroup struct {
	GroupID     social.GroupID `db:"group_id"`
	Name        string         `db:"name"`
	Type        string         `db:"type"`
	Reason      string         `db:"reason"`
	DissolvedAt string         `db:"dissolved_at"`
}

// ArchivedGroups returns the most recent N archive entries.
func (db *DB) ArchivedGroups(limit int) ([]ArchivedGroup, error) {
	var out []ArchivedGroup
	err := db.conn.Select(&out,
		`SELECT group_id, name, type, reason, dissolved_at
		 FROM group_archive ORDER BY id DESC LIMIT ?`, limit)
	return out, err
}

// SaveEvents appends events to the database.
func (db *DB) SaveEvents(events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, ev := range events {
		meta, _ := json.Marshal(ev.Meta)
		_, err := tx.Exec(
			"INSERT INTO events (name, group_id, at, description, meta_json) VALUES (?, ?, ?, ?, ?)",
			ev.Name, ev.GroupID, ev.At.Format(time.RFC3339), ev.Description, string(meta),
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SaveMeta stores a key-value pair in simulation metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO sim_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM sim_meta WHERE key = ?", key)
	return value, err
}

// SaveState performs a full save of all live governance state plus any
// events emitted since the last save.
func (db *DB) SaveState(eng *engine.Engine, newEvents []engine.Event, tick uint64) error {
	slog.Info("saving governance state",
		"groups", eng.GroupCount(), "events", len(newEvents))

	if err := db.SaveGroups(eng.Groups(), eng.GroupResourceIDs); err != nil {
		return fmt.Errorf("save groups: %w", err)
	}
	if err := db.SaveTerritories(eng.Territories()); err != nil {
		return fmt.Errorf("save territories: %w", err)
	}
	if err := db.SaveResources(eng.Resources()); err != nil {
		return fmt.Errorf("save resources: %w", err)
	}
	if err := db.SaveEvents(newEvents); err != nil {
		return fmt.Errorf("save events: %w", err)
	}
	if err := db.SaveMeta("last_tick", fmt.Sprintf("%d", tick)); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}

	slog.Info("governance state saved")
	return nil
}

// RecentEvents returns the most recent N persisted events.
func (db *DB) RecentEvents(limit int) ([]engine.Event, error) {
	rows, err := db.conn.Queryx(
		"SELECT name, group_id, at, description, meta_json FROM events ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.Event
	for rows.Next() {
		var ev engine.Event
		var at, meta string
		if err := rows.Scan(&ev.Name, &ev.GroupID, &at, &ev.Description, &meta); err != nil {
			return nil, err
		}
		ev.At, _ = time.Parse(time.RFC3339, at)
		if meta != "" && meta != "null" {
			_ = json.Unmarshal([]byte(meta), &ev.Meta)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
