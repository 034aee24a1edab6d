// Package world is the in-memory capability store that spawn commands act on.
//
// Entities, their capabilities and their containers live in a private SQLite
// database. Nothing is persisted: every Store starts empty.
package world

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	_ "modernc.org/sqlite"

	"github.com/aidanlsb/shed/internal/prototype"
	"github.com/aidanlsb/shed/internal/sqlutil"
)

var (
	// ErrEntityNotFound indicates the entity ID does not exist.
	ErrEntityNotFound = errors.New("entity not found")
	// ErrContainerNotFound indicates the owner has no container with that name.
	ErrContainerNotFound = errors.New("container not found")
	// ErrContainerFull indicates the container is at capacity.
	ErrContainerFull = errors.New("container is full")
)

// EntityID identifies an entity. The zero ID is the world root.
type EntityID int64

// Root is the implicit parent of every top-level entity.
const Root EntityID = 0

func (id EntityID) String() string {
	if id == Root {
		return "root"
	}
	return "e" + strconv.FormatInt(int64(id), 10)
}

// Coordinates is a position relative to a parent entity.
type Coordinates struct {
	Parent EntityID `json:"parent" yaml:"parent"`
	X      float64  `json:"x" yaml:"x"`
	Y      float64  `json:"y" yaml:"y"`
}

func (c Coordinates) String() string {
	if c.Parent == Root {
		return fmt.Sprintf("(%g, %g)", c.X, c.Y)
	}
	return fmt.Sprintf("%s+(%g, %g)", c.Parent, c.X, c.Y)
}

// ContainerRef identifies one named container on one entity.
type ContainerRef struct {
	ID       int64
	Owner    EntityID
	Name     string
	Capacity int
}

// Position is an absolute position in world space.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Position) String() string { return fmt.Sprintf("(%g, %g)", p.X, p.Y) }

// Entity is a snapshot of one entity's state. Contents lists what each of the
// entity's containers holds, in insertion order; empty containers are listed
// with no entries.
type Entity struct {
	ID           EntityID               `json:"id"`
	Prototype    prototype.ID           `json:"prototype"`
	At           Coordinates            `json:"at"`
	Position     Position               `json:"position"`
	Capabilities []prototype.Capability `json:"capabilities"`
	Container    string                 `json:"container,omitempty"`
	Contents     map[string][]EntityID  `json:"contents,omitempty"`
}

// Catalog resolves prototype IDs for Create.
type Catalog interface {
	Lookup(id prototype.ID) (*prototype.Prototype, error)
}

// Store is the capability store. It is safe for concurrent use.
type Store struct {
	db      *sql.DB
	catalog Catalog
}

// Open creates an empty store whose entities are built from catalog.
func Open(catalog Catalog) (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open world database: %w", err)
	}
	// Each connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, catalog: catalog}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initialize() error {
	schema := `
		PRAGMA foreign_keys = ON;

		CREATE TABLE entities (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			prototype TEXT NOT NULL,
			parent INTEGER NOT NULL DEFAULT 0,  -- 0 is the world root
			x REAL NOT NULL,
			y REAL NOT NULL
		);

		CREATE TABLE capabilities (
			entity INTEGER NOT NULL REFERENCES entities(id),
			name TEXT NOT NULL,
			PRIMARY KEY (entity, name)
		);

		CREATE TABLE containers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			owner INTEGER NOT NULL REFERENCES entities(id),
			name TEXT NOT NULL,
			capacity INTEGER NOT NULL DEFAULT 0,  -- 0 is unlimited
			UNIQUE (owner, name)
		);

		-- An entity is in at most one container.
		CREATE TABLE contents (
			position INTEGER PRIMARY KEY AUTOINCREMENT,
			container INTEGER NOT NULL REFERENCES containers(id),
			entity INTEGER NOT NULL UNIQUE REFERENCES entities(id)
		);
		CREATE INDEX idx_contents_container ON contents(container);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize world schema: %w", err)
	}
	return nil
}

// Create spawns an entity of the given prototype at the given coordinates,
// with the prototype's capabilities and containers.
func (s *Store) Create(ctx context.Context, proto prototype.ID, at Coordinates) (EntityID, error) {
	p, err := s.catalog.Lookup(proto)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if at.Parent != Root {
		if err := requireEntity(ctx, tx, at.Parent); err != nil {
			return 0, fmt.Errorf("parent: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO entities (prototype, parent, x, y) VALUES (?, ?, ?, ?)`,
		string(p.ID), int64(at.Parent), at.X, at.Y)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", p.ID, err)
	}
	rowID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	id := EntityID(rowID)

	for _, c := range p.Capabilities {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO capabilities (entity, name) VALUES (?, ?)`, rowID, string(c)); err != nil {
			return 0, fmt.Errorf("failed to add capability %s: %w", c, err)
		}
	}
	for _, name := range p.ContainerNames() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO containers (owner, name, capacity) VALUES (?, ?, ?)`,
			rowID, name, p.Containers[name].Capacity); err != nil {
			return 0, fmt.Errorf("failed to add container %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// HasCapability reports whether e carries capability c.
func (s *Store) HasCapability(ctx context.Context, e EntityID, c prototype.Capability) (bool, error) {
	if err := requireEntity(ctx, s.db, e); err != nil {
		return false, err
	}
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM capabilities WHERE entity = ? AND name = ?`, int64(e), string(c)).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// AddCapability grants c to e. Granting a capability twice is a no-op.
func (s *Store) AddCapability(ctx context.Context, e EntityID, c prototype.Capability) error {
	if err := requireEntity(ctx, s.db, e); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO capabilities (entity, name) VALUES (?, ?)`, int64(e), string(c))
	return err
}

// RemoveCapability strips c from e.
func (s *Store) RemoveCapability(ctx context.Context, e EntityID, c prototype.Capability) error {
	if err := requireEntity(ctx, s.db, e); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM capabilities WHERE entity = ? AND name = ?`, int64(e), string(c))
	return err
}

// Capabilities returns e's capabilities, sorted by name.
func (s *Store) Capabilities(ctx context.Context, e EntityID) ([]prototype.Capability, error) {
	if err := requireEntity(ctx, s.db, e); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM capabilities WHERE entity = ? ORDER BY name`, int64(e))
	if err != nil {
		return nil, err
	}
	return sqlutil.ScanRows(rows, func(rows *sql.Rows) (prototype.Capability, error) {
		var name string
		err := rows.Scan(&name)
		return prototype.Capability(name), err
	})
}

// Coordinates returns e's position relative to its parent.
func (s *Store) Coordinates(ctx context.Context, e EntityID) (Coordinates, error) {
	var (
		parent int64
		c      Coordinates
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT parent, x, y FROM entities WHERE id = ?`, int64(e)).Scan(&parent, &c.X, &c.Y)
	if errors.Is(err, sql.ErrNoRows) {
		return Coordinates{}, fmt.Errorf("%s: %w", e, ErrEntityNotFound)
	}
	if err != nil {
		return Coordinates{}, err
	}
	c.Parent = EntityID(parent)
	return c, nil
}

// WorldPosition returns e's position relative to the root, summing offsets
// along the parent chain.
func (s *Store) WorldPosition(ctx context.Context, e EntityID) (x, y float64, err error) {
	seen := make(map[EntityID]bool)
	for cur := e; cur != Root; {
		if seen[cur] {
			return 0, 0, fmt.Errorf("%s: parent cycle", e)
		}
		seen[cur] = true

		c, err := s.Coordinates(ctx, cur)
		if err != nil {
			return 0, 0, err
		}
		x += c.X
		y += c.Y
		cur = c.Parent
	}
	return x, y, nil
}

// Prototype returns the prototype e was spawned from.
func (s *Store) Prototype(ctx context.Context, e EntityID) (prototype.ID, error) {
	var proto string
	err := s.db.QueryRowContext(ctx, `SELECT prototype FROM entities WHERE id = ?`, int64(e)).Scan(&proto)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%s: %w", e, ErrEntityNotFound)
	}
	return prototype.ID(proto), err
}

// Count returns the number of entities.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entities`).Scan(&n)
	return n, err
}

// Describe returns a snapshot of e.
func (s *Store) Describe(ctx context.Context, e EntityID) (Entity, error) {
	proto, err := s.Prototype(ctx, e)
	if err != nil {
		return Entity{}, err
	}
	at, err := s.Coordinates(ctx, e)
	if err != nil {
		return Entity{}, err
	}
	caps, err := s.Capabilities(ctx, e)
	if err != nil {
		return Entity{}, err
	}
	x, y, err := s.WorldPosition(ctx, e)
	if err != nil {
		return Entity{}, err
	}
	out := Entity{ID: e, Prototype: proto, At: at, Position: Position{X: x, Y: y}, Capabilities: caps}

	ref, ok, err := s.ContainerOf(ctx, e)
	if err != nil {
		return Entity{}, err
	}
	if ok {
		out.Container = ref.Owner.String() + "/" + ref.Name
	}

	owned, err := s.Containers(ctx, e)
	if err != nil {
		return Entity{}, err
	}
	for _, c := range owned {
		held, err := s.Contents(ctx, c)
		if err != nil {
			return Entity{}, err
		}
		if out.Contents == nil {
			out.Contents = make(map[string][]EntityID, len(owned))
		}
		out.Contents[c.Name] = held
	}
	return out, nil
}

// Entities returns a snapshot of every entity in creation order.
func (s *Store) Entities(ctx context.Context) ([]Entity, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM entities ORDER BY id`)
	if err != nil {
		return nil, err
	}
	ids, err := sqlutil.ScanRows(rows, scanEntityID)
	if err != nil {
		return nil, err
	}

	out := make([]Entity, 0, len(ids))
	for _, id := range ids {
		e, err := s.Describe(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func requireEntity(ctx context.Context, q queryer, e EntityID) error {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM entities WHERE id = ?`, int64(e)).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", e, ErrEntityNotFound)
	}
	return nil
}

func scanEntityID(rows *sql.Rows) (EntityID, error) {
	var id int64
	err := rows.Scan(&id)
	return EntityID(id), err
}
