package world

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aidanlsb/shed/internal/sqlutil"
)

// Container looks up the container named name on owner.
func (s *Store) Container(ctx context.Context, owner EntityID, name string) (ContainerRef, error) {
	if err := requireEntity(ctx, s.db, owner); err != nil {
		return ContainerRef{}, err
	}
	ref := ContainerRef{Owner: owner, Name: name}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, capacity FROM containers WHERE owner = ? AND name = ?`,
		int64(owner), name).Scan(&ref.ID, &ref.Capacity)
	if errors.Is(err, sql.ErrNoRows) {
		return ContainerRef{}, fmt.Errorf("%s has no container %q: %w", owner, name, ErrContainerNotFound)
	}
	if err != nil {
		return ContainerRef{}, err
	}
	return ref, nil
}

// Containers returns the containers owned by owner, sorted by name.
func (s *Store) Containers(ctx context.Context, owner EntityID) ([]ContainerRef, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, capacity FROM containers WHERE owner = ? ORDER BY name`, int64(owner))
	if err != nil {
		return nil, err
	}
	return sqlutil.ScanRows(rows, func(rows *sql.Rows) (ContainerRef, error) {
		ref := ContainerRef{Owner: owner}
		err := rows.Scan(&ref.ID, &ref.Name, &ref.Capacity)
		return ref, err
	})
}

// Insert places e inside c. The entity is moved to the owner's origin and
// leaves any container it was in before. Inserting into a full container
// returns ErrContainerFull and changes nothing.
func (s *Store) Insert(ctx context.Context, c ContainerRef, e EntityID) error {
	if c.Owner == e {
		return fmt.Errorf("%s cannot contain itself", e)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := requireEntity(ctx, tx, e); err != nil {
		return err
	}

	var capacity, held int
	err = tx.QueryRowContext(ctx, `
		SELECT c.capacity, (SELECT COUNT(*) FROM contents WHERE container = c.id AND entity != ?)
		FROM containers c WHERE c.id = ?`, int64(e), c.ID).Scan(&capacity, &held)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s/%s: %w", c.Owner, c.Name, ErrContainerNotFound)
	}
	if err != nil {
		return err
	}
	if capacity > 0 && held >= capacity {
		return fmt.Errorf("%s/%s holds %d: %w", c.Owner, c.Name, capacity, ErrContainerFull)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM contents WHERE entity = ?`, int64(e)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO contents (container, entity) VALUES (?, ?)`, c.ID, int64(e)); err != nil {
		return fmt.Errorf("failed to insert %s into %s/%s: %w", e, c.Owner, c.Name, err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE entities SET parent = ?, x = 0, y = 0 WHERE id = ?`, int64(c.Owner), int64(e)); err != nil {
		return err
	}
	return tx.Commit()
}

// ContainerOf returns the container holding e, if any.
func (s *Store) ContainerOf(ctx context.Context, e EntityID) (ContainerRef, bool, error) {
	var (
		ref   ContainerRef
		owner int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT c.id, c.owner, c.name, c.capacity
		FROM contents ct JOIN containers c ON c.id = ct.container
		WHERE ct.entity = ?`, int64(e)).Scan(&ref.ID, &owner, &ref.Name, &ref.Capacity)
	if errors.Is(err, sql.ErrNoRows) {
		return ContainerRef{}, false, nil
	}
	if err != nil {
		return ContainerRef{}, false, err
	}
	ref.Owner = EntityID(owner)
	return ref, true, nil
}

// Contents returns the entities in c in insertion order.
func (s *Store) Contents(ctx context.Context, c ContainerRef) ([]EntityID, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT entity FROM contents WHERE container = ? ORDER BY position`, c.ID)
	if err != nil {
		return nil, err
	}
	return sqlutil.ScanRows(rows, scanEntityID)
}
