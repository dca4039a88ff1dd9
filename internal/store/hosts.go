package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/anvylhq/anvyl/internal/anvylerrors"
)

// Host is a row of the hosts table (§3).
type Host struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	IP            string   `json:"ip"`
	OS            string   `json:"os"`
	Status        string   `json:"status"`
	Resources     string   `json:"resources,omitempty"`
	Tags          []string `json:"tags"`
	Metadata      string   `json:"metadata,omitempty"`
	CreatedAt     int64    `json:"created_at"`
	UpdatedAt     int64    `json:"updated_at"`
	LastHeartbeat int64    `json:"last_heartbeat"`
	IsLocal       bool     `json:"is_local"`
}

// NewHostFields is the set of fields accepted by AddHost.
type NewHostFields struct {
	Name     string
	IP       string
	OS       string
	Tags     []string
	IsLocal  bool
}

// HostUpdate is a partial update accepted by UpdateHost; nil fields are
// left unchanged.
type HostUpdate struct {
	Name      *string
	Status    *string
	Tags      *[]string
	Resources *string
	Metadata  *string
}

func marshalTags(tags []string) string {
	if tags == nil {
		tags = []string{}
	}
	b, _ := json.Marshal(tags)
	return string(b)
}

func unmarshalTags(raw string) []string {
	var tags []string
	if raw == "" {
		return []string{}
	}
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return []string{}
	}
	return tags
}

func scanHost(row interface{ Scan(...any) error }) (*Host, error) {
	var h Host
	var tags string
	var isLocal int
	if err := row.Scan(&h.ID, &h.Name, &h.IP, &h.OS, &h.Status, &h.Resources, &tags, &h.Metadata,
		&h.CreatedAt, &h.UpdatedAt, &h.LastHeartbeat, &isLocal); err != nil {
		return nil, err
	}
	h.Tags = unmarshalTags(tags)
	h.IsLocal = isLocal != 0
	return &h, nil
}

const hostColumns = `id, name, ip, os, status, resources, tags, metadata, created_at, updated_at, last_heartbeat, is_local`

// AddHost inserts a new host row under a freshly generated uuid. Conflict
// is returned if a row with the same id already exists, which is reached
// only on an accidental id collision. AddHost does not check whether an
// is_local row already exists.
func (s *Store) AddHost(ctx context.Context, f NewHostFields) (*Host, error) {
	h := &Host{
		ID:        uuid.NewString(),
		Name:      f.Name,
		IP:        f.IP,
		OS:        f.OS,
		Status:    "active",
		Tags:      f.Tags,
		CreatedAt: nowMillis(),
		IsLocal:   f.IsLocal,
	}
	h.UpdatedAt = h.CreatedAt

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO hosts (`+hostColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			h.ID, h.Name, h.IP, h.OS, h.Status, h.Resources, marshalTags(h.Tags), h.Metadata,
			h.CreatedAt, h.UpdatedAt, h.LastHeartbeat, boolToInt(h.IsLocal),
		)
		if isUniqueViolation(err) {
			return anvylerrors.New(anvylerrors.Conflict, "host already exists")
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

// GetHost returns the host with the given id.
func (s *Store) GetHost(ctx context.Context, id string) (*Host, error) {
	row := s.queryRow(ctx, `SELECT `+hostColumns+` FROM hosts WHERE id = ?`, id)
	h, err := scanHost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, anvylerrors.New(anvylerrors.NotFound, "host not found")
	}
	if err != nil {
		return nil, anvylerrors.Wrap(anvylerrors.Internal, "get host", err)
	}
	return h, nil
}

// GetLocalHost returns the host row with is_local=true.
func (s *Store) GetLocalHost(ctx context.Context) (*Host, error) {
	row := s.queryRow(ctx, `SELECT `+hostColumns+` FROM hosts WHERE is_local = 1 LIMIT 1`)
	h, err := scanHost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, anvylerrors.New(anvylerrors.NotFound, "local host not yet bootstrapped")
	}
	if err != nil {
		return nil, anvylerrors.Wrap(anvylerrors.Internal, "get local host", err)
	}
	return h, nil
}

// ListHosts returns all hosts ordered by created_at ascending.
func (s *Store) ListHosts(ctx context.Context) ([]*Host, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+hostColumns+` FROM hosts ORDER BY created_at ASC`)
	if err != nil {
		return nil, anvylerrors.Wrap(anvylerrors.Internal, "list hosts", err)
	}
	defer rows.Close()

	var out []*Host
	for rows.Next() {
		h, err := scanHost(rows)
		if err != nil {
			return nil, anvylerrors.Wrap(anvylerrors.Internal, "scan host", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// UpdateHost applies a partial update and returns the updated row.
func (s *Store) UpdateHost(ctx context.Context, id string, u HostUpdate) (*Host, error) {
	var updated *Host
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+hostColumns+` FROM hosts WHERE id = ?`, id)
		h, err := scanHost(row)
		if errors.Is(err, sql.ErrNoRows) {
			return anvylerrors.New(anvylerrors.NotFound, "host not found")
		}
		if err != nil {
			return err
		}

		if u.Name != nil {
			h.Name = *u.Name
		}
		if u.Status != nil {
			h.Status = *u.Status
		}
		if u.Tags != nil {
			h.Tags = *u.Tags
		}
		if u.Resources != nil {
			h.Resources = *u.Resources
		}
		if u.Metadata != nil {
			h.Metadata = *u.Metadata
		}
		h.UpdatedAt = nowMillis()

		_, err = tx.ExecContext(ctx,
			`UPDATE hosts SET name=?, status=?, tags=?, resources=?, metadata=?, updated_at=? WHERE id=?`,
			h.Name, h.Status, marshalTags(h.Tags), h.Resources, h.Metadata, h.UpdatedAt, id,
		)
		if err != nil {
			return err
		}
		updated = h
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Heartbeat bumps last_heartbeat to now.
func (s *Store) Heartbeat(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE hosts SET last_heartbeat=? WHERE id=?`, nowMillis(), id)
		if err != nil {
			return err
		}
		return requireRowAffected(res)
	})
}

// RemoveHost deletes a host and cascades to its containers. Deleting the
// local host is forbidden (§3 lifecycle, §4.A Invariant).
func (s *Store) RemoveHost(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT is_local FROM hosts WHERE id = ?`, id)
		var isLocal int
		if err := row.Scan(&isLocal); errors.Is(err, sql.ErrNoRows) {
			return anvylerrors.New(anvylerrors.NotFound, "host not found")
		} else if err != nil {
			return err
		}
		if isLocal != 0 {
			return anvylerrors.New(anvylerrors.Invariant, "the local host cannot be removed")
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM containers WHERE host_id = ?`, id)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM hosts WHERE id = ?`, id)
		if err != nil {
			return err
		}
		return requireRowAffected(res)
	})
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
