package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/anvylhq/anvyl/internal/anvylerrors"
)

// Container is a row of the containers table (§3).
type Container struct {
	ID          string  `json:"id"`
	DockerID    *string `json:"docker_id,omitempty"`
	Name        string  `json:"name"`
	Image       string  `json:"image"`
	HostID      string  `json:"host_id"`
	Status      string  `json:"status"`
	Labels      string  `json:"labels,omitempty"`
	Ports       string  `json:"ports,omitempty"`
	Volumes     string  `json:"volumes,omitempty"`
	Environment string  `json:"environment,omitempty"`
	Command     string  `json:"command,omitempty"`
	CreatedAt   int64   `json:"created_at"`
	UpdatedAt   int64   `json:"updated_at"`
	StartedAt   *int64  `json:"started_at,omitempty"`
	FinishedAt  *int64  `json:"finished_at,omitempty"`
	ExitCode    *int64  `json:"exit_code,omitempty"`
}

// NewContainerFields is accepted by AddContainer.
type NewContainerFields struct {
	Name        string
	Image       string
	HostID      string
	Labels      string
	Ports       string
	Volumes     string
	Environment string
	Command     string
}

// ContainerUpdate is a partial update accepted by UpdateContainer; nil
// fields are left unchanged.
type ContainerUpdate struct {
	DockerID   *string
	Status     *string
	StartedAt  *int64
	FinishedAt *int64
	ExitCode   *int64
}

const containerColumns = `id, docker_id, name, image, host_id, status, labels, ports, volumes, environment, command, created_at, updated_at, started_at, finished_at, exit_code`

func scanContainer(row interface{ Scan(...any) error }) (*Container, error) {
	var c Container
	var dockerID, labels, ports, volumes, env, cmd sql.NullString
	var startedAt, finishedAt, exitCode sql.NullInt64
	if err := row.Scan(&c.ID, &dockerID, &c.Name, &c.Image, &c.HostID, &c.Status,
		&labels, &ports, &volumes, &env, &cmd,
		&c.CreatedAt, &c.UpdatedAt, &startedAt, &finishedAt, &exitCode); err != nil {
		return nil, err
	}
	if dockerID.Valid {
		c.DockerID = &dockerID.String
	}
	c.Labels = labels.String
	c.Ports = ports.String
	c.Volumes = volumes.String
	c.Environment = env.String
	c.Command = cmd.String
	if startedAt.Valid {
		c.StartedAt = &startedAt.Int64
	}
	if finishedAt.Valid {
		c.FinishedAt = &finishedAt.Int64
	}
	if exitCode.Valid {
		c.ExitCode = &exitCode.Int64
	}
	return &c, nil
}

// AddContainer inserts a new container row with status=created and no
// docker_id (§4.C create-container semantics: the row is always written
// before the engine call). Conflict is returned on a duplicate
// (host_id, name) among non-removed rows; NotFound if host_id does not
// exist.
func (s *Store) AddContainer(ctx context.Context, f NewContainerFields) (*Container, error) {
	c := &Container{
		ID:          uuid.NewString(),
		Name:        f.Name,
		Image:       f.Image,
		HostID:      f.HostID,
		Status:      "created",
		Labels:      f.Labels,
		Ports:       f.Ports,
		Volumes:     f.Volumes,
		Environment: f.Environment,
		Command:     f.Command,
		CreatedAt:   nowMillis(),
	}
	c.UpdatedAt = c.CreatedAt

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM hosts WHERE id = ?`, f.HostID).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return anvylerrors.New(anvylerrors.NotFound, "host not found")
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO containers (`+containerColumns+`) VALUES (?, NULL, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, NULL, NULL)`,
			c.ID, c.Name, c.Image, c.HostID, c.Status, c.Labels, c.Ports, c.Volumes, c.Environment, c.Command,
			c.CreatedAt, c.UpdatedAt,
		)
		if isUniqueViolation(err) {
			return anvylerrors.New(anvylerrors.Conflict, "a container with this name already exists on this host")
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetContainer looks up a container by internal id or, failing that, by
// docker_id (§4.C "GET /containers/{id}: single container (by internal id
// or docker_id)").
func (s *Store) GetContainer(ctx context.Context, id string) (*Container, error) {
	row := s.queryRow(ctx, `SELECT `+containerColumns+` FROM containers WHERE id = ?`, id)
	c, err := scanContainer(row)
	if errors.Is(err, sql.ErrNoRows) {
		row = s.queryRow(ctx, `SELECT `+containerColumns+` FROM containers WHERE docker_id = ?`, id)
		c, err = scanContainer(row)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, anvylerrors.New(anvylerrors.NotFound, "container not found")
	}
	if err != nil {
		return nil, anvylerrors.Wrap(anvylerrors.Internal, "get container", err)
	}
	return c, nil
}

// ListContainers returns containers ordered by created_at desc, optionally
// filtered by host id.
func (s *Store) ListContainers(ctx context.Context, hostID string) ([]*Container, error) {
	query := `SELECT ` + containerColumns + ` FROM containers`
	var args []any
	if hostID != "" {
		query += ` WHERE host_id = ?`
		args = append(args, hostID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, anvylerrors.Wrap(anvylerrors.Internal, "list containers", err)
	}
	defer rows.Close()

	var out []*Container
	for rows.Next() {
		c, err := scanContainer(rows)
		if err != nil {
			return nil, anvylerrors.Wrap(anvylerrors.Internal, "scan container", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateContainer applies a partial update, used both by request handlers
// (docker_id/status after engine success) and by the reconciler.
func (s *Store) UpdateContainer(ctx context.Context, id string, u ContainerUpdate) (*Container, error) {
	var updated *Container
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+containerColumns+` FROM containers WHERE id = ?`, id)
		c, err := scanContainer(row)
		if errors.Is(err, sql.ErrNoRows) {
			return anvylerrors.New(anvylerrors.NotFound, "container not found")
		}
		if err != nil {
			return err
		}

		if u.DockerID != nil {
			c.DockerID = u.DockerID
		}
		if u.Status != nil {
			c.Status = *u.Status
		}
		if u.StartedAt != nil {
			c.StartedAt = u.StartedAt
		}
		if u.FinishedAt != nil {
			c.FinishedAt = u.FinishedAt
		}
		if u.ExitCode != nil {
			c.ExitCode = u.ExitCode
		}
		c.UpdatedAt = nowMillis()

		_, err = tx.ExecContext(ctx,
			`UPDATE containers SET docker_id=?, status=?, started_at=?, finished_at=?, exit_code=?, updated_at=? WHERE id=?`,
			c.DockerID, c.Status, c.StartedAt, c.FinishedAt, c.ExitCode, c.UpdatedAt, id,
		)
		if err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// RemoveContainer deletes a container row.
func (s *Store) RemoveContainer(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM containers WHERE id = ? OR docker_id = ?`, id, id)
		if err != nil {
			return err
		}
		return requireRowAffected(res)
	})
}
