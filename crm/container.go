package crm

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/pam/artefact"
	"github.com/teranos/pam/errors"
	"github.com/teranos/pam/logger"
	"github.com/teranos/pam/owner"
	"github.com/teranos/pam/recordstore"
)

// Container is an artefact.Container for one table of the record store.
// Reads go through a recordstore.Querier; writes go straight to the database.
type Container struct {
	schema  Schema
	db      *sql.DB
	querier recordstore.Querier
	log     *zap.SugaredLogger
	newID   func() string
}

// Option configures a Container.
type Option func(*Container)

// WithQuerier overrides the querier used for reads.
func WithQuerier(q recordstore.Querier) Option {
	return func(c *Container) { c.querier = q }
}

// WithLogger sets the container's logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(c *Container) { c.log = log }
}

// WithIDGenerator overrides how duplicate ids are minted.
func WithIDGenerator(fn func() string) Option {
	return func(c *Container) { c.newID = fn }
}

// NewContainer creates a container for schema over db.
func NewContainer(schema Schema, db *sql.DB, opts ...Option) *Container {
	c := &Container{
		schema: schema,
		db:     db,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.ComponentLogger("crm." + schema.Entity)
	}
	if c.querier == nil {
		c.querier = recordstore.NewSQLQuerier(db, c.log)
	}
	return c
}

// RegisterDefaults registers a container for every artefact type.
func RegisterDefaults(reg *artefact.Registry, db *sql.DB, opts ...Option) error {
	for _, s := range Schemas() {
		if err := reg.Register(NewContainer(s, db, opts...)); err != nil {
			return errors.Wrapf(err, "register %s container", s.Entity)
		}
	}
	return nil
}

func (c *Container) Type() artefact.Type { return c.schema.Type }

// QueryByOwner lists o's artefacts ordered by name.
func (c *Container) QueryByOwner(ctx context.Context, o owner.Owner) ([]artefact.Artefact, error) {
	s := c.schema
	records, err := c.querier.Query(ctx, recordstore.Query{
		Entity:     s.Entity,
		Columns:    []string{s.IDColumn, s.NameColumn, s.DescriptionColumn, ownerIDColumn, ownerTypeColumn},
		Conditions: []recordstore.Condition{recordstore.Eq(ownerIDColumn, o.ID)},
		Orders:     []recordstore.Order{{Field: s.NameColumn}},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "query %s owned by %s", s.Entity, o.ID)
	}

	out := make([]artefact.Artefact, 0, len(records))
	for _, r := range records {
		kind, ok := owner.ParseKind(r.String(ownerTypeColumn))
		if !ok {
			kind = o.Kind
		}
		out = append(out, artefact.Artefact{
			ID:          r.String(s.IDColumn),
			Name:        r.String(s.NameColumn),
			Description: r.String(s.DescriptionColumn),
			Type:        s.Type,
			OwnerID:     r.String(ownerIDColumn),
			OwnerKind:   kind,
		})
	}
	return out, nil
}

// Delete removes a's row.
func (c *Container) Delete(ctx context.Context, a artefact.Artefact) error {
	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", c.schema.Entity, c.schema.IDColumn)
	res, err := c.db.ExecContext(ctx, stmt, a.ID)
	if err != nil {
		return errors.Wrapf(err, "delete %s %s", c.schema.Entity, a.ID)
	}
	if err := requireRow(res, c.schema.Entity, a.ID); err != nil {
		return err
	}
	c.log.Debugw("Artefact deleted", logger.FieldArtefactID, a.ID)
	return nil
}

// Assign moves a to target.
func (c *Container) Assign(ctx context.Context, a artefact.Artefact, target owner.Owner) error {
	stmt := fmt.Sprintf("UPDATE %s SET %s = ?, %s = ? WHERE %s = ?",
		c.schema.Entity, ownerIDColumn, ownerTypeColumn, c.schema.IDColumn)
	res, err := c.db.ExecContext(ctx, stmt, target.ID, target.Kind.LogicalName(), a.ID)
	if err != nil {
		return errors.Wrapf(err, "assign %s %s to %s", c.schema.Entity, a.ID, target.ID)
	}
	if err := requireRow(res, c.schema.Entity, a.ID); err != nil {
		return err
	}
	c.log.Debugw("Artefact assigned",
		logger.FieldArtefactID, a.ID,
		logger.FieldTargetID, target.ID,
	)
	return nil
}

// Duplicate copies a's row under a fresh id owned by target.
func (c *Container) Duplicate(ctx context.Context, a artefact.Artefact, target owner.Owner) (artefact.Artefact, error) {
	s := c.schema
	copied := append([]string{s.NameColumn, s.DescriptionColumn}, s.PayloadColumns...)
	list := strings.Join(copied, ", ")
	stmt := fmt.Sprintf("INSERT INTO %s (%s, %s, %s, %s) SELECT ?, %s, ?, ? FROM %s WHERE %s = ?",
		s.Entity, s.IDColumn, list, ownerIDColumn, ownerTypeColumn,
		list, s.Entity, s.IDColumn)

	id := c.newID()
	res, err := c.db.ExecContext(ctx, stmt, id, target.ID, target.Kind.LogicalName(), a.ID)
	if err != nil {
		return artefact.Artefact{}, errors.Wrapf(err, "duplicate %s %s for %s", s.Entity, a.ID, target.ID)
	}
	if err := requireRow(res, s.Entity, a.ID); err != nil {
		return artefact.Artefact{}, err
	}

	dup := a
	dup.ID = id
	dup.Type = s.Type
	dup.OwnerID = target.ID
	dup.OwnerKind = target.Kind
	c.log.Debugw("Artefact duplicated",
		logger.FieldArtefactID, a.ID,
		logger.FieldTargetID, target.ID,
		"copy_id", id,
	)
	return dup, nil
}

func requireRow(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "rows affected for %s %s", entity, id)
	}
	if n == 0 {
		return errors.NewNotFoundError("%s %s", entity, id)
	}
	return nil
}
