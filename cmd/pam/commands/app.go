package commands

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"github.com/teranos/pam/artefact"
	"github.com/teranos/pam/crm"
	"github.com/teranos/pam/errors"
	"github.com/teranos/pam/logger"
	"github.com/teranos/pam/owner"
	"github.com/teranos/pam/recordstore"
	"github.com/teranos/pam/settings"
)

// app is the wiring shared by commands that talk to the record store.
type app struct {
	cfg       *settings.Config
	db        *sql.DB
	registry  *artefact.Registry
	directory *owner.Directory
}

func openApp(opts ...artefact.RegistryOption) (*app, error) {
	cfg, err := settings.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}

	database, err := openDatabase(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	registry := artefact.NewRegistry(opts...)
	if err := crm.RegisterDefaults(registry, database); err != nil {
		database.Close()
		return nil, err
	}
	if err := registry.Validate(); err != nil {
		database.Close()
		return nil, err
	}

	querier := recordstore.NewSQLQuerier(database, logger.ComponentLogger("recordstore"))
	return &app{
		cfg:       cfg,
		db:        database,
		registry:  registry,
		directory: owner.NewDirectory(owner.NewLoader(querier)),
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

// loadOwners loads the directory. A partial load is reported on w and the
// partial snapshot is used.
func (a *app) loadOwners(ctx context.Context, w io.Writer) (*owner.Snapshot, error) {
	snap, err := a.directory.Load(ctx)
	if err == nil {
		return snap, nil
	}
	var loadErr *owner.LoadError
	if !errors.As(err, &loadErr) {
		return nil, err
	}
	if errors.Is(err, context.Canceled) {
		return nil, err
	}
	logger.Logger.Warnw("Owner directory is incomplete", logger.FieldError, err)
	fmt.Fprintf(w, "warning: %v\n", err)
	return snap, nil
}

// findOwner resolves id against snap.
func findOwner(snap *owner.Snapshot, id string) (owner.Owner, error) {
	o, ok := snap.Find(id)
	if !ok {
		err := errors.NewNotFoundError("owner %s", id)
		return owner.Owner{}, errors.WithHint(err, "run 'pam owners ls' to see enabled users and teams")
	}
	return o, nil
}
