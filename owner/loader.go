package owner

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/pam/logger"
	"github.com/teranos/pam/recordstore"
)

// Loader runs the two-phase owner query. It holds no directory state of its own.
type Loader struct {
	querier recordstore.Querier
	log     *zap.SugaredLogger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLoaderLogger sets the loader's logger.
func WithLoaderLogger(log *zap.SugaredLogger) LoaderOption {
	return func(l *Loader) { l.log = log }
}

// NewLoader creates a loader reading through q.
func NewLoader(q recordstore.Querier, opts ...LoaderOption) *Loader {
	l := &Loader{querier: q}
	for _, opt := range opts {
		opt(l)
	}
	if l.log == nil {
		l.log = logger.ComponentLogger("owner.loader")
	}
	return l
}

// Load queries users, then teams, and merges them into a new snapshot.
//
// The team phase starts only after the user phase has returned. A failing phase
// does not stop the other one: the snapshot is built from whatever succeeded and
// the failures are reported as a *LoadError next to it. The returned snapshot is
// never nil.
func (l *Loader) Load(ctx context.Context) (*Snapshot, error) {
	start := time.Now()
	log := logger.LoggerFromContext(ctx, l.log)
	var failures []*QueryFailure

	users, err := l.phase(ctx, log, PhaseUsers, UserQuery(), KindUser, userIDColumn, userNameColumn)
	if err != nil {
		failures = append(failures, err)
	}

	var teams []Owner
	if ctxErr := ctx.Err(); ctxErr != nil {
		failures = append(failures, &QueryFailure{Phase: PhaseTeams, Entity: teamEntity, Err: ctxErr})
	} else {
		teams, err = l.phase(ctx, log, PhaseTeams, TeamQuery(), KindTeam, teamIDColumn, teamNameColumn)
		if err != nil {
			failures = append(failures, err)
		}
	}

	snap := NewSnapshot(users, teams)
	log.Infow("Owner directory loaded",
		"users", len(snap.Users()),
		"teams", len(snap.Teams()),
		"failed_phases", len(failures),
		logger.FieldDurationMS, time.Since(start).Milliseconds(),
	)

	if len(failures) > 0 {
		return snap, &LoadError{Failures: failures}
	}
	return snap, nil
}

func (l *Loader) phase(ctx context.Context, log *zap.SugaredLogger, phase Phase, q recordstore.Query, kind Kind, idCol, nameCol string) ([]Owner, *QueryFailure) {
	records, err := l.querier.Query(ctx, q)
	if err != nil {
		log.Errorw("Owner query failed",
			logger.FieldPhase, phase,
			logger.FieldEntity, q.Entity,
			logger.FieldError, err,
		)
		return nil, &QueryFailure{Phase: phase, Entity: q.Entity, Err: err}
	}

	owners := make([]Owner, 0, len(records))
	for _, r := range records {
		id := r.String(idCol)
		if id == "" {
			log.Warnw("Skipping owner record without id", logger.FieldPhase, phase)
			continue
		}
		owners = append(owners, Owner{ID: id, Name: r.String(nameCol), Kind: kind})
	}

	log.Debugw("Owner phase complete",
		logger.FieldPhase, phase,
		logger.FieldCount, len(owners),
	)
	return owners, nil
}
