package artefact

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/teranos/pam/errors"
	"github.com/teranos/pam/logger"
	"github.com/teranos/pam/owner"
)

// Registry maps artefact types to their containers.
// Safe for concurrent registration and lookup.
type Registry struct {
	containers map[Type]Container
	mu         sync.RWMutex
	onList     func(Type, []Artefact)
	log        *zap.SugaredLogger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithListListener registers the ArtefactListUpdated callback, fired once per
// successful QueryByOwner.
func WithListListener(fn func(Type, []Artefact)) RegistryOption {
	return func(r *Registry) { r.onList = fn }
}

// WithRegistryLogger sets the registry's logger.
func WithRegistryLogger(log *zap.SugaredLogger) RegistryOption {
	return func(r *Registry) { r.log = log }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{containers: make(map[Type]Container)}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.ComponentLogger("artefact.registry")
	}
	return r
}

// Register adds c under c.Type(). A type can be registered once.
func (r *Registry) Register(c Container) error {
	if c == nil {
		return errors.NewInvalidRequestError("nil container")
	}
	t := c.Type()
	if !t.Valid() {
		return errors.Wrapf(&UnknownTypeError{TypeID: string(t)}, "register container")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.containers[t]; exists {
		return errors.Newf("container already registered for type %s", t)
	}
	r.containers[t] = c
	return nil
}

// Validate checks that every artefact type has a container.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var missing []string
	for _, t := range types {
		if _, ok := r.containers[t]; !ok {
			missing = append(missing, string(t))
		}
	}
	if len(missing) > 0 {
		err := errors.Newf("no container registered for %v", missing)
		return errors.WithHint(err, "register a container for each artefact type at startup")
	}
	return nil
}

// IsKnownType reports whether typeID resolves to a container.
func (r *Registry) IsKnownType(typeID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.containers[Type(typeID)]
	return ok
}

// Resolve returns the container for typeID or an *UnknownTypeError.
func (r *Registry) Resolve(typeID string) (Container, error) {
	r.mu.RLock()
	c, ok := r.containers[Type(typeID)]
	r.mu.RUnlock()
	if !ok {
		return nil, &UnknownTypeError{TypeID: typeID}
	}
	return c, nil
}

// QueryByOwner lists o's artefacts of the given type and publishes the list.
// An unknown type fails before the store is touched and nothing is published.
func (r *Registry) QueryByOwner(ctx context.Context, typeID string, o owner.Owner) ([]Artefact, error) {
	c, err := r.Resolve(typeID)
	if err != nil {
		return nil, err
	}

	list, err := c.QueryByOwner(ctx, o)
	if err != nil {
		r.log.Errorw("Artefact query failed",
			logger.FieldArtefactType, typeID,
			logger.FieldOwnerID, o.ID,
			logger.FieldError, err,
		)
		return nil, errors.Wrapf(err, "list %s for %s", Type(typeID).Label(), o.Name)
	}

	r.log.Debugw("Artefacts listed",
		logger.FieldArtefactType, typeID,
		logger.FieldOwnerID, o.ID,
		logger.FieldCount, len(list),
	)
	if r.onList != nil {
		r.onList(Type(typeID), list)
	}
	return list, nil
}

// Types returns the registered types in display order.
func (r *Registry) Types() []Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Type, 0, len(r.containers))
	for _, t := range types {
		if _, ok := r.containers[t]; ok {
			out = append(out, t)
		}
	}
	return out
}
