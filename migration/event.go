package migration

// EventKind classifies engine notifications.
type EventKind string

const (
	EventStarted   EventKind = "started"
	EventProgress  EventKind = "progress"
	EventCompleted EventKind = "completed"
	EventFailed    EventKind = "failed"
	EventCancelled EventKind = "cancelled"
)

// Terminal reports whether k ends a run.
func (k EventKind) Terminal() bool {
	return k == EventCompleted || k == EventFailed || k == EventCancelled
}

// Event is one progress notification. Every run emits one EventStarted, one
// EventProgress per completed unit and exactly one terminal event.
type Event struct {
	Kind      EventKind
	Operation Operation
	Percent   int
	Message   string
	Completed int
	Total     int
	// Unit is set on EventProgress and, when a unit caused it, EventFailed.
	Unit *Unit
	Err  error
}

// Observer receives engine events. Calls are never concurrent.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }

type multiObserver []Observer

func (m multiObserver) Observe(e Event) {
	for _, o := range m {
		o.Observe(e)
	}
}

// Observers fans events out to each non-nil observer in order.
func Observers(obs ...Observer) Observer {
	var m multiObserver
	for _, o := range obs {
		if o != nil {
			m = append(m, o)
		}
	}
	return m
}
