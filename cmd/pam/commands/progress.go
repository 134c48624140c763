package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pterm/pterm"

	"github.com/teranos/pam/migration"
)

// cliProgress prints engine events for a terminal.
type cliProgress struct {
	w io.Writer
}

func (p *cliProgress) Observe(ev migration.Event) {
	switch ev.Kind {
	case migration.EventStarted:
		fmt.Fprintf(p.w, "🔄 %s\n", pterm.LightCyan(ev.Message))
	case migration.EventProgress:
		fmt.Fprintf(p.w, "   [%3d%%] %s: %s\n", ev.Percent, ev.Message, ev.Unit)
	case migration.EventCompleted:
		fmt.Fprintf(p.w, "✅ %s\n", pterm.Green(ev.Message))
	case migration.EventFailed:
		fmt.Fprintf(p.w, "❌ %s after %d of %d units\n", pterm.Red(ev.Message), ev.Completed, ev.Total)
	case migration.EventCancelled:
		fmt.Fprintf(p.w, "⚠️  %s after %d of %d units\n", pterm.Yellow(ev.Message), ev.Completed, ev.Total)
	}
}

// jsonEvent is one line of --json progress output.
type jsonEvent struct {
	Kind      migration.EventKind `json:"kind"`
	Operation migration.Operation `json:"operation"`
	Percent   int                 `json:"percent"`
	Message   string              `json:"message"`
	Completed int                 `json:"completed"`
	Total     int                 `json:"total"`
	Unit      string              `json:"unit,omitempty"`
	Error     string              `json:"error,omitempty"`
}

// jsonProgress writes one JSON object per engine event.
type jsonProgress struct {
	enc *json.Encoder
}

func newJSONProgress(w io.Writer) *jsonProgress {
	return &jsonProgress{enc: json.NewEncoder(w)}
}

func (p *jsonProgress) Observe(ev migration.Event) {
	out := jsonEvent{
		Kind:      ev.Kind,
		Operation: ev.Operation,
		Percent:   ev.Percent,
		Message:   ev.Message,
		Completed: ev.Completed,
		Total:     ev.Total,
	}
	if ev.Unit != nil {
		out.Unit = ev.Unit.String()
	}
	if ev.Err != nil {
		out.Error = ev.Err.Error()
	}
	_ = p.enc.Encode(out)
}
