package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pelletier/go-toml/v2"
	"github.com/pterm/pterm"
	"gopkg.in/yaml.v3"

	"github.com/teranos/pam/errors"
)

// Output formats accepted by -o.
const (
	formatTable = "table"
	formatYAML  = "yaml"
	formatJSON  = "json"
	formatTOML  = "toml"
)

// writeStructured encodes v on w in format.
func writeStructured(w io.Writer, format string, v interface{}) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case formatTOML:
		data, err := toml.Marshal(v)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	default:
		return unsupportedFormat(format)
	}
}

// writeTable renders rows under header with pterm.
func writeTable(w io.Writer, header []string, rows [][]string) error {
	data := pterm.TableData{header}
	data = append(data, rows...)
	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return errors.Wrap(err, "failed to render table")
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

func unsupportedFormat(format string) error {
	err := errors.NewInvalidRequestError("unsupported output format %q", format)
	return errors.WithHint(err, "use table, yaml or json")
}
