package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/mitchellh/colorstring"
	"github.com/rotisserie/eris"
)

// ConsoleWriter turns zerolog's JSON events into colored terminal lines.
// Events with command=true are printed as the bare command line so a
// failing invocation can be copied and rerun by hand.
type ConsoleWriter struct {
	out    io.Writer
	buffer strings.Builder
	lock   sync.Mutex
}

func NewConsoleWriter(out io.Writer) *ConsoleWriter {
	return &ConsoleWriter{out: out}
}

func (w *ConsoleWriter) Write(p []byte) (n int, err error) {
	w.lock.Lock()
	defer w.lock.Unlock()

	var evt map[string]interface{}
	d := json.NewDecoder(bytes.NewReader(p))
	d.UseNumber()
	if err := d.Decode(&evt); err != nil {
		return 0, eris.Wrapf(err, "cannot decode event: %s", p)
	}

	w.buffer.Reset()
	switch evt["level"] {
	case "fatal", "error":
		w.buffer.WriteString("[red]")
	case "warn":
		w.buffer.WriteString("[yellow]")
	case "debug", "trace":
		w.buffer.WriteString("[blue]")
	default:
		w.buffer.WriteString("[green]")
	}

	msg, _ := evt["message"].(string)
	if evt["command"] == true {
		w.buffer.WriteString("[bold]$[reset] ")
		w.buffer.WriteString(msg)
		w.buffer.WriteString("\n")
		_, err := io.WriteString(w.out, colorstring.Color(w.buffer.String()))
		return len(p), err
	}

	if variant, ok := evt["variant"].(string); ok {
		w.buffer.WriteString(variant + ": ")
	}
	if evt["level"] == "error" || evt["level"] == "fatal" {
		w.buffer.WriteString("Error: ")
	}
	w.buffer.WriteString(msg)

	if details, ok := evt["error"].(string); ok {
		w.buffer.WriteString("\n")
		w.buffer.WriteString(details)
	}

	if Trace() {
		keys := make([]string, 0, len(evt))
		for k := range evt {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			w.buffer.WriteString(fmt.Sprintf("\n  %s: %+v", k, evt[k]))
		}
	}

	w.buffer.WriteString("[reset]\n")
	if _, err := io.WriteString(w.out, colorstring.Color(w.buffer.String())); err != nil {
		return 0, err
	}
	return len(p), nil
}
