// Package output writes step outputs as key=value lines for the CI runner.
package output

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/rflorenc/awx-launch/internal/models"
)

// ErrNoPath is returned when a file sink has no destination configured.
var ErrNoPath = errors.New("output file not configured")

// Sink receives one serialized block of outputs per call.
type Sink interface {
	Append(data []byte) error
}

// FileSink appends to the file at Path, creating it when missing.
type FileSink struct {
	Path string
}

// Append writes data to the end of the file in a single write.
func (s FileSink) Append(data []byte) error {
	if s.Path == "" {
		return ErrNoPath
	}
	f, err := os.OpenFile(s.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", s.Path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", s.Path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", s.Path, err)
	}
	return nil
}

// Emitter writes plain and secret outputs to separate sinks.
type Emitter struct {
	Plain  Sink
	Secret Sink
	Logger log.Logger
}

// NewFileEmitter returns an Emitter appending to the given files.
func NewFileEmitter(plainPath, secretPath string, logger log.Logger) *Emitter {
	return &Emitter{
		Plain:  FileSink{Path: plainPath},
		Secret: FileSink{Path: secretPath},
		Logger: logger,
	}
}

// EmitOutputs writes outputs to the plain sink.
func (e *Emitter) EmitOutputs(outputs models.Outputs) error {
	if err := e.emit(e.Plain, outputs); err != nil {
		return fmt.Errorf("writing outputs: %w", err)
	}
	return nil
}

// EmitSecretOutputs writes outputs to the secret sink.
func (e *Emitter) EmitSecretOutputs(outputs models.Outputs) error {
	if err := e.emit(e.Secret, outputs); err != nil {
		return fmt.Errorf("writing secret outputs: %w", err)
	}
	return nil
}

func (e *Emitter) emit(sink Sink, outputs models.Outputs) error {
	if sink == nil {
		return ErrNoPath
	}
	return sink.Append(e.Format(outputs))
}

// Format renders outputs as key=value lines in insertion order. Values are
// written as-is; a newline in a value or '=' in a key is logged because the
// reader will split the entry differently.
func (e *Emitter) Format(outputs models.Outputs) []byte {
	var buf bytes.Buffer
	for _, k := range outputs.Keys() {
		v, _ := outputs.Get(k)
		if strings.ContainsAny(v, "\r\n") || strings.Contains(k, "=") {
			level.Warn(e.logger()).Log("msg", "output entry will not round-trip", "key", k)
		}
		buf.WriteString(k)
		buf.WriteByte('=')
		buf.WriteString(v)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func (e *Emitter) logger() log.Logger {
	if e.Logger == nil {
		return log.NewNopLogger()
	}
	return e.Logger
}
