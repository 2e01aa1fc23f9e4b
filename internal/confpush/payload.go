// File: internal/confpush/payload.go
// Brief: Assembles the configuration payload pushed to the primary stack.

// Package confpush builds configuration bundles (bot, models, style, terms) and delivers them
// to the primary stack's configuration entrypoint, either remotely or through a local emulator.
package confpush

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Configuration file names inside the conf directory.
const (
	BotFile    = "bot.json"
	StyleFile  = "style.json"
	TermsFile  = "terms-and-conditions.md"
	ModelsFile = "models.json"
	LensesFile = "lenses.json"
)

// Items selects what goes into a payload.
type Items struct {
	Bot    bool
	Models bool
	Style  bool
	Terms  bool
}

func (i Items) Any() bool {
	return i.Bot || i.Models || i.Style || i.Terms
}

// ModelsPack bundles model and lens definitions under a namespace.
type ModelsPack struct {
	Namespace string            `json:"namespace,omitempty"`
	Models    []json.RawMessage `json:"models,omitempty"`
	Lenses    []json.RawMessage `json:"lenses,omitempty"`
}

// Payload is the serialized configuration bundle.
type Payload struct {
	Bot        json.RawMessage `json:"bot,omitempty"`
	Style      json.RawMessage `json:"style,omitempty"`
	Terms      *string         `json:"terms,omitempty"`
	ModelsPack *ModelsPack     `json:"modelsPack,omitempty"`
}

// Marshal serializes p for delivery.
func (p Payload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// Assemble reads the selected items from dir.
func Assemble(dir string, items Items) (Payload, error) {
	var p Payload
	if items.Style {
		raw, err := readJSON(filepath.Join(dir, StyleFile))
		if err != nil {
			return Payload{}, err
		}
		p.Style = raw
	}
	if items.Terms {
		raw, err := os.ReadFile(filepath.Join(dir, TermsFile))
		if err != nil {
			return Payload{}, fmt.Errorf("read terms: %w", err)
		}
		terms := string(raw)
		p.Terms = &terms
	}
	if items.Models {
		pack, err := loadModelsPack(dir)
		if err != nil {
			return Payload{}, err
		}
		p.ModelsPack = pack
	}
	if items.Bot {
		raw, err := readJSON(filepath.Join(dir, BotFile))
		if err != nil {
			return Payload{}, err
		}
		p.Bot = raw
	}
	return p, nil
}

// Namespace derives a model namespace from a model id ("com.example.Form" -> "com.example").
func Namespace(modelID string) string {
	i := strings.LastIndexByte(modelID, '.')
	if i <= 0 {
		return ""
	}
	return modelID[:i]
}

func loadModelsPack(dir string) (*ModelsPack, error) {
	pack := &ModelsPack{}
	models, err := readKeyed(filepath.Join(dir, ModelsFile))
	if err != nil {
		return nil, err
	}
	if len(models) > 0 {
		pack.Namespace = Namespace(models[0].ID)
	}
	for _, m := range models {
		pack.Models = append(pack.Models, m.Raw)
	}
	lenses, err := readKeyed(filepath.Join(dir, LensesFile))
	if err != nil {
		return nil, err
	}
	for _, l := range lenses {
		pack.Lenses = append(pack.Lenses, l.Raw)
	}
	return pack, nil
}

type keyed struct {
	ID  string
	Raw json.RawMessage
}

// readKeyed decodes an id -> definition object in document order. A missing file yields
// nothing.
func readKeyed(path string) ([]keyed, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	out, err := decodeKeyed(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return out, nil
}

func decodeKeyed(raw []byte) ([]keyed, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("expected a JSON object keyed by id")
	}
	var out []keyed
	seen := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		id, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("%s: %w", id, err)
		}
		// A repeated id keeps its first position and its last value.
		if i, ok := seen[id]; ok {
			out[i].Raw = value
			continue
		}
		seen[id] = len(out)
		out = append(out, keyed{ID: id, Raw: value})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after the JSON object")
	}
	return out, nil
}

func readJSON(path string) (json.RawMessage, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("parse %s: invalid JSON", filepath.Base(path))
	}
	return json.RawMessage(raw), nil
}
