package confpush

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestAssembleSelectedItems(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, BotFile, `{"products":["a"]}`)
	writeFile(t, dir, StyleFile, `{"color":"blue"}`)
	writeFile(t, dir, TermsFile, "# Terms\n")
	writeFile(t, dir, ModelsFile, `{"com.example.Form":{"id":"com.example.Form"},"com.example.Applicant":{"id":"com.example.Applicant"}}`)
	writeFile(t, dir, LensesFile, `{"com.example.lens":{"id":"com.example.lens"}}`)

	p, err := Assemble(dir, Items{Bot: true, Models: true, Style: true, Terms: true})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if string(p.Bot) != `{"products":["a"]}` || string(p.Style) != `{"color":"blue"}` {
		t.Fatalf("unexpected bot/style %s %s", p.Bot, p.Style)
	}
	if p.Terms == nil || *p.Terms != "# Terms\n" {
		t.Fatalf("unexpected terms %v", p.Terms)
	}
	if p.ModelsPack == nil || p.ModelsPack.Namespace != "com.example" {
		t.Fatalf("unexpected models pack %+v", p.ModelsPack)
	}
	if len(p.ModelsPack.Models) != 2 || len(p.ModelsPack.Lenses) != 1 {
		t.Fatalf("unexpected pack sizes %+v", p.ModelsPack)
	}
	var first map[string]string
	if err := json.Unmarshal(p.ModelsPack.Models[0], &first); err != nil || first["id"] != "com.example.Form" {
		t.Fatalf("models must keep document order, got %v %v", first, err)
	}
}

func TestAssembleOnlyRequestedItems(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, StyleFile, `{}`)
	p, err := Assemble(dir, Items{Style: true})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	raw, err := p.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != `{"style":{}}` {
		t.Fatalf("unexpected payload %s", raw)
	}
}

func TestAssembleModelsWithoutFiles(t *testing.T) {
	p, err := Assemble(t.TempDir(), Items{Models: true})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if p.ModelsPack == nil || p.ModelsPack.Namespace != "" || len(p.ModelsPack.Models) != 0 {
		t.Fatalf("expected empty pack, got %+v", p.ModelsPack)
	}
}

func TestNamespaceFollowsFirstModelInFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ModelsFile, `{
  "org.zeta.Form": {"id": "org.zeta.Form"},
  "com.alpha.Form": {"id": "com.alpha.Form"},
  "org.zeta.Form": {"id": "org.zeta.Form", "title": "Form"}
}`)
	p, err := Assemble(dir, Items{Models: true})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if p.ModelsPack.Namespace != "org.zeta" {
		t.Fatalf("namespace = %q, want org.zeta", p.ModelsPack.Namespace)
	}
	if len(p.ModelsPack.Models) != 2 {
		t.Fatalf("repeated ids must collapse, got %d models", len(p.ModelsPack.Models))
	}
	var first map[string]string
	if err := json.Unmarshal(p.ModelsPack.Models[0], &first); err != nil || first["title"] != "Form" {
		t.Fatalf("repeated id must keep the last value, got %v %v", first, err)
	}
}

func TestAssembleRejectsNonObjectModels(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ModelsFile, `[{"id":"com.example.Form"}]`)
	if _, err := Assemble(dir, Items{Models: true}); err == nil {
		t.Fatalf("expected an error for a models array")
	}
}

func TestAssembleInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, BotFile, `{not json`)
	if _, err := Assemble(dir, Items{Bot: true}); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestNamespace(t *testing.T) {
	cases := map[string]string{
		"com.example.Form": "com.example",
		"Form":             "",
		".Form":            "",
	}
	for in, want := range cases {
		if got := Namespace(in); got != want {
			t.Fatalf("Namespace(%q) = %q, want %q", in, got, want)
		}
	}
}
