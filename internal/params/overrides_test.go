package params

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/example/kycstack/internal/services"
)

func TestParseOverride(t *testing.T) {
	cases := []struct {
		raw     string
		want    services.Override
		wantErr bool
	}{
		{raw: "InstanceType=m5.large", want: services.Override{Key: "InstanceType", Value: "m5.large"}},
		{raw: "Empty=", want: services.Override{Key: "Empty", Value: ""}},
		{raw: "Url=https://x/?a=b", want: services.Override{Key: "Url", Value: "https://x/?a=b"}},
		{raw: "NoValue", wantErr: true},
		{raw: "=v", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseOverride(tc.raw)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseOverride(%q): expected error", tc.raw)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseOverride(%q): %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("ParseOverride(%q) = %+v, want %+v", tc.raw, got, tc.want)
		}
	}
}

func TestLoadOverridesFileKeepsOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.yaml")
	content := "Zeta: 1\nAlpha: \"two\"\nEnableFaceMatch: true\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := LoadOverridesFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := []services.Override{
		{Key: "Zeta", Value: "1"},
		{Key: "Alpha", Value: "two"},
		{Key: "EnableFaceMatch", Value: "true"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected overrides (-want +got):\n%s", diff)
	}
}

func TestDecodeOverridesRejectsNested(t *testing.T) {
	if _, err := DecodeOverrides([]byte("Key:\n  nested: 1\n")); err == nil {
		t.Fatalf("expected error for nested value")
	}
	if _, err := DecodeOverrides([]byte("- a\n- b\n")); err == nil {
		t.Fatalf("expected error for sequence document")
	}
}

func TestDecodeOverridesEmpty(t *testing.T) {
	got, err := DecodeOverrides(nil)
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty result, got %v %v", got, err)
	}
}
