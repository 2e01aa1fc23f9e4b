package services

import (
	"strings"
	"testing"
)

func TestEnabledServicesFollowCatalogOrder(t *testing.T) {
	e := Enablement{LivenessCheck: true, SpoofDetection: true}
	got := e.EnabledServices()
	if len(got) != 2 || got[0].Name != SpoofDetection || got[1].Name != LivenessCheck {
		t.Fatalf("unexpected order: %+v", got)
	}
	if !e.Any() {
		t.Fatalf("expected Any to be true")
	}
	if (Enablement{}).Any() {
		t.Fatalf("expected Any to be false for empty enablement")
	}
}

func TestRepositoriesIncludeProxy(t *testing.T) {
	repos := Enablement{FaceMatch: true}.Repositories()
	if len(repos) != 2 || repos[0] != ProxyRepository || repos[1] != "kyc-services/face-match" {
		t.Fatalf("unexpected repositories: %v", repos)
	}
}

func TestSummary(t *testing.T) {
	got := Enablement{SpoofDetection: true}.Summary()
	want := "enable Spoof Detection, disable Face Match, disable Liveness Check"
	if got != want {
		t.Fatalf("Summary() = %q, want %q", got, want)
	}
}

func TestByEnableParam(t *testing.T) {
	def, ok := ByEnableParam("EnableFaceMatch")
	if !ok || def.Name != FaceMatch {
		t.Fatalf("expected face match, got %+v %v", def, ok)
	}
	if _, ok := ByEnableParam("KeyName"); ok {
		t.Fatalf("expected KeyName to be unknown")
	}
}

func TestSetRejectsUnknown(t *testing.T) {
	var e Enablement
	if err := e.Set("ocr", true); err == nil || !strings.Contains(err.Error(), "ocr") {
		t.Fatalf("expected unknown service error, got %v", err)
	}
	if err := e.Set(LivenessCheck, true); err != nil || !e.LivenessCheck {
		t.Fatalf("expected liveness enabled, err=%v", err)
	}
}

func TestEveryServiceRequiresLicense(t *testing.T) {
	for _, def := range All() {
		if !def.RequiresLicense() {
			t.Fatalf("%s should require a license", def.Name)
		}
	}
}
