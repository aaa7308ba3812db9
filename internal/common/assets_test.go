package common

import (
	"os"
	"path/filepath"
	"testing"

	"asset-market-go/internal/models"
)

func TestLoadAssetProfile_MissingFileUsesDefaults(t *testing.T) {
	profile, err := LoadAssetProfile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile != models.DefaultAssetProfile() {
		t.Errorf("expected defaults, got %+v", profile)
	}
}

func TestLoadAssetProfile_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "asset_profile.yaml")
	content := "asset:\n  type: 2\n  updatable: true\n  issue_frequency: 30\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	profile, err := LoadAssetProfile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.Type != 2 || !profile.Updatable || profile.IssueFrequency != 30 {
		t.Errorf("overrides not applied: %+v", profile)
	}
	if profile.MaxMintCount != 1 {
		t.Errorf("unset fields should keep defaults, got max_mint_count %d", profile.MaxMintCount)
	}
}

func TestLoadAssetProfile_RejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "asset_profile.yaml")
	if err := os.WriteFile(path, []byte("asset:\n  max_mint_count: 0\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadAssetProfile(path); err == nil {
		t.Error("expected an error for max_mint_count 0")
	}

	if err := os.WriteFile(path, []byte("asset: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadAssetProfile(path); err == nil {
		t.Error("expected a parse error")
	}
}
