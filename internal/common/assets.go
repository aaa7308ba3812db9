package common

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"asset-market-go/internal/models"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

type assetProfileFile struct {
	Asset models.AssetProfile `yaml:"asset"`
}

// LoadAssetProfile reads the asset creation defaults. A missing file yields
// models.DefaultAssetProfile.
func LoadAssetProfile(profileFile string) (models.AssetProfile, error) {
	defaults := models.DefaultAssetProfile()
	if profileFile == "" {
		return defaults, nil
	}

	profilePath := profileFile
	if !filepath.IsAbs(profileFile) {
		wd, err := os.Getwd()
		if err != nil {
			return defaults, fmt.Errorf("failed to get working directory: %w", err)
		}
		profilePath = filepath.Join(wd, profileFile)
	}

	data, err := os.ReadFile(profilePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			zap.L().Info("No asset profile file, using defaults", zap.String("file", profileFile))
			return defaults, nil
		}
		return defaults, fmt.Errorf("unable to read %s: %w", profileFile, err)
	}

	parsed := assetProfileFile{Asset: defaults}
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return defaults, fmt.Errorf("unable to parse %s: %w", profileFile, err)
	}

	profile := parsed.Asset
	if profile.MaxMintCount < 1 {
		return defaults, fmt.Errorf("%s: max_mint_count must be at least 1, got %d", profileFile, profile.MaxMintCount)
	}
	if profile.DecimalPoint < 0 || profile.DecimalPoint > 8 {
		return defaults, fmt.Errorf("%s: decimal_point must be between 0 and 8, got %d", profileFile, profile.DecimalPoint)
	}
	return profile, nil
}
