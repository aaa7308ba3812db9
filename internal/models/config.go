package models

import "time"

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig
	Chain    ChainConfig
	Vault    VaultConfig
	Market   MarketConfig
	Journal  JournalConfig
	Formance FormanceConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path             string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
	ConnMaxIdleTime  time.Duration
	PingTimeout      time.Duration
	BusyTimeout      time.Duration
	CreateDummyUsers bool
}

// ChainConfig holds ledger node RPC settings
type ChainConfig struct {
	Host                string
	Port                int
	User                string
	Password            string
	UseTLS              bool
	RequestsPerSecond   float64
	Burst               int
	Confirmations       int
	ConfirmationTimeout time.Duration
	PollInterval        time.Duration
	PaymentFee          int64
	ReadRetries         int
}

// VaultConfig holds the process-wide key material for wallet secrets.
// Either Key (base64, 32 bytes) or Passphrase plus Salt must be set.
type VaultConfig struct {
	Key        string
	Passphrase string
	Salt       string
}

// MarketConfig holds orchestration settings
type MarketConfig struct {
	PlatformWalletAddress string
	DefaultOfferTTL       time.Duration
	SweepInterval         time.Duration
	AssetProfileFile      string
	ReconcileConcurrency  int
}

type JournalConfig struct {
	Dir              string
	SegmentThreshold int
	MaxSegments      int
}

// FormanceConfig holds the optional settlement mirror settings.
// The mirror is disabled when StackURL is empty.
type FormanceConfig struct {
	StackURL     string
	ClientID     string
	ClientSecret string
	LedgerName   string
}

func (c FormanceConfig) Enabled() bool {
	return c.StackURL != ""
}

// AssetProfile holds the ledger parameters used when defining new assets.
// It is loaded from ASSET_PROFILE_FILE.
type AssetProfile struct {
	Type           int  `yaml:"type"`
	Updatable      bool `yaml:"updatable"`
	DecimalPoint   int  `yaml:"decimal_point"`
	MaxMintCount   int  `yaml:"max_mint_count"`
	IssueFrequency int  `yaml:"issue_frequency"`
}

// DefaultAssetProfile describes a non-updatable unique asset minted once
func DefaultAssetProfile() AssetProfile {
	return AssetProfile{
		Type:           0,
		Updatable:      false,
		DecimalPoint:   0,
		MaxMintCount:   1,
		IssueFrequency: 0,
	}
}
