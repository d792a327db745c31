// Package config holds the user settings record, its defaults, and the store
// that keeps the in-memory copy and the on-disk mirror in sync.
package config

// ReplaceRule is one user-defined transcript substitution.
type ReplaceRule struct {
	Pattern string `json:"pattern"`
	Replace string `json:"replace"`
	Flags   string `json:"flags,omitempty"`
}

// Settings is the flat record of every user-configurable option. The record
// always contains every key; missing keys on load are filled from Default.
type Settings struct {
	SettingsVersion    int    `json:"settingsVersion"`
	SecurityMasterMode string `json:"securityMasterMode"`
	EnableGemini       bool   `json:"enableGemini"`
	NoSave             bool   `json:"noSave"`
	EncryptTempFiles   bool   `json:"encryptTempFiles"`
	AutoClearClipboard bool   `json:"autoClearClipboard"`
	ClearAllOnExit     bool   `json:"clearAllOnExit"`

	MaskStrength   string   `json:"maskStrength"`
	MaskPhone      bool     `json:"maskPhone"`
	MaskEmail      bool     `json:"maskEmail"`
	MaskAddress    bool     `json:"maskAddress"`
	MaskNumbers    bool     `json:"maskNumbers"`
	MaskNames      bool     `json:"maskNames"`
	WhitelistWords []string `json:"whitelistWords"`

	SendTextOnlyToGemini bool   `json:"sendTextOnlyToGemini"`
	DisableDataTraining  bool   `json:"disableDataTraining"`
	RegionPreference     string `json:"regionPreference"`
	UseByoKey            bool   `json:"useByoKey"`

	SaveEmailDisplayName bool `json:"saveEmailDisplayName"`
	ShortLivedSession    bool `json:"shortLivedSession"`
	ClearTokensOnLogout  bool `json:"clearTokensOnLogout"`

	EnableErrorLogs         bool `json:"enableErrorLogs"`
	EnableUsageStats        bool `json:"enableUsageStats"`
	AutoDeleteLogsAfterDays int  `json:"autoDeleteLogsAfterDays"`

	EnableDLPScan bool   `json:"enableDlpScan"`
	DLPAction     string `json:"dlpAction"`
	OfflineMode   bool   `json:"offlineMode"`

	NaturalizeExpressions       bool `json:"naturalizeExpressions"`
	AutoPunctuation             bool `json:"autoPunctuation"`
	UnifyForeignWords           bool `json:"unifyForeignWords"`
	PreserveOriginalProperNouns bool `json:"preserveOriginalProperNouns"`
	NoSummaryOrEmbellishment    bool `json:"noSummaryOrEmbellishment"`

	CustomReplaceRules []ReplaceRule `json:"customReplaceRules"`
}

// Clone returns a copy with no shared slice backing.
func (s Settings) Clone() Settings {
	out := s
	if s.WhitelistWords != nil {
		out.WhitelistWords = append([]string(nil), s.WhitelistWords...)
	}
	if s.CustomReplaceRules != nil {
		out.CustomReplaceRules = append([]ReplaceRule(nil), s.CustomReplaceRules...)
	}
	return out
}
