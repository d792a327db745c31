package config

// Default returns the compiled-in settings record used when no file is present
// and as the base layer for partial loads.
func Default() Settings {
	return Settings{
		SettingsVersion:    1,
		SecurityMasterMode: "standard",
		EnableGemini:       true,
		NoSave:             true,
		EncryptTempFiles:   true,
		AutoClearClipboard: true,
		ClearAllOnExit:     true,

		MaskStrength:   "standard",
		MaskPhone:      true,
		MaskEmail:      true,
		MaskAddress:    true,
		MaskNumbers:    true,
		MaskNames:      false,
		WhitelistWords: []string{},

		SendTextOnlyToGemini: true,
		DisableDataTraining:  true,
		RegionPreference:     "nearest",
		UseByoKey:            true,

		SaveEmailDisplayName: false,
		ShortLivedSession:    true,
		ClearTokensOnLogout:  true,

		EnableErrorLogs:         false,
		EnableUsageStats:        false,
		AutoDeleteLogsAfterDays: 90,

		EnableDLPScan: true,
		DLPAction:     "mask",
		OfflineMode:   false,

		NaturalizeExpressions:       true,
		AutoPunctuation:             true,
		UnifyForeignWords:           true,
		PreserveOriginalProperNouns: true,
		NoSummaryOrEmbellishment:    true,

		CustomReplaceRules: []ReplaceRule{},
	}
}
