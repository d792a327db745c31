package config

// Partial is a pointer-field overlay of Settings. Nil fields mean "leave
// unchanged"; set fields win key-by-key when applied over a base record.
type Partial struct {
	SettingsVersion    *int    `json:"settingsVersion"`
	SecurityMasterMode *string `json:"securityMasterMode"`
	EnableGemini       *bool   `json:"enableGemini"`
	NoSave             *bool   `json:"noSave"`
	EncryptTempFiles   *bool   `json:"encryptTempFiles"`
	AutoClearClipboard *bool   `json:"autoClearClipboard"`
	ClearAllOnExit     *bool   `json:"clearAllOnExit"`

	MaskStrength   *string   `json:"maskStrength"`
	MaskPhone      *bool     `json:"maskPhone"`
	MaskEmail      *bool     `json:"maskEmail"`
	MaskAddress    *bool     `json:"maskAddress"`
	MaskNumbers    *bool     `json:"maskNumbers"`
	MaskNames      *bool     `json:"maskNames"`
	WhitelistWords *[]string `json:"whitelistWords"`

	SendTextOnlyToGemini *bool   `json:"sendTextOnlyToGemini"`
	DisableDataTraining  *bool   `json:"disableDataTraining"`
	RegionPreference     *string `json:"regionPreference"`
	UseByoKey            *bool   `json:"useByoKey"`

	SaveEmailDisplayName *bool `json:"saveEmailDisplayName"`
	ShortLivedSession    *bool `json:"shortLivedSession"`
	ClearTokensOnLogout  *bool `json:"clearTokensOnLogout"`

	EnableErrorLogs         *bool `json:"enableErrorLogs"`
	EnableUsageStats        *bool `json:"enableUsageStats"`
	AutoDeleteLogsAfterDays *int  `json:"autoDeleteLogsAfterDays"`

	EnableDLPScan *bool   `json:"enableDlpScan"`
	DLPAction     *string `json:"dlpAction"`
	OfflineMode   *bool   `json:"offlineMode"`

	NaturalizeExpressions       *bool `json:"naturalizeExpressions"`
	AutoPunctuation             *bool `json:"autoPunctuation"`
	UnifyForeignWords           *bool `json:"unifyForeignWords"`
	PreserveOriginalProperNouns *bool `json:"preserveOriginalProperNouns"`
	NoSummaryOrEmbellishment    *bool `json:"noSummaryOrEmbellishment"`

	CustomReplaceRules *[]ReplaceRule `json:"customReplaceRules"`
}

// Apply overlays the partial onto base and returns the merged record.
func (p Partial) Apply(base Settings) Settings {
	out := base.Clone()

	setInt(&out.SettingsVersion, p.SettingsVersion)
	setString(&out.SecurityMasterMode, p.SecurityMasterMode)
	setBool(&out.EnableGemini, p.EnableGemini)
	setBool(&out.NoSave, p.NoSave)
	setBool(&out.EncryptTempFiles, p.EncryptTempFiles)
	setBool(&out.AutoClearClipboard, p.AutoClearClipboard)
	setBool(&out.ClearAllOnExit, p.ClearAllOnExit)

	setString(&out.MaskStrength, p.MaskStrength)
	setBool(&out.MaskPhone, p.MaskPhone)
	setBool(&out.MaskEmail, p.MaskEmail)
	setBool(&out.MaskAddress, p.MaskAddress)
	setBool(&out.MaskNumbers, p.MaskNumbers)
	setBool(&out.MaskNames, p.MaskNames)
	if p.WhitelistWords != nil {
		out.WhitelistWords = append([]string(nil), (*p.WhitelistWords)...)
	}

	setBool(&out.SendTextOnlyToGemini, p.SendTextOnlyToGemini)
	setBool(&out.DisableDataTraining, p.DisableDataTraining)
	setString(&out.RegionPreference, p.RegionPreference)
	setBool(&out.UseByoKey, p.UseByoKey)

	setBool(&out.SaveEmailDisplayName, p.SaveEmailDisplayName)
	setBool(&out.ShortLivedSession, p.ShortLivedSession)
	setBool(&out.ClearTokensOnLogout, p.ClearTokensOnLogout)

	setBool(&out.EnableErrorLogs, p.EnableErrorLogs)
	setBool(&out.EnableUsageStats, p.EnableUsageStats)
	setInt(&out.AutoDeleteLogsAfterDays, p.AutoDeleteLogsAfterDays)

	setBool(&out.EnableDLPScan, p.EnableDLPScan)
	setString(&out.DLPAction, p.DLPAction)
	setBool(&out.OfflineMode, p.OfflineMode)

	setBool(&out.NaturalizeExpressions, p.NaturalizeExpressions)
	setBool(&out.AutoPunctuation, p.AutoPunctuation)
	setBool(&out.UnifyForeignWords, p.UnifyForeignWords)
	setBool(&out.PreserveOriginalProperNouns, p.PreserveOriginalProperNouns)
	setBool(&out.NoSummaryOrEmbellishment, p.NoSummaryOrEmbellishment)

	if p.CustomReplaceRules != nil {
		out.CustomReplaceRules = append([]ReplaceRule(nil), (*p.CustomReplaceRules)...)
	}

	return out
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
