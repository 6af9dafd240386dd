// Package sources loads the Google Ads exports and the derived CSV files
// of the ads hub.
package sources

import "path/filepath"

// Default export locations relative to the data directory.
const (
	anchorFile    = "data - v3/campaign - metrics - v3/campaign metrics - version 3 - no segmentation - all campaigns.csv"
	segmentedFile = "data - v3/campaign - metrics - v3/campaign metrics - version 3 - segmented by ad format - only youtube campaigns.csv"
	countryFile   = "data - v3/campaign - country - v3/campaign location - version 3.csv"
	ageGenderFile = "data - v3/age - gender - v3/campaign age - gender - version 3.csv"
	interestsFile = "data - v3/campaign - interests - v3/campaign - audience segements or interests - version 3.csv"
	durationFile  = "data - v3/campaign - duration - v3/campaign - duration - version 3.csv"
	reachQ1File   = "data - v3/campaign reach - frequency - v3/campaign - reach - frequency - q1 - version 3.csv"
	reachQ2File   = "data - v3/campaign reach - frequency - v3/campaign - reach - frequency - q2 - version 3.csv"
	reachQ3File   = "data - v3/campaign reach - frequency - v3/campaign - reach - frequency - q3 - version 3.csv"
	reachQ4File   = "data - v3/campaign reach - frequency - v3/campaign - reach - frequency - q4 - version.csv"
	biddingFile   = "data - v3/campaign - bidding strategies - v3/campaign - bidding strategies - version 3.csv"
	metricsV2File = "data - v2/campaign metrics - v2/campaign metrics - v2.csv"
	formatFixFile = "other-format-cleaned.csv"
	rollingFile   = "GAds - 90 days reach + freq - Rolling Script - v2 - Sheet1.csv"
)

// Derived outputs relative to the output directory.
const (
	masterBackupFile      = "ads_estimation_hub_V3_MASTER_BACKUP_RAW.csv"
	hrPrototypeFile       = "ads_estimation_hub_HR_PROTOTYPE_V3_CLEANED.csv"
	standardizedFile      = "ads_estimation_hub_HR_PROTOTYPE_V4_STANDARDIZED.csv"
	preCleanupBackupFile  = "BACKUP_ADS_HR_PRE_CLEANUP.csv"
	masterFile            = "MASTER_ADS_HR_CLEANED.csv"
	rollingCleanFile      = "MASTER_ROLLING_DATA_2025_CLEAN.csv"
	otherFormatsAuditFile = "other_formats_audit_list.csv"
	missingRollingFile    = "MISSING_ROLLING_CAMPAIGNS_DETAILED.csv"
)

// Layout holds the path of every export and derived file
type Layout struct {
	DataDir   string `json:"data_dir"`
	OutputDir string `json:"output_dir"`

	Anchor      string    `json:"anchor"`
	Segmented   string    `json:"segmented"`
	Country     string    `json:"country"`
	AgeGender   string    `json:"age_gender"`
	Interests   string    `json:"interests"`
	Duration    string    `json:"duration"`
	Reach       [4]string `json:"reach"`
	Bidding     string    `json:"bidding"`
	MetricsV2   string    `json:"metrics_v2"`
	FormatFixes string    `json:"format_fixes"`
	Rolling     string    `json:"rolling"`

	MasterBackup      string `json:"master_backup"`
	HRPrototype       string `json:"hr_prototype"`
	Standardized      string `json:"standardized"`
	PreCleanupBackup  string `json:"pre_cleanup_backup"`
	Master            string `json:"master"`
	RollingClean      string `json:"rolling_clean"`
	OtherFormatsAudit string `json:"other_formats_audit"`
	MissingRolling    string `json:"missing_rolling"`
}

// DefaultLayout mirrors the directory tree the exports are downloaded into.
// Outputs default to the data directory when outputDir is empty.
func DefaultLayout(dataDir, outputDir string) Layout {
	if outputDir == "" {
		outputDir = dataDir
	}
	in := func(name string) string { return filepath.Join(dataDir, filepath.FromSlash(name)) }
	out := func(name string) string { return filepath.Join(outputDir, name) }

	return Layout{
		DataDir:   dataDir,
		OutputDir: outputDir,

		Anchor:      in(anchorFile),
		Segmented:   in(segmentedFile),
		Country:     in(countryFile),
		AgeGender:   in(ageGenderFile),
		Interests:   in(interestsFile),
		Duration:    in(durationFile),
		Reach:       [4]string{in(reachQ1File), in(reachQ2File), in(reachQ3File), in(reachQ4File)},
		Bidding:     in(biddingFile),
		MetricsV2:   in(metricsV2File),
		FormatFixes: in(formatFixFile),
		Rolling:     in(rollingFile),

		MasterBackup:      out(masterBackupFile),
		HRPrototype:       out(hrPrototypeFile),
		Standardized:      out(standardizedFile),
		PreCleanupBackup:  out(preCleanupBackupFile),
		Master:            out(masterFile),
		RollingClean:      out(rollingCleanFile),
		OtherFormatsAudit: out(otherFormatsAuditFile),
		MissingRolling:    out(missingRollingFile),
	}
}

// Outputs returns the derived files keyed by name
func (l Layout) Outputs() map[string]string {
	return map[string]string{
		"master_backup":       l.MasterBackup,
		"hr_prototype":        l.HRPrototype,
		"standardized":        l.Standardized,
		"pre_cleanup_backup":  l.PreCleanupBackup,
		"master":              l.Master,
		"rolling_clean":       l.RollingClean,
		"other_formats_audit": l.OtherFormatsAudit,
		"missing_rolling":     l.MissingRolling,
	}
}
