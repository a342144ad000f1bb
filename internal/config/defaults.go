package config

const (
	defaultConfigPath              = "~/.config/chapterize/config.toml"
	projectConfigName              = "chapterize.toml"
	defaultLogDir                  = "~/.local/share/chapterize/logs"
	defaultStateDir                = "~/.local/share/chapterize"
	defaultDownloadDir             = "~/Downloads"
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
	defaultLogRetentionDays        = 30
	defaultChapterLayout           = "per_line"
	defaultZeroTitle               = "preserve"
	defaultIntroTitle              = "Intro"
	defaultRemuxMode               = ModeNew
	defaultRemuxSuffix             = "_chapters"
	defaultAccessRetryDelaySeconds = 2
	defaultToolProbeTimeout        = 10
	defaultMediaProbeTimeout       = 60

	// BundleDirEnv overrides tools.bundle_dir when the config leaves it empty.
	BundleDirEnv = "CHAPTERIZE_BUNDLE_DIR"
)

// Output modes shared by remux.mode and batch.mode.
const (
	ModeNew       = "new"
	ModeOverwrite = "overwrite"
)

// DefaultVideoExtensions lists the file extensions a batch run picks up.
var DefaultVideoExtensions = []string{".mp4", ".mkv", ".avi", ".mov", ".webm", ".flv"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:      defaultLogDir,
			StateDir:    defaultStateDir,
			DownloadDir: defaultDownloadDir,
		},
		Chapters: Chapters{
			Layout:        defaultChapterLayout,
			ZeroTitle:     defaultZeroTitle,
			IntroTitle:    defaultIntroTitle,
			CheckDuration: true,
		},
		Remux: Remux{
			Mode:   defaultRemuxMode,
			Suffix: defaultRemuxSuffix,
		},
		Batch: Batch{
			Mode:                    ModeNew,
			Extensions:              append([]string(nil), DefaultVideoExtensions...),
			AccessRetryDelaySeconds: defaultAccessRetryDelaySeconds,
		},
		Timeouts: Timeouts{
			ToolProbe:  defaultToolProbeTimeout,
			MediaProbe: defaultMediaProbeTimeout,
		},
		History: History{
			Enabled: true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
