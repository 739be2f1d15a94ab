package config

const (
	defaultConfigPath         = "~/.config/chapters/config.toml"
	defaultDataDir            = "~/.local/share/chapters"
	defaultLogDir             = "~/.local/share/chapters/logs"
	defaultOutputDir          = "."
	defaultBitrateKbps        = 64
	defaultEncoderMode        = "mono"
	defaultEncoderTimeout     = 3600
	defaultTextEncoding       = "auto"
	defaultID3Version         = 4
	defaultBundleName         = "Chapters"
	defaultBundleEntry        = "./cmd/chapters"
	defaultBundleDistDir      = "dist"
	defaultBundleWorkDir      = "build"
	defaultBundleLogLevel     = "WARN"
	defaultBundleLameSource   = "src/lib/lame.exe"
	defaultBundleLameDest     = "lib"
	defaultBundleLicenseFile  = "LICENSE"
	defaultBundleCopyingFile  = "COPYING"
	defaultBundleDataDest     = "."
	defaultBundleTargetOS     = "windows"
	defaultBundleTargetArch   = "amd64"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultHistoryEnabled     = true
	defaultEncoderCRC         = true
	defaultEncoderOriginal    = true
	defaultEncoderCopyrighted = false
)

// DefaultBundleBinaries returns the binaries embedded when none are configured.
func DefaultBundleBinaries() []BundleFile {
	return []BundleFile{{Source: defaultBundleLameSource, Dest: defaultBundleLameDest}}
}

// DefaultBundleData returns the data files embedded when none are configured.
func DefaultBundleData() []BundleFile {
	return []BundleFile{
		{Source: defaultBundleLicenseFile, Dest: defaultBundleDataDest},
		{Source: defaultBundleCopyingFile, Dest: defaultBundleDataDest},
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			LogDir:    defaultLogDir,
			OutputDir: defaultOutputDir,
		},
		Encoder: Encoder{
			BitrateKbps:    defaultBitrateKbps,
			Mode:           defaultEncoderMode,
			CRC:            defaultEncoderCRC,
			Copyright:      defaultEncoderCopyrighted,
			Original:       defaultEncoderOriginal,
			TimeoutSeconds: defaultEncoderTimeout,
		},
		Metadata: Metadata{
			TextEncoding: defaultTextEncoding,
			ID3Version:   defaultID3Version,
		},
		History: History{
			Enabled: defaultHistoryEnabled,
		},
		Bundle: Bundle{
			Name:       defaultBundleName,
			Entry:      defaultBundleEntry,
			DistDir:    defaultBundleDistDir,
			WorkDir:    defaultBundleWorkDir,
			Clean:      true,
			LogLevel:   defaultBundleLogLevel,
			NoConfirm:  true,
			Windowed:   true,
			TargetOS:   defaultBundleTargetOS,
			TargetArch: defaultBundleTargetArch,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
