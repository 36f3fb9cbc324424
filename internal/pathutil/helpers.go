// Package pathutil provides file and path utility functions shared by the
// artifact store and the CLI client: platform-aware cache directory
// resolution, directory creation, filename sanitization, and
// human-readable formatting.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Environment variable names used for path resolution.
const (
	envCacheDir     = "CACHE_DIR"
	envAppData      = "APPDATA"
	envTemp         = "TEMP"
	envXDGCacheHome = "XDG_CACHE_HOME"
)

const (
	osWindows = "windows"
	osDarwin  = "darwin"
)

const (
	appName               = "metrix"
	cacheDirName          = "cache"
	tmpDir                = "/tmp"
	libraryCaches         = "Library/Caches"
	dotCache              = ".cache"
	defaultDirPermissions = 0o750
)

const (
	secondsInMinute = 60
	secondsInHour   = 3600
	formatSeconds   = "%.1fs"
	formatMinutes   = "%dm %.1fs"
	formatHours     = "%dh %dm"
	formatGB        = "%.1f GB"
	formatMB        = "%.1f MB"
	formatKB        = "%.1f KB"
	formatBytes     = "%d B"
)

// Audio and transcript file extensions recognized by the artifact store.
const (
	ExtWAV  = ".wav"
	ExtMP3  = ".mp3"
	ExtFLAC = ".flac"
	ExtOGG  = ".ogg"
	ExtTXT  = ".txt"
)

func getWindowsCacheDir() string {
	if appData := os.Getenv(envAppData); appData != "" {
		return filepath.Join(appData, appName, cacheDirName)
	}

	return filepath.Join(os.Getenv(envTemp), appName, cacheDirName)
}

func getDarwinCacheDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(tmpDir, appName, cacheDirName)
	}

	return filepath.Join(homeDir, libraryCaches, appName)
}

func getUnixCacheDir() string {
	if xdgCache := os.Getenv(envXDGCacheHome); xdgCache != "" {
		return filepath.Join(xdgCache, appName)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(tmpDir, appName, cacheDirName)
	}

	return filepath.Join(homeDir, dotCache, appName)
}

// GetCacheDir returns the application's cache directory, respecting
// environment variables and OS conventions.
func GetCacheDir() string {
	if cacheDir := os.Getenv(envCacheDir); cacheDir != "" {
		return cacheDir
	}

	switch runtime.GOOS {
	case osWindows:
		return getWindowsCacheDir()
	case osDarwin:
		return getDarwinCacheDir()
	default:
		return getUnixCacheDir()
	}
}

// EnsureDir ensures a directory exists at path, creating it (and its
// parents) if it doesn't.
func EnsureDir(path string) error {
	_, statErr := os.Stat(path)
	if os.IsNotExist(statErr) {
		mkdirErr := os.MkdirAll(path, defaultDirPermissions)
		if mkdirErr != nil {
			return fmt.Errorf("failed to create directory %s: %w", path, mkdirErr)
		}
	}

	return nil
}

// FormatDuration formats a duration in seconds as a human-readable string
// (e.g. "1h 15m", "5m 30.5s", "45.2s").
func FormatDuration(seconds float64) string {
	if seconds < secondsInMinute {
		return fmt.Sprintf(formatSeconds, seconds)
	}

	if seconds < secondsInHour {
		minutes := int(seconds / secondsInMinute)
		remainingSeconds := seconds - float64(minutes*secondsInMinute)

		return fmt.Sprintf(formatMinutes, minutes, remainingSeconds)
	}

	hours := int(seconds / secondsInHour)
	remainingSeconds := seconds - float64(hours*secondsInHour)
	remainingMinutes := int(remainingSeconds / secondsInMinute)

	return fmt.Sprintf(formatHours, hours, remainingMinutes)
}

// FormatFileSize formats a byte count as a human-readable string (e.g.
// "1.2 GB", "500.5 MB").
func FormatFileSize(bytes int64) string {
	const (
		kilobyte = 1024
		megabyte = kilobyte * 1024
		gigabyte = megabyte * 1024
	)

	switch {
	case bytes >= gigabyte:
		return fmt.Sprintf(formatGB, float64(bytes)/gigabyte)
	case bytes >= megabyte:
		return fmt.Sprintf(formatMB, float64(bytes)/megabyte)
	case bytes >= kilobyte:
		return fmt.Sprintf(formatKB, float64(bytes)/kilobyte)
	default:
		return fmt.Sprintf(formatBytes, bytes)
	}
}

// GetFileExtension returns the file extension without the leading dot.
func GetFileExtension(filename string) string {
	return strings.TrimPrefix(filepath.Ext(filename), ".")
}

// SanitizeFilename replaces characters invalid in most filesystems with an
// underscore.
func SanitizeFilename(filename string) string {
	replacer := strings.NewReplacer(
		"<", "_",
		">", "_",
		":", "_",
		"\"", "_",
		"/", "_",
		"\\", "_",
		"|", "_",
		"?", "_",
		"*", "_",
	)

	return replacer.Replace(filename)
}

// ContentTypeForExtension returns the MIME type MetriX uses for a given
// audio container extension (with or without the leading dot), defaulting to
// audio/mpeg for anything unrecognized so a best-effort content type is
// always available for an artifact response.
func ContentTypeForExtension(ext string) string {
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	switch ext {
	case ExtWAV:
		return "audio/wav"
	case ExtFLAC:
		return "audio/flac"
	case ExtOGG:
		return "audio/ogg"
	case ExtTXT:
		return "text/plain"
	default:
		return "audio/mpeg"
	}
}
