package cli

import "testing"

func TestGetVersionInfo(t *testing.T) {
	info := GetVersionInfo()

	if info.Version != Version {
		t.Errorf("Version = %q, want %q", info.Version, Version)
	}

	if info.GoVersion == "" {
		t.Error("GoVersion is empty")
	}

	if info.Platform == "" || info.Arch == "" {
		t.Error("Platform/Arch is empty")
	}
}

func TestLoggerGatesOnVerboseAndDebug(t *testing.T) {
	// Info/Debug/Warn/Error must not panic regardless of level, whether or
	// not their gate is open.
	quiet := NewLogger(false, false)
	quiet.Info("quiet info")
	quiet.Debug("quiet debug")
	quiet.Warn("always warns")
	quiet.Error("always errors")

	loud := NewLogger(true, true)
	loud.Info("loud info %d", 1)
	loud.Debug("loud debug %d", 2)
}

func TestHandleErrorWithNilIsANoop(t *testing.T) {
	// HandleError(nil, ...) must return rather than exiting the test binary.
	HandleError(nil, NewLogger(false, false))
	HandleError(nil, nil)
}
