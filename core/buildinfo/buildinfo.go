package buildinfo

// Set at build time:
//
//	-ldflags "-X 'github.com/m3rciful/supportbot/core/buildinfo.Version=v0.3.0'
//	          -X 'github.com/m3rciful/supportbot/core/buildinfo.Commit=abcdef0'
//	          -X 'github.com/m3rciful/supportbot/core/buildinfo.Date=2026-01-30T12:00:00Z'"
var (
	// Version reports the release tag of the binary.
	Version = "dev"
	// Commit reports the source control commit used for the build.
	Commit = "local"
	// Date reports the build timestamp in RFC3339 format.
	Date = ""
)

// String renders the build identity for startup logs and /help.
func String() string {
	if Date == "" {
		return Version + " (" + Commit + ")"
	}
	return Version + " (" + Commit + ", " + Date + ")"
}
