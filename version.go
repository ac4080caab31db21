package docseal

// Release of this module. It is printed by the commands and reported by
// the health check.
const Release = "v0.1.0"

// GitCommit is set at build time with -ldflags.
var GitCommit = ""

// Version returns the release, followed by the commit when known.
func Version() string {
	if GitCommit == "" {
		return Release
	}
	return Release + "+" + GitCommit
}
