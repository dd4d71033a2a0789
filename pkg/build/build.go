package build

// Set at link time with -ldflags "-X github.com/doodlemint/doodlemint/pkg/build.Version=..."
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
	BuiltBy = "unknown"
)
