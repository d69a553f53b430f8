package version

// Build is the nomnom release, set at link time with
// -ldflags "-X nomnomhub/internal/version.Build=v1.2.3"
var Build = "dev"
