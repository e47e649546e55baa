package version

// Version is the build version, stamped with
// -ldflags "-X github.com/ludotheque/ludotheque/pkg/version.Version=1.0.0".
var Version = "dev"
