package version

// Version is set at build time via -ldflags "-X github.com/CameronXie/tailor-ledger/internal/version.Version=<tag>".
var Version = "dev"
