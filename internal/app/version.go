package app

// Build-time variables set via -ldflags, e.g.
//
//	go build -ldflags "-X github.com/large-farva/footprint/internal/app.Version=v0.3.0" ./cmd/footprintd
var (
	Version   = "dev"
	GoVersion = "unknown"
	BuiltAt   = "unknown"
)
