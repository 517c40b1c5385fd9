package config

var (
	Version    string = "dev"
	CommitHash string = "n/a"
)

// IsDevelopment reports whether this is a dev build (no commit stamped in).
func IsDevelopment() bool {
	return CommitHash == "n/a"
}
