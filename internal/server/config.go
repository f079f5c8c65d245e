package server

const (
	DefaultAddr       = "0.0.0.0:8000"
	DefaultStorageDir = "./data"
)

type Config struct {
	// Addr is the listen address, host:port.
	Addr string

	// StorageDir is the directory the server persists files under.
	StorageDir string

	// CertFile/KeyFile enable TLS when both are set.
	CertFile string
	KeyFile  string
}
