package blob

import (
	"context"
	"fmt"
)

// Config selects and configures a driver.
type Config struct {
	Driver    Driver
	FSRoot    string
	S3        S3Config
	PublicURL string
}

// Open returns the store named by cfg.Driver. An empty driver means fs.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case DriverFS, "":
		return NewFS(cfg.FSRoot, cfg.PublicURL)
	case DriverS3:
		return NewS3(ctx, cfg.S3, cfg.PublicURL)
	case DriverMemory:
		return NewMemory(cfg.PublicURL), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}
