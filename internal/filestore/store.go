package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/trialrag/trialrag/internal/config"
)

// Store is the durable home of index snapshot artifacts. Keys are flat file
// names inside one index directory; Rename must be atomic on the final key so
// a crash mid-write never leaves a half-written artifact reachable.
type Store interface {
	Save(ctx context.Context, key string, r io.Reader, size int64) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
	Rename(ctx context.Context, oldKey, newKey string) error
	Delete(ctx context.Context, key string) error
}

// New builds the snapshot store named by cfg.Type. The type-specific options
// under cfg.Data are decoded by the chosen backend.
func New(cfg config.StoreConfig) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "local":
		return createLocalStore(cfg.Data)
	case "s3":
		return createS3Store(cfg.Data)
	case "":
		return nil, fmt.Errorf("vector.store.type is required")
	default:
		return nil, fmt.Errorf("unsupported snapshot store type: %s", cfg.Type)
	}
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("store config is required")
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode store config: %w", err)
	}
	return json.Unmarshal(raw, dst)
}
