package helper

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// GenerateUUID creates a random unique UUID string
func GenerateUUID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate UUID: %v", err)
	}
	return id.String(), nil
}

// UniqueName returns prefix joined with a dash-free UUID, usable as a
// collection or SQL table name.
func UniqueName(prefix string) (string, error) {
	id, err := GenerateUUID()
	if err != nil {
		return "", err
	}
	return prefix + "_" + strings.ReplaceAll(id, "-", ""), nil
}

var suppressMu sync.Mutex

// SuppressOutput runs fn with diagnostic output discarded: os.Stdout and
// os.Stderr point at the null device and the logger carried by fn's context
// is disabled. Both are restored when fn returns, fails or panics.
func SuppressOutput(ctx context.Context, fn func(ctx context.Context) error) error {
	suppressMu.Lock()
	defer suppressMu.Unlock()

	devNull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", os.DevNull, err)
	}
	stdout, stderr := os.Stdout, os.Stderr
	os.Stdout, os.Stderr = devNull, devNull
	defer func() {
		os.Stdout, os.Stderr = stdout, stderr
		_ = devNull.Close()
	}()

	quiet := zerolog.Nop()
	return fn(quiet.WithContext(ctx))
}
