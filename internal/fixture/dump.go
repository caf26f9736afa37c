package fixture

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/dexcfg/dexcfg/internal/dex"
)

// DumpCrash serializes list as MessagePack into a uniquely-named file under
// dir, for attaching to a bug report after a core panic (§7: the core
// panics rather than returning an error, so the CLI boundary is what's
// responsible for capturing repro state before it lets the panic surface).
// The file is named "<uuid>.dexcrash".
func DumpCrash(dir string, list *dex.ItemList, registersSize int) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("fixture: creating dump dir: %w", err)
	}
	path := filepath.Join(dir, uuid.NewString()+".dexcrash")

	data, err := msgpack.Marshal(ToDocument(list, registersSize))
	if err != nil {
		return "", fmt.Errorf("fixture: marshaling crash dump: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("fixture: writing crash dump: %w", err)
	}
	return path, nil
}

// LoadCrashDump decodes a dump previously produced by DumpCrash.
func LoadCrashDump(path string) (*dex.ItemList, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("fixture: reading crash dump: %w", err)
	}
	var doc Document
	if err := msgpack.Unmarshal(data, &doc); err != nil {
		return nil, 0, fmt.Errorf("fixture: unmarshaling crash dump: %w", err)
	}
	return FromDocument(&doc)
}
