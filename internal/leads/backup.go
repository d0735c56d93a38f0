package leads

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Backup is a JSON array file holding every lead ever submitted.
// Appends are serialized and written through a temporary file so existing
// records survive a crash mid-write.
type Backup struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

func NewBackup(path string) *Backup {
	return &Backup{path: path, now: time.Now}
}

// Path returns the backup file location.
func (b *Backup) Path() string {
	return b.path
}

// Append stores payload with the current local_backup_time.
func (b *Backup) Append(payload Payload) error {
	record, err := json.Marshal(Record{
		Payload:         payload,
		LocalBackupTime: b.now().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	existing, err := b.read()
	if err != nil {
		return err
	}

	existing = append(existing, record)
	return b.write(existing)
}

// Records decodes every stored record in insertion order.
func (b *Backup) Records() ([]Record, error) {
	b.mu.Lock()
	raw, err := b.read()
	b.mu.Unlock()
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(raw))
	for i, item := range raw {
		var r Record
		if err := json.Unmarshal(item, &r); err != nil {
			return nil, fmt.Errorf("decoding record %d: %w", i, err)
		}
		records = append(records, r)
	}

	return records, nil
}

// read keeps records as raw JSON so fields written by other versions survive
// a rewrite.
func (b *Backup) read() ([]json.RawMessage, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading backup file %q: %w", b.path, err)
	}

	if len(data) == 0 {
		return nil, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decoding backup file %q: %w", b.path, err)
	}

	return items, nil
}

func (b *Backup) write(items []json.RawMessage) error {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding backup: %w", err)
	}

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating backup dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(b.path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), b.path); err != nil {
		return fmt.Errorf("replacing backup file: %w", err)
	}

	return nil
}
