package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"hemobank/pkg/domain"
	"hemobank/pkg/platform/sentinel"
)

// FileLedger keeps the booking collection as one JSON array on disk. Every
// mutation reads the whole collection, applies the change, writes a temp file
// and renames it into place, so a crash mid-write never leaves a corrupt or
// partially-written ledger. The mutex enforces the single-writer discipline
// the rename cycle requires; two concurrent whole-file rewrites would
// silently drop one another's changes otherwise.
type FileLedger struct {
	mu   sync.Mutex
	path string
}

func NewFileLedger(path string) *FileLedger {
	return &FileLedger{path: path}
}

func (l *FileLedger) Append(ctx context.Context, b *Booking) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	items, err := l.readAll(ctx)
	if err != nil {
		return err
	}
	for _, existing := range items {
		if existing.ID == b.ID {
			return sentinel.ErrConflict
		}
	}
	cp := *b
	cp.Deductions = append([]Deduction(nil), b.Deductions...)
	items = append(items, &cp)
	return l.writeAll(items)
}

func (l *FileLedger) Get(ctx context.Context, id domain.BookingID) (*Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	items, err := l.readAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, b := range items {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (l *FileLedger) ListAll(ctx context.Context) ([]*Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.readAll(ctx)
}

func (l *FileLedger) SetStatus(ctx context.Context, id domain.BookingID, status Status) (*Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	items, err := l.readAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, b := range items {
		if b.ID == id {
			b.Status = status
			b.UpdatedAt = time.Now().UTC()
			if err := l.writeAll(items); err != nil {
				return nil, err
			}
			return b, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// readAll loads the collection, creating an empty ledger on first use.
func (l *FileLedger) readAll(ctx context.Context) ([]*Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var items []*Booking
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode ledger: %w", err)
	}
	return items, nil
}

func (l *FileLedger) writeAll(items []*Booking) error {
	if items == nil {
		items = []*Booking{}
	}
	raw, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create ledger dir: %w", err)
	}

	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write ledger temp file: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return fmt.Errorf("replace ledger: %w", err)
	}
	return nil
}
