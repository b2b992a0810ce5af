package knowledge

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/finchdesk/finch/internal/log"
)

// fakeEmbed maps text to a small deterministic vector so store tests run
// without a model provider.
func fakeEmbed(_ context.Context, text string) ([]float32, error) {
	var a, b, c float32
	for i, r := range text {
		switch i % 3 {
		case 0:
			a += float32(r)
		case 1:
			b += float32(r)
		case 2:
			c += float32(r)
		}
	}
	norm := float32(math.Sqrt(float64(a*a + b*b + c*c)))
	if norm == 0 {
		norm = 1
	}
	return []float32{a / norm, b / norm, c / norm}, nil
}

const testFAQ = `Q: How long do I have to request a refund?
A: Refund requests within 7 days of purchase receive the full amount.

Q: What about later refunds?
A: From day 8 to day 14 we refund 90 percent of the purchase price.

Q: How do I cancel an order?
A: Orders can only be cancelled while they are still being prepared.`

func writeFAQ(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "faq.txt")
	if err := os.WriteFile(path, []byte(testFAQ), 0o600); err != nil {
		t.Fatalf("writing FAQ fixture: %v", err)
	}
	return path
}

func TestOpenBuildsFromSource(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		FAQPath:   writeFAQ(t, dir),
		IndexPath: filepath.Join(dir, "index"),
		ChunkSize: 120,
	}

	s, err := Open(context.Background(), cfg, fakeEmbed, log.NewNop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if s.Count() == 0 {
		t.Error("Count() = 0, want indexed chunks after build")
	}
}

func TestOpenLoadsPersistedIndex(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		FAQPath:   writeFAQ(t, dir),
		IndexPath: filepath.Join(dir, "index"),
		ChunkSize: 120,
	}

	first, err := Open(context.Background(), cfg, fakeEmbed, log.NewNop())
	if err != nil {
		t.Fatalf("first Open() error = %v", err)
	}
	want := first.Count()

	// Remove the source: the persisted index alone must be enough.
	if err := os.Remove(cfg.FAQPath); err != nil {
		t.Fatalf("removing FAQ source: %v", err)
	}

	second, err := Open(context.Background(), cfg, fakeEmbed, log.NewNop())
	if err != nil {
		t.Fatalf("second Open() error = %v", err)
	}
	if got := second.Count(); got != want {
		t.Errorf("reloaded Count() = %d, want %d", got, want)
	}
}

func TestOpenNoSourceNoIndex(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		FAQPath:   filepath.Join(dir, "missing.txt"),
		IndexPath: filepath.Join(dir, "index"),
		ChunkSize: 120,
	}

	_, err := Open(context.Background(), cfg, fakeEmbed, log.NewNop())
	if !errors.Is(err, ErrNoSource) {
		t.Errorf("Open() error = %v, want ErrNoSource", err)
	}
}

func TestSearch(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		FAQPath:   writeFAQ(t, dir),
		IndexPath: filepath.Join(dir, "index"),
		ChunkSize: 120,
	}
	s, err := Open(context.Background(), cfg, fakeEmbed, log.NewNop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	t.Run("returns at most topK", func(t *testing.T) {
		results, err := s.Search(context.Background(), "refund window", 2)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(results) == 0 || len(results) > 2 {
			t.Errorf("len(results) = %d, want 1-2", len(results))
		}
		for _, r := range results {
			if r.Content == "" {
				t.Error("result with empty content")
			}
		}
	})

	t.Run("topK above collection size is clamped", func(t *testing.T) {
		results, err := s.Search(context.Background(), "refund", 1000)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(results) != s.Count() {
			t.Errorf("len(results) = %d, want clamped to %d", len(results), s.Count())
		}
	})

	t.Run("non-positive topK defaults to one", func(t *testing.T) {
		results, err := s.Search(context.Background(), "refund", 0)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(results) != 1 {
			t.Errorf("len(results) = %d, want 1", len(results))
		}
	})
}
