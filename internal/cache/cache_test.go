package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/docgate/internal/domain/search/result"
	"github.com/kailas-cloud/docgate/internal/metrics"
)

func page(total int64) result.Page {
	return result.NewPage(nil, total, 0, 10, 1)
}

func TestGetPut(t *testing.T) {
	c, err := New(10)
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := c.Get("k"); ok {
		t.Fatal("empty cache must miss")
	}
	c.Put("k", page(7))
	got, ok := c.Get("k")
	if !ok {
		t.Fatal("expected hit")
	}
	if got.Total() != 7 {
		t.Errorf("total = %d, want 7", got.Total())
	}
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := New(2)
	c.Put("a", page(1))
	c.Put("b", page(2))
	c.Get("a") // a is now more recent than b
	c.Put("c", page(3))

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a should survive, it was read recently")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("c should be present")
	}
	if c.Len() != 2 {
		t.Errorf("len = %d, want 2", c.Len())
	}
}

func TestClear(t *testing.T) {
	c, _ := New(10)
	c.Put("a", page(1))
	c.Put("b", page(2))
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("len = %d after Clear, want 0", c.Len())
	}
}

func TestDefaultSize(t *testing.T) {
	c, err := New(0)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < DefaultMaxEntries+5; i++ {
		c.Put(fmt.Sprint(i), page(int64(i)))
	}
	if c.Len() != DefaultMaxEntries {
		t.Errorf("len = %d, want %d", c.Len(), DefaultMaxEntries)
	}
}

func TestHitMissMetrics(t *testing.T) {
	c, _ := New(10)
	hits := testutil.ToFloat64(metrics.SearchCacheTotal.WithLabelValues("hit"))
	misses := testutil.ToFloat64(metrics.SearchCacheTotal.WithLabelValues("miss"))

	c.Get("nope")
	c.Put("yes", page(1))
	c.Get("yes")

	if d := testutil.ToFloat64(metrics.SearchCacheTotal.WithLabelValues("hit")) - hits; d != 1 {
		t.Errorf("hit delta = %v, want 1", d)
	}
	if d := testutil.ToFloat64(metrics.SearchCacheTotal.WithLabelValues("miss")) - misses; d != 1 {
		t.Errorf("miss delta = %v, want 1", d)
	}
}

func TestConcurrentAccess(t *testing.T) {
	c, _ := New(50)
	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("%d-%d", g, i%60)
				c.Put(key, page(int64(i)))
				c.Get(key)
			}
		}(g)
	}
	wg.Wait()
	if c.Len() > 50 {
		t.Errorf("len = %d exceeds bound 50", c.Len())
	}
}
