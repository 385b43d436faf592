package result

import "testing"

func TestNewPage_TotalPages(t *testing.T) {
	tests := []struct {
		total int64
		size  int
		want  int
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{120, 25, 5},
		{5, 0, 0},
	}
	for _, tc := range tests {
		p := NewPage(nil, tc.total, 0, tc.size, 0)
		if p.TotalPages() != tc.want {
			t.Errorf("total=%d size=%d: TotalPages = %d, want %d", tc.total, tc.size, p.TotalPages(), tc.want)
		}
	}
}

func TestResult_Accessors(t *testing.T) {
	r := New("d1", 1.5, map[string]any{"title": "x"}, "acme-document-000001")
	if r.DocumentID() != "d1" || r.Score() != 1.5 || r.Index() != "acme-document-000001" {
		t.Errorf("unexpected result %+v", r)
	}
	if r.Source()["title"] != "x" {
		t.Errorf("source = %v", r.Source())
	}
}
