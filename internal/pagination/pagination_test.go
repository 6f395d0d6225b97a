package pagination

import "testing"

func TestDefaults(t *testing.T) {
	tests := []struct {
		name     string
		in       PageRequest
		wantPage int
		wantSize int
	}{
		{"zero_values", PageRequest{}, 1, DefaultPageSize},
		{"kept", PageRequest{Page: 3, PageSize: 50}, 3, 50},
		{"negative", PageRequest{Page: -2, PageSize: -1}, 1, DefaultPageSize},
		{"clamped", PageRequest{Page: 1, PageSize: 1000}, 1, MaxPageSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.in
			req.Defaults()
			if req.Page != tt.wantPage || req.PageSize != tt.wantSize {
				t.Errorf("got page=%d size=%d, want page=%d size=%d", req.Page, req.PageSize, tt.wantPage, tt.wantSize)
			}
		})
	}
}

func TestNewPageResponse(t *testing.T) {
	t.Run("nil_data_becomes_empty", func(t *testing.T) {
		resp := NewPageResponse[int](nil, 1, 20, 0)
		if resp.Data == nil || len(resp.Data) != 0 {
			t.Errorf("expected empty slice, got %v", resp.Data)
		}
		if resp.TotalPages != 0 || resp.HasNext {
			t.Errorf("expected no pages, got %+v", resp)
		}
	})

	t.Run("rounds_pages_up", func(t *testing.T) {
		resp := NewPageResponse([]int{1, 2}, 1, 2, 5)
		if resp.TotalPages != 3 || !resp.HasNext {
			t.Errorf("expected 3 pages with more to come, got %+v", resp)
		}
		last := NewPageResponse([]int{5}, 3, 2, 5)
		if last.HasNext {
			t.Error("expected last page to have no next")
		}
	})
}

func TestOffset(t *testing.T) {
	req := PageRequest{Page: 4, PageSize: 25}
	if got := req.Offset(); got != 75 {
		t.Errorf("expected offset 75, got %d", got)
	}
}
