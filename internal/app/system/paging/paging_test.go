package paging

import (
	"net/http/httptest"
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		url  string
		want Params
	}{
		{"/x", Params{Page: 1, Limit: PageSize}},
		{"/x?page=3&limit=10", Params{Page: 3, Limit: 10}},
		{"/x?page=-1&limit=abc", Params{Page: 1, Limit: PageSize}},
		{"/x?limit=1000", Params{Page: 1, Limit: MaxPageSize}},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", tt.url, nil)
		if got := Parse(r); got != tt.want {
			t.Errorf("Parse(%s) = %+v, want %+v", tt.url, got, tt.want)
		}
	}
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		total int64
		limit int
		want  int
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{95, 20, 5},
	}
	for _, tt := range tests {
		if got := TotalPages(tt.total, tt.limit); got != tt.want {
			t.Errorf("TotalPages(%d, %d) = %d, want %d", tt.total, tt.limit, got, tt.want)
		}
	}
}

func TestInfoFor(t *testing.T) {
	p := Params{Page: 2, Limit: 10}
	if p.Offset() != 10 {
		t.Errorf("Offset = %d, want 10", p.Offset())
	}
	info := p.InfoFor(25)
	want := Info{CurrentPage: 2, TotalPages: 3, Total: 25, PerPage: 10}
	if info != want {
		t.Errorf("InfoFor = %+v, want %+v", info, want)
	}
}

func TestWindow(t *testing.T) {
	rows := []int{1, 2, 3, 4, 5}
	if got := Window(rows, 1, 2); !reflect.DeepEqual(got, []int{2, 3}) {
		t.Errorf("Window(1,2) = %v", got)
	}
	if got := Window(rows, 4, 10); !reflect.DeepEqual(got, []int{5}) {
		t.Errorf("Window(4,10) = %v", got)
	}
	if got := Window(rows, 9, 2); len(got) != 0 {
		t.Errorf("Window past end = %v, want empty", got)
	}
	if got := Window(rows, 0, 0); len(got) != 5 {
		t.Errorf("Window no limit = %v", got)
	}
}
