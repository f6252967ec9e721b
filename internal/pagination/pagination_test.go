package pagination

import (
	"reflect"
	"testing"
)

func ints(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func TestEmptyTotalBehavesAsOnePage(t *testing.T) {
	s := New(10)
	s.SetTotal(0)

	if s.TotalPages() != 0 {
		t.Fatalf("TotalPages = %d, want 0", s.TotalPages())
	}
	if s.DisplayPages() != 1 {
		t.Fatalf("DisplayPages = %d, want 1", s.DisplayPages())
	}
	if s.CurrentPage() != 1 {
		t.Fatalf("CurrentPage = %d, want 1", s.CurrentPage())
	}
	if got := Window(s, []int{}); len(got) != 0 {
		t.Fatalf("expected empty window, got %v", got)
	}
	if s.GoToPage(1) || s.GoToPage(2) {
		t.Fatal("GoToPage on an empty list should be a no-op")
	}
}

func TestConfigureClamps(t *testing.T) {
	s := New(0)
	if s.ItemsPerPage() != 1 {
		t.Fatalf("ItemsPerPage = %d, want 1", s.ItemsPerPage())
	}
	s.Configure(10, -5)
	if s.TotalCount() != 0 {
		t.Fatalf("TotalCount = %d, want 0", s.TotalCount())
	}

	s.Configure(10, 100)
	s.GoToPage(10)
	s.Configure(10, 35)
	if s.CurrentPage() != 4 {
		t.Fatalf("CurrentPage = %d, want clamp to 4", s.CurrentPage())
	}
}

func TestGoToPageNotifies(t *testing.T) {
	s := New(10)
	s.SetTotal(25)

	var calls []int
	s.OnPageChange = func(p int) { calls = append(calls, p) }

	if s.GoToPage(1) {
		t.Fatal("same page should be a no-op")
	}
	if s.GoToPage(4) || s.GoToPage(0) {
		t.Fatal("out of range should be a no-op")
	}
	if !s.GoToPage(3) {
		t.Fatal("expected move to page 3")
	}
	if !reflect.DeepEqual(calls, []int{3}) {
		t.Fatalf("calls = %v, want [3]", calls)
	}
	if got := Window(s, ints(25)); !reflect.DeepEqual(got, []int{21, 22, 23, 24, 25}) {
		t.Fatalf("window = %v", got)
	}
	if s.Info() != "Showing 21 to 25 of 25 records" {
		t.Fatalf("Info = %q", s.Info())
	}
}

func TestPageNumbers(t *testing.T) {
	s := New(1)
	s.SetTotal(20)
	s.GoToPage(10)

	got := s.PageNumbers(5)
	want := []int{1, Ellipsis, 8, 9, 10, 11, 12, Ellipsis, 20}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("PageNumbers = %v, want %v", got, want)
	}

	s.First()
	if got := s.PageNumbers(5); !reflect.DeepEqual(got, []int{1, 2, 3, 4, 5, Ellipsis, 20}) {
		t.Fatalf("PageNumbers at start = %v", got)
	}
}
