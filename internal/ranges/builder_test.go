package ranges

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
)

// makePages builds n pages with identifiers p1..pn.
func makePages(n int) []Page {
	pages := make([]Page, n)
	for i := range pages {
		pages[i] = Page{Number: i + 1, ID: fmt.Sprintf("p%d", i+1)}
	}
	return pages
}

func TestBuild_EmptyCoverSet(t *testing.T) {
	for _, total := range []int{0, 1, 10} {
		res, err := Build(nil, makePages(total), "http://x/m")
		if err != nil {
			t.Fatalf("total=%d: unexpected error: %v", total, err)
		}
		if len(res.Ranges) != 0 {
			t.Errorf("total=%d: expected empty result, got %d ranges", total, len(res.Ranges))
		}
	}
}

func TestBuild_SingleCover(t *testing.T) {
	res, err := Build([]int{3}, makePages(7), "http://x/m")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Ranges) != 1 {
		t.Fatalf("expected 1 range, got %d", len(res.Ranges))
	}
	r := res.Ranges[0]
	if r.StartPage != 3 || r.EndPage != 7 {
		t.Errorf("expected span [3,7], got [%d,%d]", r.StartPage, r.EndPage)
	}
}

func TestBuild_ConcreteScenario(t *testing.T) {
	res, err := Build([]int{1, 5, 8}, makePages(10), "http://x/m")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Ranges) != 3 {
		t.Fatalf("expected 3 ranges, got %d", len(res.Ranges))
	}

	want := []struct {
		start, end int
		canvases   []string
	}{
		{1, 4, []string{"p1", "p2", "p3", "p4"}},
		{5, 7, []string{"p5", "p6", "p7"}},
		{8, 10, []string{"p8", "p9", "p10"}},
	}
	for i, w := range want {
		r := res.Ranges[i]
		if r.StartPage != w.start || r.EndPage != w.end {
			t.Errorf("range %d: expected [%d,%d], got [%d,%d]", i, w.start, w.end, r.StartPage, r.EndPage)
		}
		if !reflect.DeepEqual(r.Canvases, w.canvases) {
			t.Errorf("range %d: expected canvases %v, got %v", i, w.canvases, r.Canvases)
		}
	}
}

func TestBuild_TilesToEnd(t *testing.T) {
	// Ranges must tile [firstCover, total] with no gaps or overlaps.
	covers := []int{2, 3, 9, 15}
	total := 20
	res, err := Build(covers, makePages(total), "http://x/m")
	if err != nil {
		t.Fatal(err)
	}

	next := covers[0]
	for _, r := range res.Ranges {
		if r.StartPage != next {
			t.Errorf("expected range to start at %d, got %d", next, r.StartPage)
		}
		next = r.EndPage + 1
	}
	if next != total+1 {
		t.Errorf("expected last range to end at %d, got %d", total, next-1)
	}
}

func TestBuild_MissingIdentifiersFiltered(t *testing.T) {
	// Pages 5 and 6 lack identifiers: the range still spans 3-6 but lists
	// only the surviving canvases.
	pages := makePages(6)
	pages[4].ID = ""
	pages[5].ID = ""

	res, err := Build([]int{3}, pages, "http://x/m")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Ranges) != 1 {
		t.Fatalf("expected 1 range, got %d", len(res.Ranges))
	}
	r := res.Ranges[0]
	if r.StartPage != 3 || r.EndPage != 6 {
		t.Errorf("expected span [3,6], got [%d,%d]", r.StartPage, r.EndPage)
	}
	if !reflect.DeepEqual(r.Canvases, []string{"p3", "p4"}) {
		t.Errorf("expected canvases [p3 p4], got %v", r.Canvases)
	}
}

func TestBuild_EmptyRangeOmitted(t *testing.T) {
	// The middle range (pages 4-6) has no identifiers at all and must be
	// omitted without shifting its neighbors' boundaries. Identifier indices
	// stay keyed to the input cover position, so r2 follows r0.
	pages := makePages(9)
	for i := 3; i < 6; i++ {
		pages[i].ID = ""
	}

	res, err := Build([]int{1, 4, 7}, pages, "http://x/m")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Ranges) != 2 {
		t.Fatalf("expected 2 ranges, got %d", len(res.Ranges))
	}
	if res.Ranges[0].StartPage != 1 || res.Ranges[0].EndPage != 3 {
		t.Errorf("first range shifted: [%d,%d]", res.Ranges[0].StartPage, res.Ranges[0].EndPage)
	}
	if res.Ranges[1].StartPage != 7 || res.Ranges[1].EndPage != 9 {
		t.Errorf("last range shifted: [%d,%d]", res.Ranges[1].StartPage, res.Ranges[1].EndPage)
	}
	if res.Ranges[1].ID != "http://x/m/range/r2" {
		t.Errorf("expected id keyed to cover position r2, got %s", res.Ranges[1].ID)
	}
	if res.Ranges[1].Index != 2 {
		t.Errorf("expected index 2, got %d", res.Ranges[1].Index)
	}
}

func TestBuild_Idempotent(t *testing.T) {
	covers := []int{1, 5, 8}
	pages := makePages(10)

	a, err := Build(covers, pages, "http://x/m/")
	if err != nil {
		t.Fatal(err)
	}
	b, err := Build(covers, pages, "http://x/m/")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("expected identical output for identical input")
	}
}

func TestBuild_BaseIDNormalization(t *testing.T) {
	t.Run("trailing slash trimmed", func(t *testing.T) {
		res, err := Build([]int{1}, makePages(2), "http://x/m/")
		if err != nil {
			t.Fatal(err)
		}
		if res.Ranges[0].ID != "http://x/m/range/r0" {
			t.Errorf("unexpected id: %s", res.Ranges[0].ID)
		}
	})

	t.Run("blank base id falls back with warning", func(t *testing.T) {
		res, err := Build([]int{1}, makePages(2), "   ")
		if err != nil {
			t.Fatal(err)
		}
		if len(res.Warnings) != 1 {
			t.Fatalf("expected 1 warning, got %d", len(res.Warnings))
		}
		if res.Ranges[0].ID != DefaultBaseID+"/range/r0" {
			t.Errorf("unexpected id: %s", res.Ranges[0].ID)
		}
	})
}

func TestBuild_LabelEmbedsStartPage(t *testing.T) {
	res, err := Build([]int{4}, makePages(6), "http://x/m")
	if err != nil {
		t.Fatal(err)
	}
	if res.Ranges[0].Label != "zakres od strony 4" {
		t.Errorf("unexpected label: %q", res.Ranges[0].Label)
	}
}

func TestBuild_ContractViolations(t *testing.T) {
	pages := makePages(5)

	t.Run("out of range high", func(t *testing.T) {
		_, err := Build([]int{2, 6}, pages, "http://x/m")
		if !errors.Is(err, ErrOutOfRange) {
			t.Errorf("expected ErrOutOfRange, got %v", err)
		}
	})

	t.Run("out of range low", func(t *testing.T) {
		_, err := Build([]int{0, 2}, pages, "http://x/m")
		if !errors.Is(err, ErrOutOfRange) {
			t.Errorf("expected ErrOutOfRange, got %v", err)
		}
	})

	t.Run("not ascending", func(t *testing.T) {
		_, err := Build([]int{3, 2}, pages, "http://x/m")
		if !errors.Is(err, ErrNotAscending) {
			t.Errorf("expected ErrNotAscending, got %v", err)
		}
	})

	t.Run("duplicate", func(t *testing.T) {
		_, err := Build([]int{2, 2}, pages, "http://x/m")
		if !errors.Is(err, ErrNotAscending) {
			t.Errorf("expected ErrNotAscending, got %v", err)
		}
	})
}
