package chapter

import (
    "errors"
    "reflect"
    "testing"
)

func TestFromStarts(t *testing.T) {
    starts := []Start{
        {Title: "Introduction", Page: 1},
        {Title: "Chapter 1", Page: 4},
    }
    got := FromStarts(starts, 10)
    want := []Boundary{
        {Index: 1, Title: "Introduction", StartPage: 1, EndPage: 3},
        {Index: 2, Title: "Chapter 1", StartPage: 4, EndPage: 10},
    }
    if !reflect.DeepEqual(got, want) {
        t.Errorf("FromStarts() = %v, want %v", got, want)
    }
}

func TestFromStartsSingle(t *testing.T) {
    got := FromStarts([]Start{{Title: "Everything", Page: 1}}, 42)
    if len(got) != 1 || got[0].StartPage != 1 || got[0].EndPage != 42 {
        t.Errorf("FromStarts() = %v, want one chapter spanning 1-42", got)
    }
}

func TestValidate(t *testing.T) {
    tests := []struct {
        name    string
        bounds  []Boundary
        total   int
        wantErr bool
    }{
        {
            name: "valid contiguous",
            bounds: []Boundary{
                {Index: 1, StartPage: 1, EndPage: 3},
                {Index: 2, StartPage: 4, EndPage: 10},
            },
            total: 10,
        },
        {
            name: "valid with gap",
            bounds: []Boundary{
                {Index: 1, StartPage: 2, EndPage: 5},
                {Index: 2, StartPage: 9, EndPage: 12},
            },
            total: 20,
        },
        {
            name:    "start before page 1",
            bounds:  []Boundary{{Index: 1, StartPage: 0, EndPage: 3}},
            total:   10,
            wantErr: true,
        },
        {
            name:    "end past document",
            bounds:  []Boundary{{Index: 1, StartPage: 1, EndPage: 11}},
            total:   10,
            wantErr: true,
        },
        {
            name:    "start after end",
            bounds:  []Boundary{{Index: 1, StartPage: 5, EndPage: 3}},
            total:   10,
            wantErr: true,
        },
        {
            name: "overlapping chapters",
            bounds: []Boundary{
                {Index: 1, StartPage: 1, EndPage: 5},
                {Index: 2, StartPage: 5, EndPage: 10},
            },
            total:   10,
            wantErr: true,
        },
    }

    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            err := Validate(tt.bounds, tt.total)
            if (err != nil) != tt.wantErr {
                t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
            }
            if err != nil && !errors.Is(err, ErrInvalidRange) {
                t.Errorf("Validate() error %v is not ErrInvalidRange", err)
            }
        })
    }
}

func TestSelectionApply(t *testing.T) {
    bounds := []Boundary{
        {Index: 1, Title: "Intro", StartPage: 1, EndPage: 3},
        {Index: 2, Title: "One", StartPage: 4, EndPage: 7},
        {Index: 3, Title: "Two", StartPage: 8, EndPage: 10},
    }

    t.Run("nil include selects all", func(t *testing.T) {
        got := Selection{}.Apply(bounds, 10)
        if len(got) != 3 {
            t.Fatalf("Apply() returned %d chapters, want 3", len(got))
        }
    })

    t.Run("exclusion drops chapters", func(t *testing.T) {
        sel := Selection{Include: map[int]bool{1: true, 3: true}}
        got := sel.Apply(bounds, 10)
        if len(got) != 2 || got[0].Index != 1 || got[1].Index != 3 {
            t.Fatalf("Apply() = %v, want chapters 1 and 3", got)
        }
    })

    t.Run("positive offset clamps end", func(t *testing.T) {
        sel := Selection{Offset: 2}
        got := sel.Apply(bounds, 10)
        if len(got) != 3 {
            t.Fatalf("Apply() returned %d chapters, want 3", len(got))
        }
        if got[0].StartPage != 3 || got[0].EndPage != 5 {
            t.Errorf("chapter 1 shifted to %d-%d, want 3-5", got[0].StartPage, got[0].EndPage)
        }
        if got[2].EndPage != 10 {
            t.Errorf("chapter 3 end = %d, want clamped to 10", got[2].EndPage)
        }
    })

    t.Run("negative offset skips underflowing chapter", func(t *testing.T) {
        sel := Selection{Offset: -3}
        got := sel.Apply(bounds, 10)
        if len(got) != 2 {
            t.Fatalf("Apply() returned %d chapters, want 2", len(got))
        }
        if got[0].Index != 2 || got[0].StartPage != 1 {
            t.Errorf("first surviving chapter = %v, want chapter 2 starting at page 1", got[0])
        }
    })

    t.Run("offset past document end skips chapter", func(t *testing.T) {
        sel := Selection{Include: map[int]bool{3: true}, Offset: 5}
        got := sel.Apply(bounds, 10)
        if len(got) != 0 {
            t.Fatalf("Apply() = %v, want no chapters", got)
        }
    })
}
