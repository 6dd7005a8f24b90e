package usecase

import "testing"

func TestShouldApplySplits(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		splitSum int
		recorded int
		want     bool
	}{
		{name: "exact match", splitSum: 5, recorded: 5, want: true},
		{name: "undercount", splitSum: 4, recorded: 5, want: false},
		{name: "overcount", splitSum: 6, recorded: 5, want: false},
		{name: "zero recorded total", splitSum: 0, recorded: 0, want: false},
		{name: "negative recorded total", splitSum: 0, recorded: -1, want: false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := shouldApplySplits(tc.splitSum, tc.recorded); got != tc.want {
				t.Fatalf("shouldApplySplits(%d, %d) = %v, want %v", tc.splitSum, tc.recorded, tc.want, got)
			}
		})
	}
}
