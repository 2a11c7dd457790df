package pagination

import "testing"

func TestClampPageSize(t *testing.T) {
	cfg := PageSizeConfig{Default: 20, Max: 100}
	tcs := []struct {
		value int32
		cfg   PageSizeConfig
		want  int
	}{
		{value: 0, cfg: cfg, want: 20},
		{value: -3, cfg: cfg, want: 20},
		{value: 7, cfg: cfg, want: 7},
		{value: 500, cfg: cfg, want: 100},
		{value: 0, cfg: PageSizeConfig{}, want: 1},
		{value: 500, cfg: PageSizeConfig{Default: 5}, want: 500},
	}
	for _, tc := range tcs {
		if got := ClampPageSize(tc.value, tc.cfg); got != tc.want {
			t.Fatalf("ClampPageSize(%d, %+v) = %d, want %d", tc.value, tc.cfg, got, tc.want)
		}
	}
}
