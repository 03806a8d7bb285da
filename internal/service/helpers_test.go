package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFormatNumber(t *testing.T) {
	day := time.Date(2025, 3, 9, 23, 30, 0, 0, time.UTC)
	cases := []struct {
		prefix string
		seq    int64
		want   string
	}{
		{"ORD", 1, "ORD20250309001"},
		{"ORD", 999, "ORD20250309999"},
		{"ORD", 1000, "ORD202503091000"},
		{"RET", 42, "RET20250309042"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, formatNumber(tc.prefix, day, tc.seq))
	}

	// 日期按 UTC 取
	ist := time.FixedZone("IST", 5*3600+1800)
	require.Equal(t, "ORD20250309001", formatNumber("ORD", time.Date(2025, 3, 10, 4, 0, 0, 0, ist), 1))
}
