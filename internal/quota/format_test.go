package quota

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatTraffic(t *testing.T) {
	cases := []struct {
		bytes int64
		want  string
	}{
		{0, "0.00 B"},
		{512, "512.00 B"},
		{1536, "1.50 KB"},
		{5 * 1024 * 1024, "5.00 MB"},
		{1073741824, "1.00 GB"},
		{10*1073741824 + 536870912, "10.50 GB"},
		{-1, "0 B"},
		{-1073741824 * 3, "0 B"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatTraffic(tc.bytes), "bytes=%d", tc.bytes)
	}
}

func TestFormatDateUsesLocation(t *testing.T) {
	shanghai := time.FixedZone("CST", 8*3600)
	// 2024-12-31T20:00:00Z 在 UTC+8 已经是 2025-01-01。
	epoch := time.Date(2024, 12, 31, 20, 0, 0, 0, time.UTC).Unix()

	assert.Equal(t, "2024-12-31", FormatDate(epoch, time.UTC))
	assert.Equal(t, "2025-01-01", FormatDate(epoch, shanghai))
}

func TestFormatExpiry(t *testing.T) {
	assert.Equal(t, NoExpiryLabel, FormatExpiry(0, time.UTC))
	epoch := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC).Unix()
	assert.Equal(t, "2026-03-05", FormatExpiry(epoch, time.UTC))
}
