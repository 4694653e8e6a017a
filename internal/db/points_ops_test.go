package db

import (
	"database/sql"
	"testing"
	"time"
)

func TestDailyGiftRemaining(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	window := 24 * time.Hour

	tests := []struct {
		name     string
		lastGift sql.NullTime
		want     time.Duration
	}{
		{
			name: "подарок еще не получался",
			want: 0,
		},
		{
			name:     "внутри окна",
			lastGift: sql.NullTime{Valid: true, Time: now.Add(-10 * time.Hour)},
			want:     14 * time.Hour,
		},
		{
			name:     "секунда до конца окна",
			lastGift: sql.NullTime{Valid: true, Time: now.Add(-window + time.Second)},
			want:     time.Second,
		},
		{
			name:     "ровно на границе окна",
			lastGift: sql.NullTime{Valid: true, Time: now.Add(-window)},
			want:     0,
		},
		{
			name:     "окно давно прошло",
			lastGift: sql.NullTime{Valid: true, Time: now.Add(-48 * time.Hour)},
			want:     0,
		},
		{
			// Скользящее окно, а не календарные сутки: получение вчера
			// вечером не открывает подарок сегодня утром.
			name:     "следующий календарный день, но окно не истекло",
			lastGift: sql.NullTime{Valid: true, Time: time.Date(2026, 8, 31, 23, 0, 0, 0, time.UTC)},
			want:     11 * time.Hour,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := DailyGiftRemaining(now, tc.lastGift, window)
			if got != tc.want {
				t.Errorf("DailyGiftRemaining: ожидалось %v, получено %v", tc.want, got)
			}
		})
	}
}

func TestComputeTransferFee(t *testing.T) {
	tests := []struct {
		amount  int64
		percent int
		want    int64
	}{
		{100, 5, 5},
		{100, 0, 0},
		{99, 5, 4}, // floor(99*5/100)
		{1, 5, 0},
		{1000, 100, 1000},
	}
	for _, tc := range tests {
		if got := ComputeTransferFee(tc.amount, tc.percent); got != tc.want {
			t.Errorf("ComputeTransferFee(%d, %d): ожидалось %d, получено %d", tc.amount, tc.percent, got, tc.want)
		}
	}
}
