package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Adithya-Monish-Kumar-K/posting-intersection/internal/report"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/pkg/config"
)

func TestNewRunnerConcurrency(t *testing.T) {
	cfg := config.Default()
	cfg.Bench.Concurrency = 4

	tests := []struct {
		name string
		flag int
		cfg  int
		want int
	}{
		{"from config", 0, 4, 4},
		{"flag overrides", 3, 4, 3},
		{"never below one", 0, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg.Bench.Concurrency = tt.cfg
			r := newRunner(cfg, 5, tt.flag, report.Multi{})
			assert.Equal(t, tt.want, r.Concurrency)
			assert.Equal(t, 5, r.Runs)
			assert.True(t, r.OrderOperands)
			assert.Equal(t, 5*time.Second, r.SinkTimeout)
		})
	}
}

func TestFastest(t *testing.T) {
	assert.Equal(t, 2*time.Millisecond, fastest([]time.Duration{5 * time.Millisecond, 2 * time.Millisecond, 9 * time.Millisecond}))
}
