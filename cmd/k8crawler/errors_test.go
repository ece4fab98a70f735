package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/nao1215/k8crawler/internal/config"
)

func TestExitCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: exitOK},
		{name: "plain error", err: errors.New("boom"), want: exitFailed},
		{name: "config error", err: configError(config.ErrNoSeeds), want: exitConfig},
		{name: "wrapped config error", err: fmt.Errorf("run: %w", configError(config.ErrNoSeeds)), want: exitConfig},
		{name: "failed run", err: failedError(errors.New("sink unavailable")), want: exitFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode() = %d, want %d", got, tt.want)
			}
		})
	}

	t.Run("config error keeps the sentinel", func(t *testing.T) {
		t.Parallel()
		err := configError(config.ErrNoSeeds)
		if !errors.Is(err, config.ErrNoSeeds) {
			t.Error("expected errors.Is to find ErrNoSeeds")
		}
	})
}
