package utils

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestOperationTimer(t *testing.T) {
	done := OperationTimer("estimate_portfolio", zerolog.New(nil).Level(zerolog.Disabled))
	time.Sleep(5 * time.Millisecond)

	d := done()
	assert.GreaterOrEqual(t, d, 5*time.Millisecond)
	assert.Less(t, d, SlowOperationThreshold)
}
