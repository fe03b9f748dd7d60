package runner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConstantBackoff(t *testing.T) {
	p := ConstantBackoff(5 * time.Second)
	assert.Equal(t, 5*time.Second, p(1))
	assert.Equal(t, 5*time.Second, p(4))
}

func TestLinearBackoff(t *testing.T) {
	p := LinearBackoff(2 * time.Second)
	assert.Equal(t, 2*time.Second, p(1))
	assert.Equal(t, 6*time.Second, p(3))
}

func TestExponentialBackoff(t *testing.T) {
	p := ExponentialBackoff(time.Second, 10*time.Second)
	assert.Equal(t, time.Second, p(1))
	assert.Equal(t, 2*time.Second, p(2))
	assert.Equal(t, 4*time.Second, p(3))
	assert.Equal(t, 8*time.Second, p(4))
	assert.Equal(t, 10*time.Second, p(5))
	assert.Equal(t, 10*time.Second, p(9))
}
