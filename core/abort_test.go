package core

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAbortTokenLifecycle(t *testing.T) {
	token := NewAbortToken()
	assert.False(t, token.Aborted())

	token.Set()
	assert.True(t, token.Aborted())

	// Set is idempotent
	token.Set()
	assert.True(t, token.Aborted())

	token.Clear()
	assert.False(t, token.Aborted())
}

func TestAbortTokenNilSafe(t *testing.T) {
	var token *AbortToken
	assert.False(t, token.Aborted())
}

func TestAbortTokenConcurrentAccess(t *testing.T) {
	token := NewAbortToken()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			token.Set()
		}()
		go func() {
			defer wg.Done()
			_ = token.Aborted()
		}()
	}
	wg.Wait()

	assert.True(t, token.Aborted())
}
