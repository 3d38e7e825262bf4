package lock

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"pgregory.net/rapid"
)

// TestConcurrentMutationSafetyProperty verifies that concurrent read-modify-
// write operations on the same key, guarded by the keyed lock, always end up
// with the sequential result.
func TestConcurrentMutationSafetyProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		initial := rapid.Int64Range(1000, 100000).Draw(t, "initial")
		numOps := rapid.IntRange(2, 20).Draw(t, "numOps")

		amounts := make([]int64, numOps)
		expected := initial
		for i := range amounts {
			amounts[i] = rapid.Int64Range(-500, 500).Draw(t, "amount")
			expected += amounts[i]
		}

		key := fmt.Sprintf("user:%d", rapid.Int64Range(1, 1000000).Draw(t, "userID"))
		kl := New()
		value := initial

		var wg sync.WaitGroup
		wg.Add(numOps)
		for _, amount := range amounts {
			go func(a int64) {
				defer wg.Done()
				kl.Lock(key)
				defer kl.Unlock(key)
				value += a
			}(amount)
		}
		wg.Wait()

		if value != expected {
			t.Fatalf("value mismatch with locking: expected %d, got %d", expected, value)
		}
	})
}

// TestWithLockSerializationProperty verifies WithLock serializes closures on
// the same key.
func TestWithLockSerializationProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numOps := rapid.IntRange(5, 30).Draw(t, "numOps")
		perOp := rapid.Int64Range(1, 100).Draw(t, "perOp")

		kl := New()
		var value int64

		var wg sync.WaitGroup
		wg.Add(numOps)
		for i := 0; i < numOps; i++ {
			go func() {
				defer wg.Done()
				_ = kl.WithLock("event:abc", func() error {
					value += perOp
					return nil
				})
			}()
		}
		wg.Wait()

		if value != int64(numOps)*perOp {
			t.Fatalf("value mismatch with WithLock: expected %d, got %d", int64(numOps)*perOp, value)
		}
	})
}

// TestIndependentKeysProperty verifies locks on different keys do not
// interfere with each other's results.
func TestIndependentKeysProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numKeys := rapid.IntRange(2, 10).Draw(t, "numKeys")
		opsPerKey := rapid.IntRange(5, 20).Draw(t, "opsPerKey")

		kl := New()
		values := make([]int64, numKeys)

		var wg sync.WaitGroup
		wg.Add(numKeys * opsPerKey)
		for k := 0; k < numKeys; k++ {
			key := fmt.Sprintf("user:%d", k)
			for j := 0; j < opsPerKey; j++ {
				go func(k int, key string) {
					defer wg.Done()
					kl.Lock(key)
					defer kl.Unlock(key)
					values[k] += 10
				}(k, key)
			}
		}
		wg.Wait()

		for k := 0; k < numKeys; k++ {
			if values[k] != int64(opsPerKey)*10 {
				t.Fatalf("key %d value mismatch: expected %d, got %d", k, int64(opsPerKey)*10, values[k])
			}
		}
	})
}

// TestTryLockExclusivityProperty verifies TryLock admits callers one at a
// time and leaves the lock free afterwards.
func TestTryLockExclusivityProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numAttempts := rapid.IntRange(5, 20).Draw(t, "numAttempts")

		kl := New()
		var successes atomic.Int32

		start := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(numAttempts)
		for i := 0; i < numAttempts; i++ {
			go func() {
				defer wg.Done()
				<-start
				if kl.TryLock("user:race") {
					successes.Add(1)
					kl.Unlock("user:race")
				}
			}()
		}
		close(start)
		wg.Wait()

		if successes.Load() < 1 {
			t.Fatalf("at least one TryLock should succeed, got %d", successes.Load())
		}
		if !kl.TryLock("user:race") {
			t.Fatal("lock should be free after all attempts finish")
		}
		kl.Unlock("user:race")
	})
}
