package taskz

import "testing"

func TestIdentity(t *testing.T) {
	t.Run("SameStringProducesEqualIdentity", func(t *testing.T) {
		a := newIdentity("job-1")
		b := newIdentity("job-1")
		if !a.equal(b) {
			t.Error("expected identical ids to be equal")
		}
	})

	t.Run("DifferentStringsProduceDistinctIdentity", func(t *testing.T) {
		a := newIdentity("job-1")
		b := newIdentity("job-2")
		if a.equal(b) {
			t.Error("expected different ids to not be equal")
		}
	})

	t.Run("EmptyStringIsAValidIdentity", func(t *testing.T) {
		a := newIdentity("")
		b := newIdentity("")
		if !a.equal(b) {
			t.Error("expected two empty identities to be equal")
		}
	})

	t.Run("HashCollisionIsResolvedByOriginalString", func(t *testing.T) {
		a := identity{id: "x", hash: 42}
		b := identity{id: "y", hash: 42}
		if a.equal(b) {
			t.Error("expected a hash collision with different strings to not be equal")
		}
	})
}
