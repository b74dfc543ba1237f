package resolve

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type ResolveSuite struct {
	suite.Suite
}

func TestResolveSuite(t *testing.T) {
	suite.Run(t, new(ResolveSuite))
}

func (s *ResolveSuite) TestFirstString() {
	s.Run("skips non-strings and blanks", func() {
		s.Equal("hit", FirstString(nil, 42, "   ", "hit", "later"))
	})

	s.Run("trims the winner", func() {
		s.Equal("cid-1", FirstString("  cid-1  "))
	})

	s.Run("flattens nested candidate groups in encounter order", func() {
		s.Equal("a", FirstString([]any{nil, []any{"", "a"}}, "b"))
	})

	s.Run("empty when nothing qualifies", func() {
		s.Equal("", FirstString(nil, 1, true, ""))
	})
}

func (s *ResolveSuite) TestFirstTime() {
	s.Run("time value", func() {
		at := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
		s.Equal("2026-02-03T04:05:06Z", FirstTime(nil, at))
	})

	s.Run("epoch millisecond number", func() {
		s.Equal("2026-02-03T04:05:06Z", FirstTime(float64(1770091506000)))
	})

	s.Run("ten digit string is epoch seconds", func() {
		s.Equal("2026-02-03T04:05:06Z", FirstTime("1770091506"))
	})

	s.Run("thirteen digit string is epoch milliseconds", func() {
		s.Equal("2026-02-03T04:05:06Z", FirstTime("1770091506000"))
	})

	s.Run("other strings returned verbatim", func() {
		s.Equal("2026-02-03T04:05:06+08:00", FirstTime("2026-02-03T04:05:06+08:00"))
	})

	s.Run("empty when nothing qualifies", func() {
		s.Equal("", FirstTime(nil, "", time.Time{}))
	})
}

func (s *ResolveSuite) TestFlag() {
	s.Run("literal true", func() {
		s.True(Flag([]any{nil, true}))
	})

	s.Run("positive number", func() {
		s.True(Flag([]any{float64(1)}))
	})

	s.Run("positive keyword with separator drift", func() {
		s.True(Flag([]any{"CARD_COLLECTED"}))
	})

	s.Run("negative keyword short-circuits", func() {
		// "pending" wins even though "collected" follows in the list.
		s.False(Flag([]any{"pending", "collected"}))
	})

	s.Run("not_collected is negative", func() {
		s.False(Flag([]any{"NOT_COLLECTED"}))
	})

	s.Run("active does not match inactive", func() {
		s.False(Flag([]any{"inactive"}))
		s.False(Flag([]any{"STATUS_INACTIVE"}))
	})

	s.Run("extended positive set for revocation query", func() {
		s.True(Flag([]any{"REVOKED"}, "revoked", "suspended"))
		s.True(Flag([]any{"card suspended"}, "revoked", "suspended"))
	})

	s.Run("false when no candidate matches", func() {
		s.False(Flag([]any{nil, "unknown", "mystery"}))
	})
}
