package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedSequence struct {
	values []int64
	calls  int
}

func (s *fixedSequence) Next(ctx context.Context, prefix string) (int64, error) {
	v := s.values[s.calls%len(s.values)]
	s.calls++
	return v, nil
}

func TestFormatReference(t *testing.T) {
	assert.Equal(t, "RET-000042", FormatReference("RET", 42))
	assert.Equal(t, "REW-999999", FormatReference("REW", 999999))
	assert.Equal(t, "RET-000001", FormatReference("RET", 1))
}

func TestIsReference(t *testing.T) {
	cases := map[string]bool{
		"RET-000042":  true,
		"REW-123456":  true,
		"RET-42":      false,
		"ret-000042":  false,
		"RETX-000042": false,
		"RET-0000420": false,
		"":            false,
	}
	for ref, want := range cases {
		assert.Equal(t, want, IsReference(ref), ref)
	}
}

func TestRandomSequence_Range(t *testing.T) {
	seq := RandomSequence{}
	for i := 0; i < 200; i++ {
		n, err := seq.Next(context.Background(), "RET")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, int64(1))
		assert.LessOrEqual(t, n, int64(999999))
		assert.True(t, IsReference(FormatReference("RET", n)))
	}
}

func TestReferenceGenerator_RetriesOnTaken(t *testing.T) {
	seq := &fixedSequence{values: []int64{7, 7, 8}}
	gen := NewReferenceGenerator(seq)

	taken := map[string]bool{"REW-000007": true}
	ref, err := gen.Generate(context.Background(), "REW", func(ctx context.Context, ref string) (bool, error) {
		return taken[ref], nil
	})
	require.NoError(t, err)
	assert.Equal(t, "REW-000008", ref)
	assert.Equal(t, 3, seq.calls)
}

func TestReferenceGenerator_GivesUpAfterBoundedAttempts(t *testing.T) {
	seq := &fixedSequence{values: []int64{1}}
	gen := NewReferenceGenerator(seq)

	_, err := gen.Generate(context.Background(), "RET", func(ctx context.Context, ref string) (bool, error) {
		return true, nil
	})
	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, referenceAttempts, seq.calls)
}

func TestReferenceGenerator_ExistsError(t *testing.T) {
	gen := NewReferenceGenerator(nil)
	boom := errors.New("db down")

	_, err := gen.Generate(context.Background(), "RET", func(ctx context.Context, ref string) (bool, error) {
		return false, boom
	})
	assert.ErrorIs(t, err, boom)
}
