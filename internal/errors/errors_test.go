package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_ErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "message only",
			err:  &Error{Message: "bad config"},
			want: "bad config",
		},
		{
			name: "op and message",
			err:  &Error{Op: "seano.Query", Message: "bad config"},
			want: "seano.Query: bad config",
		},
		{
			name: "message and wrapped error",
			err:  &Error{Message: "bad config", Err: errors.New("boom")},
			want: "bad config: boom",
		},
		{
			name: "op, message, and wrapped error",
			err:  &Error{Op: "seano.Query", Message: "bad config", Err: errors.New("boom")},
			want: "seano.Query: bad config: boom",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	inner := errors.New("boom")
	err := Wrap(inner, KindConfig, "op", "msg")
	assert.Same(t, inner, errors.Unwrap(err))
}

func TestError_Is_MatchesByKind(t *testing.T) {
	err := Newf(KindMerge, "bad merge of %q", "owner")
	assert.True(t, errors.Is(err, New(KindMerge, "")))
	assert.False(t, errors.Is(err, New(KindConfig, "")))
}

func TestError_Is_MatchesByKindAndOp(t *testing.T) {
	err := Wrap(nil, KindRepository, "gitprobe.Probe.Walk", "boom")
	assert.True(t, errors.Is(err, &Error{Kind: KindRepository, Op: "gitprobe.Probe.Walk"}))
	assert.False(t, errors.Is(err, &Error{Kind: KindRepository, Op: "gitprobe.Probe.Refs"}))
}

func TestGetKindAndIsKind(t *testing.T) {
	err := Config("op", "bad")
	assert.Equal(t, KindConfig, GetKind(err))
	assert.True(t, IsKind(err, KindConfig))
	assert.False(t, IsKind(err, KindMerge))

	assert.Equal(t, KindUnknown, GetKind(errors.New("plain error")))
}

func TestKind_String(t *testing.T) {
	tests := map[Kind]string{
		KindUnknown:     "unknown",
		KindConfig:      "configuration",
		KindMerge:       "merge",
		KindRepository:  "repository",
		KindNotADatabase: "not_a_database",
		KindValidation:  "validation",
		KindInternal:    "internal",
	}
	for kind, want := range tests {
		assert.Equal(t, want, kind.String())
	}
}
