package schema

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/and161185/sehatin/internal/errs"
	"github.com/and161185/sehatin/internal/model"
)

func TestDefault_Tables(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{ChatHistory, HealthLogs}, Default().Names())
}

func TestValidate_ChatHistory(t *testing.T) {
	t.Parallel()

	r := Default()

	ok := model.Record{"user_id": "u1", "message": "hi", "sender": "user"}
	require.NoError(t, r.Validate(ChatHistory, ok))

	withInjected := ok.Clone()
	withInjected["id"] = "x"
	withInjected["timestamp"] = "2024-01-01T00:00:00Z"
	require.NoError(t, r.Validate(ChatHistory, withInjected))

	cases := map[string]model.Record{
		"missing message": {"user_id": "u1", "sender": "ai"},
		"bad sender":      {"user_id": "u1", "message": "hi", "sender": "bot"},
		"wrong kind":      {"user_id": 7, "message": "hi", "sender": "ai"},
		"unknown column":  {"user_id": "u1", "message": "hi", "sender": "ai", "extra": true},
		"nil required":    {"user_id": nil, "message": "hi", "sender": "ai"},
		"empty user id":   {"user_id": "", "message": "hi", "sender": "ai"},
	}
	for name, row := range cases {
		err := r.Validate(ChatHistory, row)
		require.ErrorIs(t, err, errs.ErrInvalidRecord, name)
	}
}

func TestValidate_UnknownTable(t *testing.T) {
	t.Parallel()

	err := Default().Validate("sessions", model.Record{})
	require.ErrorIs(t, err, errs.ErrUnknownTable)
}

func TestRegister_CustomTable(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register(Table{Name: "vitals", Columns: map[string]Column{
		"bpm":     {Kind: Number, Required: true, Rules: "gt=0,lt=300"},
		"resting": {Kind: Bool},
	}})

	require.NoError(t, r.Validate("vitals", model.Record{"bpm": 72}))
	require.NoError(t, r.Validate("vitals", model.Record{"bpm": 72.5, "resting": true}))
	require.ErrorIs(t, r.Validate("vitals", model.Record{"bpm": "72"}), errs.ErrInvalidRecord)
	require.ErrorIs(t, r.Validate("vitals", model.Record{"bpm": 1, "resting": "yes"}), errs.ErrInvalidRecord)
	require.ErrorIs(t, r.Validate("vitals", model.Record{"bpm": 0.0}), errs.ErrInvalidRecord)

	err := r.Validate("vitals", model.Record{"bpm": 512.0})
	require.ErrorContains(t, err, "bpm: 512 fails lt=300")

	_, ok := r.Lookup("vitals")
	require.True(t, ok)
}
