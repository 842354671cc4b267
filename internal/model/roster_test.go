package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseStudentStatus_OnlyExactTokenIsPermission(t *testing.T) {
	require.Equal(t, StatusPermission, ParseStudentStatus("استئذان"))

	for _, raw := range []string{"", "نشط", " استئذان", "استئذان ", "other"} {
		require.Equal(t, StatusActive, ParseStudentStatus(raw), "raw=%q", raw)
	}
}

func TestGroupKey_TrimsAndSerializes(t *testing.T) {
	k := NewGroupKey("  أول ", "A  ")
	require.Equal(t, "أول|A", k.String())
	require.False(t, k.Empty())
	require.NotEqual(t, NewGroupKey("أول", "a"), k)
	require.True(t, NewGroupKey("أول", " ").Empty())
}

func TestRosterRow_FirstNonEmpty(t *testing.T) {
	row := RosterRow{ColGuardianPhone: " ", ColGuardianPhone2: "0501", ColGuardianPhone3: "0502"}
	require.Equal(t, "0501", row.FirstNonEmpty(GuardianPhoneColumns...))
	require.Equal(t, "", RosterRow{}.FirstNonEmpty(GuardianPhoneColumns...))
}

func TestParseDuplicatePolicy(t *testing.T) {
	p, ok := ParseDuplicatePolicy("last")
	require.True(t, ok)
	require.Equal(t, KeepLast, p)

	_, ok = ParseDuplicatePolicy("newest")
	require.False(t, ok)
}
