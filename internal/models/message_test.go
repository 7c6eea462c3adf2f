package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusAdvances(t *testing.T) {
	cases := []struct {
		current string
		next    string
		want    bool
	}{
		{StatusSent, StatusDelivered, true},
		{StatusSent, StatusRead, true},
		{StatusDelivered, StatusRead, true},
		{StatusDelivered, StatusSent, false},
		{StatusRead, StatusDelivered, false},
		{StatusRead, StatusRead, false},
		{StatusSent, StatusSent, false},
		{StatusSent, StatusFailed, true},
		{StatusDelivered, StatusFailed, false},
		{StatusFailed, StatusDelivered, false},
		{StatusFailed, StatusRead, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusAdvances(tc.current, tc.next), "%s -> %s", tc.current, tc.next)
	}
}

func TestValidStatus(t *testing.T) {
	for _, status := range []string{StatusSent, StatusDelivered, StatusRead, StatusFailed} {
		assert.True(t, ValidStatus(status))
	}
	assert.False(t, ValidStatus("seen"))
	assert.False(t, ValidStatus(""))
}

func TestIsParticipant(t *testing.T) {
	msg := Message{FromNumber: "919000000001", ToNumber: "919000000002"}
	assert.True(t, msg.IsParticipant("919000000001"))
	assert.True(t, msg.IsParticipant("919000000002"))
	assert.False(t, msg.IsParticipant("919000000003"))
}
