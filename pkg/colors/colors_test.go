package colors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTeam(t *testing.T) {
	tests := []struct {
		name string
		team string
		raw  string
		want string
	}{
		{name: "known team", team: "Ferrari", raw: "", want: "#E8002D"},
		{name: "table beats raw", team: "Ferrari", raw: "123456", want: "#E8002D"},
		{name: "raw fallback", team: "Andretti", raw: "00FF00", want: "#00FF00"},
		{name: "no data", team: "Andretti", raw: "", want: "#888888"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Team(tc.team, tc.raw))
		})
	}
}

func TestTyre(t *testing.T) {
	assert.Equal(t, "#E8002D", Tyre("SOFT"))
	assert.Equal(t, "#888888", Tyre("PROTOTYPE"))
}
