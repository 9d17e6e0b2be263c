package route

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuard(t *testing.T) {
	tests := []struct {
		name     string
		loggedIn bool
		want     string
	}{
		{Home, false, ""},
		{Home, true, ""},
		{About, false, ""},
		{Todo, false, Login},
		{Todo, true, ""},
		{Login, false, ""},
		{Login, true, Todo},
		{Register, false, ""},
		{Register, true, Todo},
		{Todos, false, ""},
		{Todos, true, ""},
		{"unknown", false, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Guard(tt.name, tt.loggedIn), "%s loggedIn=%v", tt.name, tt.loggedIn)
	}
}

func TestLookup(t *testing.T) {
	r, ok := Lookup(Todo)
	require.True(t, ok)
	assert.Equal(t, "/todo", r.Path)
	assert.Equal(t, Protected, r.Access)

	r, ok = Lookup(Todos)
	require.True(t, ok)
	assert.Equal(t, "/todos/{id}", r.Path)
	assert.Equal(t, Public, r.Access)

	_, ok = Lookup("nope")
	assert.False(t, ok)
}

func TestAll_ReturnsCopy(t *testing.T) {
	all := All()
	require.Len(t, all, 6)
	all[0].Path = "/changed"
	r, _ := Lookup(Home)
	assert.Equal(t, "/", r.Path)
}

func TestCheck(t *testing.T) {
	assert.NoError(t, Check(Todo, true))

	err := Check(Todo, false)
	var re *RedirectError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, Login, re.To)
	assert.Contains(t, err.Error(), "todos login")

	err = Check(Login, true)
	require.ErrorAs(t, err, &re)
	assert.Equal(t, Todo, re.To)
}
