package registry_test

import (
	"testing"

	expect "github.com/coriolis-labs/concord/internal/expect"
	"github.com/coriolis-labs/concord/registry"
)

type fakeComponent struct {
	key  string
	name string
}

func (c fakeComponent) Key() string  { return c.key }
func (c fakeComponent) Name() string { return c.name }

func TestAddGetDel(t *testing.T) {
	r := registry.New[fakeComponent]("pools")
	r.DisableLog(true)

	r.Add(fakeComponent{key: "a", name: "arena-1"})
	got, ok := r.Get("a")
	expect.True(t, ok)
	expect.Equal(t, got.name, "arena-1")

	r.DelKey("a")
	_, ok = r.Get("a")
	expect.False(t, ok)
}

func TestSliceSortedByName(t *testing.T) {
	r := registry.New[fakeComponent]("pools")
	r.DisableLog(true)
	r.Add(fakeComponent{key: "b", name: "zebra"})
	r.Add(fakeComponent{key: "a", name: "apple"})

	names := []string{}
	for _, c := range r.Slice() {
		names = append(names, c.Name())
	}
	expect.Equal(t, names, []string{"apple", "zebra"})
}

func TestAddIfNotExists(t *testing.T) {
	r := registry.New[fakeComponent]("pools")
	r.DisableLog(true)

	_, added := r.AddIfNotExists(fakeComponent{key: "a", name: "first"})
	expect.True(t, added)

	actual, added := r.AddIfNotExists(fakeComponent{key: "a", name: "second"})
	expect.False(t, added)
	expect.Equal(t, actual.name, "first")
}
