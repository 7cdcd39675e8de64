//go:build !debug

package registry

func (p *Registry[T]) checkExists(key string) {}
