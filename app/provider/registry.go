package provider

type Registry struct {
	adapters map[int32]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	items := make(map[int32]Adapter, len(adapters))
	for _, a := range adapters {
		items[a.Code()] = a
	}
	return &Registry{adapters: items}
}

func (r *Registry) Get(code int32) (Adapter, error) {
	adapter, ok := r.adapters[code]
	if !ok {
		return nil, ErrProviderNotSupported
	}
	return adapter, nil
}
