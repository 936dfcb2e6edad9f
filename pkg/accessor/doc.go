// Package accessor provides per-attribute handles for consumers.
//
// An Accessor names one attribute and is inert until bound. A Binder
// registered as a repository.Listener binds accessors when their attribute
// is added and unbinds them when it is about to be removed, so an accessor
// is connected exactly while its attribute exists:
//
//	b := accessor.NewBinder(repo)
//	repo.AddListener(b)
//	temp := accessor.New("temperature", accessor.Validate())
//	b.Register(ctx, temp)
//
//	v, err := accessor.Value[float64](ctx, temp)
//
// Interceptors wrap get and set calls; the first interceptor passed is
// the outermost.
package accessor
