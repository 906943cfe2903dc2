// Package resource manages asynchronous data loading on top of reactive
// state. A Resource wraps a fetcher and exposes its lifecycle (Pending,
// Loading, Ready, Error) through reactive values, so effects and computed
// values that read a resource re-run automatically as the fetch progresses.
//
//	users := resource.New(rt, func(ctx context.Context) ([]User, error) {
//	    return api.ListUsers(ctx)
//	})
//
//	rt.CreateEffect(func() ripple.Cleanup {
//	    switch {
//	    case users.IsLoading():
//	        render(spinner)
//	    case users.IsError():
//	        render(errorBox(users.Error()))
//	    default:
//	        render(userTable(users.Data()))
//	    }
//	    return nil
//	})
package resource
