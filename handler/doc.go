// Package handler provides type-safe HTTP request handling.
//
// A HandlerFunc receives a Context and a request value already decoded by the
// configured binders, and returns a Response. Wrap turns it into an
// http.HandlerFunc:
//
//	type ListRequest struct {
//		Page int `query:"page"`
//	}
//
//	list := func(ctx handler.Context, req ListRequest) handler.Response {
//		page, err := svc.List(ctx, userID(ctx), req.Page)
//		if err != nil {
//			return handler.JSONError(err)
//		}
//		return handler.JSON(page)
//	}
//
//	router.Get("/", handler.Wrap(list,
//		handler.WithBinders[handler.Context, ListRequest](binder.Query()),
//	))
//
// # Responses
//
//	handler.JSON(v)                         // 200 {"data": v}
//	handler.JSON(v, handler.WithJSONStatus(201))
//	handler.JSONError(err)                  // {"error": {"code", "message", "details"}}
//	handler.SSE(fn)                         // text/event-stream
//
// # Errors
//
// ErrorStatus classifies an error chain: validator.ValidationErrors become 400
// with per-field details, an HTTPError anywhere in the chain supplies its own
// status and key, binder failures become 400 and everything else is a 500
// whose message is not exposed. NewErrorHandler logs and renders through the
// same path, after running ErrorMapper functions that translate domain
// sentinels into HTTPError values.
//
// # Streaming
//
// SSE writes the event-stream headers and runs an SSEHandler on the request
// goroutine. StreamContext.Send writes "event:"/"data:" frames, Comment writes
// keep-alive comments, and every write flushes and pushes the connection write
// deadline forward when WithWriteTimeout is set.
package handler
