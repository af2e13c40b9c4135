// Package http provides the JSON response helpers used by the container
// introspection routes.
//
//	res := gohttp.NewResponse(w)
//	res.Success(summary)          // 200 {"data": summary}
//	res.NotFound("No such name.") // 404 {"message": "No such name."}
package http
