// Package invoke is the command dispatch layer: one operation, two transports.
//
// Callers issue named commands with a loose argument bag and never learn
// which transport served them. In native mode the call is forwarded to an
// in-process Invoker unchanged. In HTTP mode the command is resolved through
// a static route table, the bag is partitioned into path, query, and body
// parameters, and the request is executed against the REST backend.
//
// Argument partitioning (HTTP mode):
//   - every bag key whose :key placeholder appears in the route template is
//     substituted into the URL and never sent again
//   - GET/DELETE: remaining keys become query parameters; no body is sent
//   - POST/PATCH: remaining keys are the JSON body; a "request" key, when
//     present, replaces the whole body with its value
//
// Error handling:
//   - unknown command in HTTP mode -> *NoRouteError (configuration error,
//     no network call is attempted)
//   - non-2xx response -> *StatusError carrying the backend "error" field
//     when parseable, else "HTTP <code>"
//   - 401 responses additionally publish the abv-unauthorized event,
//     debounced to one emission per two-second window
//   - network failures and native rejections propagate unchanged
//
// A 2xx response decodes as JSON when possible; 204 and empty bodies yield
// nil, and a non-JSON body is returned as its raw text rather than failing.
// No call is ever retried by this layer.
package invoke
