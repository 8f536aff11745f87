// Package http provides HTTP handlers and middleware for the dojo portal API.
//
// The router exposes the following endpoints:
//   - POST /sessions: signs a member in. Body: {"email","password"}. Response:
//     {"token","expires_at","state","destination","reset_required","days_until_expiry"}
//     with the token also surfaced via the `X-Session-Token` header and a
//     `session_token` cookie. A state of "forced_reset" sends the client to
//     /password/reset and restricts the session until the password is replaced.
//   - POST /sessions/refresh: rotates the caller's session token.
//   - DELETE /sessions/current: revokes the current session and clears the cookie.
//   - GET /password/status, PUT /password, POST /password/reset/cancel: password
//     age reporting, replacement ({"password","confirmation"}) and abandoning a
//     forced reset. These, together with logout, are the only routes a restricted
//     session may reach.
//   - GET /accounts, POST /accounts: administrator account provisioning using the
//     `accountDTO` payload defined in account_handler.go.
//   - GET /events?date= or ?from=&to=, POST /events, POST /events/series,
//     DELETE /events/{id}, POST /events/{id}/registrations: the class calendar.
//   - GET /slots?date=&type=: the hourly slot grid for one day. type accepts
//     online, special, online-individual or online-group.
//   - GET /availability?date= or ?from=&to=: days on which every event is full.
//   - POST /admin/sweep: runs the password sweep immediately.
//   - GET /healthz: liveness probe.
//
// Errors are returned as {"error_code","message","errors","destination"}.
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
