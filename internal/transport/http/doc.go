// Package http contains the HTTP handlers for the license API. Handlers
// decode and validate requests, call the service layer, and shape
// responses; business outcomes ride in 200 responses the way the
// extension expects, while malformed requests and infrastructure faults
// become RFC 7807 problem details.
package http
