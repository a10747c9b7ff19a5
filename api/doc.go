/*
Package api defines the wire types of the ONDC onboarding service.

Requests and responses of every endpoint live here so that the server
(package httpserver) and the client (package clients) share one definition.
All responses are wrapped in Response:

	{"success": true, "data": {...}, "message": "..."}
	{"success": false, "error": "...", "code": "NOT_FOUND"}

HTTPServerConfig carries the listener, drain and timeout settings of the
server.
*/
package api
