/*
Package server exposes a schedule.Service as a JSON API over HTTP.

# Basic Usage

	store := memory.New()
	svc := schedule.NewService(store, occurrence.NewExpander(recurrence.NewEngine()))
	srv, err := server.New(svc, server.Options{
		Auth: auth.Config{DefaultOwner: "me"},
	})
	if err != nil {
		log.Fatal(err)
	}
	http.ListenAndServe(":8080", srv)

# Routes

  - GET /events?start=&end= - Occurrences of every series in the window
  - POST /events - Create a series
  - POST /events/conflicts - Check a span against the schedule
  - GET /events/{id} - The stored series with its exceptions
  - GET /events/{id}/ics - The series as iCalendar
  - GET /events/{id}/xcal - The series as xCal
  - PUT /events/{id} - Edit with editScope this, following or all
  - DELETE /events/{id} - Delete with deleteScope this, following or all
  - GET /health - Liveness, served without an owner

# Owners

Every other route acts for the owner resolved by auth.Middleware: Basic
credentials when an Authenticator is configured, otherwise the owner header,
otherwise the configured default owner. Series of other owners answer 404.

# Errors

Failures are answered with {"error": ..., "code": ...}:

  - 400 bad_request - Malformed JSON or query parameters
  - 400 validation - Field values the service rejects
  - 401 unauthorized - No owner could be resolved
  - 404 not_found - Unknown series
  - 422 invalid_scope - A scope that cannot apply to the series
  - 500 internal - Anything else, logged with the request
*/
package server
