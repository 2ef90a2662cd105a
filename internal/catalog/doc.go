// Package catalog provides the HTTP client for the external card catalog.
//
// All outbound requests pass through one shared rate limiter and one fixed
// retry schedule: 429 and 5xx responses (and network failures) are retried
// per the schedule, any other non-200 status is terminal on first sight.
// Exhausted retries surface as services.ErrUnavailable so callers can tell a
// flaky catalog apart from "no match".
package catalog
